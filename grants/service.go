// Package grants implements the administrative quota-grant operation.
package grants

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/notify"
)

// Ledger is the slice of the entitlement ledger the grant service writes.
type Ledger interface {
	Grant(ctx context.Context, userID int64, subject string, tier core.Tier, delta int) (int, error)
}

// Ack confirms a grant to the administrator.
type Ack struct {
	TargetUserID int64     `json:"target_user_id"`
	Subject      string    `json:"subject"`
	Tier         core.Tier `json:"tier"`
	Amount       int       `json:"amount"`
	Remaining    int       `json:"remaining_count"`
}

// Service applies grants and schedules the target-user notification. Admin
// authorization is the caller's concern; adminID is recorded for the log only.
type Service struct {
	cfg    *core.Config
	ledger Ledger
	jobs   notify.Enqueuer
	log    logrus.FieldLogger
}

// NewService builds a grant service. jobs may be nil to skip notifications.
func NewService(cfg *core.Config, ledger Ledger, jobs notify.Enqueuer, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{cfg: cfg, ledger: ledger, jobs: jobs, log: log}
}

// Grant adds amount to the target's remaining quota for (subject, tier).
func (s *Service) Grant(ctx context.Context, adminID, targetUserID int64, subject string, tier core.Tier, amount int) (*Ack, error) {
	if _, ok := s.cfg.TierPolicy(subject, tier); !ok {
		return nil, fmt.Errorf("%w: %s/%s", core.ErrInvalidSubject, subject, tier)
	}
	remaining, err := s.ledger.Grant(ctx, targetUserID, subject, tier, amount)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"admin_id":  adminID,
		"user_id":   targetUserID,
		"subject":   subject,
		"tier":      tier,
		"amount":    amount,
		"remaining": remaining,
	}).Info("grants: applied")

	// Best effort; the grant itself stands even if the announcement cannot
	// be queued.
	if s.jobs != nil {
		_, err := s.jobs.Insert(ctx, notify.GrantNotificationArgs{
			UserID:    targetUserID,
			Subject:   subject,
			Tier:      tier,
			Amount:    amount,
			Remaining: remaining,
		}, nil)
		if err != nil {
			s.log.WithError(err).WithField("user_id", targetUserID).Warn("grants: notification enqueue failed")
		}
	}

	return &Ack{
		TargetUserID: targetUserID,
		Subject:      subject,
		Tier:         tier,
		Amount:       amount,
		Remaining:    remaining,
	}, nil
}
