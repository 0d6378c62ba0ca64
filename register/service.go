// Package register handles first-contact user registration.
package register

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/open-rails/probekit/core"
)

// Users is the identity store slice the registration service needs.
type Users interface {
	RegisterIfAbsent(ctx context.Context, userID int64, p core.Profile) (bool, error)
}

// Ledger is the entitlement slice used to seed free-tier records.
type Ledger interface {
	Ensure(ctx context.Context, userID int64, subject string, tier core.Tier, defaultQuota int) error
}

// Service registers users idempotently and seeds the free tier of every
// configured subject with its default quota.
type Service struct {
	cfg    *core.Config
	users  Users
	ledger Ledger
	log    logrus.FieldLogger
}

func NewService(cfg *core.Config, users Users, ledger Ledger, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{cfg: cfg, users: users, ledger: ledger, log: log}
}

// RegisterIfAbsent creates the user and their free-tier records if missing.
// Returns whether this was a first-time registration, for welcome-message
// selection by the transport layer.
func (s *Service) RegisterIfAbsent(ctx context.Context, userID int64, p core.Profile) (bool, error) {
	firstTime, err := s.users.RegisterIfAbsent(ctx, userID, p)
	if err != nil {
		return false, err
	}

	free := s.cfg.DefaultFreeTier()
	for _, subj := range s.cfg.Subjects {
		policy, ok := subj.Tiers[free]
		if !ok {
			continue
		}
		if err := s.ledger.Ensure(ctx, userID, subj.Code, free, policy.DefaultQuota); err != nil {
			return firstTime, err
		}
	}

	if firstTime {
		s.log.WithField("user_id", userID).Info("register: first contact")
	}
	return firstTime, nil
}
