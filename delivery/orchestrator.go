package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/probekit/catalog"
	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/entitlements"
)

// Ledger is the entitlement state the orchestrator admits against.
type Ledger interface {
	Read(ctx context.Context, userID int64, subject string, tier core.Tier) (*entitlements.Record, error)
	Cooldown(ctx context.Context, userID int64, subject string, tier core.Tier) (*time.Time, error)
	CommitDelivery(ctx context.Context, userID int64, subject string, tier core.Tier, itemID int64, cooldown time.Duration, now time.Time) (*entitlements.Receipt, error)
}

// Catalog selects items for delivery.
type Catalog interface {
	NextItem(ctx context.Context, subject string, tier core.Tier, afterID int64) (*catalog.Item, error)
	RandomItem(ctx context.Context, subject string, tier core.Tier) (*catalog.Item, error)
}

// Result is a successful delivery. Denials are reported as errors from the
// core taxonomy.
type Result struct {
	Item *catalog.Item
	// ReceiptCode is a compact base58 rendering of the receipt id, suitable
	// for user-facing captions. Empty for privileged deliveries, which leave
	// no ledger trace.
	ReceiptCode string
	// ProtectContent asks the transport to forbid forwarding the payload.
	ProtectContent bool
	Privileged     bool
}

// Orchestrator runs the admission state machine:
// CheckPrivilege -> CheckCooldown -> CheckQuota -> SelectItem -> Commit.
// A commit that loses a race restarts the admission once; a persistence
// failure is retried once with backoff and never leaves a partial mutation.
type Orchestrator struct {
	cfg     *core.Config
	ledger  Ledger
	catalog Catalog
	admins  core.AdminDirectory
	audit   core.DeliveryEventLogger
	log     logrus.FieldLogger
	now     func() time.Time
	backoff time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithAudit attaches a best-effort delivery event sink.
func WithAudit(a core.DeliveryEventLogger) Option {
	return func(o *Orchestrator) { o.audit = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRetryBackoff sets the pause before the single persistence retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(o *Orchestrator) { o.backoff = d }
}

// NewOrchestrator wires the engine together. admins may be nil, in which case
// no requester is privileged.
func NewOrchestrator(cfg *core.Config, ledger Ledger, cat Catalog, admins core.AdminDirectory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		ledger:  ledger,
		catalog: cat,
		admins:  admins,
		log:     logrus.StandardLogger(),
		now:     time.Now,
		backoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Deliver decides whether the requester may receive the next item and, if so,
// commits the entitlement transition and returns the item.
func (o *Orchestrator) Deliver(ctx context.Context, req core.DeliveryRequest) (*Result, error) {
	if err := req.Validate(o.cfg); err != nil {
		return nil, err
	}

	if o.admins != nil {
		privileged, err := o.admins.IsAdmin(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: admin lookup: %v", core.ErrUnavailable, err)
		}
		if privileged {
			return o.deliverPrivileged(ctx, req)
		}
	}

	res, err := o.admit(ctx, req)
	if core.IsRetryable(err) {
		o.log.WithError(err).WithField("user_id", req.UserID).Warn("delivery: persistence failure, retrying once")
		select {
		case <-time.After(o.backoff):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", core.ErrConflict, ctx.Err())
		}
		res, err = o.admit(ctx, req)
	}
	if err != nil {
		o.denied(ctx, req, err)
		return nil, err
	}
	return res, nil
}

// deliverPrivileged bypasses cooldown and quota entirely: random selection,
// no ledger mutation.
func (o *Orchestrator) deliverPrivileged(ctx context.Context, req core.DeliveryRequest) (*Result, error) {
	item, err := o.catalog.RandomItem(ctx, req.Subject, req.Tier)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrCatalogExhausted
	}
	if err != nil {
		return nil, err
	}
	o.log.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"subject": req.Subject,
		"tier":    req.Tier,
		"item_id": item.ID,
	}).Info("delivery: privileged")
	return &Result{Item: item, ProtectContent: true, Privileged: true}, nil
}

// admit runs CheckCooldown through Commit, restarting once after a lost
// commit race.
func (o *Orchestrator) admit(ctx context.Context, req core.DeliveryRequest) (*Result, error) {
	policy, _ := o.cfg.TierPolicy(req.Subject, req.Tier)

	for attempt := 0; attempt < 2; attempt++ {
		now := o.now()

		until, err := o.ledger.Cooldown(ctx, req.UserID, req.Subject, req.Tier)
		if err != nil {
			return nil, err
		}
		if until != nil && now.Before(*until) {
			return nil, core.NewCooldownError(now, *until)
		}

		rec, err := o.ledger.Read(ctx, req.UserID, req.Subject, req.Tier)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, &core.QuotaError{NoRecord: true}
		}
		if rec.Remaining <= 0 {
			return nil, &core.QuotaError{}
		}

		item, err := o.catalog.NextItem(ctx, req.Subject, req.Tier, rec.Cursor)
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrCatalogExhausted
		}
		if err != nil {
			return nil, err
		}

		receipt, err := o.ledger.CommitDelivery(ctx, req.UserID, req.Subject, req.Tier, item.ID, policy.Cooldown, now)
		if errors.Is(err, core.ErrPreconditionFailed) {
			// Lost the race between read and commit. One restart from
			// CheckCooldown; a second loss surfaces as Conflict.
			continue
		}
		if err != nil {
			return nil, err
		}

		code := base58.Encode(receipt.ID[:])
		o.log.WithFields(logrus.Fields{
			"user_id": req.UserID,
			"subject": req.Subject,
			"tier":    req.Tier,
			"item_id": item.ID,
			"receipt": code,
		}).Info("delivery: committed")
		if o.audit != nil {
			_ = o.audit.LogDelivery(ctx, req.UserID, req.Subject, req.Tier, item.ID, code)
		}
		return &Result{Item: item, ReceiptCode: code, ProtectContent: true}, nil
	}
	return nil, core.ErrConflict
}

func (o *Orchestrator) denied(ctx context.Context, req core.DeliveryRequest, err error) {
	if !core.IsDenial(err) {
		o.log.WithError(err).WithFields(logrus.Fields{
			"user_id": req.UserID,
			"subject": req.Subject,
			"tier":    req.Tier,
		}).Error("delivery: failed")
		return
	}
	o.log.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"subject": req.Subject,
		"tier":    req.Tier,
		"reason":  err.Error(),
	}).Info("delivery: denied")
	if o.audit != nil {
		_ = o.audit.LogDenial(ctx, req.UserID, req.Subject, req.Tier, err.Error())
	}
}
