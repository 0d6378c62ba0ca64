package core

import (
	"context"
	"fmt"
)

// DeliveryRequest is the validated form of a user's delivery action. The
// transport adapter builds it once, at the boundary; free-text callback
// payloads never reach the engine.
type DeliveryRequest struct {
	UserID  int64
	Subject string
	Tier    Tier
}

// Validate checks the request against the configured subject/tier table.
func (r DeliveryRequest) Validate(cfg *Config) error {
	if r.UserID == 0 {
		return fmt.Errorf("%w: missing user id", ErrInvalidArgument)
	}
	if _, ok := cfg.TierPolicy(r.Subject, r.Tier); !ok {
		return fmt.Errorf("%w: %s/%s", ErrInvalidSubject, r.Subject, r.Tier)
	}
	return nil
}

// Profile is the display metadata captured on first contact.
type Profile struct {
	Username  string
	FirstName string
	LastName  string
}

// AdminDirectory supplies the set of privileged user ids. Privileged users
// bypass cooldown and quota checks entirely.
type AdminDirectory interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// StaticAdmins is an AdminDirectory over a fixed id set.
type StaticAdmins map[int64]struct{}

// NewStaticAdmins builds a directory from explicit ids.
func NewStaticAdmins(ids ...int64) StaticAdmins {
	m := make(StaticAdmins, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func (a StaticAdmins) IsAdmin(_ context.Context, userID int64) (bool, error) {
	_, ok := a[userID]
	return ok, nil
}
