package entitlements

import (
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/probekit/core"
)

// Record is a user's durable entitlement state for one (subject, tier).
type Record struct {
	UserID    int64     `json:"user_id"`
	Subject   string    `json:"subject"`
	Tier      core.Tier `json:"tier"`
	Remaining int       `json:"remaining_count"`
	Cursor    int64     `json:"cursor"`
	// CooldownUntil is the deadline applicable under the configured cooldown
	// scope, which may be shared across tiers of the subject.
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
}

// Receipt is the audit row written atomically with every successful delivery.
type Receipt struct {
	ID          uuid.UUID `json:"id"`
	UserID      int64     `json:"user_id"`
	Subject     string    `json:"subject"`
	Tier        core.Tier `json:"tier"`
	ItemID      int64     `json:"item_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}
