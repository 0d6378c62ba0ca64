package catalog

import (
	"time"

	"github.com/open-rails/probekit/core"
)

// Item is an immutable catalog entry. IDs are strictly increasing within a
// (subject, tier) partition, assigned at ingestion.
type Item struct {
	ID         int64     `json:"id"`
	Subject    string    `json:"subject"`
	Tier       core.Tier `json:"tier"`
	Label      string    `json:"label"`
	PayloadRef string    `json:"payload_ref"`
	IngestedAt time.Time `json:"ingested_at"`
}
