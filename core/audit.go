package core

import (
	"context"
)

// DeliveryEventLogger records delivery outcomes to an external sink (e.g., ClickHouse).
// Implementations should be non-blocking and best-effort.
type DeliveryEventLogger interface {
	LogDelivery(ctx context.Context, userID int64, subject string, tier Tier, itemID int64, receipt string) error
	LogDenial(ctx context.Context, userID int64, subject string, tier Tier, reason string) error
}
