package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/probekit/adapters/ginutil"
	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/lang"
)

// denialReason maps a denial onto the wire code the bot process switches on.
func denialReason(err error) string {
	switch {
	case errors.Is(err, core.ErrCooldownActive):
		return "cooldown_active"
	case errors.Is(err, core.ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, core.ErrCatalogExhausted):
		return "catalog_exhausted"
	case errors.Is(err, core.ErrConflict):
		return "conflict"
	default:
		return ""
	}
}

// writeDeliveryError renders engine errors: denials are a successful HTTP
// exchange carrying a denied payload; invalid input and storage failures use
// HTTP status codes.
func writeDeliveryError(c *gin.Context, cfg *core.Config, req core.DeliveryRequest, err error) {
	ctx := c.Request.Context()
	if reason := denialReason(err); reason != "" {
		title := req.Subject
		if s, ok := cfg.Subject(req.Subject); ok {
			title = s.Title
		}
		// The purchase wording applies only when the record never existed,
		// not when a granted quota was spent.
		var priceHint string
		var qe *core.QuotaError
		if errors.As(err, &qe) && qe.NoRecord {
			if policy, ok := cfg.TierPolicy(req.Subject, req.Tier); ok {
				priceHint = policy.PriceHint
			}
		}
		body := gin.H{
			"denied":  reason,
			"message": lang.DenialMessage(ctx, err, title, priceHint),
		}
		var cd *core.CooldownError
		if errors.As(err, &cd) {
			body["retry_after_seconds"] = int(cd.Remaining.Seconds())
		}
		if priceHint != "" {
			body["price_hint"] = priceHint
		}
		c.JSON(http.StatusOK, body)
		return
	}
	switch {
	case errors.Is(err, core.ErrInvalidSubject):
		ginutil.BadRequest(c, "invalid_subject")
	case errors.Is(err, core.ErrInvalidArgument):
		ginutil.BadRequest(c, "invalid_argument")
	case errors.Is(err, core.ErrUnavailable):
		ginutil.Unavailable(c, "storage_unavailable")
	default:
		ginutil.ServerErr(c, "delivery_failed")
	}
}
