package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/probekit/adapters/ginutil"
	"github.com/open-rails/probekit/catalog"
	"github.com/open-rails/probekit/core"
)

// Ingester appends items to the catalog.
type Ingester interface {
	Ingest(ctx context.Context, subject string, tier core.Tier, label, payloadRef string) (*catalog.Item, error)
}

func HandleCatalogItemPOST(cfg *core.Config, ing Ingester, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Subject    string `json:"subject" binding:"required"`
			Tier       string `json:"tier" binding:"required"`
			Label      string `json:"label"`
			PayloadRef string `json:"payload_ref" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			ginutil.BadRequest(c, "invalid_body")
			return
		}
		if _, ok := cfg.TierPolicy(body.Subject, core.Tier(body.Tier)); !ok {
			ginutil.BadRequest(c, "invalid_subject")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLIngest, body.Subject) {
			ginutil.TooMany(c)
			return
		}
		item, err := ing.Ingest(c.Request.Context(), body.Subject, core.Tier(body.Tier), body.Label, body.PayloadRef)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrInvalidArgument):
				ginutil.BadRequest(c, "invalid_payload_ref")
			case errors.Is(err, core.ErrUnavailable):
				ginutil.Unavailable(c, "storage_unavailable")
			default:
				ginutil.ServerErr(c, "ingest_failed")
			}
			return
		}
		c.JSON(http.StatusCreated, gin.H{"item": item})
	}
}
