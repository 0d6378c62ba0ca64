package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/probekit/adapters/ginutil"
	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/delivery"
	"github.com/open-rails/probekit/lang"
)

// Orchestrator is the delivery engine surface this handler calls.
type Orchestrator interface {
	Deliver(ctx context.Context, req core.DeliveryRequest) (*delivery.Result, error)
}

func HandleDeliveryPOST(cfg *core.Config, orch Orchestrator, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			UserID  int64  `json:"user_id" binding:"required"`
			Subject string `json:"subject" binding:"required"`
			Tier    string `json:"tier" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			ginutil.BadRequest(c, "invalid_body")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLDeliver, strconv.FormatInt(body.UserID, 10)) {
			ginutil.TooMany(c)
			return
		}

		req := core.DeliveryRequest{UserID: body.UserID, Subject: body.Subject, Tier: core.Tier(body.Tier)}
		res, err := orch.Deliver(c.Request.Context(), req)
		if err != nil {
			writeDeliveryError(c, cfg, req, err)
			return
		}

		ctx := c.Request.Context()
		captionKey := lang.KeyDeliveredPaid
		if req.Tier == cfg.DefaultFreeTier() {
			captionKey = lang.KeyDeliveredFree
		}
		c.JSON(http.StatusOK, gin.H{"delivered": gin.H{
			"payload_ref":     res.Item.PayloadRef,
			"caption":         lang.T(ctx, captionKey, res.Item.Label),
			"receipt":         res.ReceiptCode,
			"protect_content": res.ProtectContent,
			"privileged":      res.Privileged,
		}})
	}
}
