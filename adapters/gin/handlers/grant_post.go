package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/probekit/adapters/ginutil"
	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/grants"
)

// Granter is the grant service surface this handler calls.
type Granter interface {
	Grant(ctx context.Context, adminID, targetUserID int64, subject string, tier core.Tier, amount int) (*grants.Ack, error)
}

func HandleGrantPOST(svc Granter, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID := c.GetInt64(ginutil.CtxAdminID)
		var body struct {
			TargetUserID int64  `json:"target_user_id" binding:"required"`
			Subject      string `json:"subject" binding:"required"`
			Tier         string `json:"tier" binding:"required"`
			Amount       int    `json:"amount" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			ginutil.BadRequest(c, "invalid_body")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLGrant, strconv.FormatInt(adminID, 10)) {
			ginutil.TooMany(c)
			return
		}
		ack, err := svc.Grant(c.Request.Context(), adminID, body.TargetUserID, body.Subject, core.Tier(body.Tier), body.Amount)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrInvalidSubject):
				ginutil.BadRequest(c, "invalid_subject")
			case errors.Is(err, core.ErrInvalidArgument):
				ginutil.BadRequest(c, "invalid_amount")
			case errors.Is(err, core.ErrUnavailable):
				ginutil.Unavailable(c, "storage_unavailable")
			default:
				ginutil.ServerErr(c, "grant_failed")
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"granted": ack})
	}
}
