package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/probekit/adapters/ginutil"
	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/lang"
)

// Registrar is the registration service surface this handler calls.
type Registrar interface {
	RegisterIfAbsent(ctx context.Context, userID int64, p core.Profile) (bool, error)
}

func HandleRegistrationPOST(svc Registrar, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			UserID    int64  `json:"user_id" binding:"required"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			ginutil.BadRequest(c, "invalid_body")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLRegister, strconv.FormatInt(body.UserID, 10)) {
			ginutil.TooMany(c)
			return
		}
		firstTime, err := svc.RegisterIfAbsent(c.Request.Context(), body.UserID, core.Profile{
			Username:  body.Username,
			FirstName: body.FirstName,
			LastName:  body.LastName,
		})
		if err != nil {
			if errors.Is(err, core.ErrUnavailable) {
				ginutil.Unavailable(c, "storage_unavailable")
			} else {
				ginutil.ServerErr(c, "registration_failed")
			}
			return
		}
		ctx := c.Request.Context()
		key := lang.KeyWelcomeBack
		if firstTime {
			key = lang.KeyWelcome
		}
		c.JSON(http.StatusOK, gin.H{"first_time": firstTime, "message": lang.T(ctx, key)})
	}
}
