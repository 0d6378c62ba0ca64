package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/probekit/adapters/ginutil"
	"github.com/open-rails/probekit/lang"
)

// UserCounter reports the number of registered users.
type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

func HandleStatsUsersGET(users UserCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := users.Count(c.Request.Context())
		if err != nil {
			ginutil.Unavailable(c, "storage_unavailable")
			return
		}
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{"count": n, "message": lang.T(ctx, lang.KeySubscriberCount, n)})
	}
}
