// Package ginutil holds shared helpers for the gin transport handlers.
package ginutil

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CtxAdminID is the gin context key carrying the authenticated admin id.
const CtxAdminID = "probekit.admin_id"

// Rate limit bucket names, one per transport action.
const (
	RLDeliver  = "deliver"
	RLGrant    = "grant"
	RLIngest   = "ingest"
	RLRegister = "register"
)

// RateLimiter throttles transport actions per key.
type RateLimiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

// AllowNamed consults the limiter, failing open on limiter errors so a redis
// outage does not take down delivery.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket, key string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.Allow(c.Request.Context(), bucket, key)
	if err != nil {
		return true
	}
	return ok
}

func TooMany(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func BadRequest(c *gin.Context, code string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": code})
}

func Unauthorized(c *gin.Context, code string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": code})
}

func ServerErr(c *gin.Context, code string) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": code})
}

func Unavailable(c *gin.Context, code string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": code})
}
