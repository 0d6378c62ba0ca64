// Package probegin exposes the engine's operations over HTTP for the
// chat-transport process. It owns validation of raw transport input, language
// resolution, admin authentication, and per-user throttling; the engine
// behind it never sees an unvalidated request.
package probegin

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/probekit/adapters/gin/handlers"
	"github.com/open-rails/probekit/adapters/ginutil"
	"github.com/open-rails/probekit/adminauth"
	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/delivery"
	"github.com/open-rails/probekit/grants"
	"github.com/open-rails/probekit/register"
)

// Service bundles the engine components behind the HTTP surface.
type Service struct {
	cfg      *core.Config
	orch     *delivery.Orchestrator
	grants   *grants.Service
	register *register.Service
	users    handlers.UserCounter
	catalog  handlers.Ingester

	verifier *adminauth.Verifier
	keys     adminauth.Keyring
	rl       ginutil.RateLimiter
	log      logrus.FieldLogger
}

func NewService(cfg *core.Config, orch *delivery.Orchestrator, g *grants.Service, reg *register.Service, users handlers.UserCounter, cat handlers.Ingester) *Service {
	return &Service{
		cfg:      cfg,
		orch:     orch,
		grants:   g,
		register: reg,
		users:    users,
		catalog:  cat,
		log:      logrus.StandardLogger(),
	}
}

// WithAdminVerifier accepts admin bearer tokens via the given verifier.
func (s *Service) WithAdminVerifier(v *adminauth.Verifier) *Service {
	s.verifier = v
	return s
}

// WithAdminKeys accepts static admin API keys.
func (s *Service) WithAdminKeys(k adminauth.Keyring) *Service {
	s.keys = k
	return s
}

// WithRateLimiter throttles transport actions.
func (s *Service) WithRateLimiter(rl ginutil.RateLimiter) *Service {
	s.rl = rl
	return s
}

// WithLogger sets the structured logger.
func (s *Service) WithLogger(log logrus.FieldLogger) *Service {
	s.log = log
	return s
}

// RegisterAPI mounts all routes on the given engine.
func (s *Service) RegisterAPI(r *gin.Engine) {
	r.Use(LanguageMiddleware())

	v1 := r.Group("/v1")
	v1.POST("/delivery", handlers.HandleDeliveryPOST(s.cfg, s.orch, s.rl))
	v1.POST("/registrations", handlers.HandleRegistrationPOST(s.register, s.rl))
	v1.GET("/stats/users", handlers.HandleStatsUsersGET(s.users))

	admin := v1.Group("/admin", s.requireAdmin())
	admin.POST("/grants", handlers.HandleGrantPOST(s.grants, s.rl))
	admin.POST("/catalog/items", handlers.HandleCatalogItemPOST(s.cfg, s.catalog, s.rl))
}

// requireAdmin authenticates the administrator via bearer token or API key
// and records the admin id for the handlers.
func (s *Service) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth := c.GetHeader("Authorization"); s.verifier != nil && strings.HasPrefix(auth, "Bearer ") {
			claims, err := s.verifier.Verify(c.Request.Context(), strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				s.log.WithError(err).Warn("adapter: admin token rejected")
				ginutil.Unauthorized(c, "invalid_token")
				c.Abort()
				return
			}
			c.Set(ginutil.CtxAdminID, claims.UserID)
			c.Next()
			return
		}
		keyID := c.GetHeader("X-Api-Key-Id")
		if s.keys != nil && keyID != "" && s.keys.VerifyKey(keyID, c.GetHeader("X-Api-Key")) {
			if id, err := strconv.ParseInt(keyID, 10, 64); err == nil {
				c.Set(ginutil.CtxAdminID, id)
			}
			c.Next()
			return
		}
		ginutil.Unauthorized(c, "admin_auth_required")
		c.Abort()
	}
}
