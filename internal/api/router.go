package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/mw"
)

// NewAuthRouter creates and configures the identity service router.
func NewAuthRouter(cfg *config.Config, h *AuthHandler) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	api := r.Group("/api/auth")
	api.Use(rateLimiter)
	{
		api.POST("/login", h.Login)
		api.POST("/verify", h.Verify)
		api.GET("/accounts/:id", h.GetAccount)
		api.GET("/accounts", h.ListAccounts)
		api.POST("/accounts", h.CreateAccount)
	}

	return r
}

// NewSlotRouter creates and configures the slot service router. Projected
// listings are cheap to recompute but hot, so they sit behind a short
// response cache; staleness is bounded by the cache TTL.
func NewSlotRouter(cfg *config.Config, h *SlotHandler) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/slots", caching, h.List)
		api.POST("/slots", h.Create)
		api.PATCH("/slots/:id/status", h.UpdateStatus)
	}

	return r
}

// NewReservationRouter creates and configures the reservation service router.
func NewReservationRouter(cfg *config.Config, h *ReservationHandler, subs *SubscriptionHandler) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/reservations", h.Book)
		api.GET("/reservations", h.List)
		api.GET("/reservations/latest", h.Latest)
		api.POST("/reservations/:id/cancel", h.Cancel)

		if subs != nil {
			api.GET("/subscriptions", subs.Get)
			api.PUT("/subscriptions", subs.Put)
			api.DELETE("/subscriptions", subs.Delete)
			api.GET("/vapid_public_key", subs.VAPIDPublicKey)
		}
	}

	return r
}
