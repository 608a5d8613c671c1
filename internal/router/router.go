// Package router wires the HTTP route tree: the public booking surface
// under /v1 and the JWT-protected back office under /v1/admin.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/hyeonsu-kim/villa-booking/internal/config"
	"github.com/hyeonsu-kim/villa-booking/internal/handler"
	"github.com/hyeonsu-kim/villa-booking/internal/middleware"
)

// RegisterRoutes registers routes that carry no middleware at all.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers; must stay outside the rate limiter.
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the guest-facing booking endpoints.  The
// whole group sits behind the token-bucket rate limiter; the
// availability search additionally goes through the Redis response
// cache so bursts of identical searches hit the database once per TTL.
func RegisterPublic(e *echo.Echo, b *handler.BookingHandler, rdb *redis.Client) {
	g := e.Group("/v1")
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	g.GET("/availability", b.SearchAvailability,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	g.POST("/quote", b.Quote)
	g.POST("/reservations", b.CreateReservation)
	g.GET("/reservations/:no", b.GetReservation)
	g.POST("/reservations/:no/cancel", b.SelfCancel)
	// Called by the payment gateway, not by guests.
	g.POST("/payments/callback", b.PaymentCallback)
}

// RegisterAdmin registers the back-office endpoints.  Every route
// requires a valid access token with the ADMIN role.
func RegisterAdmin(e *echo.Echo, r *handler.AdminReservationHandler, s *handler.AdminScheduleHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	g.GET("/reservations", r.List)
	g.GET("/reservations/:no", r.Get)
	g.POST("/reservations/:no/cancel", r.Cancel)
	g.POST("/reservations/:no/revert", r.Revert)
	g.POST("/reservations/:no/discard", r.Discard)
	g.POST("/reservations/:no/check-in", r.CheckIn)
	g.POST("/reservations/:no/check-out", r.CheckOut)
	g.PATCH("/reservations/:no/visibility", r.SetVisibility)

	g.PUT("/rooms/:id/rates", s.PutRates)
	g.PUT("/rooms/:id/overrides/:date", s.SetOverride)
	g.DELETE("/rooms/:id/overrides/:date", s.DeleteOverride)
	g.GET("/rooms/:id/blocks", s.ListBlocks)
	g.PUT("/rooms/:id/blocks/:date", s.AddBlock)
	g.DELETE("/rooms/:id/blocks/:date", s.RemoveBlock)
}
