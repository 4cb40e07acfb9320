// Package router registers the HTTP routes of the reservation API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/jmarins/boat-tour-reservation/internal/config"
	"github.com/jmarins/boat-tour-reservation/internal/handler"
	"github.com/jmarins/boat-tour-reservation/internal/middleware"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	Public  *handler.PublicHandler
	Booking *handler.BookingHandler
	Staff   *handler.StaffHandler
}

// Register mounts all routes.  Public browse endpoints sit behind the Redis
// response cache; the public booking endpoint sits behind the distributed
// rate limiter.  Staff endpoints require a JWT with the right role.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Auth.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	me := e.Group("/v1")
	me.Use(middleware.JWTAuth(cfg.JWTSecret))
	me.GET("/me", h.Auth.Me)
	me.POST("/logout", h.Auth.Logout)

	// Public browse, cached.
	browse := e.Group("/v1")
	browse.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	browse.GET("/boats", h.Public.ListBoats)
	browse.GET("/boats/:id", h.Public.GetBoat)
	browse.GET("/boats/:id/availability", h.Public.Availability)

	// Public booking, rate limited, audit-captured for the terms trail.
	book := e.Group("/v1")
	book.Use(middleware.ClientAudit())
	book.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	book.POST("/bookings", h.Booking.Book)
	book.GET("/reservations/:id", h.Booking.Get)
	book.POST("/reservations/:id/terms", h.Booking.AcceptTerms)

	// Vendor and admin operations.
	staff := e.Group("/v1/staff")
	staff.Use(middleware.JWTAuth(cfg.JWTSecret))
	staff.Use(middleware.ClientAudit())
	staff.Use(middleware.RequireRole(handler.RoleAdmin, handler.RoleVendor))
	staff.POST("/bookings", h.Staff.Book)
	staff.POST("/reservations/:id/payments", h.Staff.RecordPayment)
	staff.GET("/boats/:id/reservations", h.Staff.ListBoatReservations)

	// Admin-only operations.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(cfg.JWTSecret))
	admin.Use(middleware.RequireRole(handler.RoleAdmin))
	admin.POST("/boats", h.Staff.CreateBoat)
	admin.PATCH("/boats/:id/status", h.Staff.UpdateBoatStatus)
	admin.POST("/boats/:id/reconcile", h.Staff.Reconcile)
	admin.POST("/reservations/:id/approve", h.Staff.Approve)
	admin.POST("/reservations/:id/cancel", h.Staff.Cancel)
	admin.POST("/reservations/:id/no-show", h.Staff.NoShow)
}
