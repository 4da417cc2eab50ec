package router // router wires HTTP routes to their handlers and middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/roomdesk/room-booking-api/internal/config"
	"github.com/roomdesk/room-booking-api/internal/handler"
	"github.com/roomdesk/room-booking-api/internal/middleware"
	"github.com/roomdesk/room-booking-api/internal/model"
)

// Handlers groups everything Register needs to wire the API.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Rooms    *handler.RoomHandler
	Bookings *handler.BookingHandler
}

// Register sets up the full route table.
//
//	/healthz                 liveness, unauthenticated
//	/v1/auth/*               session lifecycle, unauthenticated
//	/v1/*                    JWT-protected API
//	/v1/users/*              admin only
//
// The Redis-backed rate limiter wraps every /v1 route; the response
// cache wraps only the read-side room and booking listings.
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, h Handlers) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	pub := e.Group("/v1/auth", limiter)
	pub.POST("/login", h.Auth.Login)
	pub.POST("/refresh", h.Auth.Refresh)
	pub.POST("/logout", h.Auth.Logout)

	api := e.Group("/v1", limiter, middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleEmployee))
	api.GET("/me", h.Auth.Me)

	api.GET("/rooms", h.Rooms.List, cache)
	api.GET("/rooms/:id", h.Rooms.Get, cache)

	// Self-or-admin: the handler compares the path id to the principal.
	api.GET("/users/:id", h.Users.Get)

	api.POST("/bookings", h.Bookings.Create)
	api.GET("/bookings", h.Bookings.List, cache)
	api.GET("/bookings/:id", h.Bookings.Get)
	api.PATCH("/bookings/:id", h.Bookings.Update)
	api.DELETE("/bookings/:id", h.Bookings.Delete)

	admin := api.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.POST("/rooms", h.Rooms.Create)
	admin.PATCH("/rooms/:id", h.Rooms.Update)
	admin.DELETE("/rooms/:id", h.Rooms.Delete)
	admin.POST("/users", h.Users.Create)
	admin.GET("/users", h.Users.List)
	admin.PATCH("/users/:id", h.Users.Update)
	admin.POST("/users/:id/reset-password", h.Users.ResetPassword)
	admin.DELETE("/users/:id", h.Users.Delete)
}
