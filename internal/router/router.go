package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/seathold/seat-hold-service/internal/config"
	"github.com/seathold/seat-hold-service/internal/handler"
	appmw "github.com/seathold/seat-hold-service/internal/middleware"
)

// Deps bundles every handler and the shared config the router needs to
// wire routes and middleware together.
type Deps struct {
	Cfg      config.Config
	Redis    *redis.Client
	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Events   *handler.EventHandler
}

func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()
	cacheMW := appmw.NewRedisCache(cacheCfg, d.Redis)
	rateMW := appmw.NewTokenBucket(rateCfg, d.Redis)

	auth := e.Group("/api/auth")
	auth.POST("/register", d.Auth.Register, rateMW)
	auth.POST("/login", d.Auth.Login, rateMW)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/refresh-access", d.Auth.RefreshAccess)
	auth.POST("/logout", d.Auth.Logout)
	auth.GET("/me", d.Auth.Me, appmw.JWTAuth(d.Cfg.JWTSecret))

	events := e.Group("/api/events")
	events.GET("/:id/seats", d.Events.EventSeats, cacheMW)

	holds := e.Group("/api/holds", appmw.JWTAuth(d.Cfg.JWTSecret))
	holds.POST("", d.Bookings.PlaceHold, rateMW)
	holds.GET("/:token", d.Bookings.GetHold)
	holds.POST("/:token/confirm", d.Bookings.ConfirmBooking, rateMW)
	holds.DELETE("/:token", d.Bookings.CancelHold)

	bookings := e.Group("/api/bookings", appmw.JWTAuth(d.Cfg.JWTSecret))
	bookings.GET("/:reference", d.Bookings.GetBooking)
}
