// Package router mounts every HTTP route onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cinewave/showtime-booking/internal/config"
	"github.com/cinewave/showtime-booking/internal/handler"
	"github.com/cinewave/showtime-booking/internal/middleware"
	"github.com/cinewave/showtime-booking/internal/model"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Browse  *handler.BrowseHandler
	Seats   *handler.SeatHandler
	Booking *handler.BookingHandler
	Payment *handler.PaymentHandler
}

// Register mounts all routes.  Catalog reads sit behind the response
// cache; every mutating route requires a valid access token and is
// rate limited.  The seat-update stream is public so a booking page
// can follow seat state before the viewer logs in.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.HealthCheck)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	auth := e.Group("/v1/auth", limiter)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	browse := e.Group("/v1", cache)
	browse.GET("/movies", h.Browse.ListMovies)
	browse.GET("/movies/:id", h.Browse.GetMovie)
	browse.GET("/theaters", h.Browse.ListTheaters)
	browse.GET("/theaters/:id", h.Browse.GetTheater)
	browse.GET("/showtimes/:movieID", h.Browse.ListShowtimes)

	// Live seat state is never cached.
	e.GET("/v1/seats/:showtimeID", h.Seats.GetSeatLayout)
	e.GET("/v1/seats/:showtimeID/stream", h.Seats.StreamSeatUpdates)

	protected := e.Group("/v1",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
		limiter,
	)
	protected.GET("/me", h.Auth.Me)
	protected.PUT("/me", h.Auth.UpdateMe)

	protected.POST("/seats/hold", h.Seats.HoldSeat)
	protected.POST("/seats/release", h.Seats.ReleaseSeat)

	protected.POST("/bookings", h.Booking.CreateBooking)
	protected.GET("/bookings", h.Booking.ListBookings)
	protected.GET("/bookings/:id", h.Booking.GetBooking)
	protected.PUT("/bookings/:id/cancel", h.Booking.CancelBooking)

	protected.POST("/payments/order", h.Payment.CreateOrder)
	protected.POST("/payments/verify", h.Payment.VerifyPayment)
	protected.POST("/payments/failure", h.Payment.PaymentFailure)
}
