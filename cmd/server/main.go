package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cinewave/showtime-booking/internal/config"
	"github.com/cinewave/showtime-booking/internal/database"
	"github.com/cinewave/showtime-booking/internal/event"
	"github.com/cinewave/showtime-booking/internal/handler"
	"github.com/cinewave/showtime-booking/internal/lock"
	"github.com/cinewave/showtime-booking/internal/notify"
	"github.com/cinewave/showtime-booking/internal/payment"
	"github.com/cinewave/showtime-booking/internal/realtime"
	"github.com/cinewave/showtime-booking/internal/reaper"
	"github.com/cinewave/showtime-booking/internal/repository"
	"github.com/cinewave/showtime-booking/internal/router"
)

func main() {
	_ = godotenv.Load() // optional .env for local development
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		// Redis backs the seat lock store; without it competing holds
		// cannot be serialized.  Cache and rate limiting degrading is
		// fine, the lock store going missing is not.
		log.Fatal("redis is required for the seat lock store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	locker := lock.NewSeatLocker(rdb, lock.DefaultTTL)
	publisher := event.NewPublisher(cfg.AMQPURL)
	defer publisher.Close()
	hub := realtime.NewHub(rdb)
	hub.Start(ctx)
	if cfg.AMQPURL != "" {
		go event.StartConsumer(cfg.AMQPURL)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	movies := repository.NewMovieRepo(db)
	theaters := repository.NewTheaterRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	reservations := repository.NewSeatReservationRepo(db)
	bookings := repository.NewBookingRepo(db)

	sweeper := &reaper.Reaper{
		Reservations: reservations,
		Publisher:    publisher,
		Hub:          hub,
		Interval:     cfg.ReaperInterval,
	}
	go sweeper.Run(ctx)

	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	provider := payment.NewClient(cfg.RazorpayKeyID, cfg.RazorpaySecret)

	h := router.Handlers{
		Auth: &handler.AuthHandler{Users: users, Tokens: tokens, Cfg: cfg},
		Browse: &handler.BrowseHandler{Movies: movies, Showtimes: showtimes, Theaters: theaters},
		Seats: &handler.SeatHandler{
			Showtimes:    showtimes,
			Theaters:     theaters,
			Reservations: reservations,
			Movies:       movies,
			Locker:       locker,
			Publisher:    publisher,
			Hub:          hub,
		},
		Booking: &handler.BookingHandler{
			Bookings:     bookings,
			Showtimes:    showtimes,
			Theaters:     theaters,
			Reservations: reservations,
			Movies:       movies,
			Users:        users,
			Publisher:    publisher,
			Hub:          hub,
			Mailer:       mailer,
		},
		Payment: &handler.PaymentHandler{
			Bookings:     bookings,
			Showtimes:    showtimes,
			Reservations: reservations,
			Movies:       movies,
			Theaters:     theaters,
			Users:        users,
			Provider:     provider,
			Publisher:    publisher,
			Hub:          hub,
			Mailer:       mailer,
		},
	}

	e := echo.New()
	router.Register(e, h, cfg, rdb)

	go func() {
		<-ctx.Done()
		log.Printf("shutting down")
		if err := e.Shutdown(context.Background()); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Println(err)
	}
}
