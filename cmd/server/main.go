package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hollowhill/haunt-ticketing/internal/booking"
	"github.com/hollowhill/haunt-ticketing/internal/config"
	"github.com/hollowhill/haunt-ticketing/internal/database"
	"github.com/hollowhill/haunt-ticketing/internal/handler"
	"github.com/hollowhill/haunt-ticketing/internal/middleware"
	"github.com/hollowhill/haunt-ticketing/internal/queue"
	"github.com/hollowhill/haunt-ticketing/internal/repository"
	"github.com/hollowhill/haunt-ticketing/internal/router"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := newLogger(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	defer db.Close()

	// Redis backs the advisory capacity cache, the rate limiter and the
	// response cache.  All three degrade gracefully when it is absent.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable; capacity cache, rate limiting and response cache disabled")
	}

	store := repository.NewStore(db)
	tokens := repository.NewTokenRepo(db)
	staff := repository.NewStaffRepo(db)

	notifier := queue.NewPublisher(log)
	svc := booking.NewService(store, tokens, rdb, notifier, cfg.CodePrefix, cfg.TokenTTL, cfg.CapacityCacheTTL, log)

	go queue.StartReservationConsumer(log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	var limiter, respCache echo.MiddlewareFunc
	if rdb != nil {
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		respCache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	authH := handler.NewAuthHandler(cfg, staff)
	resH := handler.NewReservationHandler(svc)
	scanH := handler.NewScanHandler(svc)
	availH := handler.NewAvailabilityHandler(store.Dates(), svc)
	adminH := handler.NewAdminHandler(store.Dates(), store.Reservations(), svc)

	router.RegisterRoutes(e)
	router.RegisterPublic(e, resH, availH, limiter, respCache)
	router.RegisterAuth(e, authH)
	router.RegisterStaff(e, scanH, adminH, authH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
