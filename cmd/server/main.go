package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hyeonsu-kim/villa-booking/internal/app"
	"github.com/hyeonsu-kim/villa-booking/internal/availability"
	"github.com/hyeonsu-kim/villa-booking/internal/config"
	"github.com/hyeonsu-kim/villa-booking/internal/database"
	"github.com/hyeonsu-kim/villa-booking/internal/handler"
	"github.com/hyeonsu-kim/villa-booking/internal/payment"
	"github.com/hyeonsu-kim/villa-booking/internal/queue"
	"github.com/hyeonsu-kim/villa-booking/internal/repository"
	"github.com/hyeonsu-kim/villa-booking/internal/reservation"
	"github.com/hyeonsu-kim/villa-booking/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	logger := app.NewLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	migrator, err := app.NewMigrator(db, cfg.MigrationsDir, logger)
	if err != nil {
		log.Fatalf("migrator init failed: %v", err)
	}
	if err := migrator.Run(context.Background()); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// nil when Redis is unreachable; cache and rate limiting degrade to
	// pass-through in that case.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, response cache and rate limiting disabled")
	}

	roomRepo := repository.NewRoomRepo(db)
	rateRepo := repository.NewRateRepo(db)
	reservationRepo := repository.NewReservationRepo(db)

	resolver := availability.NewResolver(
		roomRepo, reservationRepo, rateRepo, rateRepo, cfg.FallbackNightlyPrice, logger)
	gateway := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentAPIKey, cfg.PaymentTimeout, logger)
	manager := reservation.NewManager(reservationRepo, roomRepo, resolver, gateway, logger)

	booking := handler.NewBookingHandler(roomRepo, resolver, manager, logger)
	adminRes := handler.NewAdminReservationHandler(reservationRepo, manager, logger)
	adminSched := handler.NewAdminScheduleHandler(roomRepo, rateRepo, logger)

	go queue.StartReservationConsumer(logger.Named("consumer"))

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterPublic(e, booking, rdb)
	router.RegisterAdmin(e, adminRes, adminSched, cfg.JWTSecret)

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
