package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-room-reservation/internal/booking"
	"github.com/iliyamo/hotel-room-reservation/internal/config"
	"github.com/iliyamo/hotel-room-reservation/internal/database"
	"github.com/iliyamo/hotel-room-reservation/internal/handler"
	"github.com/iliyamo/hotel-room-reservation/internal/inventory"
	"github.com/iliyamo/hotel-room-reservation/internal/logger"
	"github.com/iliyamo/hotel-room-reservation/internal/middleware"
	"github.com/iliyamo/hotel-room-reservation/internal/queue"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
	"github.com/iliyamo/hotel-room-reservation/internal/router"
	"github.com/iliyamo/hotel-room-reservation/internal/ws"
)

func main() {
	cfg := config.Load() // Load environment config

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "hotel-room-reservation")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inv := inventory.New(inventory.WithOccupancyRate(cfg.OccupancyRate))
	opts := []booking.Option{}

	// Redis backs the rate limiter and the room cache.  Without it both
	// are skipped.
	var rl, cache echo.MiddlewareFunc
	if rdb, err := config.NewRedisClient(ctx); err != nil {
		log.Warn("redis unavailable; rate limit and cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		cacheCfg := config.LoadCacheConfig()
		rl = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
		if cacheCfg.Enabled {
			cache = middleware.NewRedisCache(cacheCfg, rdb)
		}
		if ci := middleware.NewCacheInvalidator(cacheCfg, rdb, log); ci != nil {
			opts = append(opts, booking.WithObserver(ci))
		}
	}

	var ledger handler.LedgerReader
	if cfg.LedgerEnabled() {
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		repo := repository.NewBookingRepo(db)
		ledger = repo
		opts = append(opts, booking.WithLedger(repo))
		log.Info("booking ledger enabled", zap.String("db_host", cfg.DBHost), zap.String("db_name", cfg.DBName))
	}

	if cfg.BookingEventsEnabled {
		opts = append(opts, booking.WithPublisher(queue.NewPublisher(cfg.RabbitURL, log)))
		log.Info("booking events enabled", zap.String("queue", queue.RoomsBookedQueue))
	}
	if cfg.BookingConsumerEnabled {
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)
	opts = append(opts, booking.WithObserver(hub))

	svc := booking.NewService(inv, log, opts...)
	h := handler.NewBookingHandler(svc, ledger, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e)
	router.RegisterBooking(e, h, router.RoomsMiddleware{Cache: cache, RateLimit: rl})
	router.RegisterAdmin(e, h, cfg.JWTSecret)
	router.RegisterStream(e, &handler.StreamHandler{Hub: hub, Svc: svc, Logger: log})
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set; inventory admin routes are unauthenticated")
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
