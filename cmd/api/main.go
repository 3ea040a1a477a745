package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/adapters/http"
	natsadapter "github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/adapters/nats"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/adapters/postgres"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/adapters/valkey"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/ports"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/usecases"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/auth"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/config"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/logging"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/metrics"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/telemetry"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/realtime"
)

func main() {
	cfg, err := config.Load("memorylane-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Keep pool gauges current for the /metrics scrape.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			}
		}
	}()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats publisher unavailable", "error", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable", "error", err)
		subscriber = nil
	} else {
		defer subscriber.Close()
	}

	// Repos
	memoryRepo := postgres.NewMemoryRepo(db)
	userRepo := postgres.NewUserRepo(db)
	interactionRepo := postgres.NewInteractionRepo(db)

	// Use cases. Typed nils must not leak into the interface parameters:
	// the services treat a nil cache/publisher as "feature off".
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	var eventPub ports.EventPublisher
	if publisher != nil {
		eventPub = publisher
	}
	proximitySvc := usecases.NewProximityService(memoryRepo, cacheSvc, cfg.Discovery)
	memorySvc := usecases.NewMemoryService(memoryRepo, interactionRepo, userRepo, eventPub)

	// Realtime presence
	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret)
	registry := realtime.NewRegistry()
	protocol := realtime.NewProtocol(registry, userRepo, verifier)
	fanout := realtime.NewFanout(registry)

	// Broker -> fanout bridge: the only coupling between the write path and
	// live connections.
	if subscriber != nil {
		bridge := realtime.NewBridge(subscriber, fanout)
		if err := bridge.Run(ctx); err != nil {
			slog.Warn("realtime bridge unavailable", "error", err)
		}
	}

	deps := &http.Dependencies{
		Proximity: proximitySvc,
		Memories:  memorySvc,
		Users:     userRepo,
		Verifier:  verifier,
		Protocol:  protocol,
		Registry:  registry,
		DB:        db,
		Cache:     cache,
	}
	if publisher != nil {
		deps.NATS = publisher.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Memory Lane API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
