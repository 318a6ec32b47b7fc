package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"nexusmarket/internal/config"
	"nexusmarket/internal/events"
	"nexusmarket/internal/http/handlers"
	applog "nexusmarket/internal/log"
	"nexusmarket/internal/observability/tracing"
	"nexusmarket/internal/ratelimit"
	"nexusmarket/internal/repos"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, "nexusmarket", cfg.Environment)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	if err := repos.SeedAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	pub := events.New(cfg.KafkaBrokers)

	// Shared limiter counters when redis is configured, in-memory otherwise.
	var storage fiber.Storage
	if cfg.RedisURL != "" {
		rs, err := ratelimit.NewRedisStorage(cfg.RedisURL, "nexusmarket:rl:")
		if err != nil {
			applog.Warn(nil, "ratelimit.redis.unavailable", err, nil)
		} else {
			defer rs.Close()
			storage = rs
		}
	}

	deps := handlers.NewDeps(db, cfg, pub)
	app := handlers.NewApp(cfg, deps, storage)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("[server] listen: %v", err)
			stop()
		}
	}()
	applog.Info(nil, "server.start", map[string]any{"port": cfg.Port, "env": cfg.Environment})

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		applog.Error(nil, "server.shutdown", err, nil)
	}
	if err := pub.Close(); err != nil {
		applog.Error(nil, "events.close", err, nil)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		applog.Error(nil, "tracing.shutdown", err, nil)
	}
	if err := db.Close(); err != nil {
		applog.Error(nil, "db.close", err, nil)
	}
	applog.Info(nil, "server.stop", nil)
}
