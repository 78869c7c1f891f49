package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/sandbox"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env", "error", err)
	}

	log := logger.Setup()
	cfg := config.Load()

	repo, closeRepo := newRepository(cfg.Sandbox, log)
	defer closeRepo()

	handler := sandbox.NewFromConfig(cfg, repo, log).Routes()

	srv := &http.Server{
		Addr:         ":" + cfg.Sandbox.HTTPPort,
		Handler:      otelhttp.NewHandler(handler, "storefront-sandbox"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("sandbox collaborators starting", "addr", srv.Addr, "currency", cfg.Currency.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sandbox.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}
	log.Info("server exited")
}

// newRepository picks redis when an address is configured and reachable,
// otherwise keeps carts in memory.
func newRepository(cfg config.Sandbox, log *slog.Logger) (sandbox.Repository, func()) {
	if cfg.RedisAddr == "" {
		log.Info("using in-memory cart repository")
		return sandbox.NewMemoryRepository(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, using in-memory cart repository", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return sandbox.NewMemoryRepository(), func() {}
	}

	log.Info("using redis cart repository", "addr", cfg.RedisAddr)
	return sandbox.NewRedisRepository(client), func() { _ = client.Close() }
}
