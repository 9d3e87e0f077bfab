package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/trackify/internal/auth"
	"github.com/dukerupert/trackify/internal/config"
	"github.com/dukerupert/trackify/internal/database"
	"github.com/dukerupert/trackify/internal/logging"
	"github.com/dukerupert/trackify/internal/metrics"
	"github.com/dukerupert/trackify/internal/middleware"
	"github.com/dukerupert/trackify/internal/server"
)

const (
	shutdownTimeout = 5 * time.Second
	cleanupInterval = time.Hour
	redisKeyPrefix  = "trackify:ratelimit:"
)

type ServeCmd struct{}

func (c *ServeCmd) Run(cfg *config.Config) error {
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cal, err := cfg.Calendar()
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		return err
	}
	clientIP, err := cfg.ClientIP()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	limiter, closeLimiter, err := newLimiter(cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	srv := server.New(db, server.Options{
		Calendar:       cal,
		Tokens:         tokens,
		Metrics:        m,
		Limiter:        limiter,
		ClientIP:       clientIP,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)
	m.WatchClients(reg, srv.Hub().ClientCount)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if rl := srv.RateLimiter(); rl != nil {
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					rl.Cleanup()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("trackify starting", "addr", httpServer.Addr, "timezone", cal.Location().String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newLimiter returns the shared Redis limiter when redisURL is set and the
// in-memory limiter otherwise. An unreachable Redis is logged, not fatal:
// the rate limit middleware lets requests through while it is down.
func newLimiter(redisURL string, logger *slog.Logger) (middleware.Limiter, func(), error) {
	if redisURL == "" {
		return middleware.NewRateLimiter(), func() {}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = 3
	opts.PoolTimeout = 4 * time.Second
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis connection failed", "error", err)
	}

	return middleware.NewRedisLimiter(client, redisKeyPrefix), func() { client.Close() }, nil
}
