// Package app wires every gateway dependency together and runs the HTTP
// server until its context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/libervia/gateway/internal/auth"
	"github.com/libervia/gateway/internal/backup"
	"github.com/libervia/gateway/internal/config"
	"github.com/libervia/gateway/internal/httpserver"
	"github.com/libervia/gateway/internal/integration"
	"github.com/libervia/gateway/internal/platform"
	"github.com/libervia/gateway/internal/ratelimit"
	"github.com/libervia/gateway/internal/runtime"
	"github.com/libervia/gateway/internal/security"
	"github.com/libervia/gateway/internal/telemetry"
	"github.com/libervia/gateway/internal/tenant"
)

// Run reads config, connects to infrastructure, and serves HTTP until ctx
// is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)

	// The gateway must refuse to boot without a valid auth pepper: every
	// tenant token hash depends on it.
	if _, err := security.GetAuthPepper(); err != nil {
		return fmt.Errorf("auth pepper: %w", err)
	}

	logger.Info("starting gateway", "listen", cfg.ListenAddr(), "tenantBaseDir", cfg.TenantBaseDir)

	registry, err := tenant.NewRegistry(cfg.TenantBaseDir, logger)
	if err != nil {
		return fmt.Errorf("opening tenant registry: %w", err)
	}
	defer registry.Shutdown()

	metrics := telemetry.NewRegistry()

	var rateLimiter ratelimit.RateLimiter = ratelimit.New().AsRateLimiter()
	if cfg.RedisURL != "" {
		rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("closing redis", "error", err)
			}
		}()
		rateLimiter = ratelimit.NewRedisLimiter(rdb)
		logger.Info("rate limiting backed by redis", "url", cfg.RedisURL)
	} else {
		logger.Info("rate limiting in-memory (REDIS_URL not set)")
	}

	global, err := auth.LoadGlobalAdminStore(cfg.GlobalAdminConfigPath)
	if err != nil {
		return fmt.Errorf("loading global admin store: %w", err)
	}
	if cfg.GlobalAdminLegacyToken != "" {
		global = global.WithLegacyToken(cfg.GlobalAdminLegacyToken)
	}

	// Slack notifier: shared across per-tenant runtime adapters and the
	// backup/DR lifecycle callbacks below. Disabled (no-op) when
	// SLACK_BOT_TOKEN isn't set.
	slackNotifier := integration.NewSlackAdapter(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
	if slackNotifier.IsEnabled() {
		logger.Info("slack integration enabled", "channel", cfg.SlackAlertChannel)
	} else {
		logger.Info("slack integration disabled (SLACK_BOT_TOKEN not set)")
	}
	adapterFactory := integration.NewSlackAdapterFactory(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)

	rt := runtime.New(registry, adapterFactory)
	defer func() {
		if err := rt.ShutdownAll(); err != nil {
			logger.Error("shutting down tenant instances", "error", err)
		}
	}()

	backupRepo := backup.NewRepository(cfg.TenantBaseDir)
	backupCallback := backupNotifierBridge{notifier: slackNotifier}
	drProgress := drProgressBridge(slackNotifier)

	authenticator := auth.NewAuthenticator(global, registry, metrics)

	srv := httpserver.NewServer(httpserver.Deps{
		Logger:         logger,
		Registry:       registry,
		Runtime:        rt,
		Metrics:        metrics,
		Limiter:        rateLimiter,
		Authenticator:  authenticator,
		BackupRepo:     backupRepo,
		BackupCallback: backupCallback,
		DRProgress:     drProgress,
		CORSOrigins:    cfg.CORSAllowedOrigins,
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
