package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phoneme/workspace/internal/auth"
	"github.com/phoneme/workspace/internal/health"
	"github.com/phoneme/workspace/internal/metrics"
	"github.com/phoneme/workspace/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("db_driver", cfg.DBDriver).
		Bool("ai_enabled", cfg.AIEnabled()).
		Msg("starting workspace assistant")

	// Context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.SeedFile != "" {
		if err := applySeedFile(ctx, s, cfg.SeedFile); err != nil {
			return err
		}
	}

	m := metrics.New()
	orch, err := buildAssistant(ctx, cfg, s, m, logger)
	if err != nil {
		return err
	}

	checker := health.NewChecker(logger)
	checker.Register("database", health.PingCheck(s))
	checker.Register("llm", health.ConfiguredCheck(orch.Configured()))

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL)
	srv := server.NewServer(server.Config{
		ListenAddr:  cfg.ListenAddr,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
	}, orch, auth.NewMiddleware(auth.MiddlewareConfig{
		Tokens:     tokens,
		Users:      s,
		CookieName: cfg.SessionCookie,
		Logger:     logger,
	}), checker, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server: %w", err)
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}

	logger.Info().Msg("workspace assistant stopped")
	return nil
}
