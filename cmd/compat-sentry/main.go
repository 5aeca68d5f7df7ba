// Package main runs the compat-sentry webhook server: it receives GitHub
// deliveries and runs backwards-compatibility pipelines for the repositories
// that carry a workflow definition.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nathantilsley/compat-sentry/internal/githubauth"
	linediff "github.com/nathantilsley/compat-sentry/internal/pipeline/adapters/line_diff"
	"github.com/nathantilsley/compat-sentry/internal/pipeline/adapters/micromamba"
	workflowfile "github.com/nathantilsley/compat-sentry/internal/pipeline/adapters/workflow_file"
	"github.com/nathantilsley/compat-sentry/internal/pipeline/app"
	"github.com/nathantilsley/compat-sentry/internal/webhook"
)

const shutdownGracePeriod = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := parseServerConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	factory, err := githubauth.NewFactory(cfg.appID, cfg.privateKey)
	if err != nil {
		return err
	}
	prov, err := micromamba.New()
	if err != nil {
		return err
	}

	dispatcher := app.NewDispatcher(factory, prov, prov, linediff.New(), cfg.workflowPath, logger)
	srv := webhook.New(dispatcher, cfg.secret,
		webhook.WithRateLimit(cfg.rateRPS, cfg.rateBurst),
		webhook.WithLogger(logger),
	)

	httpServer := &http.Server{
		Addr:              cfg.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("listening", "addr", cfg.addr, "workflow", cfg.workflowPath)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		if closeErr := httpServer.Close(); closeErr != nil {
			logger.Error("forced close failed", "error", closeErr)
		}
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

type serverConfig struct {
	addr         string
	secret       string
	appID        int64
	privateKey   string
	workflowPath string
	rateRPS      float64
	rateBurst    int
}

func parseServerConfig() (serverConfig, error) {
	var (
		addr   = flag.String("addr", ":8080", "Listen address")
		secret = flag.String(
			"secret",
			"",
			"Webhook secret for signature validation (read from WEBHOOK_SECRET env var if not set)",
		)
		appID = flag.Int64(
			"app-id",
			0,
			"GitHub App ID (read from GITHUB_APP_ID env var if not set)",
		)
		privateKey = flag.String(
			"private-key",
			"",
			"Path to the GitHub App private key (read from GITHUB_APP_PRIVATE_KEY env var if not set)",
		)
		workflowPath = flag.String("workflow", workflowfile.DefaultPath, "In-repository path of the workflow definition")
		rateRPS      = flag.Float64("rate-limit-rps", 5, "Webhook deliveries allowed per second")
		rateBurst    = flag.Int("rate-limit-burst", 10, "Burst capacity for the delivery rate limiter")
	)
	flag.Parse()

	cfg := serverConfig{
		addr:         *addr,
		secret:       getEnvOrFlag(*secret, "WEBHOOK_SECRET"),
		privateKey:   getEnvOrFlag(*privateKey, "GITHUB_APP_PRIVATE_KEY"),
		workflowPath: *workflowPath,
		rateRPS:      *rateRPS,
		rateBurst:    *rateBurst,
	}

	if cfg.secret == "" {
		return cfg, errors.New("webhook secret required\nProvide via -secret flag or WEBHOOK_SECRET env var")
	}
	if cfg.privateKey == "" {
		return cfg, errors.New("GitHub App private key required\nProvide via -private-key flag or GITHUB_APP_PRIVATE_KEY env var")
	}

	cfg.appID = *appID
	if cfg.appID == 0 {
		if idStr := os.Getenv("GITHUB_APP_ID"); idStr != "" {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return cfg, fmt.Errorf("invalid GITHUB_APP_ID: %w", err)
			}
			cfg.appID = id
		}
	}
	if cfg.appID == 0 {
		return cfg, errors.New("GitHub App ID required\nProvide via -app-id flag or GITHUB_APP_ID env var")
	}

	return cfg, nil
}

func getEnvOrFlag(flagValue, envKey string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envKey)
}
