package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/metro-map/backend/internal/config"
	"github.com/onnwee/metro-map/backend/internal/errorreporting"
	"github.com/onnwee/metro-map/backend/internal/logger"
	"github.com/onnwee/metro-map/backend/internal/server"
	"github.com/onnwee/metro-map/backend/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (falling back to system env)")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	switch err := errorreporting.Init(cfg.SentryEnvironment); {
	case err != nil:
		logger.Warn("Sentry disabled", "error", err)
	case errorreporting.IsSentryEnabled():
		logger.Info("Sentry error reporting enabled", "environment", cfg.SentryEnvironment)
	default:
		logger.Debug("Sentry error reporting off, SENTRY_DSN not set")
	}
	defer errorreporting.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init(tracing.Options{
		ServiceName: "metro-map",
		Enabled:     cfg.OTELEnabled,
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("Tracing shutdown failed", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Port, err)
	}
	return srv.Run(ctx, ln)
}
