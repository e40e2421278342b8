// Package main runs the sync worker that drains the local fallback store into the API.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moodquiz/backend/config"
	"github.com/moodquiz/backend/internal/kiosk"
	"github.com/moodquiz/backend/internal/worker"
)

var once = flag.Bool("once", false, "run a single sync pass and exit")

func main() {
	os.Exit(run())
}

// run returns the exit code. Deferred cleanup always runs before main exits.
func run() int {
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	k, err := kiosk.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open kiosk", zap.Error(err))
		return 1
	}
	defer func() {
		if err := k.Close(); err != nil {
			logger.Error("close kiosk", zap.Error(err))
		}
	}()

	processor := worker.NewSyncProcessor(k.Gateway, k.Reconciler, cfg.Client.SyncInterval, logger.Named("worker"))

	if *once {
		res, err := processor.Process(ctx)
		remoteDown := errors.Is(err, worker.ErrRemoteDown)
		if err != nil && !remoteDown {
			logger.Error("sync failed", zap.Error(err))
			return 1
		}
		logger.Info("sync pass done",
			zap.Int("users", res.SyncedUsers),
			zap.Int("responses", res.SyncedResponses),
			zap.Int("rejected_users", res.RejectedUsers),
			zap.Int("rejected_responses", res.RejectedResponses),
			zap.Bool("remote_down", remoteDown),
		)
		return 0
	}

	logger.Info("worker started",
		zap.String("api", cfg.Client.APIBaseURL),
		zap.String("store", cfg.Client.LocalStore),
		zap.Duration("interval", cfg.Client.SyncInterval),
	)
	processor.Run(ctx)
	logger.Info("worker stopped")
	return 0
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
