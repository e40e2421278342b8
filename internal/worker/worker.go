package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moodquiz/backend/internal/models"
)

// ErrRemoteDown is returned by Process when the health probe fails.
var ErrRemoteDown = errors.New("remote down")

// HealthChecker probes the remote API.
type HealthChecker interface {
	CheckHealth(ctx context.Context) bool
}

// Reconciler uploads pending local records.
type Reconciler interface {
	Pending(ctx context.Context) (bool, error)
	Run(ctx context.Context) (models.SyncResult, error)
}

// SyncProcessor drains the local fallback store whenever the remote is reachable.
type SyncProcessor struct {
	health     HealthChecker
	reconciler Reconciler
	interval   time.Duration
	logger     *zap.Logger
}

// NewSyncProcessor creates a sync processor polling every interval.
func NewSyncProcessor(health HealthChecker, reconciler Reconciler, interval time.Duration, logger *zap.Logger) *SyncProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &SyncProcessor{health: health, reconciler: reconciler, interval: interval, logger: logger}
}

// Process runs one pass: skip when nothing is pending, fail fast when the
// remote is down, otherwise sync.
func (p *SyncProcessor) Process(ctx context.Context) (models.SyncResult, error) {
	pending, err := p.reconciler.Pending(ctx)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("check pending: %w", err)
	}
	if !pending {
		p.logger.Debug("nothing to sync")
		return models.SyncResult{}, nil
	}
	if !p.health.CheckHealth(ctx) {
		return models.SyncResult{}, ErrRemoteDown
	}
	return p.reconciler.Run(ctx)
}

// Run starts the worker loop: process, then wait for the next tick.
func (p *SyncProcessor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		res, err := p.Process(ctx)
		switch {
		case errors.Is(err, ErrRemoteDown):
			p.logger.Info("remote unreachable, sync deferred")
		case err != nil:
			p.logger.Error("sync pass failed", zap.Error(err))
		case res.SyncedUsers > 0 || res.SyncedResponses > 0 || res.RejectedUsers > 0 || res.RejectedResponses > 0:
			p.logger.Info("sync pass done",
				zap.Int("synced_users", res.SyncedUsers),
				zap.Int("synced_responses", res.SyncedResponses),
				zap.Int("rejected_users", res.RejectedUsers),
				zap.Int("rejected_responses", res.RejectedResponses))
		}

		select {
		case <-ctx.Done():
			p.logger.Info("sync worker stopping")
			return
		case <-ticker.C:
		}
	}
}
