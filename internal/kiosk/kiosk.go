// Package kiosk wires the offline-first client core from configuration.
package kiosk

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/moodquiz/backend/config"
	"github.com/moodquiz/backend/internal/gateway"
	"github.com/moodquiz/backend/internal/localstore"
	"github.com/moodquiz/backend/internal/questions"
	"github.com/moodquiz/backend/internal/remote"
	"github.com/moodquiz/backend/internal/responses"
	"github.com/moodquiz/backend/internal/syncer"
	"github.com/moodquiz/backend/pkg/redis"
)

// Kiosk bundles the client-side components sharing one local store.
type Kiosk struct {
	Questions  *questions.Set
	Remote     *remote.Client
	Store      *localstore.Store
	Gateway    *gateway.Gateway
	Reconciler *syncer.Reconciler

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// OpenStorage builds the local storage backend selected by LOCAL_STORE.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (localstore.Storage, io.Closer, error) {
	switch cfg.Client.LocalStore {
	case "memory":
		return localstore.NewMemoryStorage(), closerFunc(func() error { return nil }), nil
	case "redis":
		rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
		if err != nil {
			return nil, nil, err
		}
		return localstore.NewRedisStorage(rdb.Client, cfg.Client.RedisPrefix), closerFunc(func() error { rdb.Close(); return nil }), nil
	case "sqlite", "":
		s, err := localstore.OpenSQLite(cfg.Client.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown local store %q", cfg.Client.LocalStore)
	}
}

// Open builds the client core against the configured API and local store.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Kiosk, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	questionSet, err := questions.Load(cfg.Quiz.QuestionsFile)
	if err != nil {
		return nil, err
	}
	storage, closer, err := OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	k := New(cfg, storage, questionSet, &http.Client{}, logger)
	k.closers = append(k.closers, closer)
	return k, nil
}

// New builds the client core over an existing storage backend. Answers are
// checked against questionSet and the configured score range before they
// are stored or uploaded.
func New(cfg *config.Config, storage localstore.Storage, questionSet *questions.Set, httpClient *http.Client, logger *zap.Logger) *Kiosk {
	if logger == nil {
		logger = zap.NewNop()
	}
	if questionSet == nil {
		questionSet = questions.Default()
	}
	rules := responses.Rules{Questions: questionSet, ScoreMin: cfg.Quiz.ScoreMin, ScoreMax: cfg.Quiz.ScoreMax}
	client := remote.New(cfg.Client.APIBaseURL, cfg.Client.AdminToken, httpClient)
	store := localstore.New(storage, logger.Named("localstore"))
	gw := gateway.New(client, store, rules, gateway.Timeouts{
		Write:  cfg.Client.WriteTimeout,
		Read:   cfg.Client.ReadTimeout,
		Health: cfg.Client.HealthTimeout,
	}, logger.Named("gateway"))
	rec := syncer.New(client, store, syncer.Options{
		Mode:         syncer.Mode(cfg.Client.SyncMode),
		Concurrency:  cfg.Client.SyncConcurrency,
		WriteTimeout: cfg.Client.WriteTimeout,
		Rules:        rules,
	}, logger.Named("syncer"))
	return &Kiosk{Questions: questionSet, Remote: client, Store: store, Gateway: gw, Reconciler: rec}
}

// Close waits for background writes and releases the local store.
func (k *Kiosk) Close() error {
	k.Gateway.Wait()
	var first error
	for _, c := range k.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
