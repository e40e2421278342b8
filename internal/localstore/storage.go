// Package localstore is the client-side fallback persistence used while the
// remote API is unreachable. Records wait here until the sync reconciler
// uploads them.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Collection names under which pending records are stored. Records the
// server will never accept are moved to the rejected collections.
const (
	CollectionUsers             = "offline_users"
	CollectionResponses         = "offline_responses"
	CollectionRejectedUsers     = "rejected_users"
	CollectionRejectedResponses = "rejected_responses"
)

// ErrUnknownCollection is returned by storage backends for names outside the
// known collections.
var ErrUnknownCollection = errors.New("unknown collection")

func checkCollection(name string) error {
	switch name {
	case CollectionUsers, CollectionResponses, CollectionRejectedUsers, CollectionRejectedResponses:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// Storage is the key/value port the Store reads and writes whole collections
// through. GetCollection returns nil, nil for an absent collection.
type Storage interface {
	GetCollection(ctx context.Context, name string) ([]byte, error)
	SetCollection(ctx context.Context, name string, data []byte) error
}

// MemoryStorage keeps collections in process memory.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) GetCollection(_ context.Context, name string) ([]byte, error) {
	if err := checkCollection(name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStorage) SetCollection(_ context.Context, name string, data []byte) error {
	if err := checkCollection(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if data == nil {
		delete(m.data, name)
		return nil
	}
	m.data[name] = append([]byte(nil), data...)
	return nil
}
