package store

import (
	"context"
	"log/slog"
)

// DurableSessionStore adapts the SQLite store to the tracking
// SessionStore capability, giving the classifier cross-restart session
// and viewed-products state. Failures are logged, never surfaced: the
// classifier contract has no error path, and losing one write only
// delays return-visitor detection.
type DurableSessionStore struct {
	store Store
}

// NewDurableSessionStore wraps a Store as a SessionStore.
func NewDurableSessionStore(s Store) *DurableSessionStore {
	return &DurableSessionStore{store: s}
}

func (d *DurableSessionStore) Get(key string) (string, bool) {
	value, ok, err := d.store.GetValue(context.Background(), key)
	if err != nil {
		slog.Warn("session store read failed", slog.String("key", key), slog.String("error", err.Error()))
		return "", false
	}
	return value, ok
}

func (d *DurableSessionStore) Set(key, value string) {
	if err := d.store.SetValue(context.Background(), key, value); err != nil {
		slog.Warn("session store write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
