package tracking

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Storage keys used by the session helpers.
const (
	SessionIDKey      = "interest_session_id"
	ViewedProductsKey = "viewed_products"
)

// SessionStore is the injected capability backing session identity and
// the durable viewed-products record. Implementations may be in-memory,
// on-disk, or client storage; the classifier never touches ambient
// state directly.
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoryStore is a mutex-guarded in-memory SessionStore, suitable for
// session-lifetime scope and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok
}

func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// scopedStore namespaces every key under one session id so a single
// backing store can hold state for many concurrent visitors. The
// session id key always answers with the bound id and is never
// rewritten.
type scopedStore struct {
	store     SessionStore
	sessionID string
}

func (s scopedStore) Get(key string) (string, bool) {
	if key == SessionIDKey {
		return s.sessionID, true
	}
	return s.store.Get(s.sessionID + ":" + key)
}

func (s scopedStore) Set(key, value string) {
	if key == SessionIDKey {
		return
	}
	s.store.Set(s.sessionID+":"+key, value)
}

// GetOrCreateSessionID returns the stable session identifier, creating
// one on first use. Idempotent: repeat calls return the same id.
func GetOrCreateSessionID(store SessionStore) string {
	if id, ok := store.Get(SessionIDKey); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	store.Set(SessionIDKey, id)
	return id
}

// ViewedProducts returns the durable list of product ids this visitor
// has seen across sessions.
func ViewedProducts(store SessionStore) []string {
	raw, ok := store.Get(ViewedProductsKey)
	if !ok || raw == "" {
		return nil
	}
	var viewed []string
	if err := json.Unmarshal([]byte(raw), &viewed); err != nil {
		return nil
	}
	return viewed
}

// AddViewedProduct records a first view exactly once; later calls for
// the same product are no-ops and the record is never removed.
func AddViewedProduct(store SessionStore, productID string) {
	viewed := ViewedProducts(store)
	for _, id := range viewed {
		if id == productID {
			return
		}
	}
	viewed = append(viewed, productID)
	if raw, err := json.Marshal(viewed); err == nil {
		store.Set(ViewedProductsKey, string(raw))
	}
}

// IsReturnVisitor reports whether the product is already present in the
// durable viewed-products record.
func IsReturnVisitor(store SessionStore, productID string) bool {
	for _, id := range ViewedProducts(store) {
		if id == productID {
			return true
		}
	}
	return false
}
