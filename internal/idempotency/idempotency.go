// Package idempotency remembers client-supplied request keys so a retried
// payment callback resolves to the record written by the first attempt.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"
)

const DefaultTTL = 24 * time.Hour

var ErrEmptyKey = errors.New("idempotency: empty key")

// Store maps a request key to the id of the record it produced.
type Store interface {
	// Reserve stores value under key unless the key is already held. When it
	// is, the held value is returned with reserved=false and nothing is written.
	Reserve(ctx context.Context, key, value string) (held string, reserved bool, err error)
	// Release drops a key whose request did not complete.
	Release(ctx context.Context, key string) error
	Close() error
}

type entry struct {
	value   string
	expires time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

func (m *MemoryStore) Reserve(ctx context.Context, key, value string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expires) {
		return e.value, false, nil
	}
	m.entries[key] = entry{value: value, expires: now.Add(m.ttl)}
	return value, true, nil
}

func (m *MemoryStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
