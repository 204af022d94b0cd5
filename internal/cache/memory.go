package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultMaxEntries caps a MemoryStore when NewMemoryStore is given 0.
const DefaultMaxEntries = 4096

// MemoryStore is an in-process Store. Entries older than maxAge are dropped
// on read; when the store grows past maxEntries the oldest entries go first.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	maxAge     time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore returns an empty store. maxAge <= 0 keeps entries until evicted by size.
func NewMemoryStore(maxAge time.Duration, maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    make(map[string]*Entry),
		maxAge:     maxAge,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(e) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, e *Entry) error {
	cp := *e
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &cp
	if len(m.entries) > m.maxEntries {
		m.evictLocked()
	}
	return nil
}

// Touch updates the validators and storage time of key, leaving the body.
func (m *MemoryStore) Touch(_ context.Context, key, etag, lastModified string, storedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return ErrNotFound
	}
	cp := *e
	cp.ETag, cp.LastModified, cp.StoredAt = etag, lastModified, storedAt
	m.entries[key] = &cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) expired(e *Entry) bool {
	return m.maxAge > 0 && m.now().Sub(e.StoredAt) >= m.maxAge
}

// evictLocked drops expired entries, then the oldest until under the cap.
func (m *MemoryStore) evictLocked() {
	for k, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, k)
		}
	}
	if len(m.entries) <= m.maxEntries {
		return
	}
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return m.entries[keys[i]].StoredAt.Before(m.entries[keys[j]].StoredAt)
	})
	for _, k := range keys[:len(keys)-m.maxEntries] {
		delete(m.entries, k)
	}
}
