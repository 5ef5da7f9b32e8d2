package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dgallion1/ubreader/internal/doctree"
)

type entry struct {
	doc      *doctree.TransformedDocument
	storedAt time.Time
}

// Memory is an in-process Cache bounded by TTL and entry count. When full,
// the oldest entry is evicted.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]entry
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// NewMemory creates a Memory cache. A zero ttl or capacity disables that bound.
func NewMemory(ttl time.Duration, capacity int) *Memory {
	return &Memory{
		entries:  make(map[string]entry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (*doctree.TransformedDocument, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.expired(e, m.now()) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.doc.Clone(), true, nil
}

func (m *Memory) Set(_ context.Context, key string, doc *doctree.TransformedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && m.capacity > 0 && len(m.entries) >= m.capacity {
		m.evictOldestLocked()
	}
	m.entries[key] = entry{doc: doc.Clone(), storedAt: m.now()}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Cleanup removes expired entries.
func (m *Memory) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) expired(e entry, now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.storedAt) > m.ttl
}

func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.entries {
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	delete(m.entries, oldestKey)
}
