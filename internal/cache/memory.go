package cache

import (
	"context"
	"sync"
	"time"
)

const defaultRetention = 24 * time.Hour

type memoryEntry struct {
	payload []byte
	meta    Meta
}

// Memory is an in-process Store backed by a map. Expired entries stay
// readable until the retention sweep drops them.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	retention time.Duration
	nowFn     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries:   make(map[string]memoryEntry),
		retention: defaultRetention,
		nowFn:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, Meta, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false
	}
	return e.payload, e.meta, true
}

func (m *Memory) Set(_ context.Context, key string, payload []byte, ttl time.Duration) {
	now := m.nowFn()
	m.mu.Lock()
	m.entries[key] = memoryEntry{
		payload: append([]byte(nil), payload...),
		meta:    Meta{Timestamp: now, TTL: ttl},
	}
	m.sweepLocked(now)
	m.mu.Unlock()
}

func (m *Memory) Meta(_ context.Context, key string) (Meta, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return Meta{}, false
	}
	return e.meta, true
}

func (m *Memory) Invalidate(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// sweepLocked drops entries past the retention horizon. Staleness alone does
// not evict; only retention does.
func (m *Memory) sweepLocked(now time.Time) {
	if m.retention <= 0 {
		return
	}
	for key, e := range m.entries {
		if now.Sub(e.meta.Timestamp) > m.retention {
			delete(m.entries, key)
		}
	}
}
