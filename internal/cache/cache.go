package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Meta describes when an entry was captured and how long it is considered
// fresh. Entries are kept past their TTL so offline callers can still read
// them; staleness is always the caller's judgement.
type Meta struct {
	Timestamp time.Time
	TTL       time.Duration
}

// Stale reports whether the entry has outlived its TTL at the given instant.
func (m Meta) Stale(now time.Time) bool {
	return now.Sub(m.Timestamp) > m.TTL
}

// Store is a TTL key-value store with no domain knowledge. Each component
// layers its own stale/offline/absent policy on top.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, Meta, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
	Meta(ctx context.Context, key string) (Meta, bool)
	Invalidate(ctx context.Context, key string)
}

// OnlineFunc answers whether the host currently has connectivity. The zero
// behavior (nil func) is treated as always online.
type OnlineFunc func() bool

// Online normalizes a possibly nil OnlineFunc.
func Online(fn OnlineFunc) bool {
	if fn == nil {
		return true
	}
	return fn()
}

// Put JSON-encodes value under key.
func Put[T any](ctx context.Context, s Store, key string, value T, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.Set(ctx, key, raw, ttl)
	return nil
}

// Lookup decodes the entry stored under key, stale or not. The Meta result
// lets callers decide whether a stale hit is acceptable.
func Lookup[T any](ctx context.Context, s Store, key string) (T, Meta, bool) {
	var zero T
	raw, meta, ok := s.Get(ctx, key)
	if !ok {
		return zero, Meta{}, false
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, Meta{}, false
	}
	return out, meta, true
}
