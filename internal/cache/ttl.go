package cache

import (
	"sync"
	"time"
)

// TTL is a minimal in-process cache with per-key expiry, used for small hot lookups such as
// ticket metadata. Expired entries are dropped lazily on Get and by Purge.
type TTL[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]entry[V]
	now  func() time.Time
}

type entry[V any] struct {
	val V
	exp time.Time
}

func NewTTL[K comparable, V any]() *TTL[K, V] {
	return &TTL[K, V]{data: make(map[K]entry[V]), now: time.Now}
}

// Get returns the value and true if found and not expired; otherwise zero value and false.
func (t *TTL[K, V]) Get(k K) (V, bool) {
	t.mu.RLock()
	e, ok := t.data[k]
	t.mu.RUnlock()
	if !ok || t.now().After(e.exp) {
		var zero V
		if ok {
			t.mu.Lock()
			if cur, still := t.data[k]; still && cur.exp == e.exp {
				delete(t.data, k)
			}
			t.mu.Unlock()
		}
		return zero, false
	}
	return e.val, true
}

func (t *TTL[K, V]) Set(k K, v V, ttl time.Duration) {
	t.mu.Lock()
	t.data[k] = entry[V]{val: v, exp: t.now().Add(ttl)}
	t.mu.Unlock()
}

// Purge removes every expired entry and returns how many were dropped.
func (t *TTL[K, V]) Purge() int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, e := range t.data {
		if now.After(e.exp) {
			delete(t.data, k)
			n++
		}
	}
	return n
}

func (t *TTL[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}
