package cache

import (
	"container/list"
	"sync"
	"time"
)

// Memory is a bounded in-process KV store with TTL expiration and FIFO
// eviction by insertion order. It is safe for concurrent use by multiple
// goroutines.
//
// Expiration is lazy: entries are checked and removed on access, never by a
// background sweep, so Len may overcount until the next Get or Has.
type Memory[V any] struct {
	mu         sync.Mutex
	entries    map[string]*memEntry[V]
	order      *list.List // front = oldest inserted; element value is the key
	maxSize    int
	defaultTTL time.Duration
}

type memEntry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration // 0 means use the store default
	elem     *list.Element
}

// NewMemory returns a Memory holding at most maxSize entries. A defaultTTL
// of 0 means entries never expire unless given a per-entry TTL.
func NewMemory[V any](maxSize int, defaultTTL time.Duration) *Memory[V] {
	return &Memory[V]{
		entries:    make(map[string]*memEntry[V]),
		order:      list.New(),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
	}
}

// Set inserts or overwrites key with the store's default TTL.
func (m *Memory[V]) Set(key string, value V) {
	m.SetWithTTL(key, value, 0)
}

// SetWithTTL inserts or overwrites key with a per-entry TTL. A ttl of 0
// falls back to the store default. Inserting a new key at capacity evicts
// the oldest-inserted surviving key first, whether or not that entry has
// itself expired. Overwriting an existing key keeps its insertion-order
// slot and never triggers eviction.
func (m *Memory[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		e.value = value
		e.storedAt = time.Now()
		e.ttl = ttl
		return
	}
	if m.maxSize > 0 && len(m.entries) >= m.maxSize {
		if front := m.order.Front(); front != nil {
			oldest := front.Value.(string)
			m.order.Remove(front)
			delete(m.entries, oldest)
		}
	}
	m.entries[key] = &memEntry[V]{
		value:    value,
		storedAt: time.Now(),
		ttl:      ttl,
		elem:     m.order.PushBack(key),
	}
}

// Get returns the value for key if present and not expired. An expired
// entry is deleted as a side effect and reported as absent.
func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	e, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	if m.expired(e) {
		m.remove(key, e)
		return zero, false
	}
	return e.value, true
}

// Has reports whether key is present and not expired, with the same
// lazy-expiry side effect as Get.
func (m *Memory[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key if present.
func (m *Memory[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		m.remove(key, e)
	}
}

// Clear removes all entries.
func (m *Memory[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memEntry[V])
	m.order.Init()
}

// Len returns the number of stored entries, including entries that have
// expired but not yet been accessed.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// expired reports whether e is past its TTL. An entry is valid up to and
// including elapsed == ttl.
func (m *Memory[V]) expired(e *memEntry[V]) bool {
	ttl := e.ttl
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	if ttl <= 0 {
		return false
	}
	return time.Since(e.storedAt) > ttl
}

func (m *Memory[V]) remove(key string, e *memEntry[V]) {
	m.order.Remove(e.elem)
	delete(m.entries, key)
}
