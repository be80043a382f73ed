package cache

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopdesk/datacache/internal/logger"
)

// Tiered composes a Memory tier with an optional Persistent tier. Reads hit
// memory first and fall back to the durable tier, promoting hits back into
// memory. Writes land in memory synchronously and are mirrored to the
// durable tier in the background, in call order.
//
// The memory tier is authoritative for the session: durable-tier failures
// are logged and otherwise invisible to callers.
type Tiered[V any] struct {
	namespace string
	mem       *Memory[V]
	persist   *Persistent // may be nil

	queue   chan mirrorOp
	pending sync.WaitGroup
}

type mirrorOp struct {
	op    byte // 's' set, 'd' delete, 'c' clear
	key   string
	value json.RawMessage
}

// TieredOptions configures a Tiered cache.
type TieredOptions struct {
	// Namespace names the cache (e.g. "products") and its durable bucket.
	Namespace string
	// MaxEntries bounds the memory tier.
	MaxEntries int
	// TTL is the memory-tier default TTL, also enforced against the
	// persisted write timestamp when promoting. 0 means never expire.
	TTL time.Duration
	// Path locates the bbolt file for the durable tier. Empty disables it.
	Path string
}

// NewTiered builds a cache from opts. The durable tier, when configured, is
// opened lazily on first use.
func NewTiered[V any](opts TieredOptions) *Tiered[V] {
	t := &Tiered[V]{
		namespace: opts.Namespace,
		mem:       NewMemory[V](opts.MaxEntries, opts.TTL),
	}
	if opts.Path != "" {
		t.persist = NewPersistent(opts.Path, PersistentOptions{Bucket: opts.Namespace})
		t.queue = make(chan mirrorOp, 64)
		go t.mirrorLoop()
	}
	return t
}

// Get returns the cached value for key. On a memory miss it reads the
// durable tier, re-checks the configured TTL against the persisted write
// timestamp, and promotes a live hit into memory.
func (t *Tiered[V]) Get(key string) (V, bool) {
	if v, ok := t.mem.Get(key); ok {
		return v, true
	}
	var zero V
	if t.persist == nil {
		return zero, false
	}
	raw, storedAt, err := t.persist.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("persistent read failed", "namespace", t.namespace, "key", key, "err", err)
		}
		return zero, false
	}
	if ttl := t.mem.defaultTTL; ttl > 0 && time.Since(storedAt) > ttl {
		// Stale since before the reload; drop it rather than resurrect it.
		if err := t.persist.Delete(key); err != nil {
			logger.Warn("stale record cleanup failed", "namespace", t.namespace, "key", key, "err", err)
		}
		return zero, false
	}
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.Warn("persistent record undecodable", "namespace", t.namespace, "key", key, "err", err)
		return zero, false
	}
	t.mem.Set(key, v)
	return v, true
}

// Set writes key to the memory tier and mirrors it to the durable tier.
// A Get on the same key observes the new value as soon as Set returns; the
// mirror write completes in the background and its failure is only logged.
func (t *Tiered[V]) Set(key string, value V) {
	t.mem.Set(key, value)
	if t.persist == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("value not serializable, memory tier only", "namespace", t.namespace, "key", key, "err", err)
		return
	}
	t.enqueue(mirrorOp{op: 's', key: key, value: raw})
}

// Delete removes key from both tiers.
func (t *Tiered[V]) Delete(key string) {
	t.mem.Delete(key)
	if t.persist == nil {
		return
	}
	t.enqueue(mirrorOp{op: 'd', key: key})
}

// Clear empties both tiers.
func (t *Tiered[V]) Clear() {
	t.mem.Clear()
	if t.persist == nil {
		return
	}
	t.enqueue(mirrorOp{op: 'c'})
}

// Has reports presence in the memory tier only; the durable tier is never
// consulted so the check stays synchronous and cheap.
func (t *Tiered[V]) Has(key string) bool {
	return t.mem.Has(key)
}

// Len reports the memory-tier entry count.
func (t *Tiered[V]) Len() int {
	return t.mem.Len()
}

// Flush blocks until all enqueued mirror operations have settled. Intended
// for shutdown paths and tests.
func (t *Tiered[V]) Flush() {
	t.pending.Wait()
}

// Close flushes pending mirror operations, stops the mirror worker, and
// closes the durable tier. The cache must not be written to afterwards.
func (t *Tiered[V]) Close() error {
	if t.persist == nil {
		return nil
	}
	t.Flush()
	close(t.queue)
	return t.persist.Close()
}

func (t *Tiered[V]) enqueue(op mirrorOp) {
	t.pending.Add(1)
	t.queue <- op
}

// mirrorLoop applies durable-tier mirrors one at a time, in call order, so
// rapid operations on the same key cannot land out of order.
func (t *Tiered[V]) mirrorLoop() {
	for op := range t.queue {
		var err error
		switch op.op {
		case 's':
			err = t.persist.Set(op.key, op.value)
		case 'd':
			err = t.persist.Delete(op.key)
		case 'c':
			err = t.persist.Clear()
		}
		if err != nil {
			logger.Warn("persistent mirror failed", "namespace", t.namespace, "key", op.key, "err", err)
		}
		t.pending.Done()
	}
}
