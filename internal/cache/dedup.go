package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Deduper coalesces concurrent identical operations: at most one operation
// per key is in flight at a time, and every caller for that key receives
// the one operation's value or error.
//
// The zero value is ready to use. Safe for concurrent use.
type Deduper struct {
	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Do invokes fn at most once per key among concurrent callers. Callers that
// arrive while the key is pending wait for the original operation and share
// its result verbatim, including its error.
func (d *Deduper) Do(key string, fn func() (any, error)) (any, error) {
	d.track(key)
	v, err, _ := d.group.Do(key, fn)
	d.untrack(key)
	return v, err
}

// Dedupe is a typed wrapper around Deduper.Do for callers that share a
// value type per operation space.
func Dedupe[T any](d *Deduper, key string, fn func() (T, error)) (T, error) {
	v, err := d.Do(key, func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Len returns the number of keys currently pending.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// Clear drops every pending key without cancelling the underlying
// operations: in-flight work runs to completion and settles normally, but
// subsequent calls for the same keys start fresh operations.
func (d *Deduper) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.inflight {
		d.group.Forget(key)
	}
	d.inflight = nil
}

func (d *Deduper) track(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight == nil {
		d.inflight = make(map[string]struct{})
	}
	d.inflight[key] = struct{}{}
}

func (d *Deduper) untrack(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, key)
}
