package cache

import "encoding/json"

// KV is the cache contract served by the daemon and consumed by UI
// processes: raw JSON values keyed by string. Implementations must be safe
// for concurrent use by multiple goroutines.
type KV interface {
	Get(key string) (json.RawMessage, bool)
	Set(key string, value json.RawMessage)
	Has(key string) bool
	Delete(key string)
	Clear()
	Len() int
}
