package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// ErrNotFound marks a lookup for a key with no record.
	ErrNotFound = errors.New("cache: not found")
	// ErrPersistence marks a failed transaction against the durable tier.
	ErrPersistence = errors.New("cache: persistence failure")
)

// Persistent is a durable KV store backed by a single bbolt bucket. Records
// carry the raw JSON value and the epoch-millisecond write timestamp; no TTL
// is applied here — expiry policy belongs to the caller.
//
// The database is opened lazily on first use. Concurrent first calls are
// serialized onto a single open, so exactly one handle exists per store.
// It is safe for concurrent use by multiple goroutines.
type Persistent struct {
	path   string
	bucket []byte

	openOnce sync.Once
	openErr  error
	db       *bolt.DB

	mu sync.RWMutex
}

// PersistentOptions configures a Persistent store.
type PersistentOptions struct {
	// Bucket is the name of the Bolt bucket to use. Defaults to "cache".
	Bucket string
}

// record is the on-disk layout: one JSON object per key.
type record struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"` // epoch ms
}

// NewPersistent returns a store for the database file at path. The file is
// not touched until the first operation.
func NewPersistent(path string, opts PersistentOptions) *Persistent {
	bucket := []byte("cache")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	return &Persistent{path: path, bucket: bucket}
}

// init opens the database and creates the bucket. Idempotent; every
// operation calls it and racers share one outcome.
func (p *Persistent) init() error {
	p.openOnce.Do(func() {
		db, err := bolt.Open(p.path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
		if err != nil {
			p.openErr = fmt.Errorf("%w: open %s: %v", ErrPersistence, p.path, err)
			return
		}
		if err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(p.bucket)
			return err
		}); err != nil {
			_ = db.Close()
			p.openErr = fmt.Errorf("%w: create bucket: %v", ErrPersistence, err)
			return
		}
		p.db = db
	})
	return p.openErr
}

// Close closes the underlying database, if it was ever opened.
func (p *Persistent) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Set stores value under key with timestamp = now, in one write transaction.
func (p *Persistent) Set(key string, value json.RawMessage) error {
	if err := p.init(); err != nil {
		return err
	}
	buf, err := json.Marshal(record{Value: value, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("%w: encode %q: %v", ErrPersistence, key, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(p.bucket).Put([]byte(key), buf)
	}); err != nil {
		return fmt.Errorf("%w: put %q: %v", ErrPersistence, key, err)
	}
	return nil
}

// Get returns the stored value and its write timestamp for key.
// A missing record returns ErrNotFound.
func (p *Persistent) Get(key string) (json.RawMessage, time.Time, error) {
	if err := p.init(); err != nil {
		return nil, time.Time{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	var rec record
	var exists bool
	if err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(p.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		exists = true
		return json.Unmarshal(v, &rec)
	}); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: get %q: %v", ErrPersistence, key, err)
	}
	if !exists {
		return nil, time.Time{}, ErrNotFound
	}
	return rec.Value, time.UnixMilli(rec.Timestamp), nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (p *Persistent) Delete(key string) error {
	if err := p.init(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(p.bucket).Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("%w: delete %q: %v", ErrPersistence, key, err)
	}
	return nil
}

// Clear drops every record in the bucket.
func (p *Persistent) Clear() error {
	if err := p.init(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(p.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(p.bucket)
		return err
	}); err != nil {
		return fmt.Errorf("%w: clear: %v", ErrPersistence, err)
	}
	return nil
}
