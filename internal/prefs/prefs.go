// Package prefs is a small synchronous store for preferences and saved UI
// state: a flat JSON file of opaque values. It never fails loudly —
// serialization and I/O errors are logged and reads fall back to the
// caller's default.
package prefs

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopdesk/datacache/internal/logger"
)

// ErrSerialization marks a value that could not be encoded or decoded.
var ErrSerialization = errors.New("prefs: serialization failure")

// Store holds key/value preferences in a single JSON file. No TTL, no
// eviction. Safe for concurrent use.
type Store struct {
	path string

	mu     sync.Mutex
	loaded bool
	values map[string]json.RawMessage
}

// NewStore returns a store persisted at path. The file is read lazily on
// first access; a missing or unreadable file starts the store empty.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Set stores value under key. Encode or write failures are logged and the
// call is a no-op.
func (s *Store) Set(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("preference not serializable", "key", key, "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	s.values[key] = raw
	s.save()
}

// Remove deletes key if present.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.save()
}

// Clear deletes every stored preference.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.values = make(map[string]json.RawMessage)
	s.save()
}

// raw returns the stored bytes for key.
func (s *Store) raw(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	v, ok := s.values[key]
	return v, ok
}

// Get reads the preference stored under key into a value of type T,
// returning def when the key is absent or the stored bytes do not decode.
func Get[T any](s *Store, key string, def T) T {
	raw, ok := s.raw(key)
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.Warn("preference undecodable", "key", key, "err", errors.Join(ErrSerialization, err))
		return def
	}
	return v
}

// load reads the backing file once. Callers hold s.mu.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.values = make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("preferences unreadable, starting empty", "path", s.path, "err", err)
		}
		return
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		logger.Warn("preferences corrupt, starting empty", "path", s.path, "err", err)
		s.values = make(map[string]json.RawMessage)
	}
}

// save writes the backing file. Callers hold s.mu.
func (s *Store) save() {
	data, err := json.Marshal(s.values)
	if err != nil {
		logger.Warn("preferences not serializable", "path", s.path, "err", err)
		return
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Warn("preferences dir not writable", "path", s.path, "err", err)
			return
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		logger.Warn("preferences not written", "path", s.path, "err", err)
	}
}
