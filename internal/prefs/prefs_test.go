package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type filterSet struct {
	Column string `json:"column"`
	Values []string
}

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prefs.json"))

	s.Set("theme", "dark")
	assert.Equal(t, "dark", Get(s, "theme", "light"))

	s.Set("page-size", 50)
	assert.Equal(t, 50, Get(s, "page-size", 25))

	s.Set("filters", filterSet{Column: "status", Values: []string{"open", "paid"}})
	got := Get(s, "filters", filterSet{})
	assert.Equal(t, "status", got.Column)
	assert.Equal(t, []string{"open", "paid"}, got.Values)
}

func TestStoreDefaultOnMissingKey(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prefs.json"))
	assert.Equal(t, "light", Get(s, "theme", "light"))
}

func TestStoreDefaultOnUndecodableValue(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prefs.json"))
	s.Set("page-size", "not a number")
	assert.Equal(t, 25, Get(s, "page-size", 25))
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	s1 := NewStore(path)
	s1.Set("theme", "dark")

	s2 := NewStore(path)
	assert.Equal(t, "dark", Get(s2, "theme", "light"))
}

func TestStoreRemove(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prefs.json"))
	s.Set("theme", "dark")
	s.Remove("theme")
	assert.Equal(t, "light", Get(s, "theme", "light"))
	s.Remove("theme") // absent, no-op
}

func TestStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	s := NewStore(path)
	s.Set("a", 1)
	s.Set("b", 2)
	s.Clear()
	s.Clear() // idempotent

	assert.Equal(t, 0, Get(s, "a", 0))
	s2 := NewStore(path)
	assert.Equal(t, 0, Get(s2, "b", 0))
}

func TestStoreCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewStore(path)
	assert.Equal(t, "light", Get(s, "theme", "light"))

	// Writes recover the file.
	s.Set("theme", "dark")
	s2 := NewStore(path)
	assert.Equal(t, "dark", Get(s2, "theme", "light"))
}

func TestStoreUnserializableValueIsNoOp(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prefs.json"))
	s.Set("bad", func() {}) // not JSON-serializable, logged and dropped
	assert.Equal(t, 0, Get(s, "bad", 0))
}

func TestStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "prefs.json")
	s := NewStore(path)
	s.Set("theme", "dark")
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
