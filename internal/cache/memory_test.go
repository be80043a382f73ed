package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadAfterWrite(t *testing.T) {
	m := NewMemory[string](8, 0)
	m.Set("k", "v")
	got, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestMemoryMissIsNotAnError(t *testing.T) {
	m := NewMemory[int](8, 0)
	got, ok := m.Get("unknown")
	assert.False(t, ok)
	assert.Zero(t, got)
	assert.False(t, m.Has("unknown"))
}

func TestMemoryEvictionFIFO(t *testing.T) {
	m := NewMemory[int](2, 0)
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	assert.False(t, m.Has("a"))
	assert.True(t, m.Has("b"))
	assert.True(t, m.Has("c"))
	assert.Equal(t, 2, m.Len())
}

func TestMemoryEvictionIgnoresExpiry(t *testing.T) {
	// The oldest-inserted key is evicted even when a newer entry has
	// already expired.
	m := NewMemory[int](2, 0)
	m.Set("a", 1)
	m.SetWithTTL("b", 2, time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	m.Set("c", 3)

	assert.False(t, m.Has("a"))
	assert.True(t, m.Has("c"))
}

func TestMemoryOverwriteKeepsInsertionSlot(t *testing.T) {
	m := NewMemory[int](2, 0)
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 10) // overwrite, still oldest
	m.Set("c", 3)  // evicts a, not b

	assert.False(t, m.Has("a"))
	assert.True(t, m.Has("b"))
	assert.True(t, m.Has("c"))
}

func TestMemoryNeverExceedsMaxSize(t *testing.T) {
	m := NewMemory[int](3, 0)
	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
		assert.LessOrEqual(t, m.Len(), 3)
	}
	assert.Equal(t, 3, m.Len())
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory[string](8, 0)
	m.SetWithTTL("k", "v", 50*time.Millisecond)

	got, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	time.Sleep(80 * time.Millisecond)
	_, ok = m.Get("k")
	assert.False(t, ok)
	assert.False(t, m.Has("k"))
	assert.Equal(t, 0, m.Len(), "lazy expiry deletes on access")
}

func TestMemoryDefaultTTL(t *testing.T) {
	m := NewMemory[string](8, 40*time.Millisecond)
	m.Set("k", "v")
	time.Sleep(70 * time.Millisecond)
	assert.False(t, m.Has("k"))
}

func TestMemoryPerEntryTTLOverridesDefault(t *testing.T) {
	m := NewMemory[string](8, 20*time.Millisecond)
	m.SetWithTTL("long", "v", time.Minute)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, m.Has("long"))
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	m := NewMemory[string](8, 0)
	m.Set("k", "v")
	time.Sleep(30 * time.Millisecond)
	assert.True(t, m.Has("k"))
}

func TestMemoryLenCountsUnaccessedExpired(t *testing.T) {
	m := NewMemory[int](8, 20*time.Millisecond)
	m.Set("a", 1)
	m.Set("b", 2)
	time.Sleep(50 * time.Millisecond)

	// No access yet: expired entries still counted.
	assert.Equal(t, 2, m.Len())

	m.Get("a")
	assert.Equal(t, 1, m.Len())
}

func TestMemoryDeleteAndClear(t *testing.T) {
	m := NewMemory[int](8, 0)
	m.Set("a", 1)
	m.Set("b", 2)

	m.Delete("a")
	assert.False(t, m.Has("a"))
	m.Delete("never-existed") // no panic

	m.Clear()
	m.Clear() // idempotent
	assert.Equal(t, 0, m.Len())
}

func TestMemoryFIFOOrderSurvivesDeletes(t *testing.T) {
	m := NewMemory[int](3, 0)
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)
	m.Delete("a")
	m.Set("d", 4) // room after delete, nothing evicted
	assert.True(t, m.Has("b"))
	m.Set("e", 5) // now b is oldest surviving
	assert.False(t, m.Has("b"))
	assert.True(t, m.Has("c"))
	assert.True(t, m.Has("d"))
	assert.True(t, m.Has("e"))
}
