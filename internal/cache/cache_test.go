package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cloneStrings(v []string) []string {
	out := make([]string, len(v))
	copy(out, v)
	return out
}

func TestCache_SetGet_RoundTrip(t *testing.T) {
	c := New[string, []string]("test", time.Minute, 10, cloneStrings)
	c.Set("k", []string{"a", "b"})

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestCache_Get_Miss(t *testing.T) {
	c := New[string, []string]("test", time.Minute, 10, cloneStrings)
	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestCache_Get_ClonesValue(t *testing.T) {
	c := New[string, []string]("test", time.Minute, 10, cloneStrings)
	original := []string{"a"}
	c.Set("k", original)

	got, ok := c.Get("k")
	require.True(t, ok)
	got[0] = "mutated"

	again, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "a", again[0], "cached value must not be shared with callers")
}

func TestCache_ExpiredEntryIsRemovedOnRead(t *testing.T) {
	c := New[string, []string]("test", -time.Second, 10, cloneStrings)
	c.Set("k", []string{"a"})

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_EvictsLRUAtCapacity(t *testing.T) {
	c := New[string, []string]("test", time.Minute, 2, cloneStrings)
	c.Set("a", []string{"1"})
	c.Set("b", []string{"2"})
	c.Get("a") // touch a so b is least-recently-used
	c.Set("c", []string{"3"})

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")
	assert.True(t, aOK)
	assert.False(t, bOK, "b should have been evicted as least recently used")
	assert.True(t, cOK)
}

func TestCache_EvictExpired(t *testing.T) {
	c := New[string, []string]("test", -time.Second, 10, cloneStrings)
	c.Set("a", []string{"1"})
	c.Set("b", []string{"2"})

	removed := c.EvictExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Set_ReplacesAndResetsExpiry(t *testing.T) {
	c := New[string, []string]("test", time.Minute, 10, cloneStrings)
	c.Set("k", []string{"old"})
	c.Set("k", []string{"new"})

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"new"}, got)
	assert.Equal(t, 1, c.Len())
}
