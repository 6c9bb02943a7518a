package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupMiss(t *testing.T) {
	s := NewState(100, 4, 1.0, "www/")
	_, ok := s.Lookup("www/missing")
	require.False(t, ok)
}

// TestScenario4EvictsLeastRecentlyUsed reproduces the exact eviction trace:
// max_kb_size=4, max_occupancy_rate=1.0, max_files=100; store f1(2KB),
// f2(2KB), lookup f1, store f3(2KB) -> final state {f1,f3} cached, f2
// evicted, byte_size=4096, LRU order [f1,f3].
func TestScenario4EvictsLeastRecentlyUsed(t *testing.T) {
	s := NewState(100, 4, 1.0, "www/")
	kb2 := make([]byte, 2048)

	ok, err := s.Store("f1", kb2)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Store("f2", kb2)
	require.NoError(t, err)
	require.True(t, ok)

	_, hit := s.Lookup("f1")
	require.True(t, hit)

	ok, err = s.Store("f3", kb2)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, 2, s.FileCount())
	require.Equal(t, int64(4096), s.ByteSize())
	require.Equal(t, []string{"f1", "f3"}, s.Order())

	_, ok = s.Lookup("f2")
	require.False(t, ok)
}

func TestStoreTooLargeForBudgetIsRejectedNotCached(t *testing.T) {
	s := NewState(100, 4, 1.0, "www/")
	huge := make([]byte, 8*1024)
	ok, err := s.Store("big", huge)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, s.FileCount())
}

func TestStoreRejectedByOccupancyRate(t *testing.T) {
	// a single file may not exceed max_kb_size * max_occupancy_rate, even
	// though the cache as a whole has room.
	s := NewState(100, 100, 0.05, "www/")
	over := make([]byte, 10*1024) // 10KB > 100KB*0.05=5KB
	ok, err := s.Store("f", over)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEvictionByFileCount(t *testing.T) {
	s := NewState(2, 1<<20, 1.0, "www/")
	small := []byte("x")

	for _, p := range []string{"a", "b", "c"} {
		ok, err := s.Store(p, small)
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.Equal(t, 2, s.FileCount())
	require.Equal(t, []string{"b", "c"}, s.Order())
}

// TestInvariantByteSizeMatchesSumOfEntries checks the cache-equivalence
// invariant: byte_size equals the sum of every cached entry's size.
func TestInvariantByteSizeMatchesSumOfEntries(t *testing.T) {
	s := NewState(10, 1<<20, 1.0, "www/")
	sizes := []int{100, 200, 300}
	for i, n := range sizes {
		ok, err := s.Store(string(rune('a'+i)), make([]byte, n))
		require.NoError(t, err)
		require.True(t, ok)
	}
	var sum int64
	for _, n := range sizes {
		sum += int64(n)
	}
	require.Equal(t, sum, s.ByteSize())
	require.Equal(t, len(sizes), s.FileCount())
}

func TestReStoreSamePathUpdatesSizeWithoutDuplication(t *testing.T) {
	s := NewState(10, 1<<20, 1.0, "www/")
	ok, err := s.Store("f", make([]byte, 100))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Store("f", make([]byte, 50))
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, 1, s.FileCount())
	require.Equal(t, int64(50), s.ByteSize())
}
