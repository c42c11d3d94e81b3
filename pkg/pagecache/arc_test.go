package pagecache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := New(4)
	c.Put(1, []byte("one"))
	got, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, []byte("one"), got)
}

func TestGetMissIsFalse(t *testing.T) {
	c := New(4)
	_, ok := c.Get(99)
	require.False(t, ok)
}

func TestPutEvictsWhenOverCapacity(t *testing.T) {
	c := New(2)
	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))
	c.Put(3, []byte("c")) // evicts something from t1 (1, the LRU entry)

	require.LessOrEqual(t, c.Len(), 2)
	_, ok := c.Get(3)
	require.True(t, ok, "most recently inserted key must still be resident")
}

func TestRepeatedAccessPromotesToFrequentList(t *testing.T) {
	c := New(3)
	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))

	// access 1 twice so it's frequent (t2), then churn t1 with new keys.
	_, _ = c.Get(1)
	_, _ = c.Get(1)

	c.Put(3, []byte("c"))
	c.Put(4, []byte("d"))

	_, ok := c.Get(1)
	require.True(t, ok, "frequently accessed entry should survive t1 churn")
}

func TestInvalidateRemovesEntry(t *testing.T) {
	c := New(4)
	c.Put(1, []byte("a"))
	c.Invalidate(1)

	_, ok := c.Get(1)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestGhostHitOnReinsertIncreasesT1Target(t *testing.T) {
	c := New(2)
	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))
	c.Put(3, []byte("c")) // evicts 1 into b1 ghost list

	require.Equal(t, 0, c.target)
	c.Put(1, []byte("a-again")) // ghost hit on b1 adapts target upward
	require.Greater(t, c.target, 0)

	got, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, []byte("a-again"), got)
}

func TestPutUpdatesExistingResidentEntry(t *testing.T) {
	c := New(4)
	c.Put(1, []byte("a"))
	c.Put(1, []byte("a-updated"))

	got, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, []byte("a-updated"), got)
	require.Equal(t, 1, c.Len())
}

func TestCacheNeverExceedsCapacity(t *testing.T) {
	c := New(5)
	for i := int64(0); i < 100; i++ {
		c.Put(i, []byte{byte(i)})
		require.LessOrEqual(t, c.Len(), 5)
	}
}
