package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsedContentCacheRoundTrip(t *testing.T) {
	c, err := NewParsedContentCache(t.TempDir())
	require.NoError(t, err)

	_, ok, err := c.Get("deadbeef")
	require.NoError(t, err)
	require.False(t, ok)

	payload := []byte(`{"abstract":"some text"}`)
	require.NoError(t, c.Set("deadbeefcafef00d", payload))

	got, ok, err := c.Get("deadbeefcafef00d")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload, got)
}

func TestParsedContentCacheBucketsByHexPrefix(t *testing.T) {
	c, err := NewParsedContentCache(t.TempDir())
	require.NoError(t, err)

	path := c.bucketPath("deadbeefcafef00d")
	require.Contains(t, path, "/de/ad/")
}

func TestParsedContentCacheStats(t *testing.T) {
	c, err := NewParsedContentCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("aaaa1111", []byte("one")))
	require.NoError(t, c.Set("bbbb2222", []byte("two")))

	stats, err := c.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.Entries)
	require.EqualValues(t, len("one")+len("two"), stats.TotalBytes)
	require.Greater(t, stats.CompressedBytes, int64(0))
}

func TestParsedContentCacheInvalidatePrefix(t *testing.T) {
	c, err := NewParsedContentCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("aabb0001", []byte("one")))
	require.NoError(t, c.Set("aabb0002", []byte("two")))
	require.NoError(t, c.Set("ccdd0003", []byte("three")))

	n, err := c.Invalidate("aabb*")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	stats, err := c.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Entries)
}
