package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	return New(path), path
}

func TestCacheSetGet(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	require.NoError(t, c.Set("token", "abc123"))

	v, ok := c.Get("token")
	assert.True(t, ok)
	assert.Equal(t, "abc123", v)
}

func TestCacheMissingKey(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	c, path := newTestCache(t)
	require.NoError(t, c.Set("token", "abc123"))

	v, ok := New(path).Get("token")
	assert.True(t, ok)
	assert.Equal(t, "abc123", v)
}

func TestCacheDelete(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	require.NoError(t, c.Set("token", "abc123"))
	require.NoError(t, c.Delete("token"))

	_, ok := c.Get("token")
	assert.False(t, ok)

	assert.NoError(t, c.Delete("token"))
}

func TestCacheCorruptFileIsIgnored(t *testing.T) {
	t.Parallel()

	c, path := newTestCache(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, ok := c.Get("token")
	assert.False(t, ok)

	// Writing over a corrupt file recovers it.
	require.NoError(t, c.Set("token", "fresh"))
	v, ok := c.Get("token")
	assert.True(t, ok)
	assert.Equal(t, "fresh", v)
}
