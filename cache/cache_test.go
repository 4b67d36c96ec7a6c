package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counted struct {
	Count int `json:"count"`
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newTestCache(t *testing.T) (*FileCache, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(filepath.Join(t.TempDir(), "cache"), nil, WithClock(clk.now)), clk
}

func TestKey(t *testing.T) {
	assert.Equal(t, "pulls-acme-widget-0-1000", Key("pulls", "acme", "widget", 0, 1000))
	assert.Equal(t, "pull-acme-widget-1700000000000",
		Key("pull", "acme", "widget", time.UnixMilli(1700000000000)))
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	c, clk := newTestCache(t)

	require.NoError(t, c.Write("pulls-acme-widget-0-1000", counted{Count: 5}))
	clk.t = clk.t.Add(23 * time.Hour)

	var got counted
	found, err := c.Read("pulls-acme-widget-0-1000", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, counted{Count: 5}, got)
}

func TestReadAfterTTLIsAbsentAndRemovesEntry(t *testing.T) {
	c, clk := newTestCache(t)
	key := "pulls-acme-widget-0-1000"

	require.NoError(t, c.Write(key, counted{Count: 5}))
	clk.t = clk.t.Add(25 * time.Hour)

	var got counted
	found, err := c.Read(key, &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, counted{}, got)

	_, statErr := os.Stat(filepath.Join(c.Dir(), key+".json"))
	assert.True(t, os.IsNotExist(statErr), "expired entry should be deleted")
}

func TestReadExactlyAtTTLIsExpired(t *testing.T) {
	c, clk := newTestCache(t)
	require.NoError(t, c.Write("k", counted{Count: 1}))
	clk.t = clk.t.Add(TTL)

	found, err := c.Read("k", &counted{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadMissingKey(t *testing.T) {
	c, _ := newTestCache(t)

	found, err := c.Read("nothing-here", &counted{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadMalformedEntryReturnsError(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, os.MkdirAll(c.Dir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "broken.json"), []byte("{not json"), 0o644))

	found, err := c.Read("broken", &counted{})
	assert.Error(t, err)
	assert.False(t, found)
}

func TestWriteOverwritesWithFreshTimestamp(t *testing.T) {
	c, clk := newTestCache(t)

	require.NoError(t, c.Write("k", counted{Count: 1}))
	clk.t = clk.t.Add(20 * time.Hour)
	require.NoError(t, c.Write("k", counted{Count: 2}))
	clk.t = clk.t.Add(20 * time.Hour)

	var got counted
	found, err := c.Read("k", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, got.Count)
}

func TestKeysAreSanitizedForFileNames(t *testing.T) {
	c, _ := newTestCache(t)
	key := "project-acme-widget-Sprint Board/2024"

	require.NoError(t, c.Write(key, counted{Count: 3}))

	var got counted
	found, err := c.Read(key, &got)
	require.NoError(t, err)
	assert.True(t, found)

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^project-acme-widget-Sprint_Board_2024_[0-9a-f]{16}\.json$`, entries[0].Name())
}

func TestRewrittenKeysDoNotCollide(t *testing.T) {
	c, _ := newTestCache(t)
	keys := []string{
		"project-acme-widget-Sprint Board",
		"project-acme-widget-Sprint_Board",
		"project-acme-widget-Sprint/Board",
		"project-acme-widget-SprintBoard",
	}
	for i, key := range keys {
		require.NoError(t, c.Write(key, counted{Count: i}))
	}

	for i, key := range keys {
		var got counted
		found, err := c.Read(key, &got)
		require.NoError(t, err)
		require.True(t, found, key)
		assert.Equal(t, i, got.Count, key)
	}

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, len(keys))
}

func TestPlainKeysKeepTheirName(t *testing.T) {
	assert.Equal(t, "pulls-acme-widget-0-1000", fileName("pulls-acme-widget-0-1000"))
	assert.NotEqual(t, fileName("a b"), fileName("a_b"))
}

func TestClearRemovesDirectory(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Write("k", counted{Count: 1}))

	require.NoError(t, c.Clear())

	_, err := os.Stat(c.Dir())
	assert.True(t, os.IsNotExist(err))

	// clearing an absent directory is not an error
	assert.NoError(t, c.Clear())
}
