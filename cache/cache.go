// Package cache stores fetched record collections as one JSON file per key.
// An entry is valid for TTL after it was written; expired entries are removed
// when read. Writes overwrite unconditionally.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TTL is the maximum age of a readable entry.
const TTL = 24 * time.Hour

// DefaultDir is the cache root used when none is configured.
const DefaultDir = ".cache"

// Entry is the on-disk representation of a cached value.
type Entry struct {
	Timestamp int64           `json:"timestamp"` // epoch milliseconds
	Data      json.RawMessage `json:"data"`
}

// FileCache is a directory of cache entries.
type FileCache struct {
	dir string
	now func() time.Time
	log *zap.Logger
}

// Option configures a FileCache.
type Option func(*FileCache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *FileCache) {
		c.now = now
	}
}

// New creates a cache rooted at dir. The directory is created on first write.
func New(dir string, log *zap.Logger, opts ...Option) *FileCache {
	if dir == "" {
		dir = DefaultDir
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &FileCache{dir: dir, now: time.Now, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the cache root.
func (c *FileCache) Dir() string {
	return c.dir
}

// Read decodes the entry stored under key into v.
// It reports false when the key is absent or expired; an expired entry is deleted.
// A non-nil error means the entry could not be read or decoded.
func (c *FileCache) Read(key string, v any) (bool, error) {
	path := c.path(key)

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache entry %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}

	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	if age >= TTL {
		c.log.Debug("cache entry expired", zap.String("key", key), zap.Duration("age", age))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("remove expired cache entry %s: %w", key, err)
		}
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, v); err != nil {
		return false, fmt.Errorf("decode cache data %s: %w", key, err)
	}
	return true, nil
}

// Write stores data under key with the current timestamp.
func (c *FileCache) Write(key string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode cache data %s: %w", key, err)
	}

	body, err := json.MarshalIndent(Entry{
		Timestamp: c.now().UnixMilli(),
		Data:      payload,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", c.dir, err)
	}

	// temp file + rename keeps concurrent readers from seeing a partial entry
	tmp, err := os.CreateTemp(c.dir, fileName(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename cache entry %s: %w", key, err)
	}
	return nil
}

// Clear removes the whole cache directory.
func (c *FileCache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("clear cache dir %s: %w", c.dir, err)
	}
	c.log.Info("cache cleared", zap.String("dir", c.dir))
	return nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, fileName(key)+".json")
}

// Key joins the identifying parameters of a request with "-".
// time.Time parts are rendered as epoch milliseconds.
func Key(parts ...any) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case time.Time:
			s[i] = fmt.Sprint(v.UnixMilli())
		default:
			s[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(s, "-")
}

// fileName maps key to a safe file name. Any key holding a byte outside
// [A-Za-z0-9.-] is rewritten with '_' and suffixed with a digest of the raw
// key; plain names never contain '_', so distinct keys never share a file.
func fileName(key string) string {
	rewritten := false
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '.':
			return r
		default:
			rewritten = true
			return '_'
		}
	}, key)
	if !rewritten {
		return name
	}
	sum := sha256.Sum256([]byte(key))
	return name + "_" + hex.EncodeToString(sum[:8])
}
