package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DiskCache implements persistent zstd-compressed caching.
// Each entry is an 8-byte big-endian expiry (unix nanos) followed by the compressed payload.
type DiskCache struct {
	dir     string
	ttl     time.Duration
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewDiskCache creates a new disk cache
func NewDiskCache(dir string, ttl time.Duration) (*DiskCache, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &DiskCache{
		dir:     dir,
		ttl:     ttl,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Get retrieves a value from the disk cache
func (c *DiskCache) Get(key string) ([]byte, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil || len(data) < 8 {
		return nil, false
	}

	expiresAt := time.Unix(0, int64(binary.BigEndian.Uint64(data[:8])))
	if time.Now().After(expiresAt) {
		_ = os.Remove(path)
		return nil, false
	}

	value, err := c.decoder.DecodeAll(data[8:], nil)
	if err != nil {
		_ = os.Remove(path)
		return nil, false
	}

	return value, true
}

// Set stores a value in the disk cache
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	header := make([]byte, 8)
	binary.BigEndian.PutUint64(header, uint64(time.Now().Add(ttl).UnixNano()))
	data := c.encoder.EncodeAll(value, header)

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// write-then-rename so concurrent readers never see a partial entry
	path := c.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit cache file: %w", err)
	}

	return nil
}

// Delete removes a value from the disk cache
func (c *DiskCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path generates the file path for a cache key
func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, sanitizeKey(key)+".zst")
}

func sanitizeKey(key string) string {
	out := []byte(key)
	for i, b := range out {
		if b == ':' || b == '/' || b == '\\' {
			out[i] = '_'
		}
	}
	return string(out)
}
