// Package diskcache persists rendered textures between runs.
//
// Each entry lives in its own xz-compressed file named after the SHA-256 of
// its key. Keys are expected to change whenever the content they name would
// change, so entries are never invalidated individually; Clear drops them
// all.
package diskcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/ulikunitz/xz"
)

// ext is the suffix of every entry file.
const ext = ".png.xz"

// maxEntrySize bounds a decompressed entry.
const maxEntrySize = 64 * 1024 * 1024

// Cache is a directory of compressed entries. It is safe for concurrent use
// by any number of goroutines and processes: writes land atomically through
// a rename, so a reader sees either the old entry, the new one or none.
type Cache struct {
	dir    string
	logger hclog.Logger
}

// New opens (creating if needed) a cache in dir.
//
// Parameters:
//   - dir: the cache directory.
//   - logger: receives warnings about unreadable entries. Nil discards them.
//
// Returns:
//   - The cache, or an error if dir cannot be created.
func New(dir string, logger hclog.Logger) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Cache{dir: dir, logger: logger.Named("diskcache")}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+ext)
}

// Load returns the entry stored under key. A corrupt entry is removed and
// reported as missing.
func (c *Cache) Load(key string) ([]byte, bool) {
	path := c.path(key)
	raw, err := os.ReadFile(path) // #nosec G304 - name derived from a hash inside the cache directory
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("failed to read cache entry", "path", path, "error", err)
		}
		return nil, false
	}
	data, err := decompress(raw)
	if err != nil {
		c.logger.Warn("dropping corrupt cache entry", "path", path, "error", err)
		_ = os.Remove(path)
		return nil, false
	}
	return data, true
}

// Store writes data under key, replacing any previous entry.
func (c *Cache) Store(key string, data []byte) error {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to compress cache entry: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to compress cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	tmpPath := tmp.Name()
	_, writeErr := tmp.Write(buf.Bytes())
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache entry: %w", errors.Join(writeErr, closeErr))
	}
	if err := os.Rename(tmpPath, c.path(key)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache entry: %w", err)
	}
	return nil
}

// Len counts the stored entries.
func (c *Cache) Len() (int, error) {
	names, err := c.entries()
	return len(names), err
}

// Clear removes every entry, leaving the directory in place.
func (c *Cache) Clear() error {
	names, err := c.entries()
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to clear cache: %w", errors.Join(errs...))
	}
	c.logger.Debug("cache cleared", "dir", c.dir, "entries", len(names))
	return nil
}

func (c *Cache) entries() ([]string, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}
	var names []string
	for _, e := range dirEntries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ext) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func decompress(raw []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create xz reader: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("entry exceeds %d bytes", maxEntrySize)
	}
	return data, nil
}
