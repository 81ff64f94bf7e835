package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	Value    string     `yaml:"value"`
	ExpireAt *time.Time `yaml:"expire_at,omitempty"`
}

// FileCache is a durable key/value store kept in a single YAML file. Every
// write rewrites the file through a temp file and rename.
type FileCache struct {
	mu   sync.Mutex
	path string
	perm os.FileMode
	data map[string]fileEntry
}

// NewFileCache opens (or lazily creates) the backing file.
func NewFileCache(opts ...FileOption) (*FileCache, error) {
	cfg := &FileConfig{
		Path: ".console/cache.yaml",
		Perm: 0o600,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("file cache: path is required")
	}

	fc := &FileCache{
		path: cfg.Path,
		perm: cfg.Perm,
		data: make(map[string]fileEntry),
	}

	b, err := os.ReadFile(cfg.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("file cache: read %s: %w", cfg.Path, err)
	default:
		if err := yaml.Unmarshal(b, &fc.data); err != nil {
			return nil, fmt.Errorf("file cache: parse %s: %w", cfg.Path, err)
		}
		if fc.data == nil {
			fc.data = make(map[string]fileEntry)
		}
	}
	return fc, nil
}

func (fc *FileCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return err
		}
		raw = string(b)
	}

	entry := fileEntry{Value: raw}
	if expiration > 0 {
		at := time.Now().Add(expiration).UTC()
		entry.ExpireAt = &at
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.data[key] = entry
	return fc.flush()
}

func (fc *FileCache) Get(_ context.Context, key string, dest interface{}) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	entry, ok := fc.data[key]
	if !ok {
		return ErrCacheMiss
	}
	if entry.ExpireAt != nil && time.Now().After(*entry.ExpireAt) {
		delete(fc.data, key)
		_ = fc.flush()
		return ErrCacheMiss
	}

	if strPtr, ok := dest.(*string); ok {
		*strPtr = entry.Value
		return nil
	}
	return json.Unmarshal([]byte(entry.Value), dest)
}

func (fc *FileCache) Delete(_ context.Context, keys ...string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	changed := false
	for _, key := range keys {
		if _, ok := fc.data[key]; ok {
			delete(fc.data, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return fc.flush()
}

// Close is a no-op; every write is already on disk.
func (fc *FileCache) Close() error { return nil }

// flush writes the whole map. Caller must hold fc.mu.
func (fc *FileCache) flush() error {
	b, err := yaml.Marshal(fc.data)
	if err != nil {
		return fmt.Errorf("file cache: encode: %w", err)
	}

	dir := filepath.Dir(fc.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("file cache: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(fc.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("file cache: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file cache: write: %w", err)
	}
	if err := tmp.Chmod(fc.perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file cache: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file cache: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), fc.path); err != nil {
		return fmt.Errorf("file cache: rename: %w", err)
	}
	return nil
}
