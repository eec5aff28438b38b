package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dshills/csr/internal/config"
)

// Store is a key/value cache for model replies.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Clear(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
}

// Stats returns cache statistics.
type Stats struct {
	Backend    string `json:"backend"`
	Location   string `json:"location"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	Expired    int    `json:"expired"`
}

// Open returns the configured store, or nil when caching is disabled.
func Open(cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	switch cfg.Backend {
	case "redis":
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.KeyPrefix, ttl), nil
	case "file", "":
		return NewFile(cfg.Dir, ttl)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// entry represents a cached reply on disk.
type entry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	TTL       int       `json:"ttl"`
}

// File stores one JSON file per entry.
type File struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFile creates a file store. If dir is empty, uses the default cache directory.
func NewFile(dir string, ttl time.Duration) (*File, error) {
	if dir == "" {
		d, err := defaultCacheDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &File{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Get retrieves a cached value by key. Expired entries are removed.
func (c *File) Get(_ context.Context, key string) (string, bool, error) {
	path := c.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading cache entry: %w", err)
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", false, nil
	}
	if c.expired(e) {
		os.Remove(path)
		return "", false, nil
	}
	return e.Value, true, nil
}

// Put stores a value.
func (c *File) Put(_ context.Context, key, value string) error {
	e := entry{
		Key:       HashKey(key),
		Value:     value,
		CreatedAt: c.now(),
		TTL:       int(c.ttl / time.Second),
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return os.WriteFile(c.entryPath(key), data, 0o644)
}

// Clear removes all entries and reports how many were removed.
func (c *File) Clear(_ context.Context) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}
	var removed int
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Stats returns information about the cache.
func (c *File) Stats(_ context.Context) (Stats, error) {
	stats := Stats{Backend: "file", Location: c.dir}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading cache directory: %w", err)
	}
	for _, de := range entries {
		if filepath.Ext(de.Name()) != ".json" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()

		data, err := os.ReadFile(filepath.Join(c.dir, de.Name()))
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		if c.expired(e) {
			stats.Expired++
		}
	}
	return stats, nil
}

// Dir returns the cache directory path.
func (c *File) Dir() string {
	return c.dir
}

func (c *File) expired(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.CreatedAt) > c.ttl
}

func (c *File) entryPath(key string) string {
	return filepath.Join(c.dir, HashKey(key)+".json")
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// BuildKey creates a cache key from the generation inputs.
func BuildKey(provider, model, system, user string) string {
	return HashKey(fmt.Sprintf("%s\x00%s\x00%s\x00%s", provider, model, system, user))
}

func defaultCacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "csr"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "csr"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "csr", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "csr", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "csr"), nil
	}
}
