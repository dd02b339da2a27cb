package cache

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// File names under the cache dir.
const (
	SearchCacheFile   = "youtube_cache.json"
	DownloadCacheFile = "download_cache.json"
)

// Default TTLs in seconds.
const (
	SearchTTLSeconds   = 86400 // 24 hours
	DownloadTTLSeconds = 0     // download records never expire
)

// Entry is one cached value with its storage time and TTL.
type Entry struct {
	Value      json.RawMessage `json:"value"`
	CachedAt   string          `json:"cached_at"`
	TTLSeconds int             `json:"ttl_seconds"`
}

// DownloadEntry records the last outcome for one track query.
type DownloadEntry struct {
	OutputPath   string `json:"output_path,omitempty"`
	Status       string `json:"status"`
	DownloadedAt string `json:"downloaded_at,omitempty"`
	LastAttempt  string `json:"last_attempt,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Manager loads and saves JSON cache files under a cache directory, with TTL filtering on read.
// It is thread-safe.
type Manager struct {
	cacheDir string
	mu       sync.Mutex
	files    map[string]map[string]Entry
}

// NewManager returns a cache manager for the given cache directory.
func NewManager(cacheDir string) *Manager {
	return &Manager{
		cacheDir: cacheDir,
		files:    make(map[string]map[string]Entry),
	}
}

// CacheDir returns the cache directory.
func (m *Manager) CacheDir() string {
	return m.cacheDir
}

// isExpired returns true if cachedAt + ttlSeconds is before now.
func isExpired(cachedAt string, ttlSeconds int) bool {
	if ttlSeconds <= 0 {
		return false
	}
	t, err := time.Parse(time.RFC3339, cachedAt)
	if err != nil {
		return true
	}
	return time.Now().After(t.Add(time.Duration(ttlSeconds) * time.Second))
}

// load reads a cache file once and keeps non-expired entries in memory. Caller holds m.mu.
func (m *Manager) load(file string) (map[string]Entry, error) {
	if entries, ok := m.files[file]; ok {
		return entries, nil
	}

	entries := make(map[string]Entry)
	data, err := os.ReadFile(filepath.Join(m.cacheDir, file))
	if err != nil {
		if os.IsNotExist(err) {
			m.files[file] = entries
			return entries, nil
		}
		return nil, err
	}

	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for k, v := range raw {
		if !isExpired(v.CachedAt, v.TTLSeconds) {
			entries[k] = v
		}
	}
	m.files[file] = entries
	return entries, nil
}

// save writes a cache file to disk. Caller holds m.mu.
func (m *Manager) save(file string, entries map[string]Entry) error {
	if err := os.MkdirAll(m.cacheDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(m.cacheDir, file), data, 0644)
}

// Get decodes the entry for key from file into v. It reports false for missing or expired keys.
func (m *Manager) Get(file, key string, v interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load(file)
	if err != nil {
		return false, err
	}
	entry, ok := entries[key]
	if !ok || isExpired(entry.CachedAt, entry.TTLSeconds) {
		return false, nil
	}
	if err := json.Unmarshal(entry.Value, v); err != nil {
		return false, err
	}
	return true, nil
}

// Put stores v under key in file and writes the file to disk.
func (m *Manager) Put(file, key string, v interface{}, ttlSeconds int) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load(file)
	if err != nil {
		return err
	}
	entries[key] = Entry{
		Value:      data,
		CachedAt:   time.Now().UTC().Format(time.RFC3339),
		TTLSeconds: ttlSeconds,
	}
	return m.save(file, entries)
}

// RecordDownload stores the outcome of one track query in the download cache.
func (m *Manager) RecordDownload(query string, entry DownloadEntry) error {
	now := time.Now().UTC().Format(time.RFC3339)
	entry.LastAttempt = now
	if entry.Status == "completed" && entry.DownloadedAt == "" {
		entry.DownloadedAt = now
	}
	return m.Put(DownloadCacheFile, query, entry, DownloadTTLSeconds)
}

// Download returns the recorded outcome for a track query.
func (m *Manager) Download(query string) (DownloadEntry, bool, error) {
	var entry DownloadEntry
	ok, err := m.Get(DownloadCacheFile, query, &entry)
	return entry, ok, err
}
