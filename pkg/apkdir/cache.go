package apkdir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
)

// Cache persists parsed artifact metadata between runs so an unchanged
// library scans without re-reading every archive. Entries are JSON
// files keyed by path+size+mtime: any change to the file misses
// naturally and the stale entry ages out.
type Cache struct {
	dir      string
	ttl      time.Duration
	maxBytes int64
}

// CacheEntry is one cached parse result.
type CacheEntry struct {
	Key       string             `json:"key"`
	Path      string             `json:"path"`
	Info      *apk.Info          `json:"info,omitempty"`
	Container *apk.ContainerInfo `json:"container,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// NewCache opens a metadata cache under dir. ttl <= 0 defaults to 24h;
// maxBytes 0 means unbounded.
func NewCache(dir string, ttl time.Duration, maxBytes int64) *Cache {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "adbinstaller-cache")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{dir: filepath.Join(dir, "metadata"), ttl: ttl, maxBytes: maxBytes}
}

// Dir returns the directory entries live in.
func (c *Cache) Dir() string {
	return c.dir
}

// Get looks up the parse result for a file in its current state.
func (c *Cache) Get(path string, st os.FileInfo) (*CacheEntry, bool) {
	entryPath := c.entryPath(cacheKey(path, st))
	data, err := os.ReadFile(entryPath)
	if err != nil {
		return nil, false
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		os.Remove(entryPath)
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		os.Remove(entryPath)
		return nil, false
	}
	return &entry, true
}

// Put stores a parse result for a file in its current state.
func (c *Cache) Put(path string, st os.FileInfo, info *apk.Info, container *apk.ContainerInfo) error {
	key := cacheKey(path, st)
	entry := CacheEntry{
		Key:       key,
		Path:      path,
		Info:      info,
		Container: container,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(c.ttl),
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return err
	}
	return os.WriteFile(c.entryPath(key), data, 0o644)
}

// Prune drops expired and unreadable entries, then evicts oldest-first
// until the cache fits maxBytes. Returns how many files went away.
func (c *Cache) Prune() (int, error) {
	files, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	type liveEntry struct {
		path    string
		size    int64
		created time.Time
	}
	var live []liveEntry
	var total int64
	removed := 0
	now := time.Now()

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entryPath := filepath.Join(c.dir, f.Name())
		data, err := os.ReadFile(entryPath)
		if err != nil {
			continue
		}
		var entry CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil || now.After(entry.ExpiresAt) {
			os.Remove(entryPath)
			removed++
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		live = append(live, liveEntry{path: entryPath, size: info.Size(), created: entry.CreatedAt})
		total += info.Size()
	}

	if c.maxBytes > 0 && total > c.maxBytes {
		sort.Slice(live, func(i, j int) bool { return live[i].created.Before(live[j].created) })
		for _, e := range live {
			if total <= c.maxBytes {
				break
			}
			if err := os.Remove(e.path); err == nil {
				total -= e.size
				removed++
			}
		}
	}
	return removed, nil
}

// Clear removes every cache entry.
func (c *Cache) Clear() error {
	files, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
			os.Remove(filepath.Join(c.dir, f.Name()))
		}
	}
	return nil
}

// cacheKey binds an entry to one exact file state.
func cacheKey(path string, st os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", path, st.Size(), st.ModTime().UnixNano())
}

func (c *Cache) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:12])+".json")
}
