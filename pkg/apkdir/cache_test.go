package apkdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
)

func statFile(t *testing.T, path string) os.FileInfo {
	t.Helper()
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return st
}

func writeArtifact(t *testing.T, dir, name, content string) (string, os.FileInfo) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path, statFile(t, path)
}

func entryFiles(t *testing.T, c *Cache) []string {
	t.Helper()
	files, err := os.ReadDir(c.Dir())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	var names []string
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".json") {
			names = append(names, f.Name())
		}
	}
	return names
}

func TestCache_PutGetRoundtrip(t *testing.T) {
	work := t.TempDir()
	cache := NewCache(t.TempDir(), time.Hour, 0)
	path, st := writeArtifact(t, work, "app.apk", "payload")

	info := &apk.Info{PackageID: "com.example.app", VersionName: "1.2.3", VersionCode: 42}
	if err := cache.Put(path, st, info, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, ok := cache.Get(path, st)
	if !ok {
		t.Fatal("Get missed a freshly stored entry")
	}
	if entry.Info == nil || entry.Info.PackageID != "com.example.app" || entry.Info.VersionCode != 42 {
		t.Errorf("entry.Info = %+v, want the stored metadata", entry.Info)
	}
}

func TestCache_MissesWhenFileChanges(t *testing.T) {
	work := t.TempDir()
	cache := NewCache(t.TempDir(), time.Hour, 0)
	path, st := writeArtifact(t, work, "app.apk", "v1")

	if err := cache.Put(path, st, &apk.Info{PackageID: "com.example.app"}, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// A longer payload changes the size, so the key no longer matches.
	if err := os.WriteFile(path, []byte("v2 but longer"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Get(path, statFile(t, path)); ok {
		t.Error("Get returned a stale entry for a changed file")
	}
}

func TestCache_ExpiredEntryIsDropped(t *testing.T) {
	work := t.TempDir()
	cache := NewCache(t.TempDir(), time.Nanosecond, 0)
	path, st := writeArtifact(t, work, "app.apk", "payload")

	if err := cache.Put(path, st, &apk.Info{PackageID: "com.example.app"}, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok := cache.Get(path, st); ok {
		t.Error("Get returned an expired entry")
	}
	if files := entryFiles(t, cache); len(files) != 0 {
		t.Errorf("expired entry still on disk: %v", files)
	}
}

func TestCache_PruneDropsExpired(t *testing.T) {
	work := t.TempDir()
	cache := NewCache(t.TempDir(), time.Nanosecond, 0)
	path, st := writeArtifact(t, work, "app.apk", "payload")

	if err := cache.Put(path, st, &apk.Info{PackageID: "com.example.app"}, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	removed, err := cache.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune removed %d entries, want 1", removed)
	}
}

func TestCache_PruneEvictsOldestFirst(t *testing.T) {
	work := t.TempDir()
	base := t.TempDir()
	unbounded := NewCache(base, time.Hour, 0)

	var paths []string
	var stats []os.FileInfo
	for i, name := range []string{"a.apk", "b.apk", "c.apk"} {
		path, st := writeArtifact(t, work, name, "payload")
		if err := unbounded.Put(path, st, &apk.Info{PackageID: "com.example.app" + name}, nil); err != nil {
			t.Fatalf("Put %s: %v", name, err)
		}
		paths = append(paths, path)
		stats = append(stats, st)
		if i < 2 {
			time.Sleep(5 * time.Millisecond)
		}
	}

	var total int64
	files, err := os.ReadDir(unbounded.Dir())
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			t.Fatal(err)
		}
		total += info.Size()
	}

	// One byte under the total forces exactly one eviction.
	bounded := NewCache(base, time.Hour, total-1)
	removed, err := bounded.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Prune removed %d entries, want 1", removed)
	}
	if _, ok := bounded.Get(paths[0], stats[0]); ok {
		t.Error("oldest entry survived eviction")
	}
	for i := 1; i < 3; i++ {
		if _, ok := bounded.Get(paths[i], stats[i]); !ok {
			t.Errorf("newer entry %s was evicted", paths[i])
		}
	}
}

func TestCache_PruneWithoutDir(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "never-written"), time.Hour, 0)
	removed, err := cache.Prune()
	if err != nil || removed != 0 {
		t.Errorf("Prune on empty cache = (%d, %v), want (0, nil)", removed, err)
	}
}

func TestCache_Clear(t *testing.T) {
	work := t.TempDir()
	cache := NewCache(t.TempDir(), time.Hour, 0)
	for _, name := range []string{"a.apk", "b.apk"} {
		path, st := writeArtifact(t, work, name, "payload")
		if err := cache.Put(path, st, nil, nil); err != nil {
			t.Fatalf("Put %s: %v", name, err)
		}
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if files := entryFiles(t, cache); len(files) != 0 {
		t.Errorf("Clear left entries behind: %v", files)
	}
}

func TestScan_UsesCache(t *testing.T) {
	root := t.TempDir()
	cache := NewCache(t.TempDir(), time.Hour, 0)
	path, st := writeArtifact(t, root, "app.apk", "not a real archive")

	// Seed the cache so the scan never has to parse the fake archive.
	if err := cache.Put(path, st, &apk.Info{PackageID: "com.example.app"}, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	result, err := NewScanner(Options{Parse: true}, cache).Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.CacheHits != 1 || result.Parsed != 1 {
		t.Errorf("scan counters = hits %d parsed %d, want 1 and 1", result.CacheHits, result.Parsed)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].Info == nil ||
		result.Artifacts[0].Info.PackageID != "com.example.app" {
		t.Errorf("artifact did not pick up cached metadata: %+v", result.Artifacts)
	}
}
