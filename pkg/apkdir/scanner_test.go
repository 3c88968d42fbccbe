package apkdir

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeLibrary lays out a small on-disk library:
//
//	root/a.apk
//	root/game.xapk
//	root/note.txt
//	root/sub/base.apk
//	root/sub/split_config.arm64_v8a.apk
func writeLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := []string{
		"a.apk",
		"game.xapk",
		"note.txt",
		filepath.Join("sub", "base.apk"),
		filepath.Join("sub", "split_config.arm64_v8a.apk"),
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	return root
}

func scannedPaths(r *Result) []string {
	paths := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		rel, _ := filepath.Rel(r.Root, a.Path)
		paths = append(paths, filepath.ToSlash(rel))
	}
	return paths
}

func TestScan_Recursive(t *testing.T) {
	root := writeLibrary(t)
	result, err := NewScanner(Options{Recursive: true}, nil).Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"a.apk", "game.xapk", "sub/base.apk", "sub/split_config.arm64_v8a.apk"}
	if got := scannedPaths(result); !reflect.DeepEqual(got, want) {
		t.Errorf("artifacts = %v, want %v", got, want)
	}
}

func TestScan_FlatOnly(t *testing.T) {
	root := writeLibrary(t)
	result, err := NewScanner(Options{Recursive: false}, nil).Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"a.apk", "game.xapk"}
	if got := scannedPaths(result); !reflect.DeepEqual(got, want) {
		t.Errorf("artifacts = %v, want %v", got, want)
	}
}

func TestScan_ExcludeWinsOverInclude(t *testing.T) {
	root := writeLibrary(t)
	result, err := NewScanner(Options{
		Recursive: true,
		Include:   []string{"*.apk", "*.xapk"},
		Exclude:   []string{"game.*"},
	}, nil).Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, a := range result.Artifacts {
		if filepath.Base(a.Path) == "game.xapk" {
			t.Error("excluded file survived the scan")
		}
	}
}

func TestScan_ProgressCallback(t *testing.T) {
	root := writeLibrary(t)
	var seen int
	_, err := NewScanner(Options{
		Recursive:  true,
		OnProgress: func(done int, path string) { seen = done },
	}, nil).Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if seen != 4 {
		t.Errorf("last progress count = %d, want 4", seen)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	result, err := NewScanner(Options{}, nil).Scan(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Artifacts) != 0 || len(result.Errors) == 0 {
		t.Errorf("missing root should produce no artifacts and a recorded error, got %+v", result)
	}
}

func TestGroups_SplitSiblingsFoldIntoOneGroup(t *testing.T) {
	root := writeLibrary(t)
	result, err := NewScanner(Options{Recursive: true}, nil).Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	groups := result.Groups()
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3: %+v", len(groups), groups)
	}

	if groups[0].Kind != GroupContainer || filepath.Base(groups[0].Paths[0]) != "game.xapk" {
		t.Errorf("first group = %+v, want the container", groups[0])
	}
	if groups[1].Kind != GroupAPK || filepath.Base(groups[1].Paths[0]) != "a.apk" {
		t.Errorf("second group = %+v, want the standalone apk", groups[1])
	}
	sg := groups[2]
	if sg.Kind != GroupSplits || len(sg.Paths) != 2 {
		t.Fatalf("third group = %+v, want the split pair", sg)
	}
	if filepath.Base(sg.Paths[0]) != "base.apk" {
		t.Errorf("split group leads with %s, want base.apk", filepath.Base(sg.Paths[0]))
	}
}

func TestGroups_LoneBaseAPKStandsAlone(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "base.apk"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result, err := NewScanner(Options{}, nil).Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	groups := result.Groups()
	if len(groups) != 1 || groups[0].Kind != GroupAPK {
		t.Errorf("groups = %+v, want one standalone apk", groups)
	}
}

func TestResultExport(t *testing.T) {
	root := writeLibrary(t)
	result, err := NewScanner(Options{Recursive: true}, nil).Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, name := range []string{"inv.yaml", "inv.json"} {
		out := filepath.Join(t.TempDir(), name)
		if err := result.Export(out); err != nil {
			t.Errorf("Export(%s): %v", name, err)
		}
		if st, err := os.Stat(out); err != nil || st.Size() == 0 {
			t.Errorf("Export(%s) wrote nothing", name)
		}
	}
	if err := result.Export(filepath.Join(t.TempDir(), "inv.csv")); err == nil {
		t.Error("Export accepted an unsupported extension")
	}
}
