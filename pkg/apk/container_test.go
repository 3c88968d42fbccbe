package apk

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeTestContainer(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create container: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close container: %v", err)
	}
}

func TestParseContainer_ManifestIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.xapk")
	writeTestContainer(t, path, map[string]string{
		"manifest.json": `{
			"package_name": "com.example.game",
			"name": "Example Game",
			"version_code": "2043",
			"version_name": "2.4.3",
			"min_sdk_version": "23",
			"split_apks": [
				{"file": "base.apk", "id": "base"},
				{"file": "split_config.arm64_v8a.apk", "id": "config.arm64_v8a"}
			],
			"expansions": [
				{"file": "main.2043.com.example.game.obb", "install_path": "Android/obb/com.example.game/main.2043.com.example.game.obb"}
			]
		}`,
		"base.apk":                    "not a real apk",
		"split_config.arm64_v8a.apk":  "not a real apk",
		"main.2043.com.example.game.obb": "obb bytes",
		"icon.png":                    "png bytes",
	})

	ci, err := ParseContainer(path)
	if err != nil {
		t.Fatalf("ParseContainer failed: %v", err)
	}

	if ci.PackageID != "com.example.game" {
		t.Errorf("PackageID = %q, want com.example.game", ci.PackageID)
	}
	if ci.Label != "Example Game" {
		t.Errorf("Label = %q, want Example Game", ci.Label)
	}
	if ci.VersionCode != 2043 {
		t.Errorf("VersionCode = %d, want 2043 (quoted manifest value)", ci.VersionCode)
	}
	if ci.MinSDK != 23 {
		t.Errorf("MinSDK = %d, want 23", ci.MinSDK)
	}
	if len(ci.APKEntries) != 2 {
		t.Errorf("APKEntries = %v, want 2 entries", ci.APKEntries)
	}
	if len(ci.OBBEntries) != 1 {
		t.Errorf("OBBEntries = %v, want 1 entry", ci.OBBEntries)
	}
}

func TestParseContainer_NoAPKs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.xapk")
	writeTestContainer(t, path, map[string]string{"readme.txt": "nothing here"})

	if _, err := ParseContainer(path); err == nil {
		t.Error("expected error for container without apk entries")
	}
}

func TestParseContainer_NotAZip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.xapk")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ParseContainer(path); err == nil {
		t.Error("expected error for non-zip container")
	}
}

func TestExtractContainer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.apkm")
	writeTestContainer(t, path, map[string]string{
		"base.apk":                   "base bytes",
		"splits/config.en.apk":       "locale bytes",
		"main.1.com.example.obb":     "obb bytes",
		"icon.png":                   "skipped",
		"../escape.apk":              "must not land outside",
	})

	dest := filepath.Join(dir, "out")
	apks, obbs, err := ExtractContainer(path, dest)
	if err != nil {
		t.Fatalf("ExtractContainer failed: %v", err)
	}

	if len(apks) != 2 {
		t.Errorf("apks = %v, want 2 entries", apks)
	}
	if len(obbs) != 1 {
		t.Errorf("obbs = %v, want 1 entry", obbs)
	}
	for _, p := range append(append([]string{}, apks...), obbs...) {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("extracted file missing: %s", p)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.apk")); err == nil {
		t.Error("zip-slip entry escaped the destination directory")
	}
	if _, err := os.Stat(filepath.Join(dest, "icon.png")); err == nil {
		t.Error("non-installable entry should not be extracted")
	}
}

func TestIsContainerPath(t *testing.T) {
	tests := map[string]bool{
		"app.xapk":     true,
		"app.APKM":     true,
		"bundle.apks":  true,
		"app.apk":      false,
		"notes.txt":    false,
	}
	for path, want := range tests {
		if got := IsContainerPath(path); got != want {
			t.Errorf("IsContainerPath(%q) = %v, want %v", path, got, want)
		}
	}

	if !IsArtifactPath("app.apk") || !IsArtifactPath("app.xapk") || IsArtifactPath("app.zip") {
		t.Error("IsArtifactPath misclassifies inputs")
	}
}
