package apk

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.apk")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	md5sum, sha1sum, sha256sum, err := Hashes(path)
	if err != nil {
		t.Fatalf("Hashes failed: %v", err)
	}

	if md5sum != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("md5 = %s", md5sum)
	}
	if sha1sum != "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed" {
		t.Errorf("sha1 = %s", sha1sum)
	}
	if sha256sum != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("sha256 = %s", sha256sum)
	}
}

func TestComputeHashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.apk")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	info := &Info{FilePath: path}
	if err := info.ComputeHashes(); err != nil {
		t.Fatalf("ComputeHashes failed: %v", err)
	}
	if info.MD5 == "" || info.SHA1 == "" || info.SHA256 == "" {
		t.Error("ComputeHashes left hash fields empty")
	}
}

func TestDisplayLabel(t *testing.T) {
	info := &Info{PackageID: "com.example.app"}
	if got := info.DisplayLabel(); got != "com.example.app" {
		t.Errorf("DisplayLabel = %q, want package id fallback", got)
	}
	info.Label = "Example"
	if got := info.DisplayLabel(); got != "Example" {
		t.Errorf("DisplayLabel = %q, want Example", got)
	}
}
