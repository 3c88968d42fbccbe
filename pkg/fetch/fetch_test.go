package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/app.apk", true},
		{"http://mirror.local:8080/f.xapk", true},
		{"ftp://example.com/app.apk", false},
		{"file:///tmp/app.apk", false},
		{"/home/user/app.apk", false},
		{"app.apk", false},
		{"https://", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsURL(tt.in); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDestination_StableAndSafe(t *testing.T) {
	f := NewFetcher(t.TempDir())

	first := f.destination("https://example.com/releases/app.apk")
	second := f.destination("https://example.com/releases/app.apk")
	if first != second {
		t.Errorf("same URL mapped to %s and %s", first, second)
	}

	other := f.destination("https://mirror.example.com/releases/app.apk")
	if other == first {
		t.Error("different URLs share one cache path")
	}

	tricky := f.destination("https://example.com/a%2Fb/..%2Fescape.apk")
	if strings.ContainsAny(filepath.Base(tricky), "/\\%") {
		t.Errorf("unsanitized destination name: %s", tricky)
	}
	if filepath.Dir(tricky) != f.Dir() {
		t.Errorf("destination escaped the cache dir: %s", tricky)
	}
}

func TestFetch_DownloadsToCache(t *testing.T) {
	payload := []byte("pretend this is an apk")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	var lastPct int
	got, err := f.Fetch(context.Background(), srv.URL+"/app.apk", Options{
		OnProgress: func(complete, total int64, percent int) { lastPct = percent },
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("downloaded %q, want %q", data, payload)
	}
	if lastPct != 100 {
		t.Errorf("final progress = %d%%, want 100%%", lastPct)
	}
	if filepath.Dir(got) != f.Dir() {
		t.Errorf("download landed outside the cache dir: %s", got)
	}
}

func TestFetch_VerifiesChecksum(t *testing.T) {
	payload := []byte("checksummed payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	sum := sha256.Sum256(payload)

	if _, err := f.Fetch(context.Background(), srv.URL+"/ok.apk", Options{
		SHA256: hex.EncodeToString(sum[:]),
	}); err != nil {
		t.Errorf("Fetch with matching checksum: %v", err)
	}

	bad := sha256.Sum256([]byte("something else"))
	badURL := srv.URL + "/bad.apk"
	if _, err := f.Fetch(context.Background(), badURL, Options{
		SHA256: hex.EncodeToString(bad[:]),
	}); err == nil {
		t.Fatal("Fetch accepted a checksum mismatch")
	}
	if _, err := os.Stat(f.destination(badURL)); err == nil {
		t.Error("mismatched download left on disk")
	}
}

func TestFetch_RejectsBadInput(t *testing.T) {
	f := NewFetcher(t.TempDir())

	if _, err := f.Fetch(context.Background(), "/local/path.apk", Options{}); err == nil {
		t.Error("Fetch accepted a non-URL")
	}
	if _, err := f.Fetch(context.Background(), "https://example.com/a.apk", Options{
		SHA256: "not-hex",
	}); err == nil {
		t.Error("Fetch accepted a malformed checksum")
	}
	if _, err := f.Fetch(context.Background(), "https://example.com/a.apk", Options{
		SHA256: "abcd", // valid hex, wrong length
	}); err == nil {
		t.Error("Fetch accepted a truncated checksum")
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(t.TempDir())
	if _, err := f.Fetch(ctx, srv.URL+"/app.apk", Options{}); err == nil {
		t.Error("Fetch succeeded with a canceled context")
	}
}
