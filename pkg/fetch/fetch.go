// Package fetch resolves http(s) artifact URLs to local files so the
// install pipeline only ever sees paths. Downloads are resumable and
// land in a cache directory, so a re-run of the same URL costs nothing.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cavaliergopher/grab/v3"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
)

// ProgressFunc reports download progress. total is -1 when the server
// does not announce a length.
type ProgressFunc func(complete, total int64, percent int)

// Options tune a single fetch.
type Options struct {
	// SHA256 is an optional hex digest; a mismatch deletes the file
	// and fails the fetch.
	SHA256 string
	// Force discards any cached copy before downloading.
	Force bool
	// OnProgress is polled while the transfer runs.
	OnProgress ProgressFunc
}

// Fetcher downloads artifacts into a cache directory.
type Fetcher struct {
	client *grab.Client
	dir    string
}

// NewFetcher builds a fetcher storing downloads under dir. An empty
// dir falls back to a per-user temp location.
func NewFetcher(dir string) *Fetcher {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "adbinstaller-downloads")
	}
	client := grab.NewClient()
	client.UserAgent = "adbinstaller"
	return &Fetcher{client: client, dir: dir}
}

// Dir returns the download directory.
func (f *Fetcher) Dir() string {
	return f.dir
}

// IsURL reports whether s is an http(s) URL this fetcher can resolve.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch downloads rawURL and returns the local path. A previous
// complete download of the same URL is reused; a partial one resumes.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts Options) (string, error) {
	if !IsURL(rawURL) {
		return "", apperrors.NewValidationError("BAD_URL",
			fmt.Sprintf("not an http(s) URL: %s", rawURL))
	}

	dest := f.destination(rawURL)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", apperrors.WrapError(err, apperrors.ErrorTypeFileSystem,
			"FETCH_DIR", "cannot create download directory").
			WithContext("dir", filepath.Dir(dest))
	}
	if opts.Force {
		os.Remove(dest)
	}

	req, err := grab.NewRequest(dest, rawURL)
	if err != nil {
		return "", apperrors.WrapError(err, apperrors.ErrorTypeValidation,
			"BAD_URL", "cannot build download request").
			WithContext("url", rawURL)
	}
	req = req.WithContext(ctx)
	if opts.SHA256 != "" {
		sum, err := hex.DecodeString(opts.SHA256)
		if err != nil || len(sum) != sha256.Size {
			return "", apperrors.NewValidationError("BAD_CHECKSUM",
				"checksum must be a 64-character hex sha256 digest")
		}
		req.SetChecksum(sha256.New(), sum, true)
	}

	logging.Logger.Debug().Str("url", rawURL).Str("dest", dest).Msg("fetching artifact")
	resp := f.client.Do(req)
	f.track(resp, opts.OnProgress)

	if err := resp.Err(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apperrors.WrapError(err, apperrors.ErrorTypeNetwork,
			"FETCH_FAILED", "download failed").
			WithContext("url", rawURL)
	}
	return dest, nil
}

// track polls the transfer until it finishes, deduplicating percent
// updates the way an interactive progress line wants them.
func (f *Fetcher) track(resp *grab.Response, onProgress ProgressFunc) {
	if onProgress == nil {
		<-resp.Done
		return
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-ticker.C:
			if pct := percent(resp); pct != last {
				onProgress(resp.BytesComplete(), resp.Size(), pct)
				last = pct
			}
		case <-resp.Done:
			if resp.Err() == nil {
				onProgress(resp.BytesComplete(), resp.Size(), 100)
			}
			return
		}
	}
}

func percent(resp *grab.Response) int {
	if resp.Size() <= 0 {
		return 0
	}
	return int(resp.Progress() * 100)
}

// destination maps a URL to a stable cache path: a short digest of the
// full URL keeps distinct URLs with the same file name apart.
func (f *Fetcher) destination(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	name := "artifact.apk"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = sanitizeName(base)
		}
	}
	return filepath.Join(f.dir, hex.EncodeToString(sum[:6])+"_"+name)
}

// sanitizeName strips anything a URL could smuggle into a file name.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
