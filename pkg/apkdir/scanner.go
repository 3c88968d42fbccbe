package apkdir

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
)

// Options control a library scan.
type Options struct {
	Recursive      bool
	FollowSymlinks bool
	// Include globs match the file name or the full path. Empty falls
	// back to the standard artifact extensions.
	Include []string
	Exclude []string
	// Parse extracts metadata from every artifact found.
	Parse bool
	// OnProgress is called after each artifact is handled.
	OnProgress func(done int, path string)
}

// Artifact is one file found by a scan.
type Artifact struct {
	Path      string             `json:"path" yaml:"path"`
	Size      int64              `json:"size" yaml:"size"`
	ModTime   time.Time          `json:"mod_time" yaml:"mod_time"`
	Info      *apk.Info          `json:"info,omitempty" yaml:"info,omitempty"`
	Container *apk.ContainerInfo `json:"container,omitempty" yaml:"container,omitempty"`
	ParseErr  string             `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`

	fromCache bool
}

// Result is everything one scan produced.
type Result struct {
	Root      string     `json:"root" yaml:"root"`
	ScannedAt time.Time  `json:"scanned_at" yaml:"scanned_at"`
	Artifacts []Artifact `json:"artifacts" yaml:"artifacts"`
	Parsed    int        `json:"parsed" yaml:"parsed"`
	CacheHits int        `json:"cache_hits" yaml:"cache_hits"`
	Errors    []string   `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Scanner walks a local APK library.
type Scanner struct {
	opts  Options
	chain *apk.Chain
	cache *Cache
}

// NewScanner builds a scanner. cache may be nil to parse everything
// fresh.
func NewScanner(opts Options, cache *Cache) *Scanner {
	return &Scanner{opts: opts, chain: apk.DefaultChain(), cache: cache}
}

// Scan walks root and collects install artifacts. Per-file problems are
// recorded in the result, not returned; only a broken walk fails.
func (s *Scanner) Scan(root string) (*Result, error) {
	root = filepath.Clean(root)
	result := &Result{Root: root, ScannedAt: time.Now()}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if info.IsDir() {
			if !s.opts.Recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			if !s.opts.FollowSymlinks {
				return nil
			}
			// Record the target, not the link; the cache keys on size
			// and mtime.
			target, terr := os.Stat(path)
			if terr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, terr))
				return nil
			}
			if target.IsDir() {
				return nil
			}
			info = target
		}
		if !s.matches(path) {
			return nil
		}

		artifact := Artifact{Path: path, Size: info.Size(), ModTime: info.ModTime()}
		if s.opts.Parse {
			s.parse(&artifact, info)
			if artifact.ParseErr == "" {
				result.Parsed++
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", path, artifact.ParseErr))
			}
			if artifact.fromCache {
				result.CacheHits++
			}
		}
		result.Artifacts = append(result.Artifacts, artifact)
		if s.opts.OnProgress != nil {
			s.opts.OnProgress(len(result.Artifacts), path)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeFileSystem,
			"SCAN_FAILED", "cannot walk library directory").
			WithContext("root", root)
	}

	if s.cache != nil {
		if removed, err := s.cache.Prune(); err != nil {
			logging.Logger.Debug().Err(err).Msg("cache prune failed")
		} else if removed > 0 {
			logging.Logger.Debug().Int("removed", removed).Msg("pruned metadata cache")
		}
	}
	return result, nil
}

// matches applies exclude globs first, then include globs. Patterns are
// tried against the bare file name and the full path, the way shell
// users expect both `*.apk` and `backups/*` to work.
func (s *Scanner) matches(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range s.opts.Exclude {
		if ok, _ := filepath.Match(pattern, name); ok {
			return false
		}
		if ok, _ := filepath.Match(pattern, path); ok {
			return false
		}
	}
	include := s.opts.Include
	if len(include) == 0 {
		return apk.IsArtifactPath(path)
	}
	for _, pattern := range include {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) parse(a *Artifact, st os.FileInfo) {
	if s.cache != nil {
		if hit, ok := s.cache.Get(a.Path, st); ok {
			a.Info = hit.Info
			a.Container = hit.Container
			a.fromCache = true
			return
		}
	}
	if apk.IsContainerPath(a.Path) {
		ci, err := apk.ParseContainer(a.Path)
		if err != nil {
			a.ParseErr = err.Error()
			return
		}
		a.Container = ci
	} else {
		info, err := s.chain.ParseAPK(a.Path)
		if err != nil {
			a.ParseErr = err.Error()
			return
		}
		a.Info = info
	}
	if s.cache != nil {
		if err := s.cache.Put(a.Path, st, a.Info, a.Container); err != nil {
			logging.Logger.Debug().Err(err).Str("path", a.Path).Msg("cache write failed")
		}
	}
}

// GroupKind classifies what a group installs as.
type GroupKind string

const (
	GroupAPK       GroupKind = "apk"
	GroupSplits    GroupKind = "split-group"
	GroupContainer GroupKind = "container"
)

// Group is one install candidate: a standalone artifact, or a base.apk
// with the split_config siblings sharing its directory.
type Group struct {
	Kind      GroupKind          `json:"kind" yaml:"kind"`
	Paths     []string           `json:"paths" yaml:"paths"`
	Info      *apk.Info          `json:"info,omitempty" yaml:"info,omitempty"`
	Container *apk.ContainerInfo `json:"container,omitempty" yaml:"container,omitempty"`
}

// Groups folds the scan into install candidates. A directory holding
// base.apk plus config splits becomes one split group; everything else
// stands alone. Order follows the scan (lexical), so the same library
// always yields the same groups.
func (r *Result) Groups() []Group {
	var groups []Group
	splitDirs := make(map[string][]Artifact)

	for _, a := range r.Artifacts {
		switch {
		case apk.IsContainerPath(a.Path):
			groups = append(groups, Group{Kind: GroupContainer, Paths: []string{a.Path}, Container: a.Container, Info: baseInfo(a)})
		case strings.EqualFold(filepath.Ext(a.Path), ".apk"):
			splitDirs[filepath.Dir(a.Path)] = append(splitDirs[filepath.Dir(a.Path)], a)
		}
	}

	dirs := make([]string, 0, len(splitDirs))
	for dir := range splitDirs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		arts := splitDirs[dir]
		var base *Artifact
		var splits []Artifact
		var standalone []Artifact
		for i := range arts {
			a := arts[i]
			name := filepath.Base(a.Path)
			kind, _ := apk.ClassifySplit(name)
			switch {
			case name == "base.apk":
				base = &arts[i]
			case kind != apk.SplitBase:
				splits = append(splits, a)
			default:
				standalone = append(standalone, a)
			}
		}

		if base != nil && len(splits) > 0 {
			g := Group{Kind: GroupSplits, Paths: []string{base.Path}, Info: base.Info}
			for _, sp := range splits {
				g.Paths = append(g.Paths, sp.Path)
			}
			groups = append(groups, g)
		} else {
			// No anchor: nothing groups, every apk stands alone.
			if base != nil {
				standalone = append([]Artifact{*base}, standalone...)
			}
			standalone = append(standalone, splits...)
		}
		for _, a := range standalone {
			groups = append(groups, Group{Kind: GroupAPK, Paths: []string{a.Path}, Info: a.Info})
		}
	}
	return groups
}

func baseInfo(a Artifact) *apk.Info {
	if a.Container != nil {
		return a.Container.Base
	}
	return a.Info
}

// Export writes the scan result to path; the extension picks the
// encoding (.json, .yaml, .yml).
func (r *Result) Export(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(r, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(r)
	default:
		return apperrors.NewValidationError("BAD_EXPORT_EXT",
			fmt.Sprintf("unsupported export format: %s", filepath.Ext(path))).
			WithSuggestion("Use a .yaml, .yml, or .json extension")
	}
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeParsing,
			"EXPORT_ENCODE", "cannot encode scan result")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeFileSystem,
			"EXPORT_WRITE", "cannot write inventory").
			WithContext("path", path)
	}
	return nil
}
