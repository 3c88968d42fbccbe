package apk

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
)

// ContainerInfo describes a bundled artifact (.xapk, .apkm, .apks): the
// split APKs and expansion files it carries plus the identity taken from
// its manifest or base APK.
type ContainerInfo struct {
	FilePath    string   `json:"file" yaml:"file"`
	PackageID   string   `json:"package_id" yaml:"package_id"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	VersionName string   `json:"version_name,omitempty" yaml:"version_name,omitempty"`
	VersionCode int64    `json:"version_code,omitempty" yaml:"version_code,omitempty"`
	MinSDK      int      `json:"min_sdk,omitempty" yaml:"min_sdk,omitempty"`
	TargetSDK   int      `json:"target_sdk,omitempty" yaml:"target_sdk,omitempty"`
	TotalSize   int64    `json:"size" yaml:"size"`
	APKEntries  []string `json:"apks" yaml:"apks"`
	OBBEntries  []string `json:"obbs,omitempty" yaml:"obbs,omitempty"`
	Base        *Info    `json:"base,omitempty" yaml:"base,omitempty"`
}

// flexInt64 accepts both 473 and "473"; container manifests quote
// numeric fields inconsistently.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt64(n)
	return nil
}

// containerManifest is the manifest.json layout XAPK and APKM archives
// carry. Only the fields we read are declared.
type containerManifest struct {
	PackageName      string    `json:"package_name"`
	Name             string    `json:"name"`
	VersionCode      flexInt64 `json:"version_code"`
	VersionName      string    `json:"version_name"`
	MinSDKVersion    flexInt64 `json:"min_sdk_version"`
	TargetSDKVersion flexInt64 `json:"target_sdk_version"`
	SplitAPKs        []struct {
		File string `json:"file"`
		ID   string `json:"id"`
	} `json:"split_apks"`
	Expansions []struct {
		File        string `json:"file"`
		InstallPath string `json:"install_path"`
	} `json:"expansions"`
}

// IsContainerPath reports whether path looks like a split-APK bundle.
func IsContainerPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xapk", ".apkm", ".apks":
		return true
	}
	return false
}

// IsArtifactPath reports whether path is anything this tool can install.
func IsArtifactPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".apk") || IsContainerPath(path)
}

// ParseContainer reads a bundle's manifest and entry list without
// extracting it. Identity comes from the base APK when it parses, with
// manifest.json values taking precedence.
func ParseContainer(path string) (*ContainerInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeParsing, "BAD_CONTAINER",
			"not a readable zip archive").WithContext("file", path)
	}
	defer reader.Close()

	ci := &ContainerInfo{FilePath: path, TotalSize: st.Size()}

	var manifestRaw []byte
	var baseEntry *zip.File
	baseExact := false
	for _, f := range reader.File {
		name := strings.ToLower(filepath.Base(f.Name))
		switch {
		case name == "manifest.json" || name == "info.json":
			if rc, err := f.Open(); err == nil {
				manifestRaw, _ = io.ReadAll(rc)
				rc.Close()
			}
		case strings.HasSuffix(name, ".apk"):
			ci.APKEntries = append(ci.APKEntries, f.Name)
			if name == "base.apk" && !baseExact {
				baseEntry, baseExact = f, true
			} else if baseEntry == nil && !strings.Contains(name, "config") {
				baseEntry = f
			}
		case strings.HasSuffix(name, ".obb"):
			ci.OBBEntries = append(ci.OBBEntries, f.Name)
		}
	}
	sort.Strings(ci.APKEntries)
	sort.Strings(ci.OBBEntries)

	if len(ci.APKEntries) == 0 {
		return nil, apperrors.NewParsingError("EMPTY_CONTAINER",
			"archive contains no apk entries").WithContext("file", path)
	}

	if baseEntry != nil {
		if info, err := parseZipEntry(baseEntry); err == nil {
			ci.Base = info
			ci.PackageID = info.PackageID
			ci.Label = info.Label
			ci.VersionName = info.VersionName
			ci.VersionCode = info.VersionCode
			ci.MinSDK = info.MinSDK
			ci.TargetSDK = info.TargetSDK
		} else {
			logging.Logger.Debug().Str("entry", baseEntry.Name).Err(err).Msg("base apk parse failed")
		}
	}

	if manifestRaw != nil {
		var m containerManifest
		if err := json.Unmarshal(manifestRaw, &m); err != nil {
			logging.Logger.Debug().Str("file", path).Err(err).Msg("container manifest unreadable")
		} else {
			applyManifest(ci, &m)
		}
	}

	if ci.PackageID == "" {
		return nil, apperrors.NewParsingError("NO_PACKAGE_ID",
			"neither manifest nor base apk yields a package id").WithContext("file", path)
	}
	return ci, nil
}

func applyManifest(ci *ContainerInfo, m *containerManifest) {
	if m.PackageName != "" {
		ci.PackageID = m.PackageName
	}
	if m.Name != "" {
		ci.Label = m.Name
	}
	if m.VersionName != "" {
		ci.VersionName = m.VersionName
	}
	if m.VersionCode > 0 {
		ci.VersionCode = int64(m.VersionCode)
	}
	if m.MinSDKVersion > 0 {
		ci.MinSDK = int(m.MinSDKVersion)
	}
	if m.TargetSDKVersion > 0 {
		ci.TargetSDK = int(m.TargetSDKVersion)
	}
}

// parseZipEntry copies one archived APK to a temp file and runs the
// parser chain on it.
func parseZipEntry(f *zip.File) (*Info, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "bundle_base_*.apk")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, rc)
	tmp.Close()
	if err != nil {
		return nil, err
	}

	info, err := DefaultChain().ParseAPK(tmp.Name())
	if err != nil {
		return nil, err
	}
	info.FilePath = f.Name
	info.Size = int64(f.UncompressedSize64)
	return info, nil
}

// ExtractContainer unpacks a bundle's installable entries (APKs and OBB
// expansions) into destDir and returns their paths. Entries that would
// escape destDir are skipped.
func ExtractContainer(path, destDir string) (apks, obbs []string, err error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, apperrors.WrapError(err, apperrors.ErrorTypeParsing, "BAD_CONTAINER",
			"not a readable zip archive").WithContext("file", path)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, nil, err
	}

	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		lower := strings.ToLower(f.Name)
		isAPK := strings.HasSuffix(lower, ".apk")
		isOBB := strings.HasSuffix(lower, ".obb")
		if !isAPK && !isOBB {
			continue
		}
		if !filepath.IsLocal(f.Name) {
			logging.Logger.Warn().Str("entry", f.Name).Msg("skipping archive entry outside destination")
			continue
		}
		dest := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if err := extractEntry(f, dest); err != nil {
			return nil, nil, apperrors.WrapError(err, apperrors.ErrorTypeFileSystem, "EXTRACT_FAILED",
				"failed to extract archive entry").WithContext("entry", f.Name)
		}
		if isAPK {
			apks = append(apks, dest)
		} else {
			obbs = append(obbs, dest)
		}
	}
	sort.Strings(apks)
	sort.Strings(obbs)
	return apks, obbs, nil
}

func extractEntry(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
