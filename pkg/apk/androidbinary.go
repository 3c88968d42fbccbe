package apk

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ab "github.com/shogo82148/androidbinary/apk"
)

// BinaryParser decodes APK metadata with the androidbinary library. It
// needs no external tooling, so it runs first in the chain.
type BinaryParser struct{}

// NewBinaryParser creates the built-in manifest decoder.
func NewBinaryParser() *BinaryParser {
	return &BinaryParser{}
}

// ParseAPK parses the binary AndroidManifest.xml plus the zip entry list.
func (p *BinaryParser) ParseAPK(path string) (*Info, error) {
	pkg, err := ab.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	manifest := pkg.Manifest()

	info := &Info{
		PackageID:   manifest.Package.MustString(),
		VersionName: manifest.VersionName.MustString(),
		VersionCode: int64(manifest.VersionCode.MustInt32()),
		FilePath:    path,
		Size:        st.Size(),
		ModTime:     st.ModTime(),
		ABIs:        zipABIs(path),
	}
	if label, err := manifest.App.Label.String(); err == nil && label != "" {
		info.Label = label
	}
	if min, err := manifest.SDK.Min.Int32(); err == nil {
		info.MinSDK = int(min)
	}
	if target, err := manifest.SDK.Target.Int32(); err == nil {
		info.TargetSDK = int(target)
	}
	for _, perm := range manifest.UsesPermissions {
		if name, err := perm.Name.String(); err == nil && name != "" {
			info.Permissions = append(info.Permissions, name)
		}
	}
	return info, nil
}

// GetParserInfo reports the parser's chain entry.
func (p *BinaryParser) GetParserInfo() ParserInfo {
	return ParserInfo{
		Name:         "androidbinary",
		Capabilities: []string{"manifest", "permissions", "abis"},
		Available:    true,
		Priority:     1,
	}
}

// CanParse reports whether the file extension is one this parser handles.
func (p *BinaryParser) CanParse(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".apk")
}

// zipABIs lists the native ABI directories bundled under lib/.
func zipABIs(path string) []string {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil
	}
	defer reader.Close()

	seen := make(map[string]bool)
	for _, f := range reader.File {
		if !strings.HasPrefix(f.Name, "lib/") {
			continue
		}
		parts := strings.Split(f.Name, "/")
		if len(parts) >= 2 && parts[1] != "" {
			seen[parts[1]] = true
		}
	}
	abis := make([]string, 0, len(seen))
	for abi := range seen {
		abis = append(abis, abi)
	}
	sort.Strings(abis)
	return abis
}
