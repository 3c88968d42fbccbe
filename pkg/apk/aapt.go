package apk

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// AAPTParser shells out to aapt2 (or aapt) "dump badging". It is the
// fallback for APKs the binary decoder chokes on.
type AAPTParser struct {
	aaptPath string
}

var (
	badgingNameRe    = regexp.MustCompile(`name='([^']+)'`)
	badgingVerCodeRe = regexp.MustCompile(`versionCode='([^']+)'`)
	badgingVerNameRe = regexp.MustCompile(`versionName='([^']+)'`)
	badgingQuotedRe  = regexp.MustCompile(`'([^']+)'`)
)

// NewAAPTParser locates aapt2 or aapt on PATH. The parser reports itself
// unavailable when neither exists.
func NewAAPTParser() *AAPTParser {
	return &AAPTParser{aaptPath: FindAAPT()}
}

// FindAAPT returns the path of aapt2 (preferred) or aapt, or "".
func FindAAPT() string {
	for _, name := range []string{"aapt2", "aapt"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// ParseAPK runs "aapt dump badging" and extracts the fields this tool
// cares about.
func (p *AAPTParser) ParseAPK(path string) (*Info, error) {
	if p.aaptPath == "" {
		return nil, fmt.Errorf("aapt2 or aapt not found in PATH")
	}
	out, err := exec.Command(p.aaptPath, "dump", "badging", path).Output()
	if err != nil {
		return nil, fmt.Errorf("aapt dump badging: %w", err)
	}
	info, err := parseBadging(string(out))
	if err != nil {
		return nil, err
	}
	info.FilePath = path
	if st, err := os.Stat(path); err == nil {
		info.Size = st.Size()
		info.ModTime = st.ModTime()
	}
	return info, nil
}

// GetParserInfo reports the parser's chain entry, including whether the
// aapt binary was found.
func (p *AAPTParser) GetParserInfo() ParserInfo {
	return ParserInfo{
		Name:         "aapt",
		Capabilities: []string{"badging", "permissions", "abis", "densities"},
		Available:    p.aaptPath != "",
		Priority:     2,
	}
}

// CanParse reports whether the file extension is one this parser handles.
func (p *AAPTParser) CanParse(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".apk")
}

// parseBadging turns "aapt dump badging" output into an Info.
func parseBadging(out string) (*Info, error) {
	info := &Info{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "package:"):
			if m := badgingNameRe.FindStringSubmatch(line); m != nil {
				info.PackageID = m[1]
			}
			if m := badgingVerCodeRe.FindStringSubmatch(line); m != nil {
				info.VersionCode, _ = strconv.ParseInt(m[1], 10, 64)
			}
			if m := badgingVerNameRe.FindStringSubmatch(line); m != nil {
				info.VersionName = m[1]
			}
		case strings.HasPrefix(line, "sdkVersion:"):
			if m := badgingQuotedRe.FindStringSubmatch(line); m != nil {
				info.MinSDK, _ = strconv.Atoi(m[1])
			}
		case strings.HasPrefix(line, "targetSdkVersion:"):
			if m := badgingQuotedRe.FindStringSubmatch(line); m != nil {
				info.TargetSDK, _ = strconv.Atoi(m[1])
			}
		case strings.HasPrefix(line, "application-label:"):
			if m := badgingQuotedRe.FindStringSubmatch(line); m != nil {
				info.Label = m[1]
			}
		case strings.HasPrefix(line, "uses-permission:"):
			if m := badgingNameRe.FindStringSubmatch(line); m != nil {
				info.Permissions = append(info.Permissions, m[1])
			}
		case strings.HasPrefix(line, "native-code:"):
			info.ABIs = append(info.ABIs, quotedValues(line)...)
		case strings.HasPrefix(line, "densities:"):
			info.Densities = append(info.Densities, quotedValues(line)...)
		}
	}
	if info.PackageID == "" {
		return nil, fmt.Errorf("badging output has no package block")
	}
	return info, nil
}

// quotedValues collects every quoted value on a badging list line, e.g.
// "native-code: 'arm64-v8a' 'armeabi-v7a'".
func quotedValues(line string) []string {
	var vals []string
	for _, m := range badgingQuotedRe.FindAllStringSubmatch(line, -1) {
		vals = append(vals, strings.Fields(m[1])...)
	}
	return vals
}
