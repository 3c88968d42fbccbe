package apk

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

// Errors reported by SelectSplits.
var (
	ErrNoBaseAPK     = errors.New("split group has no base apk")
	ErrNoMatchingABI = errors.New("no native split matches the device abi list")
)

// SplitKind classifies the configuration dimension a split APK targets.
type SplitKind int

const (
	SplitBase SplitKind = iota
	SplitABI
	SplitDensity
	SplitLocale
	SplitFeature
)

func (k SplitKind) String() string {
	switch k {
	case SplitBase:
		return "base"
	case SplitABI:
		return "abi"
	case SplitDensity:
		return "density"
	case SplitLocale:
		return "locale"
	default:
		return "feature"
	}
}

// splitABIs maps split-name tokens to the abi names devices report.
var splitABIs = map[string]string{
	"arm64_v8a":   "arm64-v8a",
	"armeabi_v7a": "armeabi-v7a",
	"armeabi":     "armeabi",
	"x86":         "x86",
	"x86_64":      "x86_64",
	"mips":        "mips",
	"mips64":      "mips64",
}

// splitDensities maps density bucket tokens to their dpi values. nodpi
// resources apply everywhere.
var splitDensities = map[string]int{
	"ldpi":    120,
	"mdpi":    160,
	"tvdpi":   213,
	"hdpi":    240,
	"xhdpi":   320,
	"xxhdpi":  480,
	"xxxhdpi": 640,
	"nodpi":   0,
}

var localeTokenRe = regexp.MustCompile(`^[a-z]{2,3}(?:[_-][a-z0-9]{2,4})?$`)

// ClassifySplit reports the dimension an APK file name carries. The token
// is the matched configuration value: a normalized abi for SplitABI, a
// bucket name for SplitDensity, a language tag for SplitLocale, the split
// id for SplitFeature. Names without a config marker count as base.
func ClassifySplit(name string) (SplitKind, string) {
	base := strings.ToLower(filepath.Base(name))
	base = strings.TrimSuffix(base, ".apk")
	if base == "base" {
		return SplitBase, ""
	}

	var token string
	switch {
	case strings.HasPrefix(base, "split_config."):
		token = strings.TrimPrefix(base, "split_config.")
	case strings.HasPrefix(base, "config."):
		token = strings.TrimPrefix(base, "config.")
	case strings.Contains(base, ".config."):
		parts := strings.Split(base, ".config.")
		token = parts[len(parts)-1]
	case strings.HasPrefix(base, "split_"):
		return SplitFeature, strings.TrimPrefix(base, "split_")
	default:
		return SplitBase, ""
	}

	if abi, ok := splitABIs[token]; ok {
		return SplitABI, abi
	}
	if _, ok := splitDensities[token]; ok {
		return SplitDensity, token
	}
	if localeTokenRe.MatchString(token) {
		return SplitLocale, strings.ReplaceAll(token, "_", "-")
	}
	return SplitFeature, token
}

// DeviceProfile is the slice of a device's configuration that split
// matching needs. Zero values mean "unknown"; unknown dimensions select
// every split of that dimension rather than guessing.
type DeviceProfile struct {
	SDK     int
	ABIs    []string // preference order as the device reports it
	Density int
	Locale  string // e.g. "en-US"
}

type splitFile struct {
	path  string
	token string
}

// SelectSplits picks from a full split set exactly the files one device
// needs: the base, the first native split matching the device's abi
// preference order, the nearest density split (nodpi always), locale
// splits sharing the device's base language, and every feature split.
func SelectSplits(profile DeviceProfile, paths []string) ([]string, error) {
	if len(paths) == 1 {
		return paths, nil
	}

	var base, features []string
	var abiSplits, densitySplits, localeSplits []splitFile

	for _, p := range paths {
		kind, token := ClassifySplit(p)
		switch kind {
		case SplitBase:
			base = append(base, p)
		case SplitABI:
			abiSplits = append(abiSplits, splitFile{p, token})
		case SplitDensity:
			densitySplits = append(densitySplits, splitFile{p, token})
		case SplitLocale:
			localeSplits = append(localeSplits, splitFile{p, token})
		case SplitFeature:
			features = append(features, p)
		}
	}

	if len(base) == 0 {
		return nil, ErrNoBaseAPK
	}

	selected := append([]string(nil), base...)

	if len(abiSplits) > 0 {
		if len(profile.ABIs) == 0 {
			for _, s := range abiSplits {
				selected = append(selected, s.path)
			}
		} else {
			path := matchABI(profile.ABIs, abiSplits)
			if path == "" {
				return nil, ErrNoMatchingABI
			}
			selected = append(selected, path)
		}
	}

	if len(densitySplits) > 0 {
		if profile.Density == 0 {
			for _, s := range densitySplits {
				selected = append(selected, s.path)
			}
		} else {
			selected = append(selected, matchDensity(profile.Density, densitySplits)...)
		}
	}

	if len(localeSplits) > 0 {
		lang := baseLanguage(profile.Locale)
		for _, s := range localeSplits {
			if lang == "" || baseLanguage(s.token) == lang {
				selected = append(selected, s.path)
			}
		}
	}

	return append(selected, features...), nil
}

// matchABI returns the split for the first device abi that has one.
func matchABI(deviceABIs []string, splits []splitFile) string {
	for _, abi := range deviceABIs {
		for _, s := range splits {
			if strings.EqualFold(s.token, abi) {
				return s.path
			}
		}
	}
	return ""
}

// matchDensity keeps every nodpi split and the bucket closest to the
// device density, preferring the denser bucket on a tie.
func matchDensity(density int, splits []splitFile) []string {
	var out []string
	best := ""
	bestDiff, bestDPI := -1, -1
	for _, s := range splits {
		if s.token == "nodpi" {
			out = append(out, s.path)
			continue
		}
		dpi := splitDensities[s.token]
		diff := dpi - density
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff || (diff == bestDiff && dpi > bestDPI) {
			best, bestDiff, bestDPI = s.path, diff, dpi
		}
	}
	if best != "" {
		out = append(out, best)
	}
	return out
}

// baseLanguage reduces a locale tag to its language part: "pt-BR" -> "pt".
func baseLanguage(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		return ""
	}
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		return locale[:i]
	}
	return locale
}
