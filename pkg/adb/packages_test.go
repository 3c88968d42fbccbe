package adb

import (
	"reflect"
	"testing"
)

func TestParsePrefixedLines(t *testing.T) {
	out := `package:com.android.chrome
package:io.example.app
package:
junk line
package:org.mozilla.firefox
`
	got := parsePrefixedLines(out, "package:")
	want := []string{"com.android.chrome", "io.example.app", "org.mozilla.firefox"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parsePrefixedLines() = %v, want %v", got, want)
	}
}

func TestParsePrefixedLines_KeepsOrder(t *testing.T) {
	// pm path lists the base apk first; that order is load-bearing for
	// reinstalls.
	out := "package:/data/app/~~x/io.foo/base.apk\npackage:/data/app/~~x/io.foo/split_config.arm64_v8a.apk\n"
	got := parsePrefixedLines(out, "package:")
	if len(got) != 2 || got[0] != "/data/app/~~x/io.foo/base.apk" {
		t.Errorf("parsePrefixedLines() = %v, want base.apk first", got)
	}
}

func TestParseDumpsysVersion(t *testing.T) {
	out := `Packages:
  Package [com.android.chrome] (abc123):
    userId=10094
    versionCode=605532733 minSdk=26 targetSdk=33
    versionName=120.0.6099.43
    splits=[base, config.arm64_v8a]
`
	name, code := parseDumpsysVersion(out)
	if name != "120.0.6099.43" {
		t.Errorf("versionName = %q, want 120.0.6099.43", name)
	}
	if code != 605532733 {
		t.Errorf("versionCode = %d, want 605532733", code)
	}
}

func TestParseDumpsysVersion_Missing(t *testing.T) {
	name, code := parseDumpsysVersion("Unable to find package: io.nothere")
	if name != "" || code != 0 {
		t.Errorf("parseDumpsysVersion() = (%q, %d), want empty", name, code)
	}
}

func TestPackageFilterFlag(t *testing.T) {
	tests := []struct {
		filter PackageFilter
		want   string
	}{
		{PackagesAll, ""},
		{PackagesThirdParty, "-3"},
		{PackagesSystem, "-s"},
		{PackagesDisabled, "-d"},
	}
	for _, tt := range tests {
		if got := tt.filter.flag(); got != tt.want {
			t.Errorf("flag() = %q, want %q", got, tt.want)
		}
	}
}

func TestValidatePackage(t *testing.T) {
	for _, ok := range []string{"com.android.chrome", "io.example.app_2", "a.b"} {
		if err := validatePackage(ok); err != nil {
			t.Errorf("validatePackage(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "io.foo; reboot", "io.foo bar", "io/foo", "$(id)"} {
		if err := validatePackage(bad); err == nil {
			t.Errorf("validatePackage(%q) = nil, want error", bad)
		}
	}
}
