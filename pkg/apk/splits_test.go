package apk

import (
	"errors"
	"reflect"
	"testing"
)

func TestClassifySplit(t *testing.T) {
	tests := []struct {
		name  string
		kind  SplitKind
		token string
	}{
		{"base.apk", SplitBase, ""},
		{"/some/dir/base.apk", SplitBase, ""},
		{"split_config.arm64_v8a.apk", SplitABI, "arm64-v8a"},
		{"config.armeabi_v7a.apk", SplitABI, "armeabi-v7a"},
		{"split_config.x86_64.apk", SplitABI, "x86_64"},
		{"split_config.xxhdpi.apk", SplitDensity, "xxhdpi"},
		{"config.nodpi.apk", SplitDensity, "nodpi"},
		{"split_config.en.apk", SplitLocale, "en"},
		{"split_config.pt_br.apk", SplitLocale, "pt-br"},
		{"com.example.app.config.fr.apk", SplitLocale, "fr"},
		{"split_assets.apk", SplitFeature, "assets"},
		{"split_config.extra_pack.apk", SplitFeature, "extra_pack"},
		{"standalone.apk", SplitBase, ""},
	}

	for _, tt := range tests {
		kind, token := ClassifySplit(tt.name)
		if kind != tt.kind || token != tt.token {
			t.Errorf("ClassifySplit(%q) = (%v, %q), want (%v, %q)",
				tt.name, kind, token, tt.kind, tt.token)
		}
	}
}

func TestSelectSplits_PicksDeviceVariant(t *testing.T) {
	paths := []string{
		"base.apk",
		"split_config.arm64_v8a.apk",
		"split_config.armeabi_v7a.apk",
		"split_config.xhdpi.apk",
		"split_config.xxhdpi.apk",
		"split_config.en.apk",
		"split_config.de.apk",
		"split_assets.apk",
	}
	profile := DeviceProfile{
		SDK:     33,
		ABIs:    []string{"arm64-v8a", "armeabi-v7a", "armeabi"},
		Density: 480,
		Locale:  "en-US",
	}

	got, err := SelectSplits(profile, paths)
	if err != nil {
		t.Fatalf("SelectSplits failed: %v", err)
	}

	want := []string{
		"base.apk",
		"split_config.arm64_v8a.apk",
		"split_config.xxhdpi.apk",
		"split_config.en.apk",
		"split_assets.apk",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SelectSplits = %v, want %v", got, want)
	}
}

func TestSelectSplits_SecondChoiceABI(t *testing.T) {
	paths := []string{"base.apk", "split_config.armeabi_v7a.apk"}
	profile := DeviceProfile{ABIs: []string{"arm64-v8a", "armeabi-v7a"}}

	got, err := SelectSplits(profile, paths)
	if err != nil {
		t.Fatalf("SelectSplits failed: %v", err)
	}
	if len(got) != 2 || got[1] != "split_config.armeabi_v7a.apk" {
		t.Errorf("expected armeabi-v7a fallback, got %v", got)
	}
}

func TestSelectSplits_NoMatchingABI(t *testing.T) {
	paths := []string{"base.apk", "split_config.x86.apk"}
	profile := DeviceProfile{ABIs: []string{"arm64-v8a"}}

	if _, err := SelectSplits(profile, paths); !errors.Is(err, ErrNoMatchingABI) {
		t.Errorf("expected ErrNoMatchingABI, got %v", err)
	}
}

func TestSelectSplits_NoBase(t *testing.T) {
	paths := []string{"split_config.arm64_v8a.apk", "split_config.en.apk"}

	if _, err := SelectSplits(DeviceProfile{}, paths); !errors.Is(err, ErrNoBaseAPK) {
		t.Errorf("expected ErrNoBaseAPK, got %v", err)
	}
}

func TestSelectSplits_UnknownProfileTakesEverything(t *testing.T) {
	paths := []string{
		"base.apk",
		"split_config.arm64_v8a.apk",
		"split_config.x86.apk",
		"split_config.hdpi.apk",
		"split_config.ja.apk",
	}

	got, err := SelectSplits(DeviceProfile{}, paths)
	if err != nil {
		t.Fatalf("SelectSplits failed: %v", err)
	}
	if len(got) != len(paths) {
		t.Errorf("expected all %d splits, got %d: %v", len(paths), len(got), got)
	}
}

func TestSelectSplits_NearestDensityPrefersDenser(t *testing.T) {
	paths := []string{
		"base.apk",
		"split_config.xhdpi.apk",
		"split_config.xxhdpi.apk",
		"split_config.nodpi.apk",
	}
	// 400dpi sits exactly between xhdpi (320) and xxhdpi (480).
	got, err := SelectSplits(DeviceProfile{Density: 400}, paths)
	if err != nil {
		t.Fatalf("SelectSplits failed: %v", err)
	}

	want := []string{"base.apk", "split_config.nodpi.apk", "split_config.xxhdpi.apk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SelectSplits = %v, want %v", got, want)
	}
}

func TestSelectSplits_LocaleBaseLanguageMatch(t *testing.T) {
	paths := []string{
		"base.apk",
		"split_config.pt.apk",
		"split_config.pt_br.apk",
		"split_config.zh.apk",
	}

	got, err := SelectSplits(DeviceProfile{Locale: "pt-BR"}, paths)
	if err != nil {
		t.Fatalf("SelectSplits failed: %v", err)
	}

	want := []string{"base.apk", "split_config.pt.apk", "split_config.pt_br.apk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SelectSplits = %v, want %v", got, want)
	}
}

func TestSelectSplits_SingleFilePassesThrough(t *testing.T) {
	got, err := SelectSplits(DeviceProfile{ABIs: []string{"x86"}}, []string{"app.apk"})
	if err != nil {
		t.Fatalf("SelectSplits failed: %v", err)
	}
	if len(got) != 1 || got[0] != "app.apk" {
		t.Errorf("expected passthrough, got %v", got)
	}
}
