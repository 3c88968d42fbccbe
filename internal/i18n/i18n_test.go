package i18n

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ADBINSTALLER_LANG", "LC_ALL", "LC_MESSAGES", "LANG"} {
		t.Setenv(key, "")
	}
}

func TestSelectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		override string
		env      map[string]string
		want     language.Tag
	}{
		{
			name: "no hints falls back to english",
			want: language.English,
		},
		{
			name:     "explicit zh override",
			override: "zh",
			want:     language.Chinese,
		},
		{
			name:     "override beats environment",
			override: "en",
			env:      map[string]string{"LANG": "zh_CN.UTF-8"},
			want:     language.English,
		},
		{
			name: "LANG locale string",
			env:  map[string]string{"LANG": "zh_CN.UTF-8"},
			want: language.Chinese,
		},
		{
			name: "LC_ALL beats LANG",
			env:  map[string]string{"LC_ALL": "en_US.UTF-8", "LANG": "zh_CN.UTF-8"},
			want: language.English,
		},
		{
			name: "unsupported first choice falls through",
			env:  map[string]string{"LC_ALL": "fr_FR.UTF-8", "LANG": "zh_CN.UTF-8"},
			want: language.Chinese,
		},
		{
			name:     "garbage override ignored",
			override: "not-a-locale",
			want:     language.English,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearLocaleEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := selectLanguage(tt.override); got != tt.want {
				t.Errorf("selectLanguage(%q) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	clearLocaleEnv(t)
	if err := Init("en"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if got := T("install.noDevices"); got != "No online devices found" {
		t.Errorf("T(install.noDevices) = %q", got)
	}

	got := T("install.devicesSelected", map[string]interface{}{"Count": 3})
	if !strings.Contains(got, "3") {
		t.Errorf("T(install.devicesSelected) = %q, want the count substituted", got)
	}

	// Unknown IDs come back verbatim instead of erroring out mid-print.
	if got := T("no.such.key"); got != "no.such.key" {
		t.Errorf("T(no.such.key) = %q", got)
	}
}

func TestTranslateChinese(t *testing.T) {
	clearLocaleEnv(t)
	if err := Init("zh"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if CurrentLanguage() != language.Chinese {
		t.Fatalf("CurrentLanguage() = %v, want zh", CurrentLanguage())
	}
	if got := T("install.noDevices"); got == "install.noDevices" || got == "" {
		t.Errorf("zh translation missing for install.noDevices: %q", got)
	}
}
