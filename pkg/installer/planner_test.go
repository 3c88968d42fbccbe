package installer

import (
	"reflect"
	"testing"

	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
)

func splitGroupUnit() Unit {
	return NewSplitGroupUnit([]string{
		"/lib/app/base.apk",
		"/lib/app/split_config.arm64_v8a.apk",
		"/lib/app/split_config.armeabi_v7a.apk",
		"/lib/app/split_config.xxhdpi.apk",
		"/lib/app/split_config.mdpi.apk",
		"/lib/app/split_config.en.apk",
		"/lib/app/split_config.de.apk",
	}, &apk.Info{PackageID: "io.example.app", MinSDK: 24})
}

func TestBuildPlan_SplitMatchingPerDevice(t *testing.T) {
	devices := []adb.Device{
		{
			ID: "pixel", State: adb.StateDevice,
			APILevel: 33, ABIs: []string{"arm64-v8a", "armeabi-v7a"},
			Density: 420, Locale: "en-US",
		},
		{
			ID: "older", State: adb.StateDevice,
			APILevel: 28, ABIs: []string{"armeabi-v7a"},
			Density: 320, Locale: "de-DE",
		},
	}
	plan := BuildPlan(devices, []Unit{splitGroupUnit()})

	if len(plan.Devices) != 2 {
		t.Fatalf("plan has %d devices, want 2", len(plan.Devices))
	}

	pixel := plan.Devices[0].Units[0]
	if pixel.Status != StatusPending {
		t.Fatalf("pixel unit status = %q, want pending (%s)", pixel.Status, pixel.SkipReason)
	}
	wantPixel := []string{
		"/lib/app/base.apk",
		"/lib/app/split_config.arm64_v8a.apk",
		"/lib/app/split_config.xxhdpi.apk",
		"/lib/app/split_config.en.apk",
	}
	if !reflect.DeepEqual(pixel.Files, wantPixel) {
		t.Errorf("pixel files = %v, want %v", pixel.Files, wantPixel)
	}

	older := plan.Devices[1].Units[0]
	wantOlder := []string{
		"/lib/app/base.apk",
		"/lib/app/split_config.armeabi_v7a.apk",
		"/lib/app/split_config.xxhdpi.apk",
		"/lib/app/split_config.de.apk",
	}
	if !reflect.DeepEqual(older.Files, wantOlder) {
		t.Errorf("older files = %v, want %v", older.Files, wantOlder)
	}
}

func TestBuildPlan_SkipsOnMinSDK(t *testing.T) {
	devices := []adb.Device{{ID: "legacy", State: adb.StateDevice, APILevel: 21}}
	unit := NewAPKUnit("/lib/modern.apk", &apk.Info{PackageID: "io.modern", MinSDK: 26})

	plan := BuildPlan(devices, []Unit{unit})
	pu := plan.Devices[0].Units[0]
	if pu.Status != StatusSkipped {
		t.Fatalf("status = %q, want skipped", pu.Status)
	}
	if pu.SkipReason != "requires API 26, device has 21" {
		t.Errorf("reason = %q", pu.SkipReason)
	}
}

func TestBuildPlan_SkipsOnABIMismatch(t *testing.T) {
	devices := []adb.Device{{ID: "x86box", State: adb.StateDevice, APILevel: 30, ABIs: []string{"x86_64", "x86"}}}

	apkUnit := NewAPKUnit("/lib/armonly.apk", &apk.Info{PackageID: "io.arm", ABIs: []string{"arm64-v8a"}})
	groupUnit := splitGroupUnit()

	plan := BuildPlan(devices, []Unit{apkUnit, groupUnit})
	if got := plan.Devices[0].Units[0].Status; got != StatusSkipped {
		t.Errorf("single apk status = %q, want skipped", got)
	}
	if got := plan.Devices[0].Units[1].Status; got != StatusSkipped {
		t.Errorf("split group status = %q, want skipped", got)
	}
	if reason := plan.Devices[0].Units[1].SkipReason; reason != "no split matches this device's cpu" {
		t.Errorf("split group reason = %q", reason)
	}
}

func TestBuildPlan_UnknownProfileTakesEverything(t *testing.T) {
	// A device that was never enriched has no abilist, density, or
	// locale; matching must not invent a restriction.
	devices := []adb.Device{{ID: "bare", State: adb.StateDevice}}
	plan := BuildPlan(devices, []Unit{splitGroupUnit()})
	pu := plan.Devices[0].Units[0]
	if pu.Status != StatusPending {
		t.Fatalf("status = %q, want pending", pu.Status)
	}
	if len(pu.Files) != 7 {
		t.Errorf("files = %d, want all 7", len(pu.Files))
	}
}

func TestBuildPlan_ContainerResolvedAtInstall(t *testing.T) {
	devices := []adb.Device{{ID: "pixel", State: adb.StateDevice, APILevel: 33}}
	unit := NewContainerUnit("/lib/game.xapk", nil)

	plan := BuildPlan(devices, []Unit{unit})
	pu := plan.Devices[0].Units[0]
	if pu.Status != StatusPending {
		t.Fatalf("status = %q, want pending", pu.Status)
	}
	if pu.Files != nil {
		t.Errorf("container files = %v, want nil until extraction", pu.Files)
	}
}

func TestBuildPlan_Deterministic(t *testing.T) {
	devices := []adb.Device{
		{ID: "a", State: adb.StateDevice, APILevel: 33, ABIs: []string{"arm64-v8a"}, Density: 420, Locale: "en-US"},
		{ID: "b", State: adb.StateDevice, APILevel: 29, ABIs: []string{"armeabi-v7a"}, Density: 240, Locale: "fr-FR"},
	}
	units := []Unit{splitGroupUnit(), NewAPKUnit("/lib/tool.apk", nil)}

	first := BuildPlan(devices, units)
	second := BuildPlan(devices, units)
	if !reflect.DeepEqual(first, second) {
		t.Error("same devices and units produced different plans")
	}
}

func TestPlanPending(t *testing.T) {
	devices := []adb.Device{
		{ID: "new", State: adb.StateDevice, APILevel: 33},
		{ID: "old", State: adb.StateDevice, APILevel: 19},
	}
	units := []Unit{NewAPKUnit("/lib/app.apk", &apk.Info{PackageID: "io.app", MinSDK: 26})}
	plan := BuildPlan(devices, units)
	if got := plan.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}
}

func TestABICompatible(t *testing.T) {
	tests := []struct {
		name       string
		apkABIs    []string
		deviceABIs []string
		want       bool
	}{
		{"no native code", nil, []string{"arm64-v8a"}, true},
		{"unknown device", []string{"arm64-v8a"}, nil, true},
		{"direct match", []string{"arm64-v8a"}, []string{"arm64-v8a", "armeabi-v7a"}, true},
		{"fallback match", []string{"armeabi-v7a"}, []string{"arm64-v8a", "armeabi-v7a"}, true},
		{"mismatch", []string{"x86"}, []string{"arm64-v8a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := abiCompatible(tt.apkABIs, tt.deviceABIs); got != tt.want {
				t.Errorf("abiCompatible(%v, %v) = %v, want %v", tt.apkABIs, tt.deviceABIs, got, tt.want)
			}
		})
	}
}
