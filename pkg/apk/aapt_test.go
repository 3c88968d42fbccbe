package apk

import (
	"reflect"
	"testing"
)

const sampleBadging = `package: name='com.example.game' versionCode='2043' versionName='2.4.3' platformBuildVersionName='14'
sdkVersion:'23'
targetSdkVersion:'34'
uses-permission: name='android.permission.INTERNET'
uses-permission: name='android.permission.WAKE_LOCK'
application-label:'Example Game'
application-label-de:'Beispielspiel'
application: label='Example Game' icon='res/mipmap-anydpi-v26/ic_launcher.xml'
launchable-activity: name='com.example.game.MainActivity'  label='Example Game' icon=''
feature-group: label=''
  uses-feature: name='android.hardware.touchscreen'
native-code: 'arm64-v8a' 'armeabi-v7a'
densities: '160' '240' '320' '480' '640' '65535'
`

func TestParseBadging(t *testing.T) {
	info, err := parseBadging(sampleBadging)
	if err != nil {
		t.Fatalf("parseBadging failed: %v", err)
	}

	if info.PackageID != "com.example.game" {
		t.Errorf("PackageID = %q, want com.example.game", info.PackageID)
	}
	if info.VersionCode != 2043 {
		t.Errorf("VersionCode = %d, want 2043", info.VersionCode)
	}
	if info.VersionName != "2.4.3" {
		t.Errorf("VersionName = %q, want 2.4.3", info.VersionName)
	}
	if info.MinSDK != 23 || info.TargetSDK != 34 {
		t.Errorf("SDK = (%d, %d), want (23, 34)", info.MinSDK, info.TargetSDK)
	}
	if info.Label != "Example Game" {
		t.Errorf("Label = %q, want Example Game", info.Label)
	}
	wantPerms := []string{"android.permission.INTERNET", "android.permission.WAKE_LOCK"}
	if !reflect.DeepEqual(info.Permissions, wantPerms) {
		t.Errorf("Permissions = %v, want %v", info.Permissions, wantPerms)
	}
	wantABIs := []string{"arm64-v8a", "armeabi-v7a"}
	if !reflect.DeepEqual(info.ABIs, wantABIs) {
		t.Errorf("ABIs = %v, want %v", info.ABIs, wantABIs)
	}
	if len(info.Densities) != 6 {
		t.Errorf("Densities = %v, want 6 entries", info.Densities)
	}
}

func TestParseBadging_NoPackageBlock(t *testing.T) {
	if _, err := parseBadging("sdkVersion:'21'\n"); err == nil {
		t.Error("expected error for output without package block")
	}
}

func TestQuotedValues(t *testing.T) {
	got := quotedValues("native-code: 'arm64-v8a' 'armeabi-v7a' 'x86_64'")
	want := []string{"arm64-v8a", "armeabi-v7a", "x86_64"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("quotedValues = %v, want %v", got, want)
	}
}
