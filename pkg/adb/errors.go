package adb

import (
	"regexp"
	"strings"
)

// FailureClass is a classified install or uninstall failure: the pm code
// (or a synthetic one for transport problems), operator guidance, and
// whether an automatic retry has any chance of helping.
type FailureClass struct {
	Code        string
	Message     string
	Suggestions []string
	Retryable   bool
}

// installFailures maps known pm error codes to guidance. Scanned in
// order; the first code found in the output wins.
var installFailures = []FailureClass{
	{
		Code:        "INSTALL_FAILED_ALREADY_EXISTS",
		Message:     "package already installed",
		Suggestions: []string{"Use -r to replace the existing app"},
	},
	{
		Code:    "INSTALL_FAILED_VERSION_DOWNGRADE",
		Message: "a newer version is already installed",
		Suggestions: []string{
			"Use -d to allow downgrades",
			"Or uninstall the newer version first",
		},
	},
	{
		Code:    "INSTALL_FAILED_UPDATE_INCOMPATIBLE",
		Message: "installed app is signed with a different key",
		Suggestions: []string{
			"Uninstall the existing app first",
			"Or rerun with --fix reinstall to let the tool do it",
		},
	},
	{
		Code:        "INSTALL_FAILED_PERMISSION_MODEL_DOWNGRADE",
		Message:     "app targets an older permission model than the installed build",
		Suggestions: []string{"Uninstall the existing app first, or rerun with --fix reinstall"},
	},
	{
		Code:        "INSTALL_FAILED_INSUFFICIENT_STORAGE",
		Message:     "device is out of storage",
		Suggestions: []string{"Free up space on the device", "Remove unused apps or media"},
	},
	{
		Code:    "INSTALL_FAILED_INVALID_APK",
		Message: "apk is invalid or corrupted",
		Suggestions: []string{
			"Re-download or rebuild the apk",
			"For split sets, make sure the base apk is included",
		},
	},
	{
		Code:        "INSTALL_FAILED_OLDER_SDK",
		Message:     "device Android version is below the app's minimum",
		Suggestions: []string{"Install on a device running a newer Android version"},
	},
	{
		Code:    "INSTALL_FAILED_NEWER_SDK",
		Message: "device Android version is above the app's maximum",
	},
	{
		Code:        "INSTALL_FAILED_TEST_ONLY",
		Message:     "apk is marked test-only",
		Suggestions: []string{"Rerun with -t to allow test packages"},
	},
	{
		Code:    "INSTALL_FAILED_NO_MATCHING_ABIS",
		Message: "apk carries no native code for this device's cpu",
		Suggestions: []string{
			"Install a build for this device's abi",
			"For split apps, include the matching split_config apk",
		},
	},
	{
		Code:    "INSTALL_FAILED_MISSING_SHARED_LIBRARY",
		Message: "device lacks a shared library the app requires",
	},
	{
		Code:    "INSTALL_FAILED_USER_RESTRICTED",
		Message: "device policy blocked the install",
		Suggestions: []string{
			"Enable 'Install via USB' in developer options",
			"Confirm the prompt on the device screen",
		},
	},
	{
		Code:        "INSTALL_FAILED_ABORTED",
		Message:     "install was declined on the device",
		Suggestions: []string{"Accept the install prompt on the device screen"},
	},
	{
		Code:        "INSTALL_PARSE_FAILED_NO_CERTIFICATES",
		Message:     "apk is unsigned or its signature is broken",
		Suggestions: []string{"Sign the apk before installing"},
	},
	{
		Code:        "INSTALL_FAILED_INTERNAL_ERROR",
		Message:     "package manager internal error",
		Suggestions: []string{"Try again", "Reboot the device if it keeps failing"},
		Retryable:   true,
	},
}

// deviceFailures classifies transport problems that surface as plain
// text instead of pm codes.
var deviceFailures = []struct {
	needle string
	class  FailureClass
}{
	{"device offline", FailureClass{
		Code:    "DEVICE_OFFLINE",
		Message: "device is offline",
		Suggestions: []string{
			"Reconnect the usb cable",
			"Restart the adb server ('adb kill-server && adb start-server')",
		},
		Retryable: true,
	}},
	{"device unauthorized", FailureClass{
		Code:    "DEVICE_UNAUTHORIZED",
		Message: "device has not authorized this computer",
		Suggestions: []string{
			"Accept the usb debugging prompt on the device",
			"Revoke and re-grant usb debugging if no prompt appears",
		},
	}},
	{"no devices/emulators found", FailureClass{
		Code:        "NO_DEVICES",
		Message:     "no device connected",
		Suggestions: []string{"Connect a device with usb debugging enabled"},
		Retryable:   true,
	}},
	{"more than one device", FailureClass{
		Code:        "AMBIGUOUS_DEVICE",
		Message:     "several devices connected; a serial is required",
		Suggestions: []string{"Pass -s <serial>"},
	}},
	{"not found", FailureClass{
		Code:        "DEVICE_NOT_FOUND",
		Message:     "device disappeared",
		Suggestions: []string{"Reconnect the device and try again"},
		Retryable:   true,
	}},
}

// reinstallFixable lists the failures that a clean uninstall followed by
// a fresh install normally resolves.
var reinstallFixable = map[string]bool{
	"INSTALL_FAILED_UPDATE_INCOMPATIBLE":        true,
	"INSTALL_FAILED_VERSION_DOWNGRADE":          true,
	"INSTALL_FAILED_PERMISSION_MODEL_DOWNGRADE": true,
}

// FixableWithReinstall reports whether uninstalling the existing package
// and installing fresh is the documented remedy for this code.
func FixableWithReinstall(code string) bool {
	return reinstallFixable[code]
}

var (
	successRe       = regexp.MustCompile(`(?m)^Success\b`)
	installFailedRe = regexp.MustCompile(`INSTALL(?:_PARSE)?_FAILED_[A-Z_]+`)
	deleteFailedRe  = regexp.MustCompile(`DELETE_FAILED_[A-Z_]+`)
	failureBlockRe  = regexp.MustCompile(`Failure \[([^\]]+)\]`)
)

// ClassifyInstallFailure turns raw adb/pm install output into a
// FailureClass. Unknown codes still get surfaced instead of swallowed.
func ClassifyInstallFailure(output string) FailureClass {
	for _, fc := range installFailures {
		if strings.Contains(output, fc.Code) {
			return fc
		}
	}
	for _, df := range deviceFailures {
		if strings.Contains(output, df.needle) {
			return df.class
		}
	}
	if code := installFailedRe.FindString(output); code != "" {
		return FailureClass{
			Code:        code,
			Message:     "install failed: " + humanizeCode(code),
			Suggestions: []string{"Capture the device log with 'adbinstaller logs capture'"},
		}
	}
	if m := failureBlockRe.FindStringSubmatch(output); m != nil {
		if fields := strings.Fields(m[1]); len(fields) > 0 {
			return FailureClass{
				Code:    strings.TrimSuffix(fields[0], ":"),
				Message: "install failed: " + m[1],
			}
		}
	}
	fc := FailureClass{
		Code:        "UNKNOWN",
		Message:     "install failed",
		Suggestions: []string{"Rerun with --verbose to inspect the raw adb output"},
	}
	if tail := lastNonEmptyLine(output); tail != "" {
		fc.Message = "install failed: " + tail
	}
	return fc
}

// ClassifyUninstallFailure mirrors ClassifyInstallFailure for pm
// uninstall output.
func ClassifyUninstallFailure(output string) FailureClass {
	switch {
	case strings.Contains(output, "DELETE_FAILED_DEVICE_POLICY_MANAGER"):
		return FailureClass{
			Code:        "DELETE_FAILED_DEVICE_POLICY_MANAGER",
			Message:     "package is protected by a device policy",
			Suggestions: []string{"Remove the device admin for this app first"},
		}
	case strings.Contains(output, "DELETE_FAILED_INTERNAL_ERROR"):
		return FailureClass{
			Code:        "DELETE_FAILED_INTERNAL_ERROR",
			Message:     "package manager internal error",
			Suggestions: []string{"Try again", "Reboot the device if it keeps failing"},
			Retryable:   true,
		}
	case strings.Contains(output, "not installed for"):
		return FailureClass{
			Code:    "DELETE_FAILED_NOT_INSTALLED_FOR_USER",
			Message: "package is not installed for this user",
		}
	}
	for _, df := range deviceFailures {
		if strings.Contains(output, df.needle) {
			return df.class
		}
	}
	if code := deleteFailedRe.FindString(output); code != "" {
		return FailureClass{
			Code:    code,
			Message: "uninstall failed: " + humanizeCode(code),
		}
	}
	fc := FailureClass{Code: "UNKNOWN", Message: "uninstall failed"}
	if tail := lastNonEmptyLine(output); tail != "" {
		fc.Message = "uninstall failed: " + tail
	}
	return fc
}

// humanizeCode lowers INSTALL_FAILED_FOO_BAR into "foo bar".
func humanizeCode(code string) string {
	code = strings.TrimPrefix(code, "INSTALL_PARSE_FAILED_")
	code = strings.TrimPrefix(code, "INSTALL_FAILED_")
	code = strings.TrimPrefix(code, "DELETE_FAILED_")
	return strings.ToLower(strings.ReplaceAll(code, "_", " "))
}

// lastNonEmptyLine is the most informative part of adb's output when no
// known code matches.
func lastNonEmptyLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
