package adb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
)

// InstallOptions are the pm install switches this tool exposes.
type InstallOptions struct {
	// Replace keeps existing app data and reinstalls over it (-r).
	Replace bool
	// Downgrade allows installing an older versionCode (-d).
	Downgrade bool
	// GrantPermissions grants all runtime permissions on install (-g).
	GrantPermissions bool
	// AllowTestPackages allows test-only builds (-t).
	AllowTestPackages bool
	// UserID installs for a specific Android user ("0", "10", "current", "all").
	UserID string
}

func (o InstallOptions) args() []string {
	var args []string
	if o.Replace {
		args = append(args, "-r")
	}
	if o.Downgrade {
		args = append(args, "-d")
	}
	if o.GrantPermissions {
		args = append(args, "-g")
	}
	if o.AllowTestPackages {
		args = append(args, "-t")
	}
	if o.UserID != "" {
		args = append(args, "--user", o.UserID)
	}
	return args
}

// InstallResult is the outcome of one install operation on one device.
// A classified install failure is reported here with err == nil; the
// error return is reserved for cancellation and broken transport.
type InstallResult struct {
	Success      bool          `json:"success"`
	PackageID    string        `json:"package_id,omitempty"`
	DeviceID     string        `json:"device_id,omitempty"`
	Duration     time.Duration `json:"duration"`
	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Suggestions  []string      `json:"suggestions,omitempty"`
	Retryable    bool          `json:"retryable,omitempty"`
}

var userIDRe = regexp.MustCompile(`^(?:all|current|\d+)$`)

func validateUser(user string) error {
	if user == "" || userIDRe.MatchString(user) {
		return nil
	}
	return apperrors.NewValidationError("BAD_USER_ID",
		fmt.Sprintf("invalid user id: %s", user)).
		WithSuggestion("Use a numeric user id, 'current', or 'all'")
}

// Install installs a single artifact on a device. Container files
// (xapk/apkm/apks) are routed through InstallXAPK. onOutput, if set,
// receives each line of adb output as it arrives.
func (m *Manager) Install(ctx context.Context, deviceID, path string, opts InstallOptions, onOutput func(string)) (*InstallResult, error) {
	if apk.IsContainerPath(path) {
		return m.InstallXAPK(ctx, deviceID, path, nil, opts, onOutput)
	}
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}
	if err := validateUser(opts.UserID); err != nil {
		return nil, err
	}

	res := &InstallResult{DeviceID: deviceID}
	args := deviceArgs(deviceID, "install")
	args = append(args, opts.args()...)
	args = append(args, path)

	start := time.Now()
	out, err := m.runStream(ctx, m.installTimeout, onOutput, args...)
	res.Duration = time.Since(start)
	return finishInstall(ctx, res, out, err)
}

// InstallMultiple installs a base apk plus its config splits as one
// atomic session (adb install-multiple). The base apk is reordered to
// the front; pm rejects sessions that open with a split.
func (m *Manager) InstallMultiple(ctx context.Context, deviceID string, paths []string, opts InstallOptions, onOutput func(string)) (*InstallResult, error) {
	if len(paths) == 0 {
		return nil, apperrors.NewValidationError("NO_FILES", "no apk files to install")
	}
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}
	if err := validateUser(opts.UserID); err != nil {
		return nil, err
	}

	res := &InstallResult{DeviceID: deviceID}
	args := deviceArgs(deviceID, "install-multiple")
	args = append(args, opts.args()...)
	args = append(args, orderBaseFirst(paths)...)

	start := time.Now()
	out, err := m.runStream(ctx, m.installTimeout, onOutput, args...)
	res.Duration = time.Since(start)
	return finishInstall(ctx, res, out, err)
}

// InstallXAPK unpacks a container, installs the apks it holds, and
// pushes any expansion files. When profile is non-nil the split set is
// narrowed to the device's abi/density/locale; otherwise every split is
// sent and pm picks.
func (m *Manager) InstallXAPK(ctx context.Context, deviceID, path string, profile *apk.DeviceProfile, opts InstallOptions, onOutput func(string)) (*InstallResult, error) {
	res := &InstallResult{DeviceID: deviceID}

	ci, err := apk.ParseContainer(path)
	if err != nil {
		res.ErrorCode = "BAD_CONTAINER"
		res.ErrorMessage = err.Error()
		return res, nil
	}
	res.PackageID = ci.PackageID

	tempDir, err := os.MkdirTemp("", "bundle_install_*")
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeFileSystem,
			"TEMP_DIR", "cannot create extraction directory")
	}
	defer os.RemoveAll(tempDir)

	start := time.Now()
	apks, obbs, err := apk.ExtractContainer(path, tempDir)
	if err != nil {
		return nil, err
	}

	if profile != nil && len(apks) > 1 {
		selected, err := apk.SelectSplits(*profile, apks)
		switch {
		case errors.Is(err, apk.ErrNoMatchingABI):
			res.Duration = time.Since(start)
			res.ErrorCode = "NO_MATCHING_ABIS"
			res.ErrorMessage = "container has no native code for this device's cpu"
			res.Suggestions = []string{"Get a build that includes this device's abi"}
			return res, nil
		case errors.Is(err, apk.ErrNoBaseAPK):
			res.Duration = time.Since(start)
			res.ErrorCode = "NO_BASE_APK"
			res.ErrorMessage = "container has no base apk"
			return res, nil
		case err != nil:
			return nil, err
		}
		logging.Logger.Debug().
			Int("total", len(apks)).
			Int("selected", len(selected)).
			Str("device", deviceID).
			Msg("narrowed split set for device")
		apks = selected
	}

	var ires *InstallResult
	if len(apks) == 1 {
		ires, err = m.Install(ctx, deviceID, apks[0], opts, onOutput)
	} else {
		ires, err = m.InstallMultiple(ctx, deviceID, apks, opts, onOutput)
	}
	if err != nil {
		return nil, err
	}
	ires.PackageID = ci.PackageID
	ires.Duration = time.Since(start)
	if !ires.Success {
		return ires, nil
	}

	// Expansion files ride along after a successful install. A failed
	// push degrades the app but the install itself stands, so warn and
	// keep going unless we were canceled.
	if len(obbs) > 0 && ci.PackageID != "" {
		obbDir := "/sdcard/Android/obb/" + ci.PackageID
		if err := m.ensureRemoteDir(ctx, deviceID, obbDir); err != nil {
			if ctx.Err() != nil {
				return ires, ctx.Err()
			}
			logging.Logger.Warn().Err(err).Str("dir", obbDir).Msg("cannot create obb directory")
		} else {
			for _, obb := range obbs {
				remote := obbDir + "/" + filepath.Base(obb)
				if err := m.Push(ctx, deviceID, obb, remote, onOutput); err != nil {
					if ctx.Err() != nil {
						return ires, ctx.Err()
					}
					logging.Logger.Warn().Err(err).Str("obb", filepath.Base(obb)).Msg("obb push failed")
				}
			}
		}
		ires.Duration = time.Since(start)
	}
	return ires, nil
}

// finishInstall folds raw adb output and the subprocess error into the
// result. Cancellation propagates as an error; everything else becomes
// a classified result so callers can decide about retries.
func finishInstall(ctx context.Context, res *InstallResult, out string, err error) (*InstallResult, error) {
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if err != nil {
		var ierr *apperrors.InstallerError
		if errors.As(err, &ierr) && ierr.Type == apperrors.ErrorTypeTimeout {
			res.ErrorCode = "TIMEOUT"
			res.ErrorMessage = "install timed out"
			res.Suggestions = []string{"Increase install.timeout_mins in the config"}
			res.Retryable = true
			return res, nil
		}
		var eerr *exec.Error
		if errors.As(err, &eerr) {
			return res, apperrors.WrapError(err, apperrors.ErrorTypeConfiguration,
				"ADB_EXEC", "cannot execute adb").
				WithSuggestion("Check adb.path in the config")
		}
	}
	if successRe.MatchString(out) {
		res.Success = true
		return res, nil
	}
	fc := ClassifyInstallFailure(out)
	res.ErrorCode = fc.Code
	res.ErrorMessage = fc.Message
	res.Suggestions = fc.Suggestions
	res.Retryable = fc.Retryable
	return res, nil
}

// orderBaseFirst moves the base apk to the front of a split set.
func orderBaseFirst(paths []string) []string {
	ordered := make([]string, 0, len(paths))
	var rest []string
	placed := false
	for _, p := range paths {
		kind, _ := apk.ClassifySplit(filepath.Base(p))
		if !placed && kind == apk.SplitBase {
			ordered = append(ordered, p)
			placed = true
			continue
		}
		rest = append(rest, p)
	}
	return append(ordered, rest...)
}
