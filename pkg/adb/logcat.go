package adb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
)

// LogcatOptions control a one-shot logcat capture.
type LogcatOptions struct {
	// Package narrows the capture to one app's pid. The app has to be
	// running for the pid lookup to succeed.
	Package string
	// Level is the minimum priority (V, D, I, W, E, F, S). Empty means V.
	Level string
	// OutputPath is the destination file. Empty picks a timestamped name
	// in the working directory.
	OutputPath string
	// Clear flushes the device log buffer after a successful capture.
	Clear bool
}

var logcatLevels = map[string]bool{
	"V": true, "D": true, "I": true, "W": true, "E": true, "F": true, "S": true,
}

// CaptureLogcat dumps the device log buffer to a local file and returns
// the path written.
func (m *Manager) CaptureLogcat(ctx context.Context, deviceID string, opts LogcatOptions) (string, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return "", err
	}
	level := strings.ToUpper(opts.Level)
	if level == "" {
		level = "V"
	}
	if !logcatLevels[level] {
		return "", apperrors.NewValidationError("BAD_LOG_LEVEL",
			fmt.Sprintf("invalid logcat level: %s", opts.Level)).
			WithSuggestion("Use one of V, D, I, W, E, F, S")
	}

	args := deviceArgs(deviceID, "logcat", "-d")
	if opts.Package != "" {
		if err := validatePackage(opts.Package); err != nil {
			return "", err
		}
		pidOut, err := m.shell(ctx, deviceID, "pidof", "-s", opts.Package)
		if err != nil {
			return "", apperrors.WrapError(err, apperrors.ErrorTypeDevice,
				"PID_LOOKUP", "cannot look up package pid").
				WithContext("package", opts.Package)
		}
		pid := strings.TrimSpace(pidOut)
		if pid == "" {
			return "", apperrors.NewError(apperrors.ErrorTypeDevice, "APP_NOT_RUNNING",
				fmt.Sprintf("%s is not running", opts.Package)).
				WithSuggestion("Start the app, then capture again")
		}
		args = append(args, "--pid", pid)
	}
	args = append(args, "*:"+level)

	out, err := m.run(ctx, m.installTimeout, args...)
	if err != nil {
		return "", apperrors.WrapError(err, apperrors.ErrorTypeDevice,
			"LOGCAT_CAPTURE", "cannot capture device log").
			WithContext("device", deviceID)
	}

	path := opts.OutputPath
	if path == "" {
		device := strings.ReplaceAll(deviceID, ":", "-")
		if device == "" {
			device = "default"
		}
		path = fmt.Sprintf("logcat_%s_%s.txt", device, time.Now().Format("20060102_150405"))
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return "", apperrors.WrapError(err, apperrors.ErrorTypeFileSystem,
			"LOGCAT_WRITE", "cannot write capture file").
			WithContext("path", path)
	}

	if opts.Clear {
		if _, err := m.run(ctx, m.commandTimeout, deviceArgs(deviceID, "logcat", "-c")...); err != nil {
			logging.Logger.Warn().Err(err).Msg("cannot clear device log buffer")
		}
	}
	return path, nil
}
