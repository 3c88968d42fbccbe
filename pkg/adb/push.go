package adb

import (
	"context"
	"regexp"
	"strconv"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
)

// adb push prints transfer progress as "[ 42%] /sdcard/...".
var pushProgressRe = regexp.MustCompile(`\[\s*(\d{1,3})%\]`)

// ProgressPercent extracts the percentage from an adb transfer progress
// line, or -1 when the line carries none.
func ProgressPercent(line string) int {
	m := pushProgressRe.FindStringSubmatch(line)
	if m == nil {
		return -1
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil || pct > 100 {
		return -1
	}
	return pct
}

// Push copies a local file to the device. onOutput receives transfer
// progress lines as they arrive.
func (m *Manager) Push(ctx context.Context, deviceID, local, remote string, onOutput func(string)) error {
	if err := ValidateDeviceID(deviceID); err != nil {
		return err
	}
	args := deviceArgs(deviceID, "push", local, remote)
	out, err := m.runStream(ctx, m.installTimeout, onOutput, args...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeDevice,
			"PUSH_FAILED", "cannot push file to device").
			WithContext("local", local).
			WithContext("remote", remote).
			WithContext("output", lastNonEmptyLine(out))
	}
	return nil
}

func (m *Manager) ensureRemoteDir(ctx context.Context, deviceID, dir string) error {
	out, err := m.shell(ctx, deviceID, "mkdir", "-p", dir)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeDevice,
			"MKDIR_FAILED", "cannot create remote directory").
			WithContext("dir", dir).
			WithContext("output", lastNonEmptyLine(out))
	}
	return nil
}
