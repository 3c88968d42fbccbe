package adb

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
)

const (
	defaultCommandTimeout = 30 * time.Second
	defaultInstallTimeout = 10 * time.Minute
)

// Manager drives the adb binary. Every device operation is a subprocess
// invocation whose text output gets parsed; nothing talks the adb wire
// protocol directly.
type Manager struct {
	adbPath        string
	commandTimeout time.Duration // quick queries: devices, getprop, pm list
	installTimeout time.Duration // installs, pushes, logcat dumps
}

// NewManager resolves the adb binary and returns a client for it. Zero
// timeouts fall back to the defaults.
func NewManager(adbPath string, commandTimeout, installTimeout time.Duration) (*Manager, error) {
	resolved, err := ResolveBinary(adbPath)
	if err != nil {
		return nil, err
	}
	if commandTimeout <= 0 {
		commandTimeout = defaultCommandTimeout
	}
	if installTimeout <= 0 {
		installTimeout = defaultInstallTimeout
	}
	return &Manager{
		adbPath:        resolved,
		commandTimeout: commandTimeout,
		installTimeout: installTimeout,
	}, nil
}

// Path returns the resolved adb binary path.
func (m *Manager) Path() string {
	return m.adbPath
}

// ResolveBinary finds the adb executable: an explicit path wins, then
// PATH, then the usual SDK locations.
func ResolveBinary(configured string) (string, error) {
	if configured != "" {
		if p, err := exec.LookPath(configured); err == nil {
			return p, nil
		}
		return "", apperrors.NewNotFoundError("ADB_NOT_FOUND",
			"configured adb path does not point at an executable").
			WithContext("path", configured).
			WithSuggestion("Fix adb.path in the config file or remove it to use auto-detection")
	}
	if p, err := exec.LookPath(adbExecutable()); err == nil {
		return p, nil
	}
	for _, candidate := range defaultADBLocations() {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", apperrors.NewNotFoundError("ADB_NOT_FOUND", "adb binary not found").
		WithSuggestions([]string{
			"Install Android platform-tools",
			"Add adb to PATH or set ANDROID_HOME",
			"Point adb.path in the config file at the binary",
		})
}

func adbExecutable() string {
	if runtime.GOOS == "windows" {
		return "adb.exe"
	}
	return "adb"
}

// defaultADBLocations lists the platform-conventional SDK spots to probe
// when adb is not on PATH.
func defaultADBLocations() []string {
	exe := adbExecutable()
	var roots []string
	if env := os.Getenv("ANDROID_HOME"); env != "" {
		roots = append(roots, env)
	}
	if env := os.Getenv("ANDROID_SDK_ROOT"); env != "" {
		roots = append(roots, env)
	}
	if home, err := os.UserHomeDir(); err == nil {
		switch runtime.GOOS {
		case "windows":
			roots = append(roots, filepath.Join(home, "AppData", "Local", "Android", "Sdk"))
		case "darwin":
			roots = append(roots, filepath.Join(home, "Library", "Android", "sdk"))
		default:
			roots = append(roots, filepath.Join(home, "Android", "Sdk"))
		}
	}
	paths := make([]string, 0, len(roots))
	for _, root := range roots {
		paths = append(paths, filepath.Join(root, "platform-tools", exe))
	}
	return paths
}

// deviceArgs prefixes adb arguments with the -s serial selector when a
// device id is set.
func deviceArgs(deviceID string, rest ...string) []string {
	if deviceID == "" {
		return rest
	}
	return append([]string{"-s", deviceID}, rest...)
}

// run executes adb and returns its combined output. The timeout bounds
// this single invocation on top of whatever deadline ctx carries.
func (m *Manager) run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logging.Logger.Debug().Strs("args", args).Msg("adb exec")
	out, err := exec.CommandContext(ctx, m.adbPath, args...).CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return string(out), apperrors.NewTimeoutError("ADB_TIMEOUT", "adb command timed out").
				WithContext("args", strings.Join(args, " "))
		}
		return string(out), ctxErr
	}
	return string(out), err
}

// runStream executes adb while feeding each output line to onOutput as
// it arrives; the full combined output is still returned for the
// Success-line contract and failure classification.
func (m *Manager) runStream(ctx context.Context, timeout time.Duration, onOutput func(string), args ...string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logging.Logger.Debug().Strs("args", args).Msg("adb exec")

	lw := &lineWriter{fn: onOutput}
	cmd := exec.CommandContext(ctx, m.adbPath, args...)
	cmd.Stdout = lw
	cmd.Stderr = lw
	err := cmd.Run()
	lw.flush()

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return lw.String(), apperrors.NewTimeoutError("ADB_TIMEOUT", "adb command timed out").
				WithContext("args", strings.Join(args, " "))
		}
		return lw.String(), ctxErr
	}
	return lw.String(), err
}

// shell runs a command on the device through adb shell.
func (m *Manager) shell(ctx context.Context, deviceID string, shellArgs ...string) (string, error) {
	args := deviceArgs(deviceID, "shell")
	args = append(args, shellArgs...)
	return m.run(ctx, m.commandTimeout, args...)
}

// StartServer makes sure the adb daemon is running.
func (m *Manager) StartServer(ctx context.Context) error {
	if _, err := m.run(ctx, m.commandTimeout, "start-server"); err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeDevice, "ADB_SERVER",
			"failed to start the adb server")
	}
	return nil
}

// Version returns the first line of the adb version banner.
func (m *Manager) Version(ctx context.Context) (string, error) {
	out, err := m.run(ctx, m.commandTimeout, "version")
	if err != nil {
		return "", apperrors.WrapError(err, apperrors.ErrorTypeDevice, "ADB_VERSION",
			"failed to query adb version")
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(line), nil
}

// lineWriter tees subprocess output into a buffer while emitting whole
// lines to a callback. adb rewrites transfer progress with \r, so both
// \r and \n terminate a line.
type lineWriter struct {
	buf  bytes.Buffer
	line bytes.Buffer
	fn   func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.fn == nil {
		return len(p), nil
	}
	for _, b := range p {
		if b == '\n' || b == '\r' {
			w.emit()
			continue
		}
		w.line.WriteByte(b)
	}
	return len(p), nil
}

func (w *lineWriter) emit() {
	if w.fn == nil || w.line.Len() == 0 {
		return
	}
	w.fn(w.line.String())
	w.line.Reset()
}

func (w *lineWriter) flush() {
	w.emit()
}

func (w *lineWriter) String() string {
	return w.buf.String()
}
