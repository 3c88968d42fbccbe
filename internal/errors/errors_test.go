package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestInstallerError_Error(t *testing.T) {
	err := NewError(ErrorTypeInstall, "INSTALL_FAILED_INVALID_APK", "invalid APK file")
	if err.Error() != "invalid APK file" {
		t.Errorf("Error() = %q, want %q", err.Error(), "invalid APK file")
	}

	cause := errors.New("exit status 1")
	wrapped := WrapError(cause, ErrorTypeInstall, "INSTALL_FAILED", "installation failed")
	if !strings.Contains(wrapped.Error(), "exit status 1") {
		t.Errorf("wrapped Error() should contain the cause, got %q", wrapped.Error())
	}
}

func TestInstallerError_Unwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	wrapped := WrapError(cause, ErrorTypeDevice, "DEVICE_OFFLINE", "device went offline")

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	var ie *InstallerError
	outer := fmt.Errorf("install pass: %w", wrapped)
	if !errors.As(outer, &ie) {
		t.Fatal("errors.As should extract the InstallerError through wrapping")
	}
	if ie.Code != "DEVICE_OFFLINE" {
		t.Errorf("extracted code = %q, want DEVICE_OFFLINE", ie.Code)
	}
}

func TestInstallerError_Is(t *testing.T) {
	a := NewError(ErrorTypeDevice, "DEVICE_OFFLINE", "device went offline")
	b := NewError(ErrorTypeDevice, "DEVICE_OFFLINE", "another message")
	c := NewError(ErrorTypeDevice, "DEVICE_UNAUTHORIZED", "not authorized")

	if !errors.Is(a, b) {
		t.Error("errors with same type and code should match")
	}
	if errors.Is(a, c) {
		t.Error("errors with different codes should not match")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewTimeoutError("TIMEOUT", "command timed out")) {
		t.Error("timeout errors should be retryable")
	}
	if IsRetryable(NewValidationError("BAD_INPUT", "bad input")) {
		t.Error("validation errors should not be retryable")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Error("plain errors should not be retryable")
	}

	wrapped := fmt.Errorf("attempt 1: %w", NewTimeoutError("TIMEOUT", "command timed out"))
	if !IsRetryable(wrapped) {
		t.Error("retryability should survive fmt.Errorf wrapping")
	}
}

func TestAsInstallerError(t *testing.T) {
	if AsInstallerError(nil) != nil {
		t.Error("nil should stay nil")
	}

	plain := errors.New("boom")
	ie := AsInstallerError(plain)
	if ie == nil || ie.Type != ErrorTypeUnknown {
		t.Errorf("plain errors should wrap as UNKNOWN, got %+v", ie)
	}

	typed := NewDeviceError("DEVICE_OFFLINE", "offline")
	if got := AsInstallerError(typed); got != typed {
		t.Error("existing InstallerError should be returned unchanged")
	}
}

func TestFormatDetailed(t *testing.T) {
	err := NewInstallError("INSTALL_FAILED_INSUFFICIENT_STORAGE", "not enough space").
		WithContext("device", "emulator-5554").
		WithSuggestion("Free up storage on the device").
		SetRetryable(true)

	out := err.FormatDetailed()

	for _, want := range []string{
		"INSTALL Error",
		"INSTALL_FAILED_INSUFFICIENT_STORAGE",
		"emulator-5554",
		"Free up storage",
		"can be retried",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatDetailed() missing %q in:\n%s", want, out)
		}
	}
}

func TestErrorReporter_SaveReport(t *testing.T) {
	tempDir := t.TempDir()
	reporter := NewErrorReporter(tempDir, "test")

	report := reporter.GenerateReport(
		NewDeviceError("DEVICE_OFFLINE", "device went offline"),
		&OperationContext{Command: "install", Arguments: []string{"app.apk"}},
	)

	path, err := reporter.SaveReport(report)
	if err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if !strings.HasPrefix(path, tempDir) {
		t.Errorf("report path %q should be under %q", path, tempDir)
	}
	if !strings.Contains(path, "DEVICE_OFFLINE") {
		t.Errorf("report filename should carry the error code, got %q", path)
	}
	if len(report.Suggestions) == 0 {
		t.Error("device errors should produce recovery suggestions")
	}
	if report.Environment == nil || report.Environment.OS == "" {
		t.Error("report should capture the runtime environment")
	}
}
