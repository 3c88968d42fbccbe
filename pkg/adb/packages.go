package adb

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
)

// PackageFilter selects which installed packages to list.
type PackageFilter int

const (
	PackagesAll PackageFilter = iota
	PackagesThirdParty
	PackagesSystem
	PackagesDisabled
)

func (f PackageFilter) flag() string {
	switch f {
	case PackagesThirdParty:
		return "-3"
	case PackagesSystem:
		return "-s"
	case PackagesDisabled:
		return "-d"
	default:
		return ""
	}
}

// Package ids reach the device shell unquoted, so reject anything that
// is not a plain dotted identifier before it gets near `adb shell`.
var packageIDRe = regexp.MustCompile(`^[A-Za-z0-9._]+$`)

func validatePackage(pkg string) error {
	if packageIDRe.MatchString(pkg) {
		return nil
	}
	return apperrors.NewValidationError("BAD_PACKAGE_ID",
		fmt.Sprintf("invalid package id: %q", pkg))
}

// ListPackages returns installed package ids, sorted.
func (m *Manager) ListPackages(ctx context.Context, deviceID string, filter PackageFilter) ([]string, error) {
	args := []string{"pm", "list", "packages"}
	if f := filter.flag(); f != "" {
		args = append(args, f)
	}
	out, err := m.shell(ctx, deviceID, args...)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeDevice,
			"PACKAGE_LIST", "cannot list packages").
			WithContext("device", deviceID)
	}
	pkgs := parsePrefixedLines(out, "package:")
	sort.Strings(pkgs)
	return pkgs, nil
}

// Uninstall removes a package. Some Android builds reject `pm uninstall`
// for certain callers but accept the same operation through
// `cmd package uninstall`, so that runs as a fallback.
func (m *Manager) Uninstall(ctx context.Context, deviceID, pkg string, keepData bool, user string) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}
	if err := validateUser(user); err != nil {
		return err
	}

	args := []string{"pm", "uninstall"}
	if keepData {
		args = append(args, "-k")
	}
	if user != "" {
		args = append(args, "--user", user)
	}
	args = append(args, pkg)

	out, err := m.shell(ctx, deviceID, args...)
	if err == nil && successRe.MatchString(out) {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	logging.Logger.Debug().Str("package", pkg).Msg("pm uninstall failed, trying cmd package")
	fout, ferr := m.shell(ctx, deviceID, append([]string{"cmd", "package", "uninstall"}, args[2:]...)...)
	if ferr == nil && successRe.MatchString(fout) {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	fc := ClassifyUninstallFailure(out + "\n" + fout)
	return apperrors.NewError(apperrors.ErrorTypeInstall, fc.Code, fc.Message).
		WithContext("package", pkg).
		WithContext("device", deviceID).
		WithSuggestions(fc.Suggestions).
		SetRetryable(fc.Retryable)
}

// PackagePath returns the on-device apk paths for a package, base apk
// first as pm reports it.
func (m *Manager) PackagePath(ctx context.Context, deviceID, pkg string) ([]string, error) {
	if err := validatePackage(pkg); err != nil {
		return nil, err
	}
	out, err := m.shell(ctx, deviceID, "pm", "path", pkg)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeDevice,
			"PACKAGE_PATH", "cannot query package path").
			WithContext("package", pkg)
	}
	paths := parsePrefixedLines(out, "package:")
	if len(paths) == 0 {
		return nil, apperrors.NewNotFoundError("PACKAGE_NOT_FOUND",
			fmt.Sprintf("package %s is not installed", pkg)).
			WithContext("device", deviceID)
	}
	return paths, nil
}

var (
	versionNameRe = regexp.MustCompile(`versionName=(\S+)`)
	versionCodeRe = regexp.MustCompile(`versionCode=(\d+)`)
)

// PackageVersion returns the installed versionName and versionCode, or
// ("", 0, nil) when dumpsys knows the package but reports no version.
func (m *Manager) PackageVersion(ctx context.Context, deviceID, pkg string) (string, int64, error) {
	if err := validatePackage(pkg); err != nil {
		return "", 0, err
	}
	out, err := m.shell(ctx, deviceID, "dumpsys", "package", pkg)
	if err != nil {
		return "", 0, apperrors.WrapError(err, apperrors.ErrorTypeDevice,
			"PACKAGE_VERSION", "cannot query package version").
			WithContext("package", pkg)
	}
	name, code := parseDumpsysVersion(out)
	if name == "" && code == 0 && !strings.Contains(out, pkg) {
		return "", 0, apperrors.NewNotFoundError("PACKAGE_NOT_FOUND",
			fmt.Sprintf("package %s is not installed", pkg))
	}
	return name, code, nil
}

func parseDumpsysVersion(out string) (string, int64) {
	var name string
	var code int64
	if m := versionNameRe.FindStringSubmatch(out); m != nil {
		name = m[1]
	}
	if m := versionCodeRe.FindStringSubmatch(out); m != nil {
		code, _ = strconv.ParseInt(m[1], 10, 64)
	}
	return name, code
}

// Clear wipes a package's data and cache.
func (m *Manager) Clear(ctx context.Context, deviceID, pkg string) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}
	out, err := m.shell(ctx, deviceID, "pm", "clear", pkg)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeDevice,
			"PACKAGE_CLEAR", "cannot clear package data").
			WithContext("package", pkg)
	}
	if !successRe.MatchString(out) {
		return apperrors.NewError(apperrors.ErrorTypeDevice, "PACKAGE_CLEAR",
			"clear failed: "+lastNonEmptyLine(out)).
			WithContext("package", pkg)
	}
	return nil
}

// ForceStop kills all of a package's processes.
func (m *Manager) ForceStop(ctx context.Context, deviceID, pkg string) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}
	if _, err := m.shell(ctx, deviceID, "am", "force-stop", pkg); err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeDevice,
			"FORCE_STOP", "cannot stop package").
			WithContext("package", pkg)
	}
	return nil
}

// parsePrefixedLines collects the remainder of every line that starts
// with prefix, preserving order.
func parsePrefixedLines(out, prefix string) []string {
	var values []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, prefix); ok && rest != "" {
			values = append(values, rest)
		}
	}
	return values
}
