// Package system holds environment diagnostics: locating the tools the
// installer shells out to and sizing up the machine it runs on.
package system

import (
	"context"
	"fmt"
	"os"

	"github.com/ndn8144/AdbInstallerApp-sub001/internal/config"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/utils"
)

// CheckStatus is the outcome of one diagnostic.
type CheckStatus string

const (
	CheckOK   CheckStatus = "ok"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// Check is one diagnostic result.
type Check struct {
	Name        string      `json:"name"`
	Status      CheckStatus `json:"status"`
	Detail      string      `json:"detail,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// Healthy reports whether no check failed outright.
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if c.Status == CheckFail {
			return false
		}
	}
	return true
}

// Doctor runs environment diagnostics against a loaded configuration.
type Doctor struct {
	cfg *config.Config
}

// NewDoctor builds a doctor for cfg.
func NewDoctor(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// minTempSpace is how much free temp space split extraction wants.
const minTempSpace = 500 * 1024 * 1024

// Run executes every diagnostic and returns them in display order.
func (d *Doctor) Run(ctx context.Context) []Check {
	adbCheck, mgr := d.checkADB(ctx)
	checks := []Check{
		adbCheck,
		d.checkDevices(ctx, mgr),
		d.checkAAPT(),
		d.checkDirectories(),
		d.checkTempSpace(),
		d.checkSDKEnv(),
	}
	return checks
}

func (d *Doctor) checkADB(ctx context.Context) (Check, *adb.Manager) {
	c := Check{Name: "adb binary"}

	path, err := adb.ResolveBinary(d.cfg.ADB.Path)
	if err != nil {
		c.Status = CheckFail
		c.Detail = err.Error()
		c.Suggestions = []string{
			"Install Android platform-tools",
			"Set adb.path in the config file or ADBINSTALLER_ADB_PATH",
			"Set ANDROID_HOME to your SDK root",
		}
		return c, nil
	}

	mgr, err := adb.NewManager(path, d.cfg.CommandTimeout(), d.cfg.InstallTimeout())
	if err != nil {
		c.Status = CheckFail
		c.Detail = err.Error()
		return c, nil
	}

	version, err := mgr.Version(ctx)
	if err != nil {
		c.Status = CheckWarn
		c.Detail = fmt.Sprintf("%s found but not responding: %v", path, err)
		c.Suggestions = []string{"Run 'adb kill-server' and try again"}
		return c, mgr
	}

	c.Status = CheckOK
	c.Detail = fmt.Sprintf("%s (%s)", version, path)
	return c, mgr
}

func (d *Doctor) checkDevices(ctx context.Context, mgr *adb.Manager) Check {
	c := Check{Name: "devices"}
	if mgr == nil {
		c.Status = CheckWarn
		c.Detail = "skipped: adb is not available"
		return c
	}

	if err := mgr.StartServer(ctx); err != nil {
		c.Status = CheckWarn
		c.Detail = fmt.Sprintf("adb daemon not starting: %v", err)
		c.Suggestions = []string{"Run 'adb kill-server' and start it again"}
		return c
	}

	devices, err := mgr.Devices(ctx)
	if err != nil {
		c.Status = CheckWarn
		c.Detail = err.Error()
		return c
	}

	online := 0
	for _, dev := range devices {
		if dev.Online() {
			online++
		}
	}
	switch {
	case online > 0:
		c.Status = CheckOK
		c.Detail = fmt.Sprintf("%d of %d connected device(s) ready", online, len(devices))
	case len(devices) > 0:
		c.Status = CheckWarn
		c.Detail = fmt.Sprintf("%d device(s) connected, none ready", len(devices))
		c.Suggestions = []string{"Accept the USB debugging prompt on the device"}
	default:
		c.Status = CheckWarn
		c.Detail = "no devices connected"
		c.Suggestions = []string{
			"Connect a device with USB debugging enabled",
			"For network devices, run 'adb connect <ip>:<port>' first",
		}
	}
	return c
}

func (d *Doctor) checkAAPT() Check {
	c := Check{Name: "aapt"}
	if path := apk.FindAAPT(); path != "" {
		c.Status = CheckOK
		c.Detail = path
		return c
	}
	c.Status = CheckWarn
	c.Detail = "not found; the built-in parser handles most APKs"
	c.Suggestions = []string{"Install Android build-tools for the aapt fallback parser"}
	return c
}

func (d *Doctor) checkDirectories() Check {
	c := Check{Name: "data directories"}
	if err := d.cfg.EnsureDirectories(); err != nil {
		c.Status = CheckFail
		c.Detail = err.Error()
		return c
	}

	probe, err := os.CreateTemp(d.cfg.Cache.Dir, ".doctor-*")
	if err != nil {
		c.Status = CheckFail
		c.Detail = fmt.Sprintf("cache dir is not writable: %v", err)
		return c
	}
	probe.Close()
	os.Remove(probe.Name())

	c.Status = CheckOK
	c.Detail = config.BaseDir()
	return c
}

func (d *Doctor) checkTempSpace() Check {
	c := Check{Name: "temp space"}
	usage, err := CheckDiskSpace(os.TempDir())
	if err != nil {
		c.Status = CheckWarn
		c.Detail = err.Error()
		return c
	}

	c.Detail = fmt.Sprintf("%s free of %s at %s",
		utils.FormatBytes(int64(usage.Available)), utils.FormatBytes(int64(usage.Total)), os.TempDir())
	if usage.Available < minTempSpace {
		c.Status = CheckWarn
		c.Suggestions = []string{"Free temp space; bundle installs extract splits there"}
		return c
	}
	c.Status = CheckOK
	return c
}

func (d *Doctor) checkSDKEnv() Check {
	c := Check{Name: "sdk environment"}
	for _, key := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if v := os.Getenv(key); v != "" {
			c.Status = CheckOK
			c.Detail = fmt.Sprintf("%s=%s", key, v)
			return c
		}
	}
	c.Status = CheckWarn
	c.Detail = "ANDROID_HOME is not set"
	c.Suggestions = []string{"Set ANDROID_HOME so adb and build-tools resolve without explicit paths"}
	return c
}
