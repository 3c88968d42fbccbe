package installer

import (
	"path/filepath"
	"time"

	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
)

// UnitKind says what shape of artifact a unit is.
type UnitKind string

const (
	KindAPK        UnitKind = "apk"
	KindSplitGroup UnitKind = "split-group"
	KindContainer  UnitKind = "container"
)

// UnitStatus tracks a unit through the install pipeline.
type UnitStatus string

const (
	StatusPending   UnitStatus = "pending"
	StatusRunning   UnitStatus = "running"
	StatusRetrying  UnitStatus = "retrying"
	StatusInstalled UnitStatus = "installed"
	StatusFailed    UnitStatus = "failed"
	StatusSkipped   UnitStatus = "skipped"
	StatusCanceled  UnitStatus = "canceled"
)

// Unit is one installable thing: a standalone apk, a base apk with its
// sibling config splits, or a container file.
type Unit struct {
	Name      string    `json:"name" yaml:"name"`
	PackageID string    `json:"package_id,omitempty" yaml:"package_id,omitempty"`
	Kind      UnitKind  `json:"kind" yaml:"kind"`
	Paths     []string  `json:"paths" yaml:"paths"`
	Info      *apk.Info `json:"info,omitempty" yaml:"info,omitempty"`
}

// NewAPKUnit wraps a single apk file. info may be nil when parsing was
// skipped or failed.
func NewAPKUnit(path string, info *apk.Info) Unit {
	u := Unit{Name: filepath.Base(path), Kind: KindAPK, Paths: []string{path}, Info: info}
	if info != nil && info.PackageID != "" {
		u.Name = info.PackageID
		u.PackageID = info.PackageID
	}
	return u
}

// NewSplitGroupUnit wraps a base apk plus its sibling split apks as one
// atomic install. info describes the base apk.
func NewSplitGroupUnit(paths []string, info *apk.Info) Unit {
	u := Unit{Kind: KindSplitGroup, Paths: paths, Info: info}
	if info != nil && info.PackageID != "" {
		u.Name = info.PackageID
		u.PackageID = info.PackageID
	} else if len(paths) > 0 {
		u.Name = filepath.Base(filepath.Dir(paths[0]))
	}
	return u
}

// NewContainerUnit wraps an xapk/apkm/apks file. ci may be nil.
func NewContainerUnit(path string, ci *apk.ContainerInfo) Unit {
	u := Unit{Name: filepath.Base(path), Kind: KindContainer, Paths: []string{path}}
	if ci != nil && ci.PackageID != "" {
		u.Name = ci.PackageID
		u.PackageID = ci.PackageID
		u.Info = ci.Base
	}
	return u
}

// Event is one progress notification. Events for different devices can
// arrive in any order; DeviceID says which queue this one belongs to.
type Event struct {
	DeviceID string
	Unit     string
	Status   UnitStatus
	Attempt  int
	Percent  int // -1 when the underlying output carries no percentage
	Message  string
}

// FixStrategy selects the recovery applied to signature and downgrade
// conflicts.
type FixStrategy string

const (
	// FixOff reports the conflict and moves on.
	FixOff FixStrategy = "off"
	// FixReinstall uninstalls the conflicting build and installs fresh.
	// App data on the device is lost.
	FixReinstall FixStrategy = "reinstall"
)

// ParseFixStrategy validates a --fix flag value.
func ParseFixStrategy(s string) (FixStrategy, bool) {
	switch FixStrategy(s) {
	case FixOff, FixReinstall:
		return FixStrategy(s), true
	case "":
		return FixOff, true
	}
	return FixOff, false
}

// Options tune a run.
type Options struct {
	// Concurrency is how many devices install in parallel. Zero means
	// one worker per device.
	Concurrency int
	// Retries is how many extra attempts a retryable failure gets.
	Retries int
	// RetryDelay is the pause before each retry.
	RetryDelay time.Duration
	// PaceRate caps install attempts per second across all devices.
	// Zero disables pacing.
	PaceRate float64
	// Fix selects automatic conflict recovery.
	Fix FixStrategy
	// Install is passed through to every install invocation.
	Install adb.InstallOptions
	// StopOnError stops a device's remaining queue after the first
	// failed unit. Other devices keep going.
	StopOnError bool
}
