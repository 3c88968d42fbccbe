package installer

import (
	"errors"
	"fmt"

	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
)

// PlannedUnit is a unit resolved against one device: the exact files to
// send, or a skip reason when the unit cannot run there.
type PlannedUnit struct {
	Unit Unit `json:"unit" yaml:"unit"`
	// Files is the install set after split matching. Containers keep
	// this empty; their split selection happens against the device at
	// install time.
	Files      []string   `json:"files,omitempty" yaml:"files,omitempty"`
	Status     UnitStatus `json:"status" yaml:"status"`
	SkipReason string     `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
}

// DevicePlan is one device's install queue, in execution order.
type DevicePlan struct {
	Device adb.Device    `json:"device" yaml:"device"`
	Units  []PlannedUnit `json:"units" yaml:"units"`
}

// Plan maps every unit onto every target device.
type Plan struct {
	Devices []DevicePlan `json:"devices" yaml:"devices"`
}

// Pending counts units that will actually run.
func (p *Plan) Pending() int {
	n := 0
	for _, dp := range p.Devices {
		for _, pu := range dp.Units {
			if pu.Status == StatusPending {
				n++
			}
		}
	}
	return n
}

// BuildPlan resolves units against devices. Matching is pure: the same
// units and the same device profiles always produce the same plan.
// Units a device cannot take are planned as Skipped, never dropped.
func BuildPlan(devices []adb.Device, units []Unit) *Plan {
	plan := &Plan{Devices: make([]DevicePlan, 0, len(devices))}
	for _, d := range devices {
		dp := DevicePlan{Device: d, Units: make([]PlannedUnit, 0, len(units))}
		profile := d.Profile()
		for _, u := range units {
			dp.Units = append(dp.Units, planUnit(profile, u))
		}
		plan.Devices = append(plan.Devices, dp)
	}
	return plan
}

func planUnit(profile apk.DeviceProfile, u Unit) PlannedUnit {
	pu := PlannedUnit{Unit: u, Status: StatusPending}

	if u.Info != nil && u.Info.MinSDK > 0 && profile.SDK > 0 && u.Info.MinSDK > profile.SDK {
		pu.Status = StatusSkipped
		pu.SkipReason = fmt.Sprintf("requires API %d, device has %d", u.Info.MinSDK, profile.SDK)
		return pu
	}

	switch u.Kind {
	case KindSplitGroup:
		files, err := apk.SelectSplits(profile, u.Paths)
		switch {
		case errors.Is(err, apk.ErrNoMatchingABI):
			pu.Status = StatusSkipped
			pu.SkipReason = "no split matches this device's cpu"
		case errors.Is(err, apk.ErrNoBaseAPK):
			pu.Status = StatusSkipped
			pu.SkipReason = "split group has no base apk"
		case err != nil:
			pu.Status = StatusSkipped
			pu.SkipReason = err.Error()
		default:
			pu.Files = files
		}
	case KindContainer:
		// Resolved on extraction, against this same profile.
	default:
		if u.Info != nil && !abiCompatible(u.Info.ABIs, profile.ABIs) {
			pu.Status = StatusSkipped
			pu.SkipReason = "apk has no native code for this device's cpu"
			return pu
		}
		pu.Files = u.Paths
	}
	return pu
}

// abiCompatible reports whether an apk with the given native libraries
// can run on a device with the given abilist. No native code, or an
// unknown device abilist, is always compatible.
func abiCompatible(apkABIs, deviceABIs []string) bool {
	if len(apkABIs) == 0 || len(deviceABIs) == 0 {
		return true
	}
	for _, d := range deviceABIs {
		for _, a := range apkABIs {
			if a == d {
				return true
			}
		}
	}
	return false
}
