package installer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
)

// DeviceClient is the slice of the adb client a run needs. *adb.Manager
// satisfies it.
type DeviceClient interface {
	Install(ctx context.Context, deviceID, path string, opts adb.InstallOptions, onOutput func(string)) (*adb.InstallResult, error)
	InstallMultiple(ctx context.Context, deviceID string, paths []string, opts adb.InstallOptions, onOutput func(string)) (*adb.InstallResult, error)
	InstallXAPK(ctx context.Context, deviceID, path string, profile *apk.DeviceProfile, opts adb.InstallOptions, onOutput func(string)) (*adb.InstallResult, error)
	Uninstall(ctx context.Context, deviceID, pkg string, keepData bool, user string) error
}

// Installer drives a plan across devices.
type Installer struct {
	client  DeviceClient
	opts    Options
	limiter *rate.Limiter

	eventMu sync.Mutex
	onEvent func(Event)
}

// New builds an Installer. opts.PaceRate > 0 installs a token bucket
// shared by every device worker.
func New(client DeviceClient, opts Options) *Installer {
	ins := &Installer{client: client, opts: opts}
	if opts.PaceRate > 0 {
		ins.limiter = rate.NewLimiter(rate.Limit(opts.PaceRate), 1)
	}
	return ins
}

// Run executes the plan and always returns a complete report: every
// unit of every device appears exactly once, even after cancellation.
// onEvent is called serially; it never runs concurrently with itself.
func (ins *Installer) Run(ctx context.Context, plan *Plan, onEvent func(Event)) *RunReport {
	timer := logging.StartTimer("installer", "run")
	ins.onEvent = onEvent
	report := newRunReport()

	byID := make(map[string]*DevicePlan, len(plan.Devices))
	ids := make([]string, 0, len(plan.Devices))
	for i := range plan.Devices {
		dp := &plan.Devices[i]
		byID[dp.Device.ID] = dp
		ids = append(ids, dp.Device.ID)
	}

	results := fanOut(ctx, ins.opts.Concurrency, ids, func(ctx context.Context, deviceID string) DeviceReport {
		return ins.runDevice(ctx, byID[deviceID])
	})

	done := make(map[string]DeviceReport, len(results))
	for _, res := range results {
		done[res.DeviceID] = res.Value
	}
	// Devices the pool never reached (canceled before dispatch) still
	// owe the report their units, all marked canceled.
	for _, dp := range plan.Devices {
		dr, ok := done[dp.Device.ID]
		if !ok {
			dr = DeviceReport{DeviceID: dp.Device.ID, DeviceName: dp.Device.DisplayName()}
			for _, pu := range dp.Units {
				dr.Units = append(dr.Units, unitResult(pu, StatusCanceled, 0, 0, "", "run canceled"))
			}
		}
		report.Devices = append(report.Devices, dr)
	}

	report.finish()
	timer.End()
	return report
}

// runDevice walks one device's queue in order. Within a device nothing
// overlaps: one unit, one attempt at a time.
func (ins *Installer) runDevice(ctx context.Context, dp *DevicePlan) DeviceReport {
	dr := DeviceReport{
		DeviceID:   dp.Device.ID,
		DeviceName: dp.Device.DisplayName(),
		Units:      make([]UnitResult, 0, len(dp.Units)),
	}
	profile := dp.Device.Profile()
	stopped := false

	for _, pu := range dp.Units {
		switch {
		case pu.Status == StatusSkipped:
			ins.emit(Event{DeviceID: dp.Device.ID, Unit: pu.Unit.Name, Status: StatusSkipped, Percent: -1, Message: pu.SkipReason})
			dr.Units = append(dr.Units, unitResult(pu, StatusSkipped, 0, 0, "", pu.SkipReason))
		case stopped:
			dr.Units = append(dr.Units, unitResult(pu, StatusSkipped, 0, 0, "", "queue stopped after failure"))
		case ctx.Err() != nil:
			dr.Units = append(dr.Units, unitResult(pu, StatusCanceled, 0, 0, "", "run canceled"))
		default:
			ur := ins.runUnit(ctx, dp.Device.ID, profile, &pu)
			dr.Units = append(dr.Units, ur)
			if ur.Status == StatusFailed && ins.opts.StopOnError {
				stopped = true
			}
		}
	}
	return dr
}

// runUnit performs the attempt loop for one unit. Attempts never exceed
// 1 + Retries, whatever mix of retries and conflict fixes happens.
func (ins *Installer) runUnit(ctx context.Context, deviceID string, profile apk.DeviceProfile, pu *PlannedUnit) UnitResult {
	maxAttempts := 1 + ins.opts.Retries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	start := time.Now()
	ur := UnitResult{Unit: pu.Unit.Name, PackageID: pu.Unit.PackageID, Status: StatusFailed}
	fixTried := false

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ins.pace(ctx); err != nil {
			ur.Status = StatusCanceled
			ur.Message = "run canceled"
			break
		}
		ur.Attempts = attempt

		status := StatusRunning
		if attempt > 1 {
			status = StatusRetrying
		}
		ins.emit(Event{DeviceID: deviceID, Unit: pu.Unit.Name, Status: status, Attempt: attempt, Percent: -1})

		res, err := ins.installUnit(ctx, deviceID, profile, pu)
		if err != nil {
			if ctx.Err() != nil {
				ur.Status = StatusCanceled
				ur.Message = "run canceled"
				break
			}
			ur.Status = StatusFailed
			ur.Message = err.Error()
			break
		}
		if res.Success {
			ur.Status = StatusInstalled
			ur.Message = ""
			ur.ErrorCode = ""
			if res.PackageID != "" {
				ur.PackageID = res.PackageID
			}
			break
		}

		ur.Status = StatusFailed
		ur.ErrorCode = res.ErrorCode
		ur.Message = res.ErrorMessage
		if res.PackageID != "" && ur.PackageID == "" {
			ur.PackageID = res.PackageID
		}

		if ins.opts.Fix == FixReinstall && !fixTried && ur.PackageID != "" &&
			adb.FixableWithReinstall(res.ErrorCode) && attempt < maxAttempts {
			fixTried = true
			ins.emit(Event{
				DeviceID: deviceID, Unit: pu.Unit.Name, Status: StatusRetrying,
				Attempt: attempt, Percent: -1,
				Message: fmt.Sprintf("uninstalling conflicting build (%s)", res.ErrorCode),
			})
			if uerr := ins.client.Uninstall(ctx, deviceID, ur.PackageID, false, ins.opts.Install.UserID); uerr != nil {
				if ctx.Err() != nil {
					ur.Status = StatusCanceled
					ur.Message = "run canceled"
					break
				}
				logging.Logger.Warn().Err(uerr).Str("package", ur.PackageID).Msg("conflict uninstall failed")
				ur.Message = fmt.Sprintf("%s; conflict uninstall failed: %v", res.ErrorMessage, uerr)
				break
			}
			continue
		}

		if !res.Retryable || attempt == maxAttempts {
			break
		}
		if err := ins.wait(ctx, ins.opts.RetryDelay); err != nil {
			ur.Status = StatusCanceled
			ur.Message = "run canceled"
			break
		}
	}

	ur.DurationSecs = time.Since(start).Seconds()
	final := Event{
		DeviceID: deviceID, Unit: pu.Unit.Name, Status: ur.Status,
		Attempt: ur.Attempts, Percent: -1, Message: ur.Message,
	}
	if ur.Status == StatusInstalled {
		final.Percent = 100
	}
	ins.emit(final)
	return ur
}

// installUnit dispatches to the right adb operation for the unit shape.
func (ins *Installer) installUnit(ctx context.Context, deviceID string, profile apk.DeviceProfile, pu *PlannedUnit) (*adb.InstallResult, error) {
	onOutput := ins.progressFunc(deviceID, pu.Unit.Name)
	if pu.Unit.Kind == KindContainer {
		return ins.client.InstallXAPK(ctx, deviceID, pu.Unit.Paths[0], &profile, ins.opts.Install, onOutput)
	}
	if len(pu.Files) == 1 {
		return ins.client.Install(ctx, deviceID, pu.Files[0], ins.opts.Install, onOutput)
	}
	return ins.client.InstallMultiple(ctx, deviceID, pu.Files, ins.opts.Install, onOutput)
}

// progressFunc turns raw adb output lines into percent events.
func (ins *Installer) progressFunc(deviceID, unit string) func(string) {
	if ins.onEvent == nil {
		return nil
	}
	return func(line string) {
		if pct := adb.ProgressPercent(line); pct >= 0 {
			ins.emit(Event{DeviceID: deviceID, Unit: unit, Status: StatusRunning, Percent: pct, Message: line})
		}
	}
}

func (ins *Installer) pace(ctx context.Context) error {
	if ins.limiter == nil {
		return ctx.Err()
	}
	return ins.limiter.Wait(ctx)
}

func (ins *Installer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (ins *Installer) emit(ev Event) {
	if ins.onEvent == nil {
		return
	}
	ins.eventMu.Lock()
	defer ins.eventMu.Unlock()
	ins.onEvent(ev)
}

func unitResult(pu PlannedUnit, status UnitStatus, attempts int, dur time.Duration, code, msg string) UnitResult {
	return UnitResult{
		Unit:         pu.Unit.Name,
		PackageID:    pu.Unit.PackageID,
		Status:       status,
		Attempts:     attempts,
		DurationSecs: dur.Seconds(),
		ErrorCode:    code,
		Message:      msg,
	}
}
