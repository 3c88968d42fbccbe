package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/i18n"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apkdir"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/fetch"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/installer"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/utils"
)

var (
	installDevices    []string
	installAllDevices bool
	installReplace    bool
	installDowngrade  bool
	installGrant      bool
	installAllowTest  bool
	installUser       string
	installParallel   int
	installRetries    int
	installRetryDelay time.Duration
	installPace       float64
	installFix        string
	installStopOnErr  bool
	installDryRun     bool
	installReportPath string
	installSHA256     string
)

var installCmd = &cobra.Command{
	Use:   "install <path|directory|url>...",
	Short: "Install APKs onto one or more devices",
	Long: `Install APK files, split APK sets, XAPK/APKM/APKS containers, directories,
or http(s) URLs onto the selected devices. Split sets are matched per device
by ABI, screen density, and locale before installation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := newADBManager()
		if err != nil {
			return err
		}

		opts, err := installOptions(cmd)
		if err != nil {
			return err
		}

		units, err := collectUnits(ctx, args)
		if err != nil {
			return err
		}
		if len(units) == 0 {
			return apperrors.NewValidationError("NO_UNITS", "nothing installable in the given arguments")
		}

		devices, err := resolveTargetDevices(ctx, mgr, installDevices, installAllDevices, true)
		if err != nil {
			return err
		}

		plan := installer.BuildPlan(devices, units)
		printPlan(plan)
		if installDryRun {
			return nil
		}
		if plan.Pending() == 0 {
			fmt.Println("💡 Nothing to do: every unit was skipped")
			return nil
		}

		fmt.Printf("🚀 %s\n\n", i18n.T("install.devicesSelected", map[string]interface{}{"Count": len(devices)}))

		report := installer.New(mgr, opts).Run(ctx, plan, newEventRenderer(len(devices) > 1))
		printRunSummary(report)

		if installReportPath != "" {
			if err := report.Save(installReportPath); err != nil {
				return err
			}
			fmt.Printf("💾 Run report saved: %s\n", installReportPath)
		}

		if !report.Succeeded() {
			return fmt.Errorf("%d unit(s) failed, %d canceled",
				report.Totals.Failed, report.Totals.Canceled)
		}
		return nil
	},
}

// installOptions folds config defaults under any flags the user set.
func installOptions(cmd *cobra.Command) (installer.Options, error) {
	flags := cmd.Flags()
	if !flags.Changed("replace") {
		installReplace = cfg.Install.Replace
	}
	if !flags.Changed("downgrade") {
		installDowngrade = cfg.Install.Downgrade
	}
	if !flags.Changed("grant") {
		installGrant = cfg.Install.Grant
	}
	if !flags.Changed("parallel") {
		installParallel = cfg.Install.Parallel
	}
	if !flags.Changed("retries") {
		installRetries = cfg.Install.Retries
	}
	if !flags.Changed("retry-delay") {
		installRetryDelay = time.Duration(cfg.Install.RetryDelay) * time.Second
	}
	if !flags.Changed("pace") {
		installPace = cfg.Install.Pace
	}

	fix, ok := installer.ParseFixStrategy(installFix)
	if !ok {
		return installer.Options{}, apperrors.NewValidationError("BAD_FIX",
			fmt.Sprintf("unknown fix strategy %q (use off or reinstall)", installFix))
	}

	opts := installer.Options{
		Concurrency: installParallel,
		Retries:     installRetries,
		RetryDelay:  installRetryDelay,
		PaceRate:    installPace,
		Fix:         fix,
		StopOnError: installStopOnErr,
	}
	opts.Install.Replace = installReplace
	opts.Install.Downgrade = installDowngrade
	opts.Install.GrantPermissions = installGrant
	opts.Install.AllowTestPackages = installAllowTest
	opts.Install.UserID = installUser
	return opts, nil
}

// collectUnits turns command arguments into install units: URLs are
// fetched, directories scanned and grouped, single files wrapped.
func collectUnits(ctx context.Context, args []string) ([]installer.Unit, error) {
	if installSHA256 != "" {
		urls := 0
		for _, a := range args {
			if fetch.IsURL(a) {
				urls++
			}
		}
		if urls != 1 {
			return nil, apperrors.NewValidationError("BAD_CHECKSUM",
				"--sha256 requires exactly one URL argument")
		}
	}

	var units []installer.Unit
	for _, arg := range args {
		if fetch.IsURL(arg) {
			path, err := fetchArtifact(ctx, arg)
			if err != nil {
				return nil, err
			}
			unit, err := fileUnit(path)
			if err != nil {
				return nil, err
			}
			units = append(units, unit)
			continue
		}

		st, err := os.Stat(arg)
		if err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrorTypeNotFound,
				"PATH_NOT_FOUND", fmt.Sprintf("cannot read %s", arg))
		}
		if st.IsDir() {
			dirUnits, err := scanUnits(arg)
			if err != nil {
				return nil, err
			}
			units = append(units, dirUnits...)
			continue
		}

		unit, err := fileUnit(arg)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}

// fetchArtifact downloads a URL argument with a byte progress bar.
func fetchArtifact(ctx context.Context, rawURL string) (string, error) {
	fetcher := fetch.NewFetcher(filepath.Join(cfg.Cache.Dir, "downloads"))
	fmt.Printf("📥 Downloading %s\n", rawURL)

	var bar *utils.ProgressBar
	path, err := fetcher.Fetch(ctx, rawURL, fetch.Options{
		SHA256: installSHA256,
		OnProgress: func(complete, total int64, percent int) {
			if bar == nil && total > 0 {
				bar = utils.NewProgressBar(total, "   ").AsBytes()
			}
			if bar != nil {
				bar.Update(complete)
			}
		},
	})
	if err != nil {
		return "", err
	}
	if bar != nil {
		bar.Finish()
	}
	return path, nil
}

// fileUnit wraps one artifact file as an install unit.
func fileUnit(path string) (installer.Unit, error) {
	switch {
	case apk.IsContainerPath(path):
		ci, err := apk.ParseContainer(path)
		if err != nil {
			return installer.Unit{}, err
		}
		return installer.NewContainerUnit(path, ci), nil

	case strings.EqualFold(filepath.Ext(path), ".apk"):
		info, err := apk.DefaultChain().ParseAPK(path)
		if err != nil {
			logging.Logger.Warn().Err(err).Str("path", path).
				Msg("could not parse apk; installing without metadata")
			info = nil
		}
		return installer.NewAPKUnit(path, info), nil
	}
	return installer.Unit{}, apperrors.NewValidationError("BAD_ARTIFACT",
		fmt.Sprintf("%s is not an installable artifact (.apk, .xapk, .apkm, .apks)", path))
}

// scanUnits scans a directory argument into grouped install units.
func scanUnits(dir string) ([]installer.Unit, error) {
	cache := apkdir.NewCache(cfg.Cache.Dir, time.Duration(cfg.Cache.TTL)*time.Second, cfg.Cache.MaxSize)
	scanner := apkdir.NewScanner(apkdir.Options{
		Recursive:      cfg.Scan.Recursive,
		FollowSymlinks: cfg.Scan.FollowSymlinks,
		Include:        cfg.Scan.IncludePattern,
		Exclude:        cfg.Scan.ExcludePattern,
		Parse:          true,
	}, cache)

	result, err := scanner.Scan(dir)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		logging.Logger.Warn().Str("dir", dir).Msg(msg)
	}

	var units []installer.Unit
	for _, g := range result.Groups() {
		switch g.Kind {
		case apkdir.GroupContainer:
			units = append(units, installer.NewContainerUnit(g.Paths[0], g.Container))
		case apkdir.GroupSplits:
			units = append(units, installer.NewSplitGroupUnit(g.Paths, g.Info))
		default:
			units = append(units, installer.NewAPKUnit(g.Paths[0], g.Info))
		}
	}
	if len(units) == 0 {
		fmt.Printf("⚠️  No installable artifacts found in %s\n", dir)
	}
	return units, nil
}

// printPlan shows what will run where before anything touches a device.
func printPlan(plan *installer.Plan) {
	fmt.Println("📋 Install plan")
	fmt.Println("===============")
	for _, dp := range plan.Devices {
		fmt.Printf("\n📱 %s\n", dp.Device.DisplayName())
		for _, pu := range dp.Units {
			switch pu.Status {
			case installer.StatusSkipped:
				fmt.Printf("   ⏭️  %s (%s): %s\n", pu.Unit.Name, pu.Unit.Kind, pu.SkipReason)
			default:
				files := len(pu.Files)
				if pu.Unit.Kind == installer.KindContainer {
					fmt.Printf("   📦 %s (%s): resolved on device\n", pu.Unit.Name, pu.Unit.Kind)
					continue
				}
				fmt.Printf("   📦 %s (%s): %d file(s)\n", pu.Unit.Name, pu.Unit.Kind, files)
			}
		}
	}
	fmt.Printf("\n📊 %d pending install(s) across %d device(s)\n\n", plan.Pending(), len(plan.Devices))
}

// newEventRenderer prints run events. Single-device runs get an inline
// percent line; parallel runs stick to state transitions so interleaved
// output stays readable.
func newEventRenderer(multi bool) func(installer.Event) {
	inlineProgress := false
	clearProgress := func() {
		if inlineProgress {
			fmt.Print("\r\033[K")
			inlineProgress = false
		}
	}

	return func(e installer.Event) {
		if e.Status == installer.StatusRunning && e.Percent >= 0 {
			// Progress tick.
			if multi {
				return
			}
			fmt.Printf("\r   ⏳ %s %3d%%", e.Unit, e.Percent)
			inlineProgress = true
			return
		}

		clearProgress()
		switch e.Status {
		case installer.StatusRunning:
			fmt.Printf("⏳ [%s] installing %s\n", e.DeviceID, e.Unit)
		case installer.StatusRetrying:
			msg := e.Message
			if msg == "" {
				msg = fmt.Sprintf("attempt %d", e.Attempt)
			}
			fmt.Printf("🔄 [%s] %s: %s\n", e.DeviceID, e.Unit, msg)
		case installer.StatusInstalled:
			fmt.Printf("✅ [%s] %s installed\n", e.DeviceID, e.Unit)
		case installer.StatusFailed:
			fmt.Printf("❌ [%s] %s failed: %s\n", e.DeviceID, e.Unit, e.Message)
		case installer.StatusSkipped:
			fmt.Printf("⏭️  [%s] %s skipped: %s\n", e.DeviceID, e.Unit, e.Message)
		case installer.StatusCanceled:
			fmt.Printf("🚫 [%s] %s canceled\n", e.DeviceID, e.Unit)
		}
	}
}

// printRunSummary prints per-device results and run totals.
func printRunSummary(report *installer.RunReport) {
	fmt.Println()
	for _, dr := range report.Devices {
		installed, failed := 0, 0
		for _, ur := range dr.Units {
			switch ur.Status {
			case installer.StatusInstalled:
				installed++
			case installer.StatusFailed:
				failed++
			}
		}
		icon := "✅"
		if failed > 0 {
			icon = "❌"
		}
		name := dr.DeviceName
		if name == "" {
			name = dr.DeviceID
		}
		fmt.Printf("%s %s: %d installed, %d failed\n", icon, name, installed, failed)
	}

	fmt.Printf("\n📊 %s in %v\n",
		i18n.T("install.runDone", map[string]interface{}{
			"Installed": report.Totals.Installed,
			"Failed":    report.Totals.Failed,
			"Skipped":   report.Totals.Skipped,
		}),
		report.Duration().Round(time.Millisecond))
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().StringArrayVarP(&installDevices, "device", "s", nil, "Target device ID (repeatable)")
	installCmd.Flags().BoolVar(&installAllDevices, "all-devices", false, "Install on every online device")
	installCmd.Flags().BoolVarP(&installReplace, "replace", "r", true, "Replace existing application")
	installCmd.Flags().BoolVarP(&installDowngrade, "downgrade", "d", false, "Allow version downgrade")
	installCmd.Flags().BoolVarP(&installGrant, "grant", "g", true, "Grant all runtime permissions")
	installCmd.Flags().BoolVarP(&installAllowTest, "allow-test", "t", false, "Allow test packages")
	installCmd.Flags().StringVar(&installUser, "user", "", "Install for a specific user ID (or 'all', 'current')")
	installCmd.Flags().IntVar(&installParallel, "parallel", 2, "Devices installed in parallel")
	installCmd.Flags().IntVar(&installRetries, "retries", 2, "Extra attempts for retryable failures")
	installCmd.Flags().DurationVar(&installRetryDelay, "retry-delay", 2*time.Second, "Pause before each retry")
	installCmd.Flags().Float64Var(&installPace, "pace", 0, "Max install attempts per second across devices (0 = unlimited)")
	installCmd.Flags().StringVar(&installFix, "fix", "off", "Conflict recovery: off or reinstall (uninstall + fresh install)")
	installCmd.Flags().BoolVar(&installStopOnErr, "stop-on-error", false, "Stop a device's queue after the first failure")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Show the install plan without touching devices")
	installCmd.Flags().StringVar(&installReportPath, "report", "", "Write a run report (.json or .yaml)")
	installCmd.Flags().StringVar(&installSHA256, "sha256", "", "Expected sha256 of a single URL download")
}
