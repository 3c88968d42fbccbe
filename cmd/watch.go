package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/installer"
)

var (
	watchDevices    []string
	watchAllDevices bool
	watchDebounce   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a folder and install dropped APKs automatically",
	Long: `Watch a directory for new APK, XAPK, APKM, or APKS files and install
each one onto the selected devices as soon as writes settle. Drop split
sets as a container file; a lone split APK cannot install by itself.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		st, err := os.Stat(dir)
		if err != nil {
			return apperrors.WrapError(err, apperrors.ErrorTypeNotFound,
				"PATH_NOT_FOUND", fmt.Sprintf("cannot read %s", dir))
		}
		if !st.IsDir() {
			return apperrors.NewValidationError("NOT_A_DIRECTORY",
				fmt.Sprintf("%s is not a directory", dir))
		}

		mgr, err := newADBManager()
		if err != nil {
			return err
		}
		devices, err := resolveTargetDevices(ctx, mgr, watchDevices, watchAllDevices, true)
		if err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return apperrors.WrapError(err, apperrors.ErrorTypeFileSystem,
				"WATCH_INIT", "cannot create filesystem watcher")
		}
		defer watcher.Close()
		if err := watcher.Add(dir); err != nil {
			return apperrors.WrapError(err, apperrors.ErrorTypeFileSystem,
				"WATCH_ADD", fmt.Sprintf("cannot watch %s", dir))
		}

		fmt.Printf("👀 Watching %s, installing onto %d device(s)\n", dir, len(devices))
		fmt.Printf("   Debounce %v. Press Ctrl+C to stop.\n\n", watchDebounce)

		var (
			mu      sync.Mutex
			pending = map[string]*time.Timer{}
			ready   = make(chan string)
		)
		schedule := func(path string) {
			mu.Lock()
			defer mu.Unlock()
			if t, ok := pending[path]; ok {
				t.Stop()
			}
			pending[path] = time.AfterFunc(watchDebounce, func() {
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})
		}

		for {
			select {
			case <-ctx.Done():
				fmt.Println("\n👋 Stopped watching")
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if !apk.IsArtifactPath(event.Name) {
					continue
				}
				schedule(event.Name)

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logging.Logger.Warn().Err(err).Msg("watcher error")

			case path := <-ready:
				installDropped(ctx, mgr, devices, path)
			}
		}
	},
}

// installDropped installs one settled file onto the watch targets.
func installDropped(ctx context.Context, mgr *adb.Manager, devices []adb.Device, path string) {
	if _, err := os.Stat(path); err != nil {
		return // removed again before the debounce fired
	}
	if kind, _ := apk.ClassifySplit(path); kind != apk.SplitBase && !apk.IsContainerPath(path) {
		fmt.Printf("⏭️  %s: lone split APK; drop the full set as a container\n", path)
		return
	}

	fmt.Printf("📥 %s\n", path)
	unit, err := fileUnit(path)
	if err != nil {
		fmt.Printf("⚠️  %s: %v\n", path, err)
		return
	}

	opts := installer.Options{
		Concurrency: cfg.Install.Parallel,
		Retries:     cfg.Install.Retries,
		RetryDelay:  time.Duration(cfg.Install.RetryDelay) * time.Second,
		PaceRate:    cfg.Install.Pace,
	}
	opts.Install.Replace = cfg.Install.Replace
	opts.Install.Downgrade = cfg.Install.Downgrade
	opts.Install.GrantPermissions = cfg.Install.Grant

	plan := installer.BuildPlan(devices, []installer.Unit{unit})
	report := installer.New(mgr, opts).Run(ctx, plan, newEventRenderer(len(devices) > 1))
	if !report.Succeeded() {
		fmt.Printf("❌ %s: %d device(s) failed\n\n", unit.Name, report.Totals.Failed)
		return
	}
	fmt.Printf("✅ %s installed on %d device(s)\n\n", unit.Name, report.Totals.Installed)
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringArrayVarP(&watchDevices, "device", "s", nil, "Target device ID (repeatable)")
	watchCmd.Flags().BoolVar(&watchAllDevices, "all-devices", false, "Install on every online device")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "Quiet period before a dropped file installs")
}
