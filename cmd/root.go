package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ndn8144/AdbInstallerApp-sub001/internal/config"
	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/i18n"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/version"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
)

var (
	flagConfig      string
	flagVerbose     bool
	flagLang        string
	flagADBPath     string
	flagErrorReport bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "adbinstaller",
	Short: "Batch APK installer for Android devices over adb",
	Long: `adbinstaller drives the adb command-line tool to install APK, XAPK, and
split APK sets onto one or more connected Android devices, with per-device
split matching, retries, pacing, and progress reporting.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagADBPath != "" {
			cfg.ADB.Path = flagADBPath
		}

		level := cfg.Log.Level
		if flagVerbose {
			level = "debug"
		}
		if err := logging.Init(logging.Options{
			Level:      level,
			Console:    cfg.Log.Console,
			Dir:        cfg.Log.Dir,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		}); err != nil {
			return err
		}

		lang := cfg.Language
		if flagLang != "" {
			lang = flagLang
		}
		if err := i18n.Init(lang); err != nil {
			return err
		}
		applyCommandLocalization()
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logging.Close()
	if err == nil {
		return
	}

	if ierr := apperrors.AsInstallerError(err); ierr != nil {
		if flagVerbose {
			fmt.Fprintf(os.Stderr, "❌ %s\n", ierr.FormatDetailed())
		} else {
			fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
			for _, s := range ierr.Suggestions {
				fmt.Fprintf(os.Stderr, "💡 %s\n", s)
			}
		}
		if flagErrorReport {
			saveErrorReport(ierr)
		}
	} else {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
	}
	os.Exit(1)
}

// saveErrorReport writes a post-mortem JSON report next to the logs.
func saveErrorReport(ierr *apperrors.InstallerError) {
	reporter := apperrors.NewErrorReporter(filepath.Join(config.BaseDir(), "reports"), version.Short())
	report := reporter.GenerateReport(ierr, &apperrors.OperationContext{
		Command:   strings.Join(os.Args, " "),
		Arguments: os.Args[1:],
	})
	if path, err := reporter.SaveReport(report); err == nil {
		fmt.Fprintf(os.Stderr, "📝 Error report saved: %s\n", path)
	}
}

// newADBManager resolves the adb binary from config and builds a manager.
func newADBManager() (*adb.Manager, error) {
	path, err := adb.ResolveBinary(cfg.ADB.Path)
	if err != nil {
		return nil, err
	}
	return adb.NewManager(path, cfg.CommandTimeout(), cfg.InstallTimeout())
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default ~/.adbinstaller/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().StringVar(&flagLang, "lang", "", "UI language (en, zh)")
	rootCmd.PersistentFlags().StringVar(&flagADBPath, "adb-path", "", "Path to the adb binary (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagErrorReport, "error-report", false, "Write a JSON error report when a command fails")
}
