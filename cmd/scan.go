package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apkdir"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/utils"
)

var (
	scanRecursive bool
	scanParse     bool
	scanExport    string
	scanFormat    string
)

var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Inventory APK artifacts in a local directory",
	Long: `Walk a directory for APK files, split APK sets, and XAPK/APKM/APKS
containers. Split siblings are grouped with their base APK the same way
the installer would send them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		flags := cmd.Flags()
		if !flags.Changed("recursive") {
			scanRecursive = cfg.Scan.Recursive
		}
		if !flags.Changed("parse") {
			scanParse = cfg.Scan.ParseAPKInfo
		}

		cache := apkdir.NewCache(cfg.Cache.Dir, time.Duration(cfg.Cache.TTL)*time.Second, cfg.Cache.MaxSize)
		scanner := apkdir.NewScanner(apkdir.Options{
			Recursive:      scanRecursive,
			FollowSymlinks: cfg.Scan.FollowSymlinks,
			Include:        cfg.Scan.IncludePattern,
			Exclude:        cfg.Scan.ExcludePattern,
			Parse:          scanParse,
			OnProgress: func(done int, path string) {
				fmt.Printf("\r🔎 %d artifact(s): %s", done, filepath.Base(path))
			},
		}, cache)

		result, err := scanner.Scan(dir)
		if err != nil {
			return err
		}
		fmt.Print("\r\033[K")

		if scanExport != "" {
			if err := result.Export(scanExport); err != nil {
				return err
			}
			fmt.Printf("💾 Inventory exported: %s\n", scanExport)
		}

		if scanFormat == "json" {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return apperrors.WrapError(err, apperrors.ErrorTypeParsing,
					"JSON_ENCODE", "cannot encode scan result")
			}
			fmt.Println(string(data))
			return nil
		}

		printScanResult(result)
		return nil
	},
}

func printScanResult(result *apkdir.Result) {
	groups := result.Groups()

	fmt.Printf("📂 %s\n", result.Root)
	fmt.Println("==================================================")
	if len(groups) == 0 {
		fmt.Println("No APK artifacts found")
		fmt.Println("💡 Supported: .apk, .xapk, .apkm, .apks")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tFILES\tVERSION\tSIZE")
	for _, g := range groups {
		name := filepath.Base(g.Paths[0])
		version := "-"
		if g.Info != nil {
			if g.Info.PackageID != "" {
				name = g.Info.PackageID
			}
			if g.Info.VersionName != "" {
				version = g.Info.VersionName
			}
		}
		var size int64
		for _, p := range g.Paths {
			if st, err := os.Stat(p); err == nil {
				size += st.Size()
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", name, g.Kind, len(g.Paths), version, utils.FormatBytes(size))
	}
	w.Flush()

	fmt.Printf("\n📊 %d artifact(s) in %d group(s)", len(result.Artifacts), len(groups))
	if result.Parsed > 0 || result.CacheHits > 0 {
		fmt.Printf(" (%d parsed, %d from cache)", result.Parsed, result.CacheHits)
	}
	fmt.Println()

	if len(result.Errors) > 0 {
		fmt.Printf("\n⚠️  %d problem(s):\n", len(result.Errors))
		for _, msg := range result.Errors {
			fmt.Printf("   %s\n", msg)
		}
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVarP(&scanRecursive, "recursive", "r", true, "Descend into subdirectories")
	scanCmd.Flags().BoolVar(&scanParse, "parse", true, "Extract package metadata from each artifact")
	scanCmd.Flags().StringVar(&scanExport, "export", "", "Write the inventory to a file (.yaml or .json)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "", "Output format (json)")
}
