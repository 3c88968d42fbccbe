package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
)

var (
	packagesDevice     string
	packagesThirdParty bool
	packagesSystem     bool
	packagesDisabled   bool
	packagesAll        bool
	packagesSearch     string
	packagesFormat     string
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List packages installed on a device",
	Long: `List installed packages on a connected device. Third-party packages
are shown by default; use --system, --disabled, or --all to widen the view.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, dev, err := singleDevice(ctx)
		if err != nil {
			return err
		}

		filter, label := packagesFilter()
		pkgs, err := mgr.ListPackages(ctx, dev.ID, filter)
		if err != nil {
			return err
		}
		if packagesSearch != "" {
			pkgs = filterPackages(pkgs, packagesSearch)
		}

		if packagesFormat == "json" {
			return printPackagesJSON(dev.ID, label, pkgs)
		}

		fmt.Printf("📱 %s: %s packages\n", dev.DisplayName(), label)
		fmt.Println(strings.Repeat("=", 40))
		if len(pkgs) == 0 {
			fmt.Println("No packages matched")
			return nil
		}
		for _, pkg := range pkgs {
			fmt.Printf("  %s\n", pkg)
		}
		fmt.Printf("\n📊 %d package(s)\n", len(pkgs))
		return nil
	},
}

var packagesInfoCmd = &cobra.Command{
	Use:   "info <package>",
	Short: "Show the installed version and on-device paths of a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pkg := args[0]

		mgr, dev, err := singleDevice(ctx)
		if err != nil {
			return err
		}

		name, code, err := mgr.PackageVersion(ctx, dev.ID, pkg)
		if err != nil {
			return err
		}
		paths, err := mgr.PackagePath(ctx, dev.ID, pkg)
		if err != nil {
			return err
		}

		fmt.Printf("📦 %s on %s\n", pkg, dev.DisplayName())
		fmt.Printf("Version: %s (%d)\n", name, code)
		fmt.Println("Paths:")
		for _, p := range paths {
			fmt.Printf("  %s\n", p)
		}
		return nil
	},
}

var packagesClearYes bool

var packagesClearCmd = &cobra.Command{
	Use:   "clear <package>",
	Short: "Wipe a package's data and cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pkg := args[0]

		mgr, dev, err := singleDevice(ctx)
		if err != nil {
			return err
		}

		if !packagesClearYes {
			fmt.Printf("⚠️  This wipes all local data of %s on %s. Continue? [y/N]: ", pkg, dev.DisplayName())
			reader := bufio.NewReader(os.Stdin)
			input, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			switch strings.ToLower(strings.TrimSpace(input)) {
			case "y", "yes":
			default:
				fmt.Println("🚫 Aborted")
				return nil
			}
		}

		if err := mgr.Clear(ctx, dev.ID, pkg); err != nil {
			return err
		}
		fmt.Printf("✅ %s data cleared\n", pkg)
		return nil
	},
}

var packagesStopCmd = &cobra.Command{
	Use:   "stop <package>",
	Short: "Force-stop a package's processes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pkg := args[0]

		mgr, dev, err := singleDevice(ctx)
		if err != nil {
			return err
		}
		if err := mgr.ForceStop(ctx, dev.ID, pkg); err != nil {
			return err
		}
		fmt.Printf("✅ %s stopped\n", pkg)
		return nil
	},
}

// singleDevice resolves the -s flag (or the lone/prompted device) for
// the package subcommands.
func singleDevice(ctx context.Context) (*adb.Manager, adb.Device, error) {
	mgr, err := newADBManager()
	if err != nil {
		return nil, adb.Device{}, err
	}
	var explicit []string
	if packagesDevice != "" {
		explicit = []string{packagesDevice}
	}
	devices, err := resolveTargetDevices(ctx, mgr, explicit, false, true)
	if err != nil {
		return nil, adb.Device{}, err
	}
	return mgr, devices[0], nil
}

func packagesFilter() (adb.PackageFilter, string) {
	switch {
	case packagesAll:
		return adb.PackagesAll, "all"
	case packagesThirdParty:
		return adb.PackagesThirdParty, "third-party"
	case packagesSystem:
		return adb.PackagesSystem, "system"
	case packagesDisabled:
		return adb.PackagesDisabled, "disabled"
	default:
		return adb.PackagesThirdParty, "third-party"
	}
}

func filterPackages(pkgs []string, term string) []string {
	term = strings.ToLower(term)
	var matched []string
	for _, pkg := range pkgs {
		if strings.Contains(strings.ToLower(pkg), term) {
			matched = append(matched, pkg)
		}
	}
	return matched
}

func printPackagesJSON(deviceID, filter string, pkgs []string) error {
	payload := struct {
		Device   string   `json:"device"`
		Filter   string   `json:"filter"`
		Count    int      `json:"count"`
		Packages []string `json:"packages"`
	}{deviceID, filter, len(pkgs), pkgs}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeParsing,
			"JSON_ENCODE", "cannot encode package list")
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	rootCmd.AddCommand(packagesCmd)
	packagesCmd.AddCommand(packagesInfoCmd)
	packagesCmd.AddCommand(packagesClearCmd)
	packagesCmd.AddCommand(packagesStopCmd)

	packagesCmd.PersistentFlags().StringVarP(&packagesDevice, "device", "s", "", "Target device ID")
	packagesCmd.Flags().BoolVar(&packagesThirdParty, "third-party", false, "List third-party packages (the default)")
	packagesCmd.Flags().BoolVar(&packagesSystem, "system", false, "List system packages")
	packagesCmd.Flags().BoolVar(&packagesDisabled, "disabled", false, "List disabled packages")
	packagesCmd.Flags().BoolVar(&packagesAll, "all", false, "List every package")
	packagesCmd.Flags().StringVar(&packagesSearch, "search", "", "Filter by substring")
	packagesCmd.Flags().StringVar(&packagesFormat, "format", "", "Output format (json)")

	packagesClearCmd.Flags().BoolVarP(&packagesClearYes, "yes", "y", false, "Skip the confirmation prompt")
}
