package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
)

var (
	uninstallDevices    []string
	uninstallAllDevices bool
	uninstallKeepData   bool
	uninstallUser       string
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package>...",
	Short: "Uninstall packages from one or more devices",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := newADBManager()
		if err != nil {
			return err
		}
		devices, err := resolveTargetDevices(ctx, mgr, uninstallDevices, uninstallAllDevices, true)
		if err != nil {
			return err
		}

		failed := 0
		for _, dev := range devices {
			fmt.Printf("📱 %s\n", dev.DisplayName())
			for _, pkg := range args {
				if err := mgr.Uninstall(ctx, dev.ID, pkg, uninstallKeepData, uninstallUser); err != nil {
					failed++
					fmt.Printf("   ❌ %s: %v\n", pkg, err)
					if ierr := apperrors.AsInstallerError(err); ierr != nil {
						for _, s := range ierr.Suggestions {
							fmt.Printf("      💡 %s\n", s)
						}
					}
					continue
				}
				fmt.Printf("   ✅ %s removed\n", pkg)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d uninstall(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)

	uninstallCmd.Flags().StringArrayVarP(&uninstallDevices, "device", "s", nil, "Target device ID (repeatable)")
	uninstallCmd.Flags().BoolVar(&uninstallAllDevices, "all-devices", false, "Uninstall from every online device")
	uninstallCmd.Flags().BoolVarP(&uninstallKeepData, "keep-data", "k", false, "Keep app data and cache directories")
	uninstallCmd.Flags().StringVar(&uninstallUser, "user", "", "Uninstall for a specific user ID")
}
