package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/utils"
)

var (
	infoFormat string
	infoIcon   string
	infoHashes bool
)

var infoCmd = &cobra.Command{
	Use:   "info <apk|container>",
	Short: "Show metadata for an APK or container file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		if apk.IsContainerPath(path) {
			return showContainerInfo(path)
		}
		if !strings.EqualFold(filepath.Ext(path), ".apk") {
			return apperrors.NewValidationError("BAD_ARTIFACT",
				fmt.Sprintf("%s is not an APK or container file", path))
		}

		info, err := apk.DefaultChain().ParseAPK(path)
		if err != nil {
			return err
		}
		if infoHashes {
			if err := info.ComputeHashes(); err != nil {
				return apperrors.WrapError(err, apperrors.ErrorTypeFileSystem,
					"HASH_FAILED", "cannot hash file").WithContext("path", path)
			}
		}

		if infoIcon != "" {
			if err := apk.SaveIcon(path, infoIcon); err != nil {
				fmt.Printf("⚠️  Icon extraction failed: %v\n", err)
			} else {
				fmt.Printf("🖼️  Icon saved: %s\n", infoIcon)
			}
		}

		if infoFormat == "json" {
			return printJSON(info)
		}
		showAPKInfo(info)
		return nil
	},
}

func showAPKInfo(info *apk.Info) {
	fmt.Printf("📦 %s\n", info.DisplayLabel())
	fmt.Println("==================================================")
	fmt.Printf("Package:     %s\n", info.PackageID)
	fmt.Printf("Version:     %s (%d)\n", info.VersionName, info.VersionCode)
	if info.MinSDK > 0 || info.TargetSDK > 0 {
		fmt.Printf("SDK:         min %d, target %d\n", info.MinSDK, info.TargetSDK)
	}
	fmt.Printf("File:        %s (%s)\n", info.FilePath, utils.FormatBytes(info.Size))
	if info.ParsedBy != "" {
		fmt.Printf("Parser:      %s\n", info.ParsedBy)
	}

	if kind, config := apk.ClassifySplit(filepath.Base(info.FilePath)); kind != apk.SplitBase {
		fmt.Printf("Split:       %s (%s)\n", kind, config)
	}
	if len(info.ABIs) > 0 {
		fmt.Printf("ABIs:        %s\n", strings.Join(info.ABIs, ", "))
	}
	if len(info.Densities) > 0 {
		fmt.Printf("Densities:   %s\n", strings.Join(info.Densities, ", "))
	}
	if len(info.Permissions) > 0 {
		fmt.Printf("Permissions: %d\n", len(info.Permissions))
		for _, p := range info.Permissions {
			fmt.Printf("  - %s\n", p)
		}
	}
	if info.SHA256 != "" {
		fmt.Println("\nHashes:")
		fmt.Printf("  md5:    %s\n", info.MD5)
		fmt.Printf("  sha1:   %s\n", info.SHA1)
		fmt.Printf("  sha256: %s\n", info.SHA256)
	}
}

func showContainerInfo(path string) error {
	ci, err := apk.ParseContainer(path)
	if err != nil {
		return err
	}

	if infoFormat == "json" {
		return printJSON(ci)
	}

	name := ci.Label
	if name == "" {
		name = ci.PackageID
	}
	if name == "" {
		name = filepath.Base(path)
	}
	fmt.Printf("📦 %s\n", name)
	fmt.Println("==================================================")
	if ci.PackageID != "" {
		fmt.Printf("Package:     %s\n", ci.PackageID)
	}
	if ci.VersionName != "" || ci.VersionCode > 0 {
		fmt.Printf("Version:     %s (%d)\n", ci.VersionName, ci.VersionCode)
	}
	if ci.MinSDK > 0 || ci.TargetSDK > 0 {
		fmt.Printf("SDK:         min %d, target %d\n", ci.MinSDK, ci.TargetSDK)
	}
	fmt.Printf("File:        %s (%s)\n", ci.FilePath, utils.FormatBytes(ci.TotalSize))

	fmt.Printf("\nAPK entries (%d):\n", len(ci.APKEntries))
	for _, entry := range ci.APKEntries {
		kind, config := apk.ClassifySplit(filepath.Base(entry))
		switch kind {
		case apk.SplitBase:
			fmt.Printf("  📄 %s\n", entry)
		default:
			fmt.Printf("  📄 %s (%s: %s)\n", entry, kind, config)
		}
	}
	if len(ci.OBBEntries) > 0 {
		fmt.Printf("\nOBB entries (%d):\n", len(ci.OBBEntries))
		for _, entry := range ci.OBBEntries {
			fmt.Printf("  💿 %s\n", entry)
		}
	}
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeParsing,
			"JSON_ENCODE", "cannot encode metadata")
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVar(&infoFormat, "format", "", "Output format (json)")
	infoCmd.Flags().StringVar(&infoIcon, "icon", "", "Extract the app icon to a PNG file")
	infoCmd.Flags().BoolVar(&infoHashes, "hashes", false, "Compute md5/sha1/sha256")
}
