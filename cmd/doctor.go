package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/system"
)

var doctorFormat string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment for install problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		checks := system.NewDoctor(cfg).Run(cmd.Context())

		if doctorFormat == "json" {
			data, err := json.MarshalIndent(checks, "", "  ")
			if err != nil {
				return apperrors.WrapError(err, apperrors.ErrorTypeParsing,
					"JSON_ENCODE", "cannot encode check results")
			}
			fmt.Println(string(data))
			if !system.Healthy(checks) {
				return fmt.Errorf("environment checks failed")
			}
			return nil
		}

		fmt.Println("🩺 Environment check")
		fmt.Println("====================")
		for _, c := range checks {
			icon := "✅"
			switch c.Status {
			case system.CheckWarn:
				icon = "⚠️ "
			case system.CheckFail:
				icon = "❌"
			}
			fmt.Printf("%s %-18s %s\n", icon, c.Name, c.Detail)
			for _, s := range c.Suggestions {
				fmt.Printf("   💡 %s\n", s)
			}
		}

		if !system.Healthy(checks) {
			return fmt.Errorf("environment checks failed")
		}
		fmt.Println("\n📊 Ready to install")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().StringVar(&doctorFormat, "format", "", "Output format (json)")
}
