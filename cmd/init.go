package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ndn8144/AdbInstallerApp-sub001/internal/config"
	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
)

var (
	initOutput string
	initForce  bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented configuration template",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := initOutput
		if path == "" {
			path = config.ConfigPath()
		}

		if _, err := os.Stat(path); err == nil && !initForce {
			return apperrors.NewValidationError("CONFIG_EXISTS",
				fmt.Sprintf("%s already exists", path)).
				WithSuggestion("Re-run with --force to overwrite it")
		}

		if err := config.SaveTemplate(path); err != nil {
			return err
		}
		fmt.Printf("✅ Configuration template written: %s\n", path)
		fmt.Println("💡 Edit it and re-run 'adbinstaller doctor' to verify the setup")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "Template destination (default: the config path)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
}
