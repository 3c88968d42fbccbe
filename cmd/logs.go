package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/utils"
)

var (
	logsLines int
	logsList  bool

	captureDevice  string
	capturePackage string
	captureLevel   string
	captureOutput  string
	captureClear   bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent application log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if logsList {
			return listLogFiles()
		}

		lines, err := logging.ReadRecent(logsLines)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			fmt.Println("No log entries yet")
			return nil
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

var logsCaptureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a device logcat snapshot to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := newADBManager()
		if err != nil {
			return err
		}
		var explicit []string
		if captureDevice != "" {
			explicit = []string{captureDevice}
		}
		devices, err := resolveTargetDevices(ctx, mgr, explicit, false, true)
		if err != nil {
			return err
		}
		dev := devices[0]

		fmt.Printf("📱 Capturing logcat from %s...\n", dev.DisplayName())
		path, err := mgr.CaptureLogcat(ctx, dev.ID, adb.LogcatOptions{
			Package:    capturePackage,
			Level:      captureLevel,
			OutputPath: captureOutput,
			Clear:      captureClear,
		})
		if err != nil {
			return err
		}

		size := int64(0)
		if st, err := os.Stat(path); err == nil {
			size = st.Size()
		}
		fmt.Printf("💾 Logcat saved: %s (%s)\n", path, utils.FormatBytes(size))
		return nil
	},
}

func listLogFiles() error {
	files, err := logging.ListFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No log files yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSIZE\tMODIFIED")
	for _, path := range files {
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		name := filepath.Base(path)
		if path == logging.FilePath() {
			name += " (active)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, utils.FormatBytes(st.Size()),
			st.ModTime().Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsCaptureCmd)

	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of recent entries")
	logsCmd.Flags().BoolVar(&logsList, "list", false, "List log files instead")

	logsCaptureCmd.Flags().StringVarP(&captureDevice, "device", "s", "", "Target device ID")
	logsCaptureCmd.Flags().StringVar(&capturePackage, "package", "", "Only lines from this package's process")
	logsCaptureCmd.Flags().StringVar(&captureLevel, "level", "", "Minimum priority (V, D, I, W, E, F, S)")
	logsCaptureCmd.Flags().StringVarP(&captureOutput, "output", "o", "", "Output file (default: timestamped in cwd)")
	logsCaptureCmd.Flags().BoolVar(&captureClear, "clear", false, "Clear the device buffer after capture")
}
