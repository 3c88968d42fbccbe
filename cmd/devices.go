package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
)

var (
	devicesFormat  string
	devicesDetail  bool
	devicesWatch   bool
	devicesRefresh int
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List and manage connected Android devices",
	Long:  `List connected Android devices with detailed information and status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newADBManager()
		if err != nil {
			return err
		}
		if devicesWatch {
			return runDeviceWatch(cmd.Context(), mgr)
		}
		return showDevices(cmd.Context(), mgr)
	},
}

var devicesInfoCmd = &cobra.Command{
	Use:   "info <device-id>",
	Short: "Show detailed information about a specific device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newADBManager()
		if err != nil {
			return err
		}
		device, err := mgr.GetDevice(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		showDeviceDetails(device)
		return nil
	},
}

var devicesWaitCmd = &cobra.Command{
	Use:   "wait <device-id>",
	Short: "Wait for a device to come online",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newADBManager()
		if err != nil {
			return err
		}
		device, err := mgr.WaitForDevice(cmd.Context(), args[0], 60*time.Second)
		if err != nil {
			return err
		}
		fmt.Printf("✅ %s is online\n", device.DisplayName())
		return nil
	},
}

func listDevices(ctx context.Context, mgr *adb.Manager) ([]adb.Device, error) {
	if devicesDetail {
		return mgr.DevicesDetailed(ctx)
	}
	return mgr.Devices(ctx)
}

func showDevices(ctx context.Context, mgr *adb.Manager) error {
	devices, err := listDevices(ctx, mgr)
	if err != nil {
		return err
	}

	switch devicesFormat {
	case "json":
		return showDevicesJSON(devices)
	case "table":
		return showDevicesTable(devices)
	default:
		return showDevicesDefault(devices)
	}
}

func showDevicesDefault(devices []adb.Device) error {
	fmt.Printf("📱 Android Devices\n")
	fmt.Printf("==================\n\n")

	if len(devices) == 0 {
		fmt.Println("❌ No devices found")
		fmt.Println("\n💡 Troubleshooting:")
		fmt.Println("   • Connect your Android device via USB")
		fmt.Println("   • Enable USB debugging in Developer Options")
		fmt.Println("   • Authorize this computer when prompted")
		fmt.Println("   • Try running 'adb devices' manually")
		return nil
	}

	var online, offline, unauthorized, other []adb.Device
	for _, d := range devices {
		switch d.State {
		case adb.StateDevice:
			online = append(online, d)
		case adb.StateOffline:
			offline = append(offline, d)
		case adb.StateUnauthorized:
			unauthorized = append(unauthorized, d)
		default:
			other = append(other, d)
		}
	}

	if len(online) > 0 {
		fmt.Printf("🟢 Online Devices (%d):\n", len(online))
		for i, device := range online {
			fmt.Printf("%d. %s\n", i+1, formatDeviceInfo(device))
		}
		fmt.Println()
	}
	if len(offline) > 0 {
		fmt.Printf("🔴 Offline Devices (%d):\n", len(offline))
		for i, device := range offline {
			fmt.Printf("%d. %s\n", i+1, formatDeviceInfo(device))
		}
		fmt.Println("   💡 Try reconnecting or restarting the device")
		fmt.Println()
	}
	if len(unauthorized) > 0 {
		fmt.Printf("🔒 Unauthorized Devices (%d):\n", len(unauthorized))
		for i, device := range unauthorized {
			fmt.Printf("%d. %s\n", i+1, formatDeviceInfo(device))
		}
		fmt.Println("   💡 Allow USB debugging when prompted on the device")
		fmt.Println()
	}
	if len(other) > 0 {
		fmt.Printf("⚪ Other (%d):\n", len(other))
		for i, device := range other {
			fmt.Printf("%d. %s [%s]\n", i+1, formatDeviceInfo(device), device.State)
		}
		fmt.Println()
	}

	fmt.Printf("📊 Summary: %d total, %d online, %d offline, %d unauthorized\n",
		len(devices), len(online), len(offline), len(unauthorized))
	return nil
}

func showDevicesTable(devices []adb.Device) error {
	if len(devices) == 0 {
		fmt.Println("No devices found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE ID\tSTATUS\tMODEL\tANDROID\tMANUFACTURER\tTYPE")
	fmt.Fprintln(w, "---------\t------\t-----\t-------\t------------\t----")

	for _, device := range devices {
		deviceType := "Device"
		if device.IsEmulator() {
			deviceType = "Emulator"
		}

		androidInfo := ""
		if device.AndroidVersion != "" {
			androidInfo = device.AndroidVersion
			if device.APILevel > 0 {
				androidInfo += fmt.Sprintf(" (API %d)", device.APILevel)
			}
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			device.ID, device.State, device.Model, androidInfo, device.Manufacturer, deviceType)
	}
	return w.Flush()
}

func showDevicesJSON(devices []adb.Device) error {
	data, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func formatDeviceInfo(device adb.Device) string {
	info := device.ID
	if device.Model != "" {
		info = fmt.Sprintf("%s (%s)", device.Model, device.ID)
	}
	if device.IsEmulator() {
		info += " [Emulator]"
	}
	if device.AndroidVersion != "" {
		info += fmt.Sprintf(" - Android %s", device.AndroidVersion)
		if device.APILevel > 0 {
			info += fmt.Sprintf(" (API %d)", device.APILevel)
		}
	}
	return info
}

func showDeviceDetails(device *adb.Device) {
	fmt.Printf("📱 Device Information\n")
	fmt.Printf("====================\n\n")

	fmt.Printf("Device ID: %s\n", device.ID)
	fmt.Printf("Status: %s\n", device.State)
	if device.Model != "" {
		fmt.Printf("Model: %s\n", device.Model)
	}
	if device.Manufacturer != "" {
		fmt.Printf("Manufacturer: %s\n", device.Manufacturer)
	}
	if device.Brand != "" {
		fmt.Printf("Brand: %s\n", device.Brand)
	}
	if device.Product != "" {
		fmt.Printf("Product: %s\n", device.Product)
	}
	if device.AndroidVersion != "" {
		fmt.Printf("Android Version: %s\n", device.AndroidVersion)
	}
	if device.APILevel > 0 {
		fmt.Printf("API Level: %d\n", device.APILevel)
	}
	if len(device.ABIs) > 0 {
		fmt.Printf("ABIs: %v\n", device.ABIs)
	}
	if device.Density > 0 {
		fmt.Printf("Density: %d dpi\n", device.Density)
	}
	if device.Locale != "" {
		fmt.Printf("Locale: %s\n", device.Locale)
	}
	if device.TransportID != "" {
		fmt.Printf("Transport ID: %s\n", device.TransportID)
	}
	fmt.Printf("Type: %s\n", map[bool]string{true: "Emulator", false: "Physical Device"}[device.IsEmulator()])

	switch device.State {
	case adb.StateDevice:
		fmt.Printf("\n✅ Device is online and ready for use\n")
	case adb.StateOffline:
		fmt.Printf("\n🔴 Device is offline\n")
		fmt.Printf("💡 Try:\n")
		fmt.Printf("   • Reconnecting the USB cable\n")
		fmt.Printf("   • Restarting the device\n")
		fmt.Printf("   • Running 'adb kill-server && adb start-server'\n")
	case adb.StateUnauthorized:
		fmt.Printf("\n🔒 Device is unauthorized\n")
		fmt.Printf("💡 To fix:\n")
		fmt.Printf("   • Allow USB debugging when prompted on the device\n")
		fmt.Printf("   • Check 'Always allow from this computer' if available\n")
	}
}

func runDeviceWatch(ctx context.Context, mgr *adb.Manager) error {
	fmt.Printf("👀 Watching devices (refresh every %ds, press Ctrl+C to stop)...\n\n", devicesRefresh)

	ticker := time.NewTicker(time.Duration(devicesRefresh) * time.Second)
	defer ticker.Stop()

	for {
		fmt.Print("\033[2J\033[H")
		fmt.Printf("🕐 Last updated: %s\n\n", time.Now().Format("15:04:05"))
		if err := showDevices(ctx, mgr); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			fmt.Println("\n👋 Stopped watching")
			return nil
		case <-ticker.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesInfoCmd)
	devicesCmd.AddCommand(devicesWaitCmd)

	devicesCmd.Flags().StringVar(&devicesFormat, "format", "default", "Output format: default, table, json")
	devicesCmd.Flags().BoolVar(&devicesDetail, "detail", false, "Query device properties (model, Android version, ABIs)")
	devicesCmd.Flags().BoolVar(&devicesWatch, "watch", false, "Watch device status continuously")
	devicesCmd.Flags().IntVar(&devicesRefresh, "refresh", 3, "Refresh interval in seconds for watch mode")
}
