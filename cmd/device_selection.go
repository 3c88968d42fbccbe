package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/i18n"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/adb"
)

// parseDeviceList trims and deduplicates explicit device IDs.
func parseDeviceList(devices []string) []string {
	seen := make(map[string]struct{})
	var result []string
	for _, id := range devices {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// resolveTargetDevices picks the devices a command operates on: every
// online device with --all-devices, the explicit -s list, a lone online
// device, or an interactive prompt. Selected devices come back enriched
// with the properties split matching needs.
func resolveTargetDevices(ctx context.Context, mgr *adb.Manager, explicit []string, all, allowPrompt bool) ([]adb.Device, error) {
	devices, err := mgr.Devices(ctx)
	if err != nil {
		return nil, err
	}

	var online []adb.Device
	for _, d := range devices {
		if d.Online() {
			online = append(online, d)
		}
	}

	var selected []adb.Device
	switch {
	case all:
		if len(online) == 0 {
			return nil, apperrors.NewDeviceError("NO_DEVICES", i18n.T("install.noDevices")).
				WithSuggestion("Connect a device with USB debugging enabled")
		}
		selected = online

	case len(parseDeviceList(explicit)) > 0:
		byID := make(map[string]adb.Device, len(devices))
		for _, d := range devices {
			byID[d.ID] = d
		}
		for _, id := range parseDeviceList(explicit) {
			d, ok := byID[id]
			if !ok {
				return nil, apperrors.NewDeviceError("DEVICE_NOT_FOUND",
					fmt.Sprintf("device %s is not connected", id)).
					WithContext("connected", strings.Join(deviceIDs(devices), ", "))
			}
			if !d.Online() {
				return nil, apperrors.NewDeviceError("DEVICE_NOT_READY",
					fmt.Sprintf("device %s is %s", id, d.State)).
					WithSuggestion("Accept the USB debugging prompt on the device")
			}
			selected = append(selected, d)
		}

	case len(online) == 1:
		selected = online

	case len(online) == 0:
		return nil, apperrors.NewDeviceError("NO_DEVICES", i18n.T("install.noDevices")).
			WithSuggestions([]string{
				"Connect a device with USB debugging enabled",
				"Run 'adbinstaller devices' to see what adb reports",
			})

	default:
		if !allowPrompt {
			return nil, apperrors.NewValidationError("AMBIGUOUS_DEVICE",
				"multiple devices connected; pick one with -s or use --all-devices")
		}
		picked, err := promptForDevice(online)
		if err != nil {
			return nil, err
		}
		selected = []adb.Device{picked}
	}

	for i := range selected {
		if err := mgr.Enrich(ctx, &selected[i]); err != nil {
			logging.Logger.Warn().Err(err).Str("device", selected[i].ID).
				Msg("could not read device properties; installing without split matching")
		}
	}
	return selected, nil
}

// promptForDevice asks the user to choose from the online devices.
func promptForDevice(online []adb.Device) (adb.Device, error) {
	fmt.Println("📱 Multiple devices connected:")
	for i, d := range online {
		fmt.Printf("  %d. %s\n", i+1, d.DisplayName())
	}
	fmt.Printf("Select device [1-%d]: ", len(online))

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return adb.Device{}, apperrors.WrapError(err, apperrors.ErrorTypeValidation,
			"DEVICE_PROMPT", "could not read device selection")
	}
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > len(online) {
		return adb.Device{}, apperrors.NewValidationError("DEVICE_PROMPT",
			fmt.Sprintf("enter a number between 1 and %d", len(online)))
	}
	return online[n-1], nil
}

func deviceIDs(devices []adb.Device) []string {
	ids := make([]string, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, d.ID)
	}
	return ids
}
