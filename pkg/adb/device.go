package adb

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
	"github.com/ndn8144/AdbInstallerApp-sub001/pkg/apk"
)

// DeviceState is the second column of "adb devices" output.
type DeviceState string

const (
	StateDevice       DeviceState = "device"
	StateOffline      DeviceState = "offline"
	StateUnauthorized DeviceState = "unauthorized"
	StateRecovery     DeviceState = "recovery"
	StateUnknown      DeviceState = "unknown"
)

// ParseDeviceState maps a raw state column value onto the enum.
func ParseDeviceState(s string) DeviceState {
	switch s {
	case "device", "offline", "unauthorized", "recovery":
		return DeviceState(s)
	default:
		return StateUnknown
	}
}

// Device is one row of "adb devices -l", optionally enriched with build
// properties via Enrich.
type Device struct {
	ID          string      `json:"id"`
	State       DeviceState `json:"state"`
	Model       string      `json:"model,omitempty"`
	Product     string      `json:"product,omitempty"`
	Device      string      `json:"device,omitempty"`
	TransportID string      `json:"transport_id,omitempty"`
	USB         string      `json:"usb,omitempty"`

	APILevel       int      `json:"api_level,omitempty"`
	AndroidVersion string   `json:"android_version,omitempty"`
	Manufacturer   string   `json:"manufacturer,omitempty"`
	Brand          string   `json:"brand,omitempty"`
	ABIs           []string `json:"abis,omitempty"`
	Density        int      `json:"density,omitempty"`
	Locale         string   `json:"locale,omitempty"`
}

// Online reports whether the device is ready for commands.
func (d *Device) Online() bool {
	return d.State == StateDevice
}

// IsEmulator flags local emulator instances.
func (d *Device) IsEmulator() bool {
	return strings.HasPrefix(d.ID, "emulator-") ||
		strings.Contains(strings.ToLower(d.Product), "sdk")
}

// DisplayName prefers the marketing model name over the raw serial.
func (d *Device) DisplayName() string {
	if d.Model != "" {
		return strings.ReplaceAll(d.Model, "_", " ")
	}
	if d.Product != "" {
		return d.Product
	}
	return d.ID
}

// Profile converts the enriched fields into the shape split matching
// consumes.
func (d *Device) Profile() apk.DeviceProfile {
	return apk.DeviceProfile{
		SDK:     d.APILevel,
		ABIs:    d.ABIs,
		Density: d.Density,
		Locale:  d.Locale,
	}
}

var deviceIDRe = regexp.MustCompile(`^[A-Za-z0-9._:\-]+$`)

// ValidateDeviceID rejects serials that could smuggle extra arguments or
// shell syntax into an adb invocation. Empty is allowed and means "the
// default device".
func ValidateDeviceID(id string) error {
	if id == "" {
		return nil
	}
	if !deviceIDRe.MatchString(id) {
		return apperrors.NewValidationError("BAD_DEVICE_ID",
			fmt.Sprintf("invalid device id: %q", id))
	}
	return nil
}

// Devices lists devices known to the adb server.
func (m *Manager) Devices(ctx context.Context) ([]Device, error) {
	out, err := m.run(ctx, m.commandTimeout, "devices", "-l")
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeDevice, "DEVICE_LIST",
			"failed to list devices").
			WithSuggestion("Check that the adb server can start ('adb start-server')")
	}
	return parseDeviceList(out), nil
}

// DevicesDetailed lists devices and enriches the online ones with build
// properties.
func (m *Manager) DevicesDetailed(ctx context.Context) ([]Device, error) {
	devices, err := m.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].State != StateDevice {
			continue
		}
		if err := m.Enrich(ctx, &devices[i]); err != nil {
			logging.Logger.Debug().Str("device", devices[i].ID).Err(err).Msg("device enrichment failed")
		}
	}
	return devices, nil
}

// Enrich fills build and hardware properties with a single getprop call.
func (m *Manager) Enrich(ctx context.Context, d *Device) error {
	if err := ValidateDeviceID(d.ID); err != nil {
		return err
	}
	out, err := m.shell(ctx, d.ID, "getprop")
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeDevice, "GETPROP",
			"failed to read device properties").WithContext("device", d.ID)
	}
	d.applyProperties(parseProperties(out))
	return nil
}

// GetDevice returns one device by serial, enriched when online. An empty
// id picks the sole online device.
func (m *Manager) GetDevice(ctx context.Context, id string) (*Device, error) {
	if err := ValidateDeviceID(id); err != nil {
		return nil, err
	}
	devices, err := m.Devices(ctx)
	if err != nil {
		return nil, err
	}

	var found *Device
	if id == "" {
		var online []*Device
		for i := range devices {
			if devices[i].Online() {
				online = append(online, &devices[i])
			}
		}
		switch len(online) {
		case 0:
			return nil, apperrors.NewDeviceError("NO_DEVICES", "no online device connected")
		case 1:
			found = online[0]
		default:
			return nil, apperrors.NewDeviceError("AMBIGUOUS_DEVICE",
				"several devices connected; a serial is required").
				WithSuggestion("Pass -s <serial> or --all-devices")
		}
	} else {
		for i := range devices {
			if devices[i].ID == id {
				found = &devices[i]
				break
			}
		}
		if found == nil {
			return nil, apperrors.NewDeviceError("DEVICE_NOT_FOUND",
				fmt.Sprintf("device %s is not connected", id))
		}
	}

	if found.Online() {
		if err := m.Enrich(ctx, found); err != nil {
			logging.Logger.Debug().Str("device", found.ID).Err(err).Msg("device enrichment failed")
		}
	}
	result := *found
	return &result, nil
}

// WaitForDevice polls until the device reports state "device" or the
// timeout passes. An empty id waits for any device.
func (m *Manager) WaitForDevice(ctx context.Context, deviceID string, timeout time.Duration) (*Device, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		devices, err := m.Devices(ctx)
		if err == nil {
			for i := range devices {
				d := devices[i]
				if (deviceID == "" || d.ID == deviceID) && d.Online() {
					return &d, nil
				}
			}
		}
		if time.Now().After(deadline) {
			return nil, apperrors.NewTimeoutError("WAIT_DEVICE",
				fmt.Sprintf("device did not come online within %s", timeout)).
				WithContext("device", deviceID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// parseDeviceList reads "adb devices -l" output. Suffix fields arrive as
// key:value pairs after the state column.
func parseDeviceList(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		d := Device{ID: fields[0], State: ParseDeviceState(fields[1])}
		for _, f := range fields[2:] {
			switch {
			case strings.HasPrefix(f, "model:"):
				d.Model = strings.TrimPrefix(f, "model:")
			case strings.HasPrefix(f, "product:"):
				d.Product = strings.TrimPrefix(f, "product:")
			case strings.HasPrefix(f, "device:"):
				d.Device = strings.TrimPrefix(f, "device:")
			case strings.HasPrefix(f, "transport_id:"):
				d.TransportID = strings.TrimPrefix(f, "transport_id:")
			case strings.HasPrefix(f, "usb:"):
				d.USB = strings.TrimPrefix(f, "usb:")
			}
		}
		devices = append(devices, d)
	}
	return devices
}

var getpropRe = regexp.MustCompile(`(?m)^\[([^\]]+)\]:\s*\[([^\]]*)\]`)

// parseProperties reads getprop's "[key]: [value]" dump into a map.
func parseProperties(out string) map[string]string {
	props := make(map[string]string)
	for _, m := range getpropRe.FindAllStringSubmatch(out, -1) {
		props[m[1]] = m[2]
	}
	return props
}

func (d *Device) applyProperties(props map[string]string) {
	if v := props["ro.build.version.sdk"]; v != "" {
		d.APILevel, _ = strconv.Atoi(v)
	}
	d.AndroidVersion = props["ro.build.version.release"]
	d.Manufacturer = props["ro.product.manufacturer"]
	d.Brand = props["ro.product.brand"]
	if d.Model == "" {
		d.Model = props["ro.product.model"]
	}
	if v := props["ro.product.cpu.abilist"]; v != "" {
		d.ABIs = strings.Split(v, ",")
	} else if v := props["ro.product.cpu.abi"]; v != "" {
		d.ABIs = []string{v}
	}
	if v := props["ro.sf.lcd_density"]; v != "" {
		d.Density, _ = strconv.Atoi(v)
	}
	if v := props["persist.sys.locale"]; v != "" {
		d.Locale = v
	} else if v := props["ro.product.locale"]; v != "" {
		d.Locale = v
	}
}
