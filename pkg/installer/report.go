package installer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
)

// UnitResult is one unit's final state on one device.
type UnitResult struct {
	Unit         string     `json:"unit" yaml:"unit"`
	PackageID    string     `json:"package_id,omitempty" yaml:"package_id,omitempty"`
	Status       UnitStatus `json:"status" yaml:"status"`
	Attempts     int        `json:"attempts" yaml:"attempts"`
	DurationSecs float64    `json:"duration_seconds" yaml:"duration_seconds"`
	ErrorCode    string     `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Message      string     `json:"message,omitempty" yaml:"message,omitempty"`
}

// DeviceReport collects one device's unit results in queue order.
type DeviceReport struct {
	DeviceID   string       `json:"device_id" yaml:"device_id"`
	DeviceName string       `json:"device_name,omitempty" yaml:"device_name,omitempty"`
	Units      []UnitResult `json:"units" yaml:"units"`
}

// Totals aggregates a run.
type Totals struct {
	Units     int `json:"units" yaml:"units"`
	Installed int `json:"installed" yaml:"installed"`
	Failed    int `json:"failed" yaml:"failed"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Canceled  int `json:"canceled" yaml:"canceled"`
}

// RunReport is the full record of one run.
type RunReport struct {
	RunID    string         `json:"run_id" yaml:"run_id"`
	Started  time.Time      `json:"started" yaml:"started"`
	Finished time.Time      `json:"finished" yaml:"finished"`
	Devices  []DeviceReport `json:"devices" yaml:"devices"`
	Totals   Totals         `json:"totals" yaml:"totals"`
}

func newRunReport() *RunReport {
	return &RunReport{RunID: uuid.NewString(), Started: time.Now()}
}

// finish stamps the end time and recomputes the totals.
func (r *RunReport) finish() {
	r.Finished = time.Now()
	r.Totals = Totals{}
	for _, dr := range r.Devices {
		for _, ur := range dr.Units {
			r.Totals.Units++
			switch ur.Status {
			case StatusInstalled:
				r.Totals.Installed++
			case StatusFailed:
				r.Totals.Failed++
			case StatusSkipped:
				r.Totals.Skipped++
			case StatusCanceled:
				r.Totals.Canceled++
			}
		}
	}
}

// Succeeded reports whether every unit that was supposed to run did
// install.
func (r *RunReport) Succeeded() bool {
	return r.Totals.Failed == 0 && r.Totals.Canceled == 0
}

// Duration is the wall-clock span of the run.
func (r *RunReport) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Save writes the report to path; the extension picks the encoding
// (.json, or .yaml/.yml).
func (r *RunReport) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(r, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(r)
	default:
		return apperrors.NewValidationError("BAD_REPORT_EXT",
			fmt.Sprintf("unsupported report format: %s", filepath.Ext(path))).
			WithSuggestion("Use a .yaml, .yml, or .json extension")
	}
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeParsing,
			"REPORT_ENCODE", "cannot encode run report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeFileSystem,
			"REPORT_WRITE", "cannot write run report").
			WithContext("path", path)
	}
	return nil
}
