package installer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func sampleReport() *RunReport {
	r := newRunReport()
	r.Devices = []DeviceReport{
		{
			DeviceID:   "a",
			DeviceName: "Pixel 7",
			Units: []UnitResult{
				{Unit: "io.one", Status: StatusInstalled, Attempts: 1, DurationSecs: 1.5},
				{Unit: "io.two", Status: StatusFailed, Attempts: 3, ErrorCode: "INSTALL_FAILED_INTERNAL_ERROR"},
			},
		},
		{
			DeviceID: "b",
			Units: []UnitResult{
				{Unit: "io.one", Status: StatusSkipped, Message: "requires API 26, device has 21"},
				{Unit: "io.two", Status: StatusCanceled},
			},
		},
	}
	r.finish()
	return r
}

func TestRunReportTotals(t *testing.T) {
	r := sampleReport()
	want := Totals{Units: 4, Installed: 1, Failed: 1, Skipped: 1, Canceled: 1}
	if r.Totals != want {
		t.Errorf("Totals = %+v, want %+v", r.Totals, want)
	}
	if r.Succeeded() {
		t.Error("Succeeded() = true with failures present")
	}
	if r.RunID == "" {
		t.Error("RunID is empty")
	}
	if r.Duration() < 0 {
		t.Errorf("Duration() = %v", r.Duration())
	}
}

func TestRunReportSave_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := sampleReport().Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded RunReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid json: %v", err)
	}
	if decoded.Totals.Units != 4 || len(decoded.Devices) != 2 {
		t.Errorf("decoded report lost data: %+v", decoded.Totals)
	}
}

func TestRunReportSave_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := sampleReport().Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded RunReport
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid yaml: %v", err)
	}
	if decoded.Devices[0].Units[1].ErrorCode != "INSTALL_FAILED_INTERNAL_ERROR" {
		t.Errorf("decoded report lost the error code")
	}
	if !strings.Contains(string(data), "run_id") {
		t.Errorf("yaml uses unexpected field names:\n%s", data)
	}
}

func TestRunReportSave_BadExtension(t *testing.T) {
	if err := sampleReport().Save(filepath.Join(t.TempDir(), "report.xml")); err == nil {
		t.Fatal("Save accepted an unsupported extension")
	}
}

func TestRunReportFinishIsStable(t *testing.T) {
	r := sampleReport()
	first := r.Totals
	finished := r.Finished
	time.Sleep(time.Millisecond)
	r.finish()
	if r.Totals != first {
		t.Errorf("finish changed totals: %+v vs %+v", r.Totals, first)
	}
	if !r.Finished.After(finished) {
		t.Error("finish did not restamp the end time")
	}
}
