package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ErrorReport represents a comprehensive error report
type ErrorReport struct {
	Timestamp   time.Time            `json:"timestamp"`
	Error       *InstallerError      `json:"error"`
	Environment *EnvironmentInfo     `json:"environment"`
	Context     *OperationContext    `json:"context"`
	Suggestions []RecoverySuggestion `json:"suggestions"`
}

// EnvironmentInfo contains information about the runtime environment
type EnvironmentInfo struct {
	OS           string            `json:"os"`
	Architecture string            `json:"architecture"`
	GoVersion    string            `json:"go_version"`
	AppVersion   string            `json:"app_version"`
	WorkingDir   string            `json:"working_dir"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// OperationContext contains information about the operation that failed
type OperationContext struct {
	Command   string        `json:"command"`
	Arguments []string      `json:"arguments"`
	Duration  time.Duration `json:"duration"`
}

// RecoverySuggestion represents a suggested recovery action
type RecoverySuggestion struct {
	Priority    int    `json:"priority"` // 1 = high, 2 = medium, 3 = low
	Action      string `json:"action"`
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
}

// ErrorReporter writes error reports for post-mortem diagnosis
type ErrorReporter struct {
	reportDir  string
	appVersion string
}

// NewErrorReporter creates a new error reporter
func NewErrorReporter(reportDir, appVersion string) *ErrorReporter {
	return &ErrorReporter{
		reportDir:  reportDir,
		appVersion: appVersion,
	}
}

// GenerateReport builds a report for the given error and operation
func (er *ErrorReporter) GenerateReport(err *InstallerError, context *OperationContext) *ErrorReport {
	report := &ErrorReport{
		Timestamp:   time.Now(),
		Error:       err,
		Context:     context,
		Environment: er.gatherEnvironmentInfo(),
	}

	report.Suggestions = er.generateRecoverySuggestions(err)

	return report
}

// SaveReport saves an error report to disk and returns its path
func (er *ErrorReporter) SaveReport(report *ErrorReport) (string, error) {
	if err := os.MkdirAll(er.reportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := report.Timestamp.Format("20060102_150405")
	filename := fmt.Sprintf("error_report_%s_%s.json", timestamp, report.Error.Code)
	path := filepath.Join(er.reportDir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// DisplayReport displays an error report in a user-friendly format
func (er *ErrorReporter) DisplayReport(report *ErrorReport) {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("🚨 ERROR REPORT")
	fmt.Println(strings.Repeat("=", 72))

	fmt.Printf("⏰ Time: %s\n", report.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("🏷️  Type: %s\n", report.Error.Type.String())
	fmt.Printf("🔍 Code: %s\n", report.Error.Code)
	fmt.Printf("💬 Message: %s\n", report.Error.Message)

	if report.Error.Cause != nil {
		fmt.Printf("🔗 Cause: %v\n", report.Error.Cause)
	}

	if report.Context != nil {
		fmt.Println("\n📋 Operation:")
		fmt.Printf("   Command: %s\n", report.Context.Command)
		if len(report.Context.Arguments) > 0 {
			fmt.Printf("   Arguments: %s\n", strings.Join(report.Context.Arguments, " "))
		}
		if report.Context.Duration > 0 {
			fmt.Printf("   Duration: %v\n", report.Context.Duration)
		}
	}

	if len(report.Error.Context) > 0 {
		fmt.Println("\n📝 Error context:")
		for key, value := range report.Error.Context {
			fmt.Printf("   %s: %s\n", key, value)
		}
	}

	if len(report.Suggestions) > 0 {
		fmt.Println("\n💡 Recovery suggestions:")
		for i, suggestion := range report.Suggestions {
			fmt.Printf("%d. %s\n", i+1, suggestion.Action)
			if suggestion.Description != "" {
				fmt.Printf("   %s\n", suggestion.Description)
			}
			if suggestion.Command != "" {
				fmt.Printf("   💻 %s\n", suggestion.Command)
			}
		}
	}

	fmt.Println(strings.Repeat("=", 72))
}

func (er *ErrorReporter) gatherEnvironmentInfo() *EnvironmentInfo {
	info := &EnvironmentInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
		AppVersion:   er.appVersion,
	}

	if wd, err := os.Getwd(); err == nil {
		info.WorkingDir = wd
	}

	return info
}

func (er *ErrorReporter) generateRecoverySuggestions(err *InstallerError) []RecoverySuggestion {
	var suggestions []RecoverySuggestion

	switch err.Type {
	case ErrorTypeDevice:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Action:      "Check device connection and authorization",
			Command:     "adbinstaller devices",
			Description: "Verify the device is online and USB debugging is authorized",
		})
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    2,
			Action:      "Restart the adb server",
			Command:     "adb kill-server && adb start-server",
			Description: "A stale adb server often causes offline or missing devices",
		})

	case ErrorTypeInstall:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Action:      "Inspect the install failure code",
			Description: "The error code identifies the exact Android package manager failure",
		})
		if err.Retryable {
			suggestions = append(suggestions, RecoverySuggestion{
				Priority:    2,
				Action:      "Retry with more attempts",
				Command:     "adbinstaller install --retries 3 ...",
				Description: "Transient failures frequently succeed on retry",
			})
		}

	case ErrorTypeNetwork:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Action:      "Check internet connectivity",
			Description: "Verify that you have a stable internet connection",
		})

	case ErrorTypeTimeout:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Action:      "Increase the operation timeout",
			Command:     "adbinstaller init",
			Description: "Raise install.timeout_mins in the config; large split sets on slow transports can exceed the default",
		})

	case ErrorTypeConfiguration:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Action:      "Regenerate the configuration file",
			Command:     "adbinstaller init --force",
		})

	default:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    2,
			Action:      "Run the environment check",
			Command:     "adbinstaller doctor",
			Description: "Diagnoses adb availability, version, and device reachability",
		})
	}

	return suggestions
}
