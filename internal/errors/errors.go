package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorType represents the type of error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeNetwork
	ErrorTypeFileSystem
	ErrorTypeParsing
	ErrorTypeConfiguration
	ErrorTypeDevice
	ErrorTypeInstall
	ErrorTypePermission
	ErrorTypeTimeout
	ErrorTypeNotFound
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeNetwork:
		return "NETWORK"
	case ErrorTypeFileSystem:
		return "FILESYSTEM"
	case ErrorTypeParsing:
		return "PARSING"
	case ErrorTypeConfiguration:
		return "CONFIGURATION"
	case ErrorTypeDevice:
		return "DEVICE"
	case ErrorTypeInstall:
		return "INSTALL"
	case ErrorTypePermission:
		return "PERMISSION"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// InstallerError represents an enhanced error with context and suggestions
type InstallerError struct {
	Type        ErrorType         `json:"type"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Cause       error             `json:"cause,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Stack       []string          `json:"stack,omitempty"`
	Retryable   bool              `json:"retryable"`
}

// Error implements the error interface
func (e *InstallerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *InstallerError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *InstallerError) Is(target error) bool {
	if t, ok := target.(*InstallerError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error
func (e *InstallerError) WithContext(key, value string) *InstallerError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *InstallerError) WithSuggestion(suggestion string) *InstallerError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *InstallerError) WithSuggestions(suggestions []string) *InstallerError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// SetRetryable marks the error as retryable or not
func (e *InstallerError) SetRetryable(retryable bool) *InstallerError {
	e.Retryable = retryable
	return e
}

// FormatDetailed returns a detailed error message with context and suggestions
func (e *InstallerError) FormatDetailed() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("❌ %s Error [%s]: %s\n", e.Type.String(), e.Code, e.Message))

	if len(e.Context) > 0 {
		builder.WriteString("\n📋 Context:\n")
		for key, value := range e.Context {
			builder.WriteString(fmt.Sprintf("   %s: %s\n", key, value))
		}
	}

	if e.Cause != nil {
		builder.WriteString(fmt.Sprintf("\n🔍 Underlying cause: %v\n", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		builder.WriteString("\n💡 Suggestions:\n")
		for _, suggestion := range e.Suggestions {
			builder.WriteString(fmt.Sprintf("   • %s\n", suggestion))
		}
	}

	if e.Retryable {
		builder.WriteString("\n🔄 This operation can be retried\n")
	}

	return builder.String()
}

// NewError creates a new InstallerError
func NewError(errorType ErrorType, code, message string) *InstallerError {
	return &InstallerError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
		Stack:     captureStack(),
	}
}

// WrapError wraps an existing error with InstallerError
func WrapError(err error, errorType ErrorType, code, message string) *InstallerError {
	return &InstallerError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
		Stack:     captureStack(),
	}
}

// IsRetryable reports whether err (or anything it wraps) is a retryable
// InstallerError.
func IsRetryable(err error) bool {
	var ie *InstallerError
	if errors.As(err, &ie) {
		return ie.Retryable
	}
	return false
}

// AsInstallerError extracts an InstallerError from err, wrapping plain
// errors so callers always get the enriched shape.
func AsInstallerError(err error) *InstallerError {
	if err == nil {
		return nil
	}
	var ie *InstallerError
	if errors.As(err, &ie) {
		return ie
	}
	return WrapError(err, ErrorTypeUnknown, "UNKNOWN", err.Error())
}

// captureStack captures the current stack trace
func captureStack() []string {
	var stack []string

	// Skip the first few frames (this function and error creation)
	for i := 2; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		// Only include frames from our project
		if strings.Contains(file, "AdbInstallerApp") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		}
	}

	return stack
}

// Common error constructors

// NewValidationError creates a validation error
func NewValidationError(code, message string) *InstallerError {
	return NewError(ErrorTypeValidation, code, message).
		WithSuggestion("Check the input parameters and try again")
}

// NewNetworkError creates a network error
func NewNetworkError(code, message string) *InstallerError {
	return NewError(ErrorTypeNetwork, code, message).
		SetRetryable(true).
		WithSuggestions([]string{
			"Check your internet connection",
			"Verify the server is accessible",
			"Try again in a few moments",
		})
}

// NewFileSystemError creates a filesystem error
func NewFileSystemError(code, message string) *InstallerError {
	return NewError(ErrorTypeFileSystem, code, message).
		WithSuggestions([]string{
			"Check file permissions",
			"Ensure the path exists",
			"Verify disk space availability",
		})
}

// NewParsingError creates a parsing error
func NewParsingError(code, message string) *InstallerError {
	return NewError(ErrorTypeParsing, code, message).
		WithSuggestions([]string{
			"Verify the file is a valid APK, XAPK, or APKS archive",
			"Check if the file is corrupted",
			"Try with a different file",
		})
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(code, message string) *InstallerError {
	return NewError(ErrorTypeConfiguration, code, message).
		WithSuggestions([]string{
			"Check the configuration file syntax",
			"Verify all required settings are present",
			"Run 'adbinstaller init' to regenerate configuration",
		})
}

// NewDeviceError creates a device error
func NewDeviceError(code, message string) *InstallerError {
	return NewError(ErrorTypeDevice, code, message).
		WithSuggestions([]string{
			"Check device connection",
			"Enable USB debugging",
			"Authorize this computer on the device",
			"Try reconnecting the device",
		})
}

// NewInstallError creates an install error
func NewInstallError(code, message string) *InstallerError {
	return NewError(ErrorTypeInstall, code, message)
}

// NewPermissionError creates a permission error
func NewPermissionError(code, message string) *InstallerError {
	return NewError(ErrorTypePermission, code, message).
		WithSuggestions([]string{
			"Check file/directory permissions",
			"Run with appropriate privileges",
			"Ensure you have write access to the target location",
		})
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(code, message string) *InstallerError {
	return NewError(ErrorTypeTimeout, code, message).
		SetRetryable(true).
		WithSuggestions([]string{
			"Increase timeout duration",
			"Check the USB or network connection to the device",
			"Try the operation again",
		})
}

// NewNotFoundError creates a not found error
func NewNotFoundError(code, message string) *InstallerError {
	return NewError(ErrorTypeNotFound, code, message).
		WithSuggestions([]string{
			"Verify the resource exists",
			"Check the path or identifier",
			"Ensure proper permissions to access the resource",
		})
}
