package domain

import (
	"errors"
	"fmt"
)

// DomainError is a startup or fetch failure with a stable error code.
type DomainError struct {
	Code    string // Error code (e.g., "CFG-CRED-5001")
	Message string // Human-readable message
	Details string // Optional additional details, usually the offending key
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface. Details and cause, when set, are
// appended to the message.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrapf wraps a formatted cause. It is shorthand for
// WithCause(fmt.Errorf(format, args...)).
func (e *DomainError) Wrapf(format string, args ...any) *DomainError {
	return e.WithCause(fmt.Errorf(format, args...))
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Configuration Errors (CONF)
// ============================================================================

var (
	// ErrConfigurationMissing indicates a required setting is absent.
	ErrConfigurationMissing = NewDomainError("CFG-CONF-1001", "required configuration missing")

	// ErrInvalidConfiguration indicates a setting is present but malformed.
	ErrInvalidConfiguration = NewDomainError("CFG-CONF-1002", "invalid configuration")
)

// ============================================================================
// Credential Errors (CRED)
// ============================================================================

// ErrCredentialLoad indicates the keystore or truststore could not be turned
// into a TLS context. It is always fatal.
var ErrCredentialLoad = NewDomainError("CFG-CRED-5001",
	"keystore and/or truststore could not be loaded, check that the ssl settings are correct")

// ============================================================================
// Fetch Errors (FETCH)
// ============================================================================

var (
	// ErrFetchNotFound indicates the config server has no environment for the
	// requested name/profile/label.
	ErrFetchNotFound = NewDomainError("CFG-FETCH-4040", "remote configuration not found")

	// ErrFetchFailed indicates the config server could not be reached or
	// answered with an error status.
	ErrFetchFailed = NewDomainError("CFG-FETCH-5020", "could not locate remote configuration")
)
