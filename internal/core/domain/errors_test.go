package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("CFG-TEST-1000", "test message"),
			expected: "[CFG-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("CFG-TEST-1001", "test message").WithDetails("ssl.keystore"),
			expected: "[CFG-TEST-1001] test message: ssl.keystore",
		},
		{
			name:     "error with cause",
			err:      NewDomainError("CFG-TEST-1002", "test message").WithCause(errors.New("boom")),
			expected: "[CFG-TEST-1002] test message: boom",
		},
		{
			name: "error with details and cause",
			err: NewDomainError("CFG-TEST-1003", "test message").
				WithDetails("ssl.truststore").
				WithCause(errors.New("no such file")),
			expected: "[CFG-TEST-1003] test message: ssl.truststore: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("CFG-TEST-1000", "message 1")
	err2 := NewDomainError("CFG-TEST-1000", "message 2")
	err3 := NewDomainError("CFG-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_IsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("startup: %w", ErrCredentialLoad.WithCause(errors.New("bad password")))

	if !errors.Is(err, ErrCredentialLoad) {
		t.Error("errors.Is should see through fmt.Errorf wrapping")
	}
	if errors.Is(err, ErrConfigurationMissing) {
		t.Error("credential error must not match configuration error")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("CFG-TEST-1000", "wrapper").WithCause(cause)

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := NewDomainError("CFG-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_CopiesDoNotMutateSentinel(t *testing.T) {
	_ = ErrConfigurationMissing.WithDetails("config.uri")
	_ = ErrCredentialLoad.WithCause(errors.New("x"))

	if ErrConfigurationMissing.Details != "" {
		t.Error("WithDetails must not modify the sentinel")
	}
	if ErrCredentialLoad.Cause != nil {
		t.Error("WithCause must not modify the sentinel")
	}
}

func TestDomainError_Wrapf(t *testing.T) {
	err := ErrCredentialLoad.Wrapf("read %s: %w", "/tmp/ks.jks", errors.New("permission denied"))

	if !strings.Contains(err.Error(), "/tmp/ks.jks") {
		t.Errorf("Error() = %q, want path in message", err.Error())
	}
	if err.Cause == nil {
		t.Fatal("Wrapf should set a cause")
	}
}

func TestIsDomainError(t *testing.T) {
	err := ErrFetchNotFound.WithDetails("app/default")

	if !IsDomainError(err, "") {
		t.Error("IsDomainError(err, \"\") = false, want true")
	}
	if !IsDomainError(err, "CFG-FETCH-4040") {
		t.Error("IsDomainError with matching code = false, want true")
	}
	if IsDomainError(err, "CFG-FETCH-5020") {
		t.Error("IsDomainError with other code = true, want false")
	}
	if IsDomainError(errors.New("plain"), "") {
		t.Error("IsDomainError on plain error = true, want false")
	}
}

func TestGetErrorCode(t *testing.T) {
	if got := GetErrorCode(fmt.Errorf("wrap: %w", ErrInvalidConfiguration)); got != "CFG-CONF-1002" {
		t.Errorf("GetErrorCode() = %q, want %q", got, "CFG-CONF-1002")
	}
	if got := GetErrorCode(errors.New("plain")); got != "" {
		t.Errorf("GetErrorCode(plain) = %q, want empty", got)
	}
}
