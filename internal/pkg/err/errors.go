package err

import (
	"github.com/pkg/errors"
)

const (
	// DefaultCode is a default service error code
	DefaultCode = "SERVICE_ERROR"
	// ConfigurationCode marks missing or invalid settings/credentials
	ConfigurationCode = "CONFIGURATION"
	// TransientCode marks provider errors that may succeed later
	TransientCode = "TRANSIENT"
	// AuthCode marks a rejected refresh token
	AuthCode = "AUTH"
	// SkipCode marks business rule skips
	SkipCode = "SKIP"
)

var (
	// ErrConfiguration indicates missing credentials or settings, needs operator action
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient indicates 5xx, 429 or timeout from a provider
	ErrTransient = errors.New("transient provider error")
	// ErrUnrecoverableAuth indicates the refresh token was rejected by the provider
	ErrUnrecoverableAuth = errors.New("refresh token rejected, re-authorization required")
	// ErrSkip is the base of all business rule skips
	ErrSkip = errors.New("skipped")
)

// Configuration wraps ErrConfiguration with a message
func Configuration(msg string) error {
	return errors.Wrap(ErrConfiguration, msg)
}

// Transient wraps ErrTransient with a message
func Transient(msg string) error {
	return errors.Wrap(ErrTransient, msg)
}

// UnrecoverableAuth wraps ErrUnrecoverableAuth with a message
func UnrecoverableAuth(msg string) error {
	return errors.Wrap(ErrUnrecoverableAuth, msg)
}

//SkipError is a non retriable business rule outcome
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Is makes errors.Is(skipErr, ErrSkip) true
func (e *SkipError) Is(target error) bool {
	return target == ErrSkip
}

// Skip creates a business rule skip with the reason
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// SkipReason returns the reason if err is a skip
func SkipReason(err error) (string, bool) {
	var se *SkipError
	if errors.As(err, &se) {
		return se.Reason, true
	}
	return "", false
}

// Code maps error to a short code for logs and metrics
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSkip):
		return SkipCode
	case errors.Is(err, ErrUnrecoverableAuth):
		return AuthCode
	case errors.Is(err, ErrConfiguration):
		return ConfigurationCode
	case errors.Is(err, ErrTransient):
		return TransientCode
	}
	return DefaultCode
}
