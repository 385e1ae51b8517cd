// Package storage holds the config-map plumbing shared by every
// pluggable backend: typed accessors over map[string]string and the
// ConfigError they report validation failures with.
package storage

import "fmt"

// ConfigError reports an invalid or missing backend configuration
// entry. Backend names the backend being configured, Field the config
// key; Value and Cause are filled in when known.
type ConfigError struct {
	Backend string
	Field   string
	Value   string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Field == "":
		return e.Backend + ": " + e.Message
	case e.Value == "":
		return e.Backend + ": " + e.Field + ": " + e.Message
	default:
		return fmt.Sprintf("%s: %s=%q: %s", e.Backend, e.Field, e.Value, e.Message)
	}
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// NewConfigError reports a field validation failure.
func NewConfigError(backend, field, message string) *ConfigError {
	return &ConfigError{Backend: backend, Field: field, Message: message}
}

// NewConfigErrorWithValue additionally records the rejected value.
func NewConfigErrorWithValue(backend, field, value, message string) *ConfigError {
	return &ConfigError{Backend: backend, Field: field, Value: value, Message: message}
}

// NewConfigErrorWithCause wraps an underlying error, reachable through
// errors.Unwrap.
func NewConfigErrorWithCause(backend, field, message string, cause error) *ConfigError {
	return &ConfigError{Backend: backend, Field: field, Message: message, Cause: cause}
}
