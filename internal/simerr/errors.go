// Package simerr defines the error taxonomy shared by the lattice builder,
// the energy model, the Monte Carlo engine and the model facade.
//
// Callers match categories with errors.Is against the sentinels and read
// field-level detail with errors.As into *ConfigError.
package simerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports an invalid model parameter: a bad Hausdorff
	// dimension or scale, a non-positive temperature, thread or step count,
	// or an unknown method name.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNotSetup reports a lifecycle violation, such as running the Monte
	// Carlo engine before a successful setup.
	ErrNotSetup = errors.New("model has not been set up")

	// ErrCapacity reports a request that is too large to compute exactly,
	// such as enumerating the partition function of a big lattice.
	ErrCapacity = errors.New("capacity exceeded")
)

// ConfigError describes which parameter was rejected and why.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrConfiguration, e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrConfiguration.
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// Config is shorthand for building a *ConfigError.
func Config(field string, value any, reason string) error {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// Capacity wraps ErrCapacity with a formatted detail message.
func Capacity(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCapacity, fmt.Sprintf(format, args...))
}
