package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError indica configuração ausente ou malformada; fatal na inicialização.
type ConfigError struct {
	Reason string
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// StoreConnectionError indica que o store compartilhado está inacessível;
// fatal na construção, nunca re-tentado internamente.
type StoreConnectionError struct {
	Err error
}

func (e *StoreConnectionError) Error() string {
	return "store connection: " + e.Err.Error()
}

func (e *StoreConnectionError) Unwrap() error {
	return e.Err
}

// RealmNotFoundError names every realm an operation referenced that was not
// registered.
type RealmNotFoundError struct {
	Realms []string
}

func (e *RealmNotFoundError) Error() string {
	return fmt.Sprintf("realm(s) not registered: %s", strings.Join(e.Realms, ", "))
}

// RateLimitedError is the normal denial outcome of an admission attempt. It
// carries the full set of saturated realms.
type RateLimitedError struct {
	Realms []string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("currently rate-limited on realm(s): %s", strings.Join(e.Realms, ", "))
}

// ActuatorValidationError indica que a operação fornecida não corresponde à
// única chamada sancionada.
type ActuatorValidationError struct {
	Reason string
}

func (e *ActuatorValidationError) Error() string {
	return "actuator: " + e.Reason
}

// ActuatorError wraps a failure raised by the gated operation itself. It is
// propagated unchanged and never retried by the core.
type ActuatorError struct {
	Err error
}

func (e *ActuatorError) Error() string {
	return "actuator failed: " + e.Err.Error()
}

func (e *ActuatorError) Unwrap() error {
	return e.Err
}

func IsRealmNotFound(err error) bool {
	var target *RealmNotFoundError
	return errors.As(err, &target)
}

func IsRateLimited(err error) bool {
	var target *RateLimitedError
	return errors.As(err, &target)
}

// AsRateLimited extrai o erro de limitação, quando presente.
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var target *RateLimitedError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
