// Package domain contains domain errors used throughout the application.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrWatcherAlreadyRunning = errors.New("file watcher is already running")
	ErrWatcherNotRunning     = errors.New("file watcher is not running")
	ErrNotRegistered         = errors.New("resource is not registered")
	ErrInvalidResourcePath   = errors.New("invalid resource path: path cannot be empty")
	ErrSubscriberClosed      = errors.New("subscriber is closed")
	ErrExecutorStopped       = errors.New("executor is stopped")
)

// Error codes carried in error events sent to clients.
const (
	ErrCodeInvalidCommand  = "INVALID_COMMAND"
	ErrCodeInvalidPayload  = "INVALID_PAYLOAD"
	ErrCodeInvalidResource = "INVALID_RESOURCE"
	ErrCodeNotRegistered   = "NOT_REGISTERED"
	ErrCodeReloadFailed    = "RELOAD_FAILED"
	ErrCodeUnknownCommand  = "UNKNOWN_COMMAND"
)

// ReloadError represents a failure while reloading a single component.
type ReloadError struct {
	Component string // Component identity
	Resource  string // Resource path that triggered the reload
	Err       error  // Underlying error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("reload %s for %q: %v", e.Component, e.Resource, e.Err)
}

func (e *ReloadError) Unwrap() error {
	return e.Err
}

// NewReloadError creates a new ReloadError.
func NewReloadError(component, resource string, err error) *ReloadError {
	return &ReloadError{
		Component: component,
		Resource:  resource,
		Err:       err,
	}
}
