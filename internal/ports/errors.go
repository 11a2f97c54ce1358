package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahrav/go-tender/internal/domain"
)

// Common infrastructure errors that can occur while talking to a store.
var (
	// ErrStoreUnavailable indicates the backing store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConflict indicates a write lost a race, such as a transaction
	// serialization failure or a write conflict.
	ErrConflict = errors.New("write conflict")

	// ErrRateLimited indicates that the store client throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrCircuitOpen indicates that a circuit breaker refused the call
	// because the store has been failing.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// StorageError represents a failure of a bid, tender or criteria store.
// The engine propagates it unchanged; retrying belongs to the storage
// collaborator.
type StorageError struct {
	// Operation is the store method that failed.
	Operation string

	// Key is the tender or bid id involved, if any.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for StorageError.
func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage error: operation=%s, err=%v", e.Operation, e.Err)
	}
	return fmt.Sprintf("storage error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error is temporary and the operation
// can be retried.
func (e *StorageError) IsRetryable() bool {
	// Only connectivity-level errors are retryable; domain errors are not.
	return errors.Is(e.Err, ErrStoreUnavailable) ||
		errors.Is(e.Err, ErrConflict) ||
		errors.Is(e.Err, ErrTimeout) ||
		errors.Is(e.Err, context.DeadlineExceeded)
}

// NewStorageError creates a new StorageError with the given details.
func NewStorageError(operation, key string, err error) *StorageError {
	return &StorageError{
		Operation: operation,
		Key:       key,
		Err:       err,
	}
}

// IsStorageError reports whether err carries a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}

// ErrorKind groups failures for status codes, metric labels and log fields.
type ErrorKind string

// Error kinds returned by KindOf.
const (
	KindNone       ErrorKind = "none"
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindForbidden  ErrorKind = "forbidden"
	KindStorage    ErrorKind = "storage"
	KindCanceled   ErrorKind = "canceled"
	KindInternal   ErrorKind = "internal"
)

// KindOf classifies err. Domain classifications take precedence over the
// storage wrapper, so a StorageError wrapping domain.ErrNotFound is
// KindNotFound.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInconsistentWeights):
		return KindValidation
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyAwarded),
		errors.Is(err, domain.ErrDuplicateBid):
		return KindConflict
	case errors.Is(err, domain.ErrNotFound):
		return KindNotFound
	case errors.Is(err, domain.ErrNotOwner):
		return KindForbidden
	case IsStorageError(err), errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrStoreUnavailable):
		return KindStorage
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}
