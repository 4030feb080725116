package linvo

import (
	"errors"

	"linvo/catalog"
	"linvo/internal/retry"
	"linvo/internal/services"
	"linvo/storage"
)

// Error taxonomy:
//
//   - ValidationError: empty or invalid user input; re-prompt
//   - ErrChannelNotFound: the catalog has no matching channel; re-prompt
//   - TransportError: catalog request failed; retry later
//   - PersistenceError: the document could not be saved; logged, non-fatal

// Type aliases for convenient error handling.
type (
	// ValidationError reports rejected user input.
	ValidationError = services.ValidationError
	// TransportError wraps a failed catalog request.
	TransportError = catalog.TransportError
	// PersistenceError wraps a failed storage operation.
	PersistenceError = storage.PersistenceError
	// RetryableError wraps errors that persisted after retries were exhausted.
	RetryableError = retry.RetryableError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrValidation matches every ValidationError.
	ErrValidation = services.ErrValidation
	// ErrInvalidInput indicates channel input that names no channel.
	ErrInvalidInput = services.ErrInvalidInput
	// ErrKidNotFound indicates an unknown kid id.
	ErrKidNotFound = services.ErrKidNotFound
	// ErrChannelNotFound indicates the catalog has no matching channel.
	ErrChannelNotFound = catalog.ErrNotFound
	// ErrApprovalNotFound indicates an unknown approved-channel record.
	ErrApprovalNotFound = services.ErrChannelNotFound
	// ErrTransport matches every TransportError.
	ErrTransport = catalog.ErrTransport
	// ErrQuotaExhausted indicates the estimated daily API quota is used up.
	ErrQuotaExhausted = catalog.ErrQuotaExhausted
	// ErrAttemptTimeout indicates catalog attempts kept exceeding the
	// per-attempt timeout.
	ErrAttemptTimeout = catalog.ErrAttemptTimeout

	// Storage errors
	// ErrPersistence matches every PersistenceError.
	ErrPersistence = storage.ErrPersistence
	// ErrStorageCorrupt indicates a persisted document failed validation.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrInvalidDocument indicates a mutation was refused because the
	// resulting document would not survive a reload.
	ErrInvalidDocument = storage.ErrInvalidDocument
	// ErrLockTimeout indicates a timeout acquiring the document file lock.
	ErrLockTimeout = storage.ErrLockTimeout
)

// IsRetryable reports whether an operation may succeed when retried.
// Validation, not-found and invalid-document errors are final.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrKidNotFound),
		errors.Is(err, ErrChannelNotFound), errors.Is(err, ErrApprovalNotFound),
		errors.Is(err, ErrQuotaExhausted), errors.Is(err, ErrInvalidDocument):
		return false
	}
	return retry.IsRetryable(err)
}
