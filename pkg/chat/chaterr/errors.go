package chaterr

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNotFound             = errors.New("not found")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	ErrPersistWriteFailed   = errors.New("persist write failed")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrValidationFailed     = errors.New("validation failed")
)

// PersistError reports a failed persistence write. Kind is one of
// ErrStorageQuotaExceeded or ErrPersistWriteFailed so callers can match with
// errors.Is, and Err keeps the backend's own error.
type PersistError struct {
	Op        string // "save", "create", "update", "remove"
	SessionID string
	Kind      error
	Err       error
}

func (e *PersistError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("persist error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persist error: %s %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *PersistError) Unwrap() []error {
	kind := e.Kind
	if kind == nil {
		kind = ErrPersistWriteFailed
	}
	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}

// NewPersistError classifies err. Errors already wrapping
// ErrStorageQuotaExceeded keep that kind; everything else is a write failure.
func NewPersistError(op, sessionID string, err error) *PersistError {
	kind := ErrPersistWriteFailed
	if errors.Is(err, ErrStorageQuotaExceeded) {
		kind = ErrStorageQuotaExceeded
	}
	return &PersistError{Op: op, SessionID: sessionID, Kind: kind, Err: err}
}

// GenerationError wraps a failure of the reply or image analysis capability.
type GenerationError struct {
	Stage string // "analyze", "reply"
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation error [%s]: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Err}
}

// Validation returns an error matching ErrValidationFailed with a reason.
func Validation(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, reason)
}
