package chaterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistErrorKinds(t *testing.T) {
	quota := fmt.Errorf("bolt: %w", ErrStorageQuotaExceeded)
	err := NewPersistError("save", "", quota)

	assert.ErrorIs(t, err, ErrStorageQuotaExceeded)
	assert.NotErrorIs(t, err, ErrPersistWriteFailed)
	assert.Contains(t, err.Error(), "persist error: save")

	io := errors.New("connection reset")
	err = NewPersistError("update", "s1", io)
	assert.ErrorIs(t, err, ErrPersistWriteFailed)
	assert.ErrorIs(t, err, io)
	assert.Contains(t, err.Error(), "update s1")

	var pe *PersistError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &pe))
	assert.Equal(t, "s1", pe.SessionID)
}

func TestGenerationError(t *testing.T) {
	cause := errors.New("deadline")
	err := &GenerationError{Stage: "reply", Err: cause}

	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "generation error [reply]: deadline", err.Error())
}

func TestValidation(t *testing.T) {
	err := Validation("name is empty")
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, "validation failed: name is empty", err.Error())
}
