package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorKinds(t *testing.T) {
	assert.ErrorIs(t, NewNotFoundError("department", 7), ErrNotFound)
	assert.ErrorIs(t, NewAlreadyExistsError("code", "ENG"), ErrAlreadyExists)
	assert.ErrorIs(t, NewInUseError(2, 0), ErrInUse)
	assert.ErrorIs(t, NewInvalidInputError("level must be >= 0"), ErrBadRequest)

	err := NewHierarchyError(ReasonCircular, "department %d cannot be moved under itself", 3)
	assert.ErrorIs(t, err, ErrHierarchy)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "department 3 cannot be moved under itself", err.Error())
}

func TestHierarchyReasonOf(t *testing.T) {
	wrapped := fmt.Errorf("move: %w", NewHierarchyError(ReasonHasChildren, "has children"))
	assert.Equal(t, ReasonHasChildren, HierarchyReasonOf(wrapped))
	assert.Equal(t, HierarchyReason(""), HierarchyReasonOf(NewNotFoundError("department", 1)))
	assert.Equal(t, HierarchyReason(""), HierarchyReasonOf(errors.New("boom")))
}

func TestHttpError(t *testing.T) {
	cause := errors.New("db down")
	httpErr := NewHttpError(500, "internal server error", cause, nil)
	assert.ErrorIs(t, httpErr, cause)
	assert.Equal(t, "internal server error: db down", httpErr.Error())
}
