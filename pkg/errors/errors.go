package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Domain errors wrap exactly one of them.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrHierarchy     = errors.New("hierarchy violation")
	ErrInUse         = errors.New("record is in use")
	ErrBadRequest    = errors.New("bad request")
)

type HierarchyReason string

const (
	ReasonCircular      HierarchyReason = "circular"
	ReasonParentInvalid HierarchyReason = "parent_invalid"
	ReasonHasChildren   HierarchyReason = "has_children"
	ReasonCorrupted     HierarchyReason = "corrupted"
)

// DomainError is a business rule violation detected by the hierarchy engine.
type DomainError struct {
	Kind    error
	Message string
	Reason  HierarchyReason
	Details map[string]interface{}
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Kind }

func NewNotFoundError(entity string, key interface{}) error {
	return &DomainError{
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("%s %v not found", entity, key),
		Details: map[string]interface{}{"entity": entity, "key": key},
	}
}

func NewAlreadyExistsError(field string, value string) error {
	return &DomainError{
		Kind:    ErrAlreadyExists,
		Message: fmt.Sprintf("department with %s %q already exists", field, value),
		Details: map[string]interface{}{"field": field, "value": value},
	}
}

func NewHierarchyError(reason HierarchyReason, format string, args ...interface{}) error {
	return &DomainError{
		Kind:    ErrHierarchy,
		Message: fmt.Sprintf(format, args...),
		Reason:  reason,
		Details: map[string]interface{}{"reason": string(reason)},
	}
}

func NewInUseError(employeeCount, positionCount int) error {
	return &DomainError{
		Kind: ErrInUse,
		Message: fmt.Sprintf("department is referenced by %d employee(s) and %d position(s)",
			employeeCount, positionCount),
		Details: map[string]interface{}{"employees": employeeCount, "positions": positionCount},
	}
}

// HierarchyReasonOf returns the reason of a hierarchy error, or "" for anything else.
func HierarchyReasonOf(err error) HierarchyReason {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Kind == ErrHierarchy {
		return domainErr.Reason
	}
	return ""
}

type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func (e *InvalidInputError) Unwrap() error { return ErrBadRequest }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// HttpError carries the status code the HTTP adapter should answer with.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}
