package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "hr-backoffice/pkg/errors"
)

type Response[T any] struct {
	Status  bool                   `json:"status"`
	Message string                 `json:"message"`
	Body    T                      `json:"body,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type ListBody[T any] struct {
	List  []T `json:"list"`
	Total int `json:"total"`
}

func SuccessOne[T any](c echo.Context, code int, message string, data T) error {
	return c.JSON(code, Response[T]{
		Status:  true,
		Message: message,
		Body:    data,
	})
}

func SuccessList[T any](c echo.Context, message string, list []T) error {
	if list == nil {
		list = make([]T, 0)
	}
	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		Status:  true,
		Message: message,
		Body:    ListBody[T]{List: list, Total: len(list)},
	})
}

func ErrorResponse(c echo.Context, err error) error {
	httpErr := ToHttpError(err)
	return c.JSON(httpErr.Code, Response[any]{
		Status:  false,
		Message: httpErr.Message,
		Details: httpErr.Details,
	})
}

// ToHttpError maps error kinds to status codes. Unknown errors become a 500 without internals.
func ToHttpError(err error) *apperrors.HttpError {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return apperrors.NewHttpError(echoErr.Code, fmt.Sprint(echoErr.Message), err, nil)
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]interface{}, len(validationErrs))
		for _, fe := range validationErrs {
			details[fe.Field()] = fe.Tag()
		}
		return apperrors.NewHttpError(http.StatusBadRequest, "validation failed", err, details)
	}

	var details map[string]interface{}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		details = domainErr.Details
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.NewHttpError(http.StatusNotFound, err.Error(), err, details)
	case errors.Is(err, apperrors.ErrAlreadyExists), errors.Is(err, apperrors.ErrInUse):
		return apperrors.NewHttpError(http.StatusConflict, err.Error(), err, details)
	case errors.Is(err, apperrors.ErrHierarchy):
		return apperrors.NewHttpError(http.StatusUnprocessableEntity, err.Error(), err, details)
	case errors.Is(err, apperrors.ErrBadRequest):
		return apperrors.NewHttpError(http.StatusBadRequest, err.Error(), err, details)
	default:
		return apperrors.NewHttpError(http.StatusInternalServerError, "internal server error", err, nil)
	}
}
