package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrForbidden       = errors.New("forbidden")
	ErrDuplicateEmail  = errors.New("duplicate email")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrReference       = errors.New("invalid reference")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// DuplicateEmail reports a registration for an email that is already taken.
func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrDuplicateEmail,
		Message: fmt.Sprintf("user with email %s already exists", email),
		Field:   "email",
	}
}

// Unauthenticated is returned when an operation needs a logged-in user, or
// when submitted credentials do not identify one.
func Unauthenticated(field, message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
		Field:   field,
	}
}

// Reference reports a foreign key that points at a row which does not exist.
func Reference(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrReference,
		Message: fmt.Sprintf("referenced %s %v does not exist", resource, id),
	}
}
