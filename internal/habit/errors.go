package habit

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrDuplicatePeriod = errors.New("already checked in for this period")
	ErrValidation      = errors.New("validation failed")
	ErrDuplicateName   = errors.New("you already have a habit with this name")
)

// ValidationError describes rejected input. It matches ErrValidation under
// errors.Is.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError names the missing resource. It matches ErrNotFound under
// errors.Is.
type NotFoundError struct {
	Kind string
}

func (e *NotFoundError) Error() string { return e.Kind + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}
