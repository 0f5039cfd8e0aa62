package access

import "errors"

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("resource conflict")
	ErrMigrationRequired = errors.New("migration required")
)

// ValidationError carries a human readable message that is returned to the
// caller verbatim. It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// MigrationError reports a relation that has not been created yet.
type MigrationError struct {
	Table     string
	Migration string
}

func (e *MigrationError) Error() string {
	return "table " + e.Table + " is missing: apply migration " + e.Migration + " (migration required)"
}

func (e *MigrationError) Is(target error) bool { return target == ErrMigrationRequired }
