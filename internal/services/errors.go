package services

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is; the HTTP layer maps each kind to a status code.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
)

// Error carries a user-facing message and unwraps to its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

var ErrBadCreds = newErr(ErrUnauthorized, "invalid email or password")

func insufficientStock(name string, available, requested int) error {
	return newErr(ErrInsufficientStock, "insufficient stock for product %q: available %d, requested %d",
		name, available, requested)
}
