package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors (no external dependencies besides decimal).
var (
	ErrNotFound             = errors.New("resource not found")
	ErrValidation           = errors.New("validation failed")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("access denied")
	ErrConflict             = errors.New("conflict with current state")
	ErrLocked               = errors.New("resource is locked")
	ErrBusy                 = errors.New("resource busy, retry later")
	ErrTimeout              = errors.New("operation timed out")

	ErrUnsupportedUnit   = fmt.Errorf("%w: unsupported unit", ErrUnsupportedOperation)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrPersistence       = fmt.Errorf("%w: persistence constraint violated", ErrConflict)
	ErrDuplicate         = fmt.Errorf("%w: duplicate resource", ErrConflict)
	ErrAlreadyReversed   = fmt.Errorf("%w: movement already reversed", ErrConflict)
	ErrNotLatestMovement = fmt.Errorf("%w: movement is not the latest for its product", ErrConflict)
)

// Error carries a human readable message on top of one of the sentinel kinds above.
// errors.Is(err, Kind) keeps working through it.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Validationf is shorthand for Errorf(ErrValidation, ...).
func Validationf(format string, args ...any) error {
	return Errorf(ErrValidation, format, args...)
}

// InsufficientStockError reports how much stock was available when a withdrawal was rejected.
type InsufficientStockError struct {
	ProductID int64
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %s, requested %s",
		e.ProductID, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
