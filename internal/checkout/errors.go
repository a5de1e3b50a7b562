package checkout

import "errors"

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to commit")
	ErrInvalidPayment      = errors.New("payment amount is not a valid non-negative number")
	ErrInsufficientPayment = errors.New("payment is less than total")
)

// PersistenceError carries an infrastructure failure out of the commit. The
// whole atomic unit rolled back, so re-invoking Commit with the same cart is
// safe and produces at most one transaction.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence failure: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
