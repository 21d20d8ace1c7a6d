package core

import "errors"

var (
	// ErrValidation covers malformed input: bad tick alignment, non-positive
	// quantity or price, unknown side or kind, insufficient funds when the
	// negative-cash policy is off. Wrapped with a reason at each call site.
	ErrValidation = errors.New("validation failed")

	ErrNotFound       = errors.New("order not found")
	ErrNotOwner       = errors.New("order belongs to another account")
	ErrNotCancellable = errors.New("order is no longer cancellable")
	ErrNotAmendable   = errors.New("order cannot be amended")

	// ErrEngineHalted is returned by every mutating operation after an
	// internal invariant violation. Recovery requires a restart.
	ErrEngineHalted = errors.New("engine halted after invariant violation")
)
