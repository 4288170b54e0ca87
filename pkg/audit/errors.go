package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress is returned for a missing or malformed address.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInternal marks a fault in the aggregation itself, never an upstream failure.
	ErrInternal = errors.New("internal audit error")
)

// InternalError carries the panic value and stack of an internal fault.
type InternalError struct {
	Cause any
	Stack string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInternal, e.Cause)
}

func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}
