package entities

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateIdentity     = errors.New("identity already registered")
	ErrIdentityNotFound      = errors.New("identity not found")
	ErrWrongIdentityKind     = errors.New("identity has the wrong kind for this operation")
	ErrInvalidTripParameters = errors.New("invalid trip parameters")
	ErrTripNotFound          = errors.New("trip not found")
	ErrDuplicateRequest      = errors.New("passenger already requested a seat on this trip")
	ErrTripFull              = errors.New("trip has no available seats")
	ErrTripClosed            = errors.New("trip is finished")
	ErrRequestNotFound       = errors.New("no pending request for this passenger")
	ErrNotInProgress         = errors.New("trip has no accepted passengers")
)

// ValidationError names the field that failed validation and the value that
// was received. Callers render their own message from these two parts.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}
