package booking

import (
	"errors"
	"fmt"

	"movemate/internal/catalog"
)

var (
	ErrRouteNotFound         = catalog.ErrRouteNotFound
	ErrRouteFull             = errors.New("route is full")
	ErrInvalidPassengerCount = errors.New("invalid passenger count")
	ErrPassengerLimit        = errors.New("all passenger slots are filled")
	ErrPassengersIncomplete  = errors.New("passenger details incomplete")
	ErrUserCancelled         = errors.New("booking cancelled by user")
	ErrPaymentNotAuthorized  = errors.New("payment not authorized")
	ErrInvalidState          = errors.New("invalid transaction state")
)

// PersistenceWarning reports a durable write that failed after seats were
// already reserved. The booking stands.
type PersistenceWarning struct {
	Sink string // "state", "ledger" or "events"
	Err  error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("%s write failed: %v", w.Sink, w.Err)
}

func (w *PersistenceWarning) Unwrap() error { return w.Err }

// InternalConsistencyError means seats validated at quote time could not be
// reserved at commit time. Callers must abort.
type InternalConsistencyError struct {
	RouteID int
	Seats   int
	Err     error
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency: reserve %d seats on route %d after payment: %v", e.Seats, e.RouteID, e.Err)
}

func (e *InternalConsistencyError) Unwrap() error { return e.Err }
