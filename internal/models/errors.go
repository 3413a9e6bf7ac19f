package models

import (
	"errors"
	"fmt"
)

// ErrEmptyCart is returned when a submission yields no purchasable line
// items. A purchase must contain at least one ticket.
var ErrEmptyCart = errors.New("cart must contain at least one ticket")

// ErrBookingNotActive is returned when cancelling a booking or order that is
// not in the confirmed state.
var ErrBookingNotActive = errors.New("booking is not in confirmed state")

// NotFoundError indicates a stale reference: the event, ticket type, cart or
// order no longer exists. Fatal to the attempt, not to the process.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// LimitExceededError rejects a whole cart submission because one entry asked
// for more than the per-type-per-transaction cap.
type LimitExceededError struct {
	TicketTypeID string
	Name         string
	Requested    int
	Limit        int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("requested %d of ticket type %q exceeds the per-order limit of %d",
		e.Requested, e.Name, e.Limit)
}

// InsufficientInventoryError reports how many tickets are actually left so
// the caller can offer to adjust. Retryable: the caller may re-quote and
// resubmit.
type InsufficientInventoryError struct {
	TicketTypeID string
	Name         string
	Requested    int
	Available    int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("only %d of ticket type %q available (requested %d)",
		e.Available, e.Name, e.Requested)
}

// EventNotOpenError refuses booking against an event whose effective status
// is anything other than Open.
type EventNotOpenError struct {
	EventID string
	Status  string
}

func (e *EventNotOpenError) Error() string {
	return fmt.Sprintf("event %s is not open for booking (status: %s)", e.EventID, e.Status)
}

// CapacityBelowSoldError rejects a capacity adjustment that would shrink a
// ticket type below the number of tickets already sold.
type CapacityBelowSoldError struct {
	TicketTypeID string
	Sold         int
	Requested    int
}

func (e *CapacityBelowSoldError) Error() string {
	return fmt.Sprintf("capacity %d for ticket type %s is below the %d tickets already sold",
		e.Requested, e.TicketTypeID, e.Sold)
}

// PersistenceError wraps a storage-layer failure (lock timeout,
// connectivity). The transaction is guaranteed rolled back; the caller may
// retry at its discretion.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
