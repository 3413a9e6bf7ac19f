// Package status derives an event's effective, bookable state from its
// stored flag, its start time and its live inventory. The stored flag is
// only trusted for the manual terminal states (Cancelled/Completed); the
// machine-set "Sold Out" flag is a cache and is recomputed here so a
// cancellation that restores inventory reopens the event even if the cached
// flag is stale.
package status

import (
	"time"

	"ms-booking/internal/models"
)

type Status string

const (
	Open      Status = "Open"
	SoldOut   Status = "Sold Out"
	Cancelled Status = "Cancelled"
	Completed Status = "Completed"
	Inactive  Status = "Inactive"
)

// Effective computes the event's bookable state. Precedence, first match
// wins: manual Cancelled, manual Completed, start time in the past
// (Inactive), zero remaining inventory (Sold Out), otherwise Open.
func Effective(statusFlag string, startTime time.Time, remaining int, now time.Time) Status {
	switch statusFlag {
	case models.EventStatusCancelled:
		return Cancelled
	case models.EventStatusCompleted:
		return Completed
	}

	if startTime.Before(now) {
		return Inactive
	}

	if remaining <= 0 {
		return SoldOut
	}

	return Open
}

// Bookable reports whether tickets may be purchased in this state.
func Bookable(s Status) bool {
	return s == Open
}
