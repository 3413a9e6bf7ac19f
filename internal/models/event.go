package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Stored event status flags. "Sold Out" is only ever set by the booking
// transaction engine; "Cancelled" and "Completed" are only ever set manually
// by the event creator. The flag is a cache; callers must derive the
// bookable state through the status policy, never read the flag directly.
const (
	EventStatusOpen      = "Open"
	EventStatusSoldOut   = "Sold Out"
	EventStatusCancelled = "Cancelled"
	EventStatusCompleted = "Completed"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID         string    `bun:"id,pk" json:"id"`
	Name       string    `bun:"name,notnull" json:"name"`
	StartTime  time.Time `bun:"start_time,notnull" json:"start_time"`
	StatusFlag string    `bun:"status_flag,notnull" json:"status_flag"`
	CreatedBy  string    `bun:"created_by,notnull" json:"created_by"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at" json:"updated_at"`
}
