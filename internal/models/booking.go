package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusRefunded  = "refunded"
)

// Booking is the attendee-facing record of confirmed tickets. It parallels
// an OrderItem but is kept as its own ledger so attendee queries never have
// to walk the order graph.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	BookingID       string    `bun:"id,pk" json:"booking_id"`
	Ref             string    `bun:"ref,notnull" json:"ref"`
	UserID          string    `bun:"user_id,notnull" json:"user_id"`
	EventID         string    `bun:"event_id,notnull" json:"event_id"`
	OrderID         string    `bun:"order_id,nullzero" json:"order_id,omitempty"`
	TicketTypeID    string    `bun:"ticket_type_id,notnull" json:"ticket_type_id"`
	Quantity        int       `bun:"quantity,notnull" json:"quantity"`
	TotalPriceCents int64     `bun:"total_price_cents,notnull" json:"total_price_cents"`
	Status          string    `bun:"status,notnull" json:"status"`
	QRCode          []byte    `bun:"qr_code,nullzero" json:"-"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at" json:"updated_at"`
}
