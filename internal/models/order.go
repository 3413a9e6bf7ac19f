package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
)

// Order is the persisted record of a completed purchase. There is no payment
// gateway in this design, so an order is created directly in the confirmed
// state once inventory has been reserved.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID          string    `bun:"id,pk" json:"order_id"`
	Ref              string    `bun:"ref,notnull" json:"ref"`
	UserID           string    `bun:"user_id,notnull" json:"user_id"`
	EventID          string    `bun:"event_id,notnull" json:"event_id"`
	TotalAmountCents int64     `bun:"total_amount_cents,notnull" json:"total_amount_cents"`
	Status           string    `bun:"status,notnull" json:"status"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"created_at"`
}

// OrderItem captures one purchased line: the unit price is the catalog price
// at commit time and must not change when the catalog is later repriced.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID             string    `bun:"id,pk" json:"id"`
	OrderID        string    `bun:"order_id,notnull" json:"order_id"`
	TicketTypeID   string    `bun:"ticket_type_id,notnull" json:"ticket_type_id"`
	Quantity       int       `bun:"quantity,notnull" json:"quantity"`
	UnitPriceCents int64     `bun:"unit_price_cents,notnull" json:"unit_price_cents"`
	SubtotalCents  int64     `bun:"subtotal_cents,notnull" json:"subtotal_cents"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
}

// OrderWithDetails combines an order with its line items and the bookings
// created alongside them, for attendee-facing queries.
type OrderWithDetails struct {
	Order    Order       `json:"order"`
	Items    []OrderItem `json:"items"`
	Bookings []Booking   `json:"bookings"`
}
