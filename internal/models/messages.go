package models

import "time"

// Kafka payloads and SSE frames exchanged with the rest of the platform.

const (
	BookingEventConfirmed = "booking.confirmed"
	BookingEventCancelled = "booking.cancelled"
	EventSoldOutNotice    = "event.soldout"
)

// BookingEventMessage is published after a booking transaction commits or a
// cancellation restores inventory.
type BookingEventMessage struct {
	Type             string    `json:"type"`
	OrderID          string    `json:"order_id,omitempty"`
	EventID          string    `json:"event_id"`
	UserID           string    `json:"user_id"`
	BookingIDs       []string  `json:"booking_ids"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// TicketTypeAvailability is one tier's live counter in an availability frame.
type TicketTypeAvailability struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	QuantityAvailable int    `json:"quantity_available"`
}

// AvailabilityUpdate is streamed to SSE subscribers whenever an event's
// inventory changes.
type AvailabilityUpdate struct {
	EventID     string                   `json:"event_id"`
	Status      string                   `json:"status"`
	Remaining   int                      `json:"remaining"`
	TicketTypes []TicketTypeAvailability `json:"ticket_types,omitempty"`
}
