package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TicketType is a priced admission tier with its own inventory counter.
// QuantityAvailable is never negative and is mutated only inside committed
// booking transactions or an authorized capacity adjustment.
type TicketType struct {
	bun.BaseModel `bun:"table:ticket_types"`

	ID                string    `bun:"id,pk" json:"id"`
	EventID           string    `bun:"event_id,notnull" json:"event_id"`
	Name              string    `bun:"name,notnull" json:"name"`
	UnitPriceCents    int64     `bun:"unit_price_cents,notnull" json:"unit_price_cents"`
	QuantityAvailable int       `bun:"quantity_available,notnull" json:"quantity_available"`
	TotalCapacity     int       `bun:"total_capacity,notnull" json:"total_capacity"`
	CreatedAt         time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at" json:"updated_at"`
}

// Sold returns how many tickets of this type have been sold and not restored.
func (t TicketType) Sold() int {
	return t.TotalCapacity - t.QuantityAvailable
}
