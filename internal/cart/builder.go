// Package cart validates a raw quantity submission against a ticket type
// snapshot and prices it into a Cart. Building a cart reserves nothing; the
// booking transaction engine re-validates inventory at commit time.
package cart

import (
	"ms-booking/internal/models"
)

// DefaultMaxPerType caps how many tickets of one type a single transaction
// may request.
const DefaultMaxPerType = 10

// Build turns requested quantities (keyed by ticket type ID) into a priced
// cart. Zero and negative quantities are dropped. Any entry over maxPerType
// or over the type's current availability rejects the whole submission, as
// does an unknown ticket type ID. An empty result is ErrEmptyCart.
func Build(eventID string, types []models.TicketType, requested map[string]int, maxPerType int) (*models.Cart, error) {
	if maxPerType <= 0 {
		maxPerType = DefaultMaxPerType
	}

	byID := make(map[string]models.TicketType, len(types))
	for _, tt := range types {
		byID[tt.ID] = tt
	}
	for typeID := range requested {
		if _, ok := byID[typeID]; !ok {
			return nil, &models.NotFoundError{Kind: "ticket type", ID: typeID}
		}
	}

	// Walk the snapshot, not the map, so line items keep a stable order.
	c := &models.Cart{EventID: eventID}
	for _, tt := range types {
		qty := requested[tt.ID]
		if qty <= 0 {
			continue
		}

		if qty > maxPerType {
			return nil, &models.LimitExceededError{
				TicketTypeID: tt.ID,
				Name:         tt.Name,
				Requested:    qty,
				Limit:        maxPerType,
			}
		}

		if qty > tt.QuantityAvailable {
			return nil, &models.InsufficientInventoryError{
				TicketTypeID: tt.ID,
				Name:         tt.Name,
				Requested:    qty,
				Available:    tt.QuantityAvailable,
			}
		}

		subtotal := tt.UnitPriceCents * int64(qty)
		c.Items = append(c.Items, models.CartItem{
			TicketTypeID:   tt.ID,
			Name:           tt.Name,
			UnitPriceCents: tt.UnitPriceCents,
			Quantity:       qty,
			SubtotalCents:  subtotal,
		})
		c.TotalAmountCents += subtotal
	}

	if len(c.Items) == 0 {
		return nil, models.ErrEmptyCart
	}

	return c, nil
}
