package models

// CartItem is one priced line of a cart proposal.
type CartItem struct {
	TicketTypeID   string `json:"ticket_type_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

// Cart is a session-local proposal to purchase specific quantities of
// specific ticket types. It is never written to SQL storage, it lives in
// Redis under the owning session until checkout or expiry. The availability
// it was priced against is a snapshot; the booking transaction re-validates
// everything at commit time.
type Cart struct {
	EventID          string     `json:"event_id"`
	Items            []CartItem `json:"items"`
	TotalAmountCents int64      `json:"total_amount_cents"`
}

// CheckoutResult is what a successful commit returns to the caller. SoldOut
// reports that this purchase took the event's last remaining tickets.
type CheckoutResult struct {
	OrderID          string   `json:"order_id"`
	OrderRef         string   `json:"order_ref"`
	BookingIDs       []string `json:"booking_ids"`
	TotalAmountCents int64    `json:"total_amount_cents"`
	SoldOut          bool     `json:"sold_out"`
}
