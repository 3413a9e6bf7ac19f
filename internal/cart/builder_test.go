package cart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ms-booking/internal/cart"
	"ms-booking/internal/models"
)

func snapshot() []models.TicketType {
	return []models.TicketType{
		{ID: "tt-general", EventID: "evt1", Name: "General", UnitPriceCents: 2500, QuantityAvailable: 100, TotalCapacity: 100},
		{ID: "tt-vip", EventID: "evt1", Name: "VIP", UnitPriceCents: 5000, QuantityAvailable: 3, TotalCapacity: 10},
		{ID: "tt-early", EventID: "evt1", Name: "Early Bird", UnitPriceCents: 1500, QuantityAvailable: 0, TotalCapacity: 50},
	}
}

func TestBuildPricesCartInCents(t *testing.T) {
	c, err := cart.Build("evt1", snapshot(), map[string]int{
		"tt-general": 2,
		"tt-vip":     1,
	}, cart.DefaultMaxPerType)
	assert.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "evt1", c.EventID)
	assert.Equal(t, 2, len(c.Items))

	// 2 x 25.00 + 1 x 50.00 = 100.00
	assert.Equal(t, int64(10000), c.TotalAmountCents)
	assert.Equal(t, int64(5000), c.Items[0].SubtotalCents)
	assert.Equal(t, int64(5000), c.Items[1].SubtotalCents)
}

func TestBuildDropsZeroAndNegativeQuantities(t *testing.T) {
	c, err := cart.Build("evt1", snapshot(), map[string]int{
		"tt-general": 1,
		"tt-vip":     0,
		"tt-early":   -3,
	}, cart.DefaultMaxPerType)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(c.Items))
	assert.Equal(t, "tt-general", c.Items[0].TicketTypeID)
}

func TestBuildEmptyCart(t *testing.T) {
	_, err := cart.Build("evt1", snapshot(), map[string]int{"tt-general": 0}, cart.DefaultMaxPerType)
	assert.ErrorIs(t, err, models.ErrEmptyCart)

	_, err = cart.Build("evt1", snapshot(), map[string]int{}, cart.DefaultMaxPerType)
	assert.ErrorIs(t, err, models.ErrEmptyCart)
}

func TestBuildRejectsOverPerTypeLimit(t *testing.T) {
	_, err := cart.Build("evt1", snapshot(), map[string]int{
		"tt-general": 11,
		"tt-vip":     1,
	}, cart.DefaultMaxPerType)
	assert.Error(t, err)

	var limit *models.LimitExceededError
	assert.ErrorAs(t, err, &limit)
	assert.Equal(t, "tt-general", limit.TicketTypeID)
	assert.Equal(t, 11, limit.Requested)
	assert.Equal(t, 10, limit.Limit)
}

func TestBuildRejectsOverAvailability(t *testing.T) {
	_, err := cart.Build("evt1", snapshot(), map[string]int{"tt-vip": 4}, cart.DefaultMaxPerType)
	assert.Error(t, err)

	var insufficient *models.InsufficientInventoryError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "tt-vip", insufficient.TicketTypeID)
	assert.Equal(t, 4, insufficient.Requested)
	assert.Equal(t, 3, insufficient.Available)
}

func TestBuildRejectsUnknownTicketType(t *testing.T) {
	_, err := cart.Build("evt1", snapshot(), map[string]int{"tt-ghost": 1}, cart.DefaultMaxPerType)
	assert.Error(t, err)

	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ticket type", notFound.Kind)
	assert.Equal(t, "tt-ghost", notFound.ID)
}

func TestBuildRequestAtExactAvailability(t *testing.T) {
	c, err := cart.Build("evt1", snapshot(), map[string]int{"tt-vip": 3}, cart.DefaultMaxPerType)
	assert.NoError(t, err)
	assert.Equal(t, int64(15000), c.TotalAmountCents)
}
