package db_test

import (
	"context"
	"database/sql"
	"ms-booking/internal/booking/db"
	"ms-booking/internal/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	// Create a Bun DB instance
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	// Create required tables
	for _, model := range []interface{}{
		(*models.Event)(nil),
		(*models.TicketType)(nil),
		(*models.Order)(nil),
		(*models.OrderItem)(nil),
		(*models.Booking)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(context.Background())
		if err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func seedEvent(t *testing.T, bunDB *bun.DB, statusFlag string, startTime time.Time) models.Event {
	event := models.Event{
		ID:         uuid.New().String(),
		Name:       "Go Conference",
		StartTime:  startTime,
		StatusFlag: statusFlag,
		CreatedBy:  "organizer1",
		CreatedAt:  time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&event).Exec(context.Background())
	require.NoError(t, err)
	return event
}

func seedTicketType(t *testing.T, bunDB *bun.DB, eventID, name string, priceCents int64, available, capacity int) models.TicketType {
	tt := models.TicketType{
		ID:                uuid.New().String(),
		EventID:           eventID,
		Name:              name,
		UnitPriceCents:    priceCents,
		QuantityAvailable: available,
		TotalCapacity:     capacity,
		CreatedAt:         time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&tt).Exec(context.Background())
	require.NoError(t, err)
	return tt
}

func cartFor(eventID string, items ...models.CartItem) *models.Cart {
	c := &models.Cart{EventID: eventID, Items: items}
	for _, item := range items {
		c.TotalAmountCents += item.SubtotalCents
	}
	return c
}

func availableOf(t *testing.T, bunDB *bun.DB, ticketTypeID string) int {
	var tt models.TicketType
	err := bunDB.NewSelect().
		Model(&tt).
		Where("id = ?", ticketTypeID).
		Limit(1).
		Scan(context.Background())
	require.NoError(t, err)
	return tt.QuantityAvailable
}

func eventFlag(t *testing.T, bunDB *bun.DB, eventID string) string {
	var event models.Event
	err := bunDB.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Limit(1).
		Scan(context.Background())
	require.NoError(t, err)
	return event.StatusFlag
}

func TestCommitBookingCreatesOrderItemsAndBookings(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	general := seedTicketType(t, bunDB, event.ID, "General", 2500, 100, 100)
	vip := seedTicketType(t, bunDB, event.ID, "VIP", 5000, 10, 10)

	cart := cartFor(event.ID,
		models.CartItem{TicketTypeID: general.ID, Name: "General", UnitPriceCents: 2500, Quantity: 2, SubtotalCents: 5000},
		models.CartItem{TicketTypeID: vip.ID, Name: "VIP", UnitPriceCents: 5000, Quantity: 1, SubtotalCents: 5000},
	)

	result, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.OrderID)
	assert.Contains(t, result.OrderRef, "ord_")
	assert.Equal(t, 2, len(result.BookingIDs))
	assert.Equal(t, int64(10000), result.TotalAmountCents)

	// Inventory decremented
	assert.Equal(t, 98, availableOf(t, bunDB, general.ID))
	assert.Equal(t, 9, availableOf(t, bunDB, vip.ID))

	// Order persisted in confirmed state
	details, err := bookingDB.GetOrderWithDetails(context.Background(), result.OrderID, "user1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, details.Order.Status)
	assert.Equal(t, int64(10000), details.Order.TotalAmountCents)
	assert.Equal(t, 2, len(details.Items))
	assert.Equal(t, 2, len(details.Bookings))
	for _, b := range details.Bookings {
		assert.Equal(t, models.BookingStatusConfirmed, b.Status)
		assert.Equal(t, "user1", b.UserID)
	}
}

func TestCommitBookingInsufficientInventoryRollsBackEverything(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	general := seedTicketType(t, bunDB, event.ID, "General", 2500, 100, 100)
	vip := seedTicketType(t, bunDB, event.ID, "VIP", 5000, 2, 10)

	// VIP line exceeds the 2 remaining, so the whole commit must fail
	cart := cartFor(event.ID,
		models.CartItem{TicketTypeID: general.ID, Name: "General", UnitPriceCents: 2500, Quantity: 3, SubtotalCents: 7500},
		models.CartItem{TicketTypeID: vip.ID, Name: "VIP", UnitPriceCents: 5000, Quantity: 3, SubtotalCents: 15000},
	)

	result, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	assert.Nil(t, result)
	require.Error(t, err)

	var insufficient *models.InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, vip.ID, insufficient.TicketTypeID)
	assert.Equal(t, 3, insufficient.Requested)
	assert.Equal(t, 2, insufficient.Available)

	// The general decrement that succeeded first must have been rolled back
	assert.Equal(t, 100, availableOf(t, bunDB, general.ID))
	assert.Equal(t, 2, availableOf(t, bunDB, vip.ID))

	// No partial order rows
	count, err := bunDB.NewSelect().Model((*models.Order)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCommitBookingStaleCartLosesToFirstCommit(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	vip := seedTicketType(t, bunDB, event.ID, "VIP", 5000, 1, 10)

	// Two carts were both built while the last VIP ticket was available
	cartA := cartFor(event.ID, models.CartItem{TicketTypeID: vip.ID, Name: "VIP", UnitPriceCents: 5000, Quantity: 1, SubtotalCents: 5000})
	cartB := cartFor(event.ID, models.CartItem{TicketTypeID: vip.ID, Name: "VIP", UnitPriceCents: 5000, Quantity: 1, SubtotalCents: 5000})

	_, err := bookingDB.CommitBooking(context.Background(), cartA, "userA")
	require.NoError(t, err)

	// The second commit re-validates against live inventory and must fail
	result, err := bookingDB.CommitBooking(context.Background(), cartB, "userB")
	assert.Nil(t, result)

	var insufficient *models.InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Available)

	assert.Equal(t, 0, availableOf(t, bunDB, vip.ID))
}

func TestCommitBookingSetsSoldOutFlag(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	vip := seedTicketType(t, bunDB, event.ID, "VIP", 5000, 2, 10)

	cart := cartFor(event.ID, models.CartItem{TicketTypeID: vip.ID, Name: "VIP", UnitPriceCents: 5000, Quantity: 2, SubtotalCents: 10000})

	result, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.NoError(t, err)

	assert.True(t, result.SoldOut)
	assert.Equal(t, models.EventStatusSoldOut, eventFlag(t, bunDB, event.ID))
}

func TestCommitBookingRejectsNonOpenEvent(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	tests := []struct {
		name      string
		flag      string
		startTime time.Time
	}{
		{"cancelled event", models.EventStatusCancelled, time.Now().Add(72 * time.Hour)},
		{"completed event", models.EventStatusCompleted, time.Now().Add(72 * time.Hour)},
		{"event already started", models.EventStatusOpen, time.Now().Add(-time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := seedEvent(t, bunDB, tt.flag, tt.startTime)
			tier := seedTicketType(t, bunDB, event.ID, "General", 2500, 50, 50)

			cart := cartFor(event.ID, models.CartItem{TicketTypeID: tier.ID, Name: "General", UnitPriceCents: 2500, Quantity: 1, SubtotalCents: 2500})

			_, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
			require.Error(t, err)

			var notOpen *models.EventNotOpenError
			assert.ErrorAs(t, err, &notOpen)

			// Nothing was reserved
			assert.Equal(t, 50, availableOf(t, bunDB, tier.ID))
		})
	}
}

func TestCommitBookingEmptyCart(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := bookingDB.CommitBooking(context.Background(), &models.Cart{EventID: "evt1"}, "user1")
	assert.ErrorIs(t, err, models.ErrEmptyCart)

	_, err = bookingDB.CommitBooking(context.Background(), nil, "user1")
	assert.ErrorIs(t, err, models.ErrEmptyCart)
}

func TestCommitBookingUnknownEvent(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	cart := cartFor("missing", models.CartItem{TicketTypeID: "tt1", Name: "General", UnitPriceCents: 2500, Quantity: 1, SubtotalCents: 2500})

	_, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.Error(t, err)

	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "event", notFound.Kind)
}

func TestCommitBookingCapturesLivePrice(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	tier := seedTicketType(t, bunDB, event.ID, "General", 2500, 50, 50)

	// The cart was priced at 25.00 but the catalog has since repriced to 30.00
	cart := cartFor(event.ID, models.CartItem{TicketTypeID: tier.ID, Name: "General", UnitPriceCents: 2500, Quantity: 2, SubtotalCents: 5000})

	_, err := bunDB.NewUpdate().
		Model((*models.TicketType)(nil)).
		Set("unit_price_cents = ?", 3000).
		Where("id = ?", tier.ID).
		Exec(context.Background())
	require.NoError(t, err)

	result, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), result.TotalAmountCents)

	details, err := bookingDB.GetOrderWithDetails(context.Background(), result.OrderID, "user1")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), details.Items[0].UnitPriceCents)
}

func TestCancelBookingRestoresInventoryAndReopensEvent(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	vip := seedTicketType(t, bunDB, event.ID, "VIP", 5000, 2, 10)

	cart := cartFor(event.ID, models.CartItem{TicketTypeID: vip.ID, Name: "VIP", UnitPriceCents: 5000, Quantity: 2, SubtotalCents: 10000})

	result, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.NoError(t, err)
	require.Equal(t, models.EventStatusSoldOut, eventFlag(t, bunDB, event.ID))

	err = bookingDB.CancelBooking(context.Background(), result.BookingIDs[0], "user1")
	require.NoError(t, err)

	// Inventory restored and the sold-out flag cleared
	assert.Equal(t, 2, availableOf(t, bunDB, vip.ID))
	assert.Equal(t, models.EventStatusOpen, eventFlag(t, bunDB, event.ID))

	booking, err := bookingDB.GetBooking(context.Background(), result.BookingIDs[0], "user1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, booking.Status)
}

func TestCancelBookingTwiceFails(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	tier := seedTicketType(t, bunDB, event.ID, "General", 2500, 50, 50)

	cart := cartFor(event.ID, models.CartItem{TicketTypeID: tier.ID, Name: "General", UnitPriceCents: 2500, Quantity: 1, SubtotalCents: 2500})
	result, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.NoError(t, err)

	require.NoError(t, bookingDB.CancelBooking(context.Background(), result.BookingIDs[0], "user1"))

	err = bookingDB.CancelBooking(context.Background(), result.BookingIDs[0], "user1")
	assert.ErrorIs(t, err, models.ErrBookingNotActive)

	// Inventory restored exactly once
	assert.Equal(t, 50, availableOf(t, bunDB, tier.ID))
}

func TestCancelBookingOwnershipScoped(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	tier := seedTicketType(t, bunDB, event.ID, "General", 2500, 50, 50)

	cart := cartFor(event.ID, models.CartItem{TicketTypeID: tier.ID, Name: "General", UnitPriceCents: 2500, Quantity: 1, SubtotalCents: 2500})
	result, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.NoError(t, err)

	// Another user's cancel attempt reads as not found, not as forbidden
	err = bookingDB.CancelBooking(context.Background(), result.BookingIDs[0], "user2")
	require.Error(t, err)

	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCancelOrderCancelsAllBookings(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	general := seedTicketType(t, bunDB, event.ID, "General", 2500, 100, 100)
	vip := seedTicketType(t, bunDB, event.ID, "VIP", 5000, 10, 10)

	cart := cartFor(event.ID,
		models.CartItem{TicketTypeID: general.ID, Name: "General", UnitPriceCents: 2500, Quantity: 2, SubtotalCents: 5000},
		models.CartItem{TicketTypeID: vip.ID, Name: "VIP", UnitPriceCents: 5000, Quantity: 1, SubtotalCents: 5000},
	)
	result, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.NoError(t, err)

	require.NoError(t, bookingDB.CancelOrder(context.Background(), result.OrderID, "user1"))

	assert.Equal(t, 100, availableOf(t, bunDB, general.ID))
	assert.Equal(t, 10, availableOf(t, bunDB, vip.ID))

	details, err := bookingDB.GetOrderWithDetails(context.Background(), result.OrderID, "user1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, details.Order.Status)
	for _, b := range details.Bookings {
		assert.Equal(t, models.BookingStatusCancelled, b.Status)
	}

	// A cancelled order cannot be cancelled again
	err = bookingDB.CancelOrder(context.Background(), result.OrderID, "user1")
	assert.ErrorIs(t, err, models.ErrBookingNotActive)
}

func TestCancelOrderSkipsAlreadyCancelledBookings(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	general := seedTicketType(t, bunDB, event.ID, "General", 2500, 100, 100)
	vip := seedTicketType(t, bunDB, event.ID, "VIP", 5000, 10, 10)

	cart := cartFor(event.ID,
		models.CartItem{TicketTypeID: general.ID, Name: "General", UnitPriceCents: 2500, Quantity: 2, SubtotalCents: 5000},
		models.CartItem{TicketTypeID: vip.ID, Name: "VIP", UnitPriceCents: 5000, Quantity: 1, SubtotalCents: 5000},
	)
	result, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.NoError(t, err)

	// Cancel one booking first, then the whole order
	require.NoError(t, bookingDB.CancelBooking(context.Background(), result.BookingIDs[0], "user1"))
	require.NoError(t, bookingDB.CancelOrder(context.Background(), result.OrderID, "user1"))

	// Inventory must not be restored twice for the pre-cancelled booking
	assert.Equal(t, 100, availableOf(t, bunDB, general.ID))
	assert.Equal(t, 10, availableOf(t, bunDB, vip.ID))
}

func TestListBookingsByUser(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	tier := seedTicketType(t, bunDB, event.ID, "General", 2500, 50, 50)

	cart := cartFor(event.ID, models.CartItem{TicketTypeID: tier.ID, Name: "General", UnitPriceCents: 2500, Quantity: 1, SubtotalCents: 2500})
	_, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.NoError(t, err)

	bookings, err := bookingDB.ListBookingsByUser(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, 1, len(bookings))

	bookings, err = bookingDB.ListBookingsByUser(context.Background(), "user2")
	require.NoError(t, err)
	assert.Equal(t, 0, len(bookings))
}

func TestAttachQRCode(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	event := seedEvent(t, bunDB, models.EventStatusOpen, time.Now().Add(72*time.Hour))
	tier := seedTicketType(t, bunDB, event.ID, "General", 2500, 50, 50)

	cart := cartFor(event.ID, models.CartItem{TicketTypeID: tier.ID, Name: "General", UnitPriceCents: 2500, Quantity: 1, SubtotalCents: 2500})
	result, err := bookingDB.CommitBooking(context.Background(), cart, "user1")
	require.NoError(t, err)

	err = bookingDB.AttachQRCode(context.Background(), result.BookingIDs[0], []byte("png-bytes"))
	require.NoError(t, err)

	booking, err := bookingDB.GetBooking(context.Background(), result.BookingIDs[0], "user1")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), booking.QRCode)
}
