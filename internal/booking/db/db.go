// Package db is the booking transaction engine. Every mutation of inventory
// happens inside a single database transaction here: either every requested
// ticket is reserved and the order, line items and bookings are written, or
// nothing is. Oversell is prevented with conditional decrements, so two
// concurrent commits against the last ticket cannot both succeed.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-booking/internal/models"
	"ms-booking/internal/status"
	"ms-booking/internal/utils"
)

type DB struct {
	Bun *bun.DB
}

// wrapPersistence keeps domain errors intact and wraps everything else as a
// storage failure.
func wrapPersistence(op string, err error) error {
	var (
		notFound     *models.NotFoundError
		insufficient *models.InsufficientInventoryError
		notOpen      *models.EventNotOpenError
	)
	if errors.As(err, &notFound) || errors.As(err, &insufficient) || errors.As(err, &notOpen) ||
		errors.Is(err, models.ErrEmptyCart) || errors.Is(err, models.ErrBookingNotActive) {
		return err
	}
	return &models.PersistenceError{Op: op, Err: err}
}

// CommitBooking atomically converts a cart into a confirmed order. Inside one
// transaction it re-checks the event's bookable state, conditionally
// decrements each ticket type's inventory, and writes the order, its line
// items and the per-type bookings. Any failed decrement aborts the whole
// transaction with an inventory error carrying the live availability.
func (d *DB) CommitBooking(ctx context.Context, cart *models.Cart, userID string) (*models.CheckoutResult, error) {
	if cart == nil || len(cart.Items) == 0 {
		return nil, models.ErrEmptyCart
	}

	var result *models.CheckoutResult
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var event models.Event
		err := tx.NewSelect().
			Model(&event).
			Where("id = ?", cart.EventID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &models.NotFoundError{Kind: "event", ID: cart.EventID}
		}
		if err != nil {
			return err
		}

		// The cart was priced against a snapshot; the status guard runs on
		// live data. Remaining inventory does not matter here because the
		// decrements below enforce it per type.
		effective := status.Effective(event.StatusFlag, event.StartTime, 1, time.Now())
		if !status.Bookable(effective) {
			return &models.EventNotOpenError{EventID: event.ID, Status: string(effective)}
		}

		now := time.Now()
		order := models.Order{
			OrderID:   uuid.New().String(),
			Ref:       utils.GenerateOrderRef(),
			UserID:    userID,
			EventID:   cart.EventID,
			Status:    models.OrderStatusConfirmed,
			CreatedAt: now,
		}

		var (
			items      []models.OrderItem
			bookings   []models.Booking
			bookingIDs []string
		)
		for _, item := range cart.Items {
			if err := d.reserveInventory(ctx, tx, cart.EventID, item.TicketTypeID, item.Quantity); err != nil {
				return err
			}

			// Reprice from the live row so a catalog change between cart
			// build and checkout is reflected in what gets charged.
			var tt models.TicketType
			err := tx.NewSelect().
				Model(&tt).
				Where("id = ?", item.TicketTypeID).
				Limit(1).
				Scan(ctx)
			if err != nil {
				return err
			}

			subtotal := tt.UnitPriceCents * int64(item.Quantity)
			order.TotalAmountCents += subtotal

			items = append(items, models.OrderItem{
				ID:             uuid.New().String(),
				OrderID:        order.OrderID,
				TicketTypeID:   tt.ID,
				Quantity:       item.Quantity,
				UnitPriceCents: tt.UnitPriceCents,
				SubtotalCents:  subtotal,
				CreatedAt:      now,
			})

			booking := models.Booking{
				BookingID:       uuid.New().String(),
				Ref:             utils.GenerateBookingRef(),
				UserID:          userID,
				EventID:         cart.EventID,
				OrderID:         order.OrderID,
				TicketTypeID:    tt.ID,
				Quantity:        item.Quantity,
				TotalPriceCents: subtotal,
				Status:          models.BookingStatusConfirmed,
				CreatedAt:       now,
			}
			bookings = append(bookings, booking)
			bookingIDs = append(bookingIDs, booking.BookingID)
		}

		if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&bookings).Exec(ctx); err != nil {
			return err
		}

		soldOut, err := d.refreshSoldOutFlag(ctx, tx, &event)
		if err != nil {
			return err
		}

		result = &models.CheckoutResult{
			OrderID:          order.OrderID,
			OrderRef:         order.Ref,
			BookingIDs:       bookingIDs,
			TotalAmountCents: order.TotalAmountCents,
			SoldOut:          soldOut,
		}
		return nil
	})
	if err != nil {
		return nil, wrapPersistence("commit booking", err)
	}
	return result, nil
}

// reserveInventory performs the conditional decrement that makes oversell
// impossible: the UPDATE only matches while enough inventory remains, so of
// two racing commits for the last tickets exactly one sees a matched row.
func (d *DB) reserveInventory(ctx context.Context, tx bun.Tx, eventID, ticketTypeID string, qty int) error {
	res, err := tx.NewUpdate().
		Model((*models.TicketType)(nil)).
		Set("quantity_available = quantity_available - ?", qty).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", ticketTypeID).
		Where("event_id = ?", eventID).
		Where("quantity_available >= ?", qty).
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// The decrement matched nothing: either the type is gone or inventory
	// ran short. Re-read inside the transaction to tell the caller which.
	var tt models.TicketType
	err = tx.NewSelect().
		Model(&tt).
		Where("id = ?", ticketTypeID).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.NotFoundError{Kind: "ticket type", ID: ticketTypeID}
	}
	if err != nil {
		return err
	}
	return &models.InsufficientInventoryError{
		TicketTypeID: tt.ID,
		Name:         tt.Name,
		Requested:    qty,
		Available:    tt.QuantityAvailable,
	}
}

// refreshSoldOutFlag maintains the cached "Sold Out" flag after an inventory
// change and reports whether the event is now sold out. Only the Open/Sold
// Out pair is ever touched; manual terminal states stay as set.
func (d *DB) refreshSoldOutFlag(ctx context.Context, tx bun.Tx, event *models.Event) (bool, error) {
	if event.StatusFlag != models.EventStatusOpen && event.StatusFlag != models.EventStatusSoldOut {
		return false, nil
	}

	var remaining int
	err := tx.NewSelect().
		Model((*models.TicketType)(nil)).
		ColumnExpr("COALESCE(SUM(quantity_available), 0)").
		Where("event_id = ?", event.ID).
		Scan(ctx, &remaining)
	if err != nil {
		return false, err
	}

	want := models.EventStatusOpen
	if remaining <= 0 {
		want = models.EventStatusSoldOut
	}
	if want == event.StatusFlag {
		return want == models.EventStatusSoldOut, nil
	}

	_, err = tx.NewUpdate().
		Model((*models.Event)(nil)).
		Set("status_flag = ?", want).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", event.ID).
		Exec(ctx)
	return want == models.EventStatusSoldOut, err
}

// CancelBooking cancels one confirmed booking owned by userID and restores
// its quantity to the ticket type. A booking that is already cancelled is
// rejected; a booking owned by someone else reads as not found.
func (d *DB) CancelBooking(ctx context.Context, bookingID, userID string) error {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var booking models.Booking
		err := tx.NewSelect().
			Model(&booking).
			Where("id = ?", bookingID).
			Where("user_id = ?", userID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &models.NotFoundError{Kind: "booking", ID: bookingID}
		}
		if err != nil {
			return err
		}

		return d.cancelBookingInTx(ctx, tx, &booking)
	})
	if err != nil {
		return wrapPersistence("cancel booking", err)
	}
	return nil
}

// CancelOrder cancels every remaining confirmed booking of the order and
// marks the order cancelled.
func (d *DB) CancelOrder(ctx context.Context, orderID, userID string) error {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var order models.Order
		err := tx.NewSelect().
			Model(&order).
			Where("id = ?", orderID).
			Where("user_id = ?", userID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &models.NotFoundError{Kind: "order", ID: orderID}
		}
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusConfirmed {
			return models.ErrBookingNotActive
		}

		var bookings []models.Booking
		err = tx.NewSelect().
			Model(&bookings).
			Where("order_id = ?", orderID).
			Where("status = ?", models.BookingStatusConfirmed).
			Scan(ctx)
		if err != nil {
			return err
		}

		for i := range bookings {
			if err := d.cancelBookingInTx(ctx, tx, &bookings[i]); err != nil {
				return err
			}
		}

		_, err = tx.NewUpdate().
			Model((*models.Order)(nil)).
			Set("status = ?", models.OrderStatusCancelled).
			Where("id = ?", orderID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return wrapPersistence("cancel order", err)
	}
	return nil
}

// cancelBookingInTx flips one booking to cancelled, restores its inventory
// and reopens the event if the restoration cleared a sold-out state.
func (d *DB) cancelBookingInTx(ctx context.Context, tx bun.Tx, booking *models.Booking) error {
	if booking.Status != models.BookingStatusConfirmed {
		return models.ErrBookingNotActive
	}

	_, err := tx.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", models.BookingStatusCancelled).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", booking.BookingID).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = tx.NewUpdate().
		Model((*models.TicketType)(nil)).
		Set("quantity_available = quantity_available + ?", booking.Quantity).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", booking.TicketTypeID).
		Exec(ctx)
	if err != nil {
		return err
	}

	var event models.Event
	err = tx.NewSelect().
		Model(&event).
		Where("id = ?", booking.EventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return err
	}
	_, err = d.refreshSoldOutFlag(ctx, tx, &event)
	return err
}

// AttachQRCode stores the rendered check-in code on the booking. Called
// outside the commit transaction; a failure here never unwinds the booking.
func (d *DB) AttachQRCode(ctx context.Context, bookingID string, qr []byte) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("qr_code = ?", qr).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", bookingID).
		Exec(ctx)
	if err != nil {
		return &models.PersistenceError{Op: "attach qr code", Err: err}
	}
	return nil
}

// GetOrderWithDetails retrieves an order with its line items and bookings,
// scoped to the owning user.
func (d *DB) GetOrderWithDetails(ctx context.Context, orderID, userID string) (*models.OrderWithDetails, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", orderID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Kind: "order", ID: orderID}
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "get order", Err: err}
	}

	var items []models.OrderItem
	err = d.Bun.NewSelect().
		Model(&items).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "get order items", Err: err}
	}

	var bookings []models.Booking
	err = d.Bun.NewSelect().
		Model(&bookings).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "get order bookings", Err: err}
	}

	return &models.OrderWithDetails{
		Order:    order,
		Items:    items,
		Bookings: bookings,
	}, nil
}

// GetBooking retrieves one booking scoped to its owner.
func (d *DB) GetBooking(ctx context.Context, bookingID, userID string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("id = ?", bookingID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Kind: "booking", ID: bookingID}
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "get booking", Err: err}
	}
	return &booking, nil
}

// ListBookingsByUser returns the user's bookings, newest first.
func (d *DB) ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list bookings", Err: err}
	}
	return bookings, nil
}
