// Package db persists organizer-side mutations: creating events with their
// ticket tiers, flipping manual status flags and resizing capacity.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateEvent inserts the event and all of its ticket types in one
// transaction.
func (d *DB) CreateEvent(ctx context.Context, event *models.Event, types []models.TicketType) error {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(event).Exec(ctx); err != nil {
			return err
		}
		if len(types) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&types).Exec(ctx)
		return err
	})
	if err != nil {
		return &models.PersistenceError{Op: "create event", Err: err}
	}
	return nil
}

// GetEventForUpdate fetches the event scoped to its creator. Organizer
// mutations read as not found when someone else's event is targeted.
func (d *DB) GetEventForUpdate(ctx context.Context, eventID, creatorID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Where("created_by = ?", creatorID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Kind: "event", ID: eventID}
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "get event", Err: err}
	}
	return &event, nil
}

// SetStatusFlag writes a manual status flag on the creator's event.
func (d *DB) SetStatusFlag(ctx context.Context, eventID, creatorID, flag string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("status_flag = ?", flag).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", eventID).
		Where("created_by = ?", creatorID).
		Exec(ctx)
	if err != nil {
		return &models.PersistenceError{Op: "set event status", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &models.PersistenceError{Op: "set event status", Err: err}
	}
	if affected == 0 {
		return &models.NotFoundError{Kind: "event", ID: eventID}
	}
	return nil
}

// AdjustCapacity resizes a ticket type to newCapacity, moving the freed or
// added headroom through quantity_available in the same conditional update.
// Shrinking below what is already sold fails with the sold count so the
// caller can report the real floor.
func (d *DB) AdjustCapacity(ctx context.Context, eventID, creatorID, ticketTypeID string, newCapacity int) error {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var event models.Event
		err := tx.NewSelect().
			Model(&event).
			Where("id = ?", eventID).
			Where("created_by = ?", creatorID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return &models.NotFoundError{Kind: "event", ID: eventID}
		}
		if err != nil {
			return err
		}

		// The delta rides on the same guard that blocks oversell: shrinking
		// only matches while enough unsold inventory remains to absorb it.
		res, err := tx.NewUpdate().
			Model((*models.TicketType)(nil)).
			Set("quantity_available = quantity_available + ? - total_capacity", newCapacity).
			Set("total_capacity = ?", newCapacity).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", ticketTypeID).
			Where("event_id = ?", eventID).
			Where("quantity_available + ? - total_capacity >= 0", newCapacity).
			Exec(ctx)
		if err != nil {
			return err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
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
			return &models.CapacityBelowSoldError{
				TicketTypeID: ticketTypeID,
				Sold:         tt.Sold(),
				Requested:    newCapacity,
			}
		}

		return d.refreshSoldOutFlag(ctx, tx, &event)
	})
	if err != nil {
		var (
			notFound *models.NotFoundError
			below    *models.CapacityBelowSoldError
		)
		if errors.As(err, &notFound) || errors.As(err, &below) {
			return err
		}
		return &models.PersistenceError{Op: "adjust capacity", Err: err}
	}
	return nil
}

// refreshSoldOutFlag mirrors the booking engine's maintenance of the cached
// "Sold Out" flag after a capacity change.
func (d *DB) refreshSoldOutFlag(ctx context.Context, tx bun.Tx, event *models.Event) error {
	if event.StatusFlag != models.EventStatusOpen && event.StatusFlag != models.EventStatusSoldOut {
		return nil
	}

	var remaining int
	err := tx.NewSelect().
		Model((*models.TicketType)(nil)).
		ColumnExpr("COALESCE(SUM(quantity_available), 0)").
		Where("event_id = ?", event.ID).
		Scan(ctx, &remaining)
	if err != nil {
		return err
	}

	want := models.EventStatusOpen
	if remaining <= 0 {
		want = models.EventStatusSoldOut
	}
	if want == event.StatusFlag {
		return nil
	}

	_, err = tx.NewUpdate().
		Model((*models.Event)(nil)).
		Set("status_flag = ?", want).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", event.ID).
		Exec(ctx)
	return err
}
