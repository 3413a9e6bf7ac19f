package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetEvent fetches one event by ID.
func (d *DB) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
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

// ListAvailableTicketTypes returns the event's ticket types that still have
// inventory. Types with nothing left are excluded.
func (d *DB) ListAvailableTicketTypes(ctx context.Context, eventID string) ([]models.TicketType, error) {
	if _, err := d.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	var types []models.TicketType
	err := d.Bun.NewSelect().
		Model(&types).
		Where("event_id = ?", eventID).
		Where("quantity_available > 0").
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list available ticket types", Err: err}
	}
	return types, nil
}

// TicketTypesForEvent returns all of the event's ticket types, sold out ones
// included. The cart builder needs the zero-quantity rows to report how many
// tickets are actually left.
func (d *DB) TicketTypesForEvent(ctx context.Context, eventID string) ([]models.TicketType, error) {
	if _, err := d.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	var types []models.TicketType
	err := d.Bun.NewSelect().
		Model(&types).
		Where("event_id = ?", eventID).
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list ticket types", Err: err}
	}
	return types, nil
}

// RemainingInventory sums quantity_available across all of the event's
// ticket types.
func (d *DB) RemainingInventory(ctx context.Context, eventID string) (int, error) {
	var total int
	err := d.Bun.NewSelect().
		Model((*models.TicketType)(nil)).
		ColumnExpr("COALESCE(SUM(quantity_available), 0)").
		Where("event_id = ?", eventID).
		Scan(ctx, &total)
	if err != nil {
		return 0, &models.PersistenceError{Op: "sum remaining inventory", Err: err}
	}
	return total, nil
}
