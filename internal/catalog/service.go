package catalog

import (
	"context"
	"time"

	"ms-booking/internal/models"
	"ms-booking/internal/status"
)

// DBLayer is the read-only storage surface the catalog needs.
type DBLayer interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListAvailableTicketTypes(ctx context.Context, eventID string) ([]models.TicketType, error)
	TicketTypesForEvent(ctx context.Context, eventID string) ([]models.TicketType, error)
	RemainingInventory(ctx context.Context, eventID string) (int, error)
}

// Service is the read-only view of events and their ticket inventory. It has
// no side effects; all mutation goes through the booking transaction engine.
type Service struct {
	DB DBLayer
}

func NewService(db DBLayer) *Service {
	return &Service{DB: db}
}

func (s *Service) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.DB.GetEvent(ctx, eventID)
}

func (s *Service) ListAvailableTicketTypes(ctx context.Context, eventID string) ([]models.TicketType, error) {
	return s.DB.ListAvailableTicketTypes(ctx, eventID)
}

func (s *Service) TicketTypesForEvent(ctx context.Context, eventID string) ([]models.TicketType, error) {
	return s.DB.TicketTypesForEvent(ctx, eventID)
}

func (s *Service) RemainingInventory(ctx context.Context, eventID string) (int, error) {
	return s.DB.RemainingInventory(ctx, eventID)
}

// EffectiveStatus recomputes the event's bookable state from the stored flag
// and live inventory. The cached "Sold Out" flag is deliberately not trusted
// here since a cancellation may have restored inventory since it was written.
func (s *Service) EffectiveStatus(ctx context.Context, eventID string) (status.Status, error) {
	event, err := s.DB.GetEvent(ctx, eventID)
	if err != nil {
		return "", err
	}

	remaining, err := s.DB.RemainingInventory(ctx, eventID)
	if err != nil {
		return "", err
	}

	return status.Effective(event.StatusFlag, event.StartTime, remaining, time.Now()), nil
}
