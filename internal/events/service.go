package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type DBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event, types []models.TicketType) error
	GetEventForUpdate(ctx context.Context, eventID, creatorID string) (*models.Event, error)
	SetStatusFlag(ctx context.Context, eventID, creatorID, flag string) error
	AdjustCapacity(ctx context.Context, eventID, creatorID, ticketTypeID string, newCapacity int) error
}

// TicketTypeInput is one tier of a new event.
type TicketTypeInput struct {
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Capacity       int    `json:"capacity"`
}

// Service covers the organizer-side operations: creating events with their
// tiers, cancelling or completing them and resizing capacity.
type Service struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewService(db DBLayer, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

// CreateEvent creates an open event with its ticket tiers. Tiers with a
// non-positive capacity or price are rejected up front.
func (s *Service) CreateEvent(ctx context.Context, creatorID, name string, startTime time.Time, tiers []TicketTypeInput) (*models.Event, error) {
	if name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one ticket type is required")
	}

	now := time.Now()
	event := &models.Event{
		ID:         uuid.New().String(),
		Name:       name,
		StartTime:  startTime,
		StatusFlag: models.EventStatusOpen,
		CreatedBy:  creatorID,
		CreatedAt:  now,
	}

	types := make([]models.TicketType, 0, len(tiers))
	for _, tier := range tiers {
		if tier.Name == "" {
			return nil, fmt.Errorf("ticket type name is required")
		}
		if tier.Capacity <= 0 {
			return nil, fmt.Errorf("ticket type %q needs a positive capacity", tier.Name)
		}
		if tier.UnitPriceCents < 0 {
			return nil, fmt.Errorf("ticket type %q cannot have a negative price", tier.Name)
		}
		types = append(types, models.TicketType{
			ID:                uuid.New().String(),
			EventID:           event.ID,
			Name:              tier.Name,
			UnitPriceCents:    tier.UnitPriceCents,
			QuantityAvailable: tier.Capacity,
			TotalCapacity:     tier.Capacity,
			CreatedAt:         now,
		})
	}

	if err := s.DB.CreateEvent(ctx, event, types); err != nil {
		return nil, err
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Created event %s (%s) with %d ticket type(s)", event.ID, name, len(types)))
	return event, nil
}

// CancelEvent sets the manual Cancelled flag. Only the creator may do this,
// and the flag is terminal.
func (s *Service) CancelEvent(ctx context.Context, eventID, creatorID string) error {
	return s.setManualFlag(ctx, eventID, creatorID, models.EventStatusCancelled)
}

// CompleteEvent sets the manual Completed flag.
func (s *Service) CompleteEvent(ctx context.Context, eventID, creatorID string) error {
	return s.setManualFlag(ctx, eventID, creatorID, models.EventStatusCompleted)
}

func (s *Service) setManualFlag(ctx context.Context, eventID, creatorID, flag string) error {
	event, err := s.DB.GetEventForUpdate(ctx, eventID, creatorID)
	if err != nil {
		return err
	}

	// Terminal flags never revert
	if event.StatusFlag == models.EventStatusCancelled || event.StatusFlag == models.EventStatusCompleted {
		return fmt.Errorf("event %s is already %s", eventID, event.StatusFlag)
	}

	if err := s.DB.SetStatusFlag(ctx, eventID, creatorID, flag); err != nil {
		return err
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Event %s marked %s by %s", eventID, flag, creatorID))
	return nil
}

// AdjustCapacity resizes one ticket type. Growing always succeeds; shrinking
// is bounded below by the tickets already sold.
func (s *Service) AdjustCapacity(ctx context.Context, eventID, creatorID, ticketTypeID string, newCapacity int) error {
	if newCapacity < 0 {
		return fmt.Errorf("capacity cannot be negative")
	}

	if err := s.DB.AdjustCapacity(ctx, eventID, creatorID, ticketTypeID, newCapacity); err != nil {
		return err
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Ticket type %s of event %s resized to %d", ticketTypeID, eventID, newCapacity))
	return nil
}
