package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/events"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// Mock implementations
type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateEvent(ctx context.Context, event *models.Event, types []models.TicketType) error {
	args := m.Called(ctx, event, types)
	return args.Error(0)
}

func (m *MockDBLayer) GetEventForUpdate(ctx context.Context, eventID, creatorID string) (*models.Event, error) {
	args := m.Called(ctx, eventID, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockDBLayer) SetStatusFlag(ctx context.Context, eventID, creatorID, flag string) error {
	args := m.Called(ctx, eventID, creatorID, flag)
	return args.Error(0)
}

func (m *MockDBLayer) AdjustCapacity(ctx context.Context, eventID, creatorID, ticketTypeID string, newCapacity int) error {
	args := m.Called(ctx, eventID, creatorID, ticketTypeID, newCapacity)
	return args.Error(0)
}

func TestCreateEventSeedsInventoryFromCapacity(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := events.NewService(mockDB, logger.NewLogger())

	mockDB.On("CreateEvent", mock.Anything, mock.AnythingOfType("*models.Event"), mock.MatchedBy(func(types []models.TicketType) bool {
		return len(types) == 2 &&
			types[0].QuantityAvailable == types[0].TotalCapacity &&
			types[1].QuantityAvailable == 10 && types[1].TotalCapacity == 10
	})).Return(nil)

	event, err := svc.CreateEvent(context.Background(), "organizer1", "Go Conference", time.Now().Add(72*time.Hour), []events.TicketTypeInput{
		{Name: "General", UnitPriceCents: 2500, Capacity: 100},
		{Name: "VIP", UnitPriceCents: 5000, Capacity: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusOpen, event.StatusFlag)
	assert.Equal(t, "organizer1", event.CreatedBy)
	mockDB.AssertExpectations(t)
}

func TestCreateEventValidation(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := events.NewService(mockDB, logger.NewLogger())

	start := time.Now().Add(72 * time.Hour)

	_, err := svc.CreateEvent(context.Background(), "organizer1", "", start, []events.TicketTypeInput{{Name: "General", Capacity: 10}})
	assert.Error(t, err)

	_, err = svc.CreateEvent(context.Background(), "organizer1", "Go Conference", start, nil)
	assert.Error(t, err)

	_, err = svc.CreateEvent(context.Background(), "organizer1", "Go Conference", start, []events.TicketTypeInput{{Name: "General", Capacity: 0}})
	assert.Error(t, err)

	_, err = svc.CreateEvent(context.Background(), "organizer1", "Go Conference", start, []events.TicketTypeInput{{Name: "General", UnitPriceCents: -100, Capacity: 10}})
	assert.Error(t, err)

	mockDB.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelEvent(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := events.NewService(mockDB, logger.NewLogger())

	open := &models.Event{ID: "evt1", StatusFlag: models.EventStatusOpen, CreatedBy: "organizer1"}
	mockDB.On("GetEventForUpdate", mock.Anything, "evt1", "organizer1").Return(open, nil)
	mockDB.On("SetStatusFlag", mock.Anything, "evt1", "organizer1", models.EventStatusCancelled).Return(nil)

	require.NoError(t, svc.CancelEvent(context.Background(), "evt1", "organizer1"))
	mockDB.AssertExpectations(t)
}

func TestManualFlagIsTerminal(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := events.NewService(mockDB, logger.NewLogger())

	cancelled := &models.Event{ID: "evt1", StatusFlag: models.EventStatusCancelled, CreatedBy: "organizer1"}
	mockDB.On("GetEventForUpdate", mock.Anything, "evt1", "organizer1").Return(cancelled, nil)

	err := svc.CompleteEvent(context.Background(), "evt1", "organizer1")
	assert.Error(t, err)
	mockDB.AssertNotCalled(t, "SetStatusFlag", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdjustCapacityRejectsNegative(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := events.NewService(mockDB, logger.NewLogger())

	err := svc.AdjustCapacity(context.Background(), "evt1", "organizer1", "tt1", -5)
	assert.Error(t, err)
	mockDB.AssertNotCalled(t, "AdjustCapacity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
