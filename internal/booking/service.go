package booking

import (
	"context"
	"fmt"
	"time"

	"ms-booking/internal/cart"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/status"
)

type DBLayer interface {
	CommitBooking(ctx context.Context, cart *models.Cart, userID string) (*models.CheckoutResult, error)
	CancelBooking(ctx context.Context, bookingID, userID string) error
	CancelOrder(ctx context.Context, orderID, userID string) error
	AttachQRCode(ctx context.Context, bookingID string, qr []byte) error
	GetOrderWithDetails(ctx context.Context, orderID, userID string) (*models.OrderWithDetails, error)
	GetBooking(ctx context.Context, bookingID, userID string) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
}

type CatalogLayer interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	TicketTypesForEvent(ctx context.Context, eventID string) ([]models.TicketType, error)
	EffectiveStatus(ctx context.Context, eventID string) (status.Status, error)
}

type CartStore interface {
	Save(ctx context.Context, userID string, c *models.Cart) error
	Load(ctx context.Context, userID, eventID string) (*models.Cart, error)
	Clear(ctx context.Context, userID, eventID string) error
}

type KafkaPublisher interface {
	PublishBookingConfirmed(msg models.BookingEventMessage) error
	PublishBookingCancelled(msg models.BookingEventMessage) error
	PublishEventSoldOut(msg models.BookingEventMessage) error
}

type QRGenerator interface {
	GenerateEncryptedQR(booking models.Booking) ([]byte, error)
}

// Service drives the purchase flow: building carts, committing them as
// orders and cancelling what was booked. The database layer owns atomicity;
// this layer owns the flow and the side effects around it.
type Service struct {
	DB         DBLayer
	Catalog    CatalogLayer
	Carts      CartStore
	Kafka      KafkaPublisher
	QR         QRGenerator
	Logger     *logger.Logger
	MaxPerType int
}

func NewService(db DBLayer, catalog CatalogLayer, carts CartStore, kafka KafkaPublisher, qr QRGenerator, log *logger.Logger, maxPerType int) *Service {
	if maxPerType <= 0 {
		maxPerType = cart.DefaultMaxPerType
	}
	return &Service{
		DB:         db,
		Catalog:    catalog,
		Carts:      carts,
		Kafka:      kafka,
		QR:         qr,
		Logger:     log,
		MaxPerType: maxPerType,
	}
}

// BuildCart validates the requested quantities against the live catalog,
// prices them and stores the result as the user's cart for the event. The
// cart reserves nothing.
func (s *Service) BuildCart(ctx context.Context, userID, eventID string, requested map[string]int) (*models.Cart, error) {
	effective, err := s.Catalog.EffectiveStatus(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !status.Bookable(effective) {
		return nil, &models.EventNotOpenError{EventID: eventID, Status: string(effective)}
	}

	types, err := s.Catalog.TicketTypesForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	c, err := cart.Build(eventID, types, requested, s.MaxPerType)
	if err != nil {
		return nil, err
	}

	if err := s.Carts.Save(ctx, userID, c); err != nil {
		return nil, err
	}

	s.Logger.Info("CART", fmt.Sprintf("Built cart for user %s, event %s: %d line(s), total %d cents",
		userID, eventID, len(c.Items), c.TotalAmountCents))
	return c, nil
}

// GetCart returns the user's stored cart for the event.
func (s *Service) GetCart(ctx context.Context, userID, eventID string) (*models.Cart, error) {
	return s.Carts.Load(ctx, userID, eventID)
}

// ClearCart drops the user's cart for the event.
func (s *Service) ClearCart(ctx context.Context, userID, eventID string) error {
	return s.Carts.Clear(ctx, userID, eventID)
}

// Checkout commits the user's stored cart as a confirmed order. On success
// the cart is cleared, check-in QR codes are attached and a confirmation
// event is published; QR and Kafka failures are logged but never unwind the
// committed booking.
func (s *Service) Checkout(ctx context.Context, userID, eventID string) (*models.CheckoutResult, error) {
	c, err := s.Carts.Load(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	result, err := s.DB.CommitBooking(ctx, c, userID)
	if err != nil {
		return nil, err
	}

	if err := s.Carts.Clear(ctx, userID, eventID); err != nil {
		s.Logger.Warn("CART", fmt.Sprintf("Failed to clear cart after checkout for user %s: %v", userID, err))
	}

	s.attachQRCodes(ctx, result.BookingIDs, userID)

	if err := s.Kafka.PublishBookingConfirmed(models.BookingEventMessage{
		Type:             models.BookingEventConfirmed,
		OrderID:          result.OrderID,
		EventID:          eventID,
		UserID:           userID,
		BookingIDs:       result.BookingIDs,
		TotalAmountCents: result.TotalAmountCents,
		OccurredAt:       time.Now(),
	}); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish booking confirmation for order %s: %v", result.OrderID, err))
	}

	if result.SoldOut {
		if err := s.Kafka.PublishEventSoldOut(models.BookingEventMessage{
			Type:       models.EventSoldOutNotice,
			EventID:    eventID,
			UserID:     userID,
			OccurredAt: time.Now(),
		}); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish sold-out notice for event %s: %v", eventID, err))
		}
		s.Logger.Info("BOOKING", fmt.Sprintf("Event %s sold out", eventID))
	}

	s.Logger.Info("BOOKING", fmt.Sprintf("Order %s confirmed for user %s (%d cents)",
		result.OrderRef, userID, result.TotalAmountCents))
	return result, nil
}

func (s *Service) attachQRCodes(ctx context.Context, bookingIDs []string, userID string) {
	if s.QR == nil {
		return
	}
	for _, bookingID := range bookingIDs {
		booking, err := s.DB.GetBooking(ctx, bookingID, userID)
		if err != nil {
			s.Logger.Warn("QR", fmt.Sprintf("Failed to load booking %s for QR generation: %v", bookingID, err))
			continue
		}
		png, err := s.QR.GenerateEncryptedQR(*booking)
		if err != nil {
			s.Logger.Warn("QR", fmt.Sprintf("Failed to generate QR for booking %s: %v", bookingID, err))
			continue
		}
		if err := s.DB.AttachQRCode(ctx, bookingID, png); err != nil {
			s.Logger.Warn("QR", fmt.Sprintf("Failed to store QR for booking %s: %v", bookingID, err))
		}
	}
}

// CancelBooking cancels one booking and publishes the cancellation.
func (s *Service) CancelBooking(ctx context.Context, bookingID, userID string) error {
	booking, err := s.DB.GetBooking(ctx, bookingID, userID)
	if err != nil {
		return err
	}

	if err := s.DB.CancelBooking(ctx, bookingID, userID); err != nil {
		return err
	}

	if err := s.Kafka.PublishBookingCancelled(models.BookingEventMessage{
		Type:             models.BookingEventCancelled,
		OrderID:          booking.OrderID,
		EventID:          booking.EventID,
		UserID:           userID,
		BookingIDs:       []string{bookingID},
		TotalAmountCents: booking.TotalPriceCents,
		OccurredAt:       time.Now(),
	}); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish cancellation for booking %s: %v", bookingID, err))
	}

	s.Logger.Info("BOOKING", fmt.Sprintf("Booking %s cancelled by user %s", bookingID, userID))
	return nil
}

// CancelOrder cancels the whole order and publishes the cancellation.
func (s *Service) CancelOrder(ctx context.Context, orderID, userID string) error {
	details, err := s.DB.GetOrderWithDetails(ctx, orderID, userID)
	if err != nil {
		return err
	}

	if err := s.DB.CancelOrder(ctx, orderID, userID); err != nil {
		return err
	}

	bookingIDs := make([]string, 0, len(details.Bookings))
	for _, b := range details.Bookings {
		bookingIDs = append(bookingIDs, b.BookingID)
	}

	if err := s.Kafka.PublishBookingCancelled(models.BookingEventMessage{
		Type:             models.BookingEventCancelled,
		OrderID:          orderID,
		EventID:          details.Order.EventID,
		UserID:           userID,
		BookingIDs:       bookingIDs,
		TotalAmountCents: details.Order.TotalAmountCents,
		OccurredAt:       time.Now(),
	}); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish cancellation for order %s: %v", orderID, err))
	}

	s.Logger.Info("BOOKING", fmt.Sprintf("Order %s cancelled by user %s", orderID, userID))
	return nil
}

// GetOrder returns the order with its items and bookings, owner-scoped.
func (s *Service) GetOrder(ctx context.Context, orderID, userID string) (*models.OrderWithDetails, error) {
	return s.DB.GetOrderWithDetails(ctx, orderID, userID)
}

// ListUserBookings returns the user's bookings, newest first.
func (s *Service) ListUserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.DB.ListBookingsByUser(ctx, userID)
}
