package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/catalog"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/sse"
	"ms-booking/internal/utils"
)

type Handler struct {
	BookingService *booking.Service
	CatalogService *catalog.Service
	Emitter        *sse.AvailabilityEmitter
	Logger         *logger.Logger
}

func NewHandler(bookingService *booking.Service, catalogService *catalog.Service, emitter *sse.AvailabilityEmitter, log *logger.Logger) *Handler {
	return &Handler{
		BookingService: bookingService,
		CatalogService: catalogService,
		Emitter:        emitter,
		Logger:         log,
	}
}

// writeError maps the domain error taxonomy onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var (
		notFound     *models.NotFoundError
		limit        *models.LimitExceededError
		insufficient *models.InsufficientInventoryError
		notOpen      *models.EventNotOpenError
		belowSold    *models.CapacityBelowSoldError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &limit), errors.Is(err, models.ErrEmptyCart):
		status = http.StatusBadRequest
	case errors.As(err, &insufficient), errors.As(err, &notOpen),
		errors.As(err, &belowSold), errors.Is(err, models.ErrBookingNotActive):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(utils.ErrorResponse(op+" failed", err.Error()))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(utils.SuccessResponse(message, data))
}

// BuildCart validates and prices a quantity submission for an event.
func (h *Handler) BuildCart(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	userID := auth.UserID(r.Context())

	var req struct {
		Quantities map[string]int `json:"quantities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cart, err := h.BookingService.BuildCart(r.Context(), userID, eventID, req.Quantities)
	if err != nil {
		h.writeError(w, "BuildCart", err)
		return
	}

	h.writeJSON(w, http.StatusOK, "Cart built", cart)
}

// GetCart returns the caller's stored cart for the event.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	userID := auth.UserID(r.Context())

	cart, err := h.BookingService.GetCart(r.Context(), userID, eventID)
	if err != nil {
		h.writeError(w, "GetCart", err)
		return
	}

	h.writeJSON(w, http.StatusOK, "Cart", cart)
}

// Checkout commits the caller's cart as a confirmed order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	userID := auth.UserID(r.Context())

	result, err := h.BookingService.Checkout(r.Context(), userID, eventID)
	if err != nil {
		h.writeError(w, "Checkout", err)
		return
	}

	h.emitAvailability(r, eventID)
	h.writeJSON(w, http.StatusCreated, "Booking confirmed", result)
}

// GetOrder returns one of the caller's orders with items and bookings.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	userID := auth.UserID(r.Context())

	order, err := h.BookingService.GetOrder(r.Context(), orderID, userID)
	if err != nil {
		h.writeError(w, "GetOrder", err)
		return
	}

	h.writeJSON(w, http.StatusOK, "Order", order)
}

// CancelOrder cancels a whole order and restores its inventory.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	userID := auth.UserID(r.Context())

	order, err := h.BookingService.GetOrder(r.Context(), orderID, userID)
	if err != nil {
		h.writeError(w, "CancelOrder", err)
		return
	}

	if err := h.BookingService.CancelOrder(r.Context(), orderID, userID); err != nil {
		h.writeError(w, "CancelOrder", err)
		return
	}

	h.emitAvailability(r, order.Order.EventID)
	w.WriteHeader(http.StatusNoContent)
}

// ListBookings returns the caller's bookings, newest first.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	bookings, err := h.BookingService.ListUserBookings(r.Context(), userID)
	if err != nil {
		h.writeError(w, "ListBookings", err)
		return
	}

	h.writeJSON(w, http.StatusOK, "Bookings", bookings)
}

// CancelBooking cancels one booking.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	userID := auth.UserID(r.Context())

	booking, err := h.BookingService.DB.GetBooking(r.Context(), bookingID, userID)
	if err != nil {
		h.writeError(w, "CancelBooking", err)
		return
	}

	if err := h.BookingService.CancelBooking(r.Context(), bookingID, userID); err != nil {
		h.writeError(w, "CancelBooking", err)
		return
	}

	h.emitAvailability(r, booking.EventID)
	w.WriteHeader(http.StatusNoContent)
}

// EventStatus returns the event's effective bookable state.
func (h *Handler) EventStatus(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	status, err := h.CatalogService.EffectiveStatus(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "EventStatus", err)
		return
	}

	remaining, err := h.CatalogService.RemainingInventory(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "EventStatus", err)
		return
	}

	h.writeJSON(w, http.StatusOK, "Event status", models.AvailabilityUpdate{
		EventID:   eventID,
		Status:    string(status),
		Remaining: remaining,
	})
}

// ListTicketTypes returns the event's purchasable ticket types.
func (h *Handler) ListTicketTypes(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	types, err := h.CatalogService.ListAvailableTicketTypes(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "ListTicketTypes", err)
		return
	}

	h.writeJSON(w, http.StatusOK, "Ticket types", types)
}

// StreamAvailability streams availability updates for an event over SSE.
func (h *Handler) StreamAvailability(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates := h.Emitter.SubscribeToEvent(r.Context(), eventID)
	h.Logger.Info("SSE", fmt.Sprintf("Client subscribed to availability of event %s", eventID))

	for {
		select {
		case <-r.Context().Done():
			return
		case update, open := <-updates:
			if !open {
				return
			}
			payload, err := json.Marshal(update)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// emitAvailability pushes the event's current counters to SSE watchers after
// an inventory change. Best effort only.
func (h *Handler) emitAvailability(r *http.Request, eventID string) {
	if h.Emitter == nil {
		return
	}

	status, err := h.CatalogService.EffectiveStatus(r.Context(), eventID)
	if err != nil {
		return
	}
	remaining, err := h.CatalogService.RemainingInventory(r.Context(), eventID)
	if err != nil {
		return
	}
	types, err := h.CatalogService.TicketTypesForEvent(r.Context(), eventID)
	if err != nil {
		return
	}

	update := models.AvailabilityUpdate{
		EventID:   eventID,
		Status:    string(status),
		Remaining: remaining,
	}
	for _, tt := range types {
		update.TicketTypes = append(update.TicketTypes, models.TicketTypeAvailability{
			ID:                tt.ID,
			Name:              tt.Name,
			QuantityAvailable: tt.QuantityAvailable,
		})
	}
	h.Emitter.Emit(update)
}
