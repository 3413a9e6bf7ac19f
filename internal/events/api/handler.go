package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/events"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type Handler struct {
	EventService *events.Service
	Logger       *logger.Logger
}

func NewHandler(eventService *events.Service, log *logger.Logger) *Handler {
	return &Handler{EventService: eventService, Logger: log}
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var (
		notFound  *models.NotFoundError
		belowSold *models.CapacityBelowSoldError
	)

	status := http.StatusBadRequest
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &belowSold):
		status = http.StatusConflict
	default:
		var persistence *models.PersistenceError
		if errors.As(err, &persistence) {
			status = http.StatusInternalServerError
		}
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

// CreateEvent creates an event with its ticket tiers, owned by the caller.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		Name      string                   `json:"name"`
		StartTime time.Time                `json:"start_time"`
		Tiers     []events.TicketTypeInput `json:"ticket_types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	event, err := h.EventService.CreateEvent(r.Context(), userID, req.Name, req.StartTime, req.Tiers)
	if err != nil {
		h.writeError(w, "CreateEvent", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(utils.SuccessResponse("Event created", event))
}

// CancelEvent sets the terminal Cancelled flag on the caller's event.
func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	userID := auth.UserID(r.Context())

	if err := h.EventService.CancelEvent(r.Context(), eventID, userID); err != nil {
		h.writeError(w, "CancelEvent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteEvent sets the terminal Completed flag on the caller's event.
func (h *Handler) CompleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	userID := auth.UserID(r.Context())

	if err := h.EventService.CompleteEvent(r.Context(), eventID, userID); err != nil {
		h.writeError(w, "CompleteEvent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdjustCapacity resizes one ticket type of the caller's event.
func (h *Handler) AdjustCapacity(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	ticketTypeID := chi.URLParam(r, "ticketTypeId")
	userID := auth.UserID(r.Context())

	var req struct {
		Capacity int `json:"capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.EventService.AdjustCapacity(r.Context(), eventID, userID, ticketTypeID, req.Capacity); err != nil {
		h.writeError(w, "AdjustCapacity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes mounts the organizer endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Post("/{eventId}/cancel", h.CancelEvent)
		r.Post("/{eventId}/complete", h.CompleteEvent)
		r.Put("/{eventId}/ticket-types/{ticketTypeId}/capacity", h.AdjustCapacity)
	})
}
