package sse

import (
	"context"
	"ms-booking/internal/models"
	"sync"
)

// AvailabilityEmitter manages SSE connections and broadcasts live inventory
// updates to clients watching an event's availability.
type AvailabilityEmitter struct {
	// Event channel clients map - key: eventID, value: slice of client channels
	eventClients     map[string][]chan models.AvailabilityUpdate
	eventClientMutex sync.RWMutex
}

// NewAvailabilityEmitter creates a new SSE event emitter for availability updates
func NewAvailabilityEmitter() *AvailabilityEmitter {
	return &AvailabilityEmitter{
		eventClients: make(map[string][]chan models.AvailabilityUpdate),
	}
}

// SubscribeToEvent adds a client to the event's availability stream
func (e *AvailabilityEmitter) SubscribeToEvent(ctx context.Context, eventID string) chan models.AvailabilityUpdate {
	clientChan := make(chan models.AvailabilityUpdate, 10)

	e.eventClientMutex.Lock()
	if e.eventClients[eventID] == nil {
		e.eventClients[eventID] = []chan models.AvailabilityUpdate{}
	}
	e.eventClients[eventID] = append(e.eventClients[eventID], clientChan)
	e.eventClientMutex.Unlock()

	// Remove client when context is done
	go func() {
		<-ctx.Done()
		e.removeEventClient(eventID, clientChan)
	}()

	return clientChan
}

// Emit broadcasts an availability update to all clients watching the event
func (e *AvailabilityEmitter) Emit(update models.AvailabilityUpdate) {
	e.eventClientMutex.RLock()
	clients := e.eventClients[update.EventID]
	e.eventClientMutex.RUnlock()

	for _, clientChan := range clients {
		// Non-blocking send to avoid slowing down emitter if client is slow
		select {
		case clientChan <- update:
			// Successfully sent
		default:
			// Channel buffer full, skip this client for now
		}
	}
}

// removeEventClient drops a disconnected client
func (e *AvailabilityEmitter) removeEventClient(eventID string, clientChan chan models.AvailabilityUpdate) {
	e.eventClientMutex.Lock()
	defer e.eventClientMutex.Unlock()

	clients := e.eventClients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			// Remove client from slice
			e.eventClients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	// Clean up map entry if no more clients
	if len(e.eventClients[eventID]) == 0 {
		delete(e.eventClients, eventID)
	}
}

// GetEventClientCount returns the number of clients currently watching an event
func (e *AvailabilityEmitter) GetEventClientCount(eventID string) int {
	e.eventClientMutex.RLock()
	defer e.eventClientMutex.RUnlock()
	return len(e.eventClients[eventID])
}
