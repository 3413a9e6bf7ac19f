package sse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ms-booking/internal/models"
)

func TestEmitReachesSubscribers(t *testing.T) {
	emitter := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := emitter.SubscribeToEvent(ctx, "evt1")
	assert.Equal(t, 1, emitter.GetEventClientCount("evt1"))

	update := models.AvailabilityUpdate{EventID: "evt1", Status: "Open", Remaining: 42}
	emitter.Emit(update)

	select {
	case got := <-ch:
		assert.Equal(t, 42, got.Remaining)
	case <-time.After(time.Second):
		t.Fatal("expected an availability update")
	}
}

func TestEmitScopedToEvent(t *testing.T) {
	emitter := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := emitter.SubscribeToEvent(ctx, "evt1")

	emitter.Emit(models.AvailabilityUpdate{EventID: "evt2", Status: "Open", Remaining: 5})

	select {
	case <-ch:
		t.Fatal("subscriber of evt1 must not receive evt2 updates")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	emitter := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	emitter.SubscribeToEvent(ctx, "evt1")
	cancel()

	// The cleanup goroutine runs asynchronously
	assert.Eventually(t, func() bool {
		return emitter.GetEventClientCount("evt1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSlowSubscriberDoesNotBlockEmit(t *testing.T) {
	emitter := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emitter.SubscribeToEvent(ctx, "evt1")

	// Overfill the buffered channel; Emit must never block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			emitter.Emit(models.AvailabilityUpdate{EventID: "evt1", Status: "Open", Remaining: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a slow subscriber")
	}
}
