package services_test

import (
	"testing"
	"time"

	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/services"
)

func TestEvents_DeliversToAllSubscribers(t *testing.T) {
	events := services.NewEventsService()

	first := events.Subscribe()
	second := events.Subscribe()

	events.Publish(models.Event{Type: models.EventAppAdded})

	for _, ch := range []chan models.Event{first, second} {
		select {
		case event := <-ch:
			if event.Type != models.EventAppAdded {
				t.Errorf("expected %q event, got %q", models.EventAppAdded, event.Type)
			}
			if event.Timestamp.IsZero() {
				t.Error("expected Publish to stamp the event")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestEvents_UnsubscribeClosesChannel(t *testing.T) {
	events := services.NewEventsService()

	ch := events.Subscribe()
	events.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after Unsubscribe")
	}

	// Publishing after removal must not panic on the closed channel.
	events.Publish(models.Event{Type: models.EventAppUpdated})
}

func TestEvents_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	events := services.NewEventsService()

	// Nobody reads from this subscriber; fill its buffer past capacity.
	stalled := events.Subscribe()
	defer events.Unsubscribe(stalled)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			events.Publish(models.Event{Type: models.EventAppUpdated})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a stalled subscriber")
	}
}

func TestEvents_PreservesExplicitTimestamp(t *testing.T) {
	events := services.NewEventsService()
	ch := events.Subscribe()

	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	events.Publish(models.Event{Type: models.EventAppRemoved, Timestamp: stamp})

	event := <-ch
	if !event.Timestamp.Equal(stamp) {
		t.Errorf("expected timestamp %v preserved, got %v", stamp, event.Timestamp)
	}
}
