package services

import (
	"sync"
	"time"

	"github.com/GhostFramer/GhostFrame/internal/models"
)

// EventsService fans registry state changes out to any number of
// subscribers. Delivery is best-effort: channels are buffered and a
// subscriber that falls behind misses events rather than blocking the
// registry.
type EventsService struct {
	subscribers []chan models.Event
	mu          sync.RWMutex
}

// NewEventsService creates a new EventsService instance.
func NewEventsService() *EventsService {
	return &EventsService{}
}

// Subscribe returns a channel that receives every subsequent event.
func (s *EventsService) Subscribe() chan models.Event {
	ch := make(chan models.Event, 100)

	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()

	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *EventsService) Unsubscribe(ch chan models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.subscribers {
		if c == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Publish delivers an event to all current subscribers without blocking.
func (s *EventsService) Publish(event models.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
