package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/meal-max-arena/internal/msgcat"
	"github.com/kapu/meal-max-arena/internal/obslog"
)

// Event is a single arena or kitchen happening, broadcast to subscribers.
type Event struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	At      time.Time      `json:"at"`
	Message string         `json:"message,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

type subscriber struct {
	id int
	ch chan Event
}

// Hub fans events out to websocket subscribers. Publishing never blocks;
// a subscriber that cannot keep up drops events.
type Hub struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID int
	cat    *msgcat.Catalog
}

func NewHub(cat *msgcat.Catalog) *Hub {
	return &Hub{cat: cat}
}

// Publish broadcasts an event. evType doubles as the catalog key for the
// rendered message; rendering failures leave Message empty.
func (h *Hub) Publish(evType string, fields map[string]any) {
	ev := Event{
		ID:     uuid.NewString(),
		Type:   evType,
		At:     time.Now(),
		Fields: fields,
	}
	if h.cat != nil {
		if msg, err := h.cat.Render(evType, fields); err == nil {
			ev.Message = msg
		}
	}

	// Sends stay under the read lock so Unsubscribe cannot close a channel
	// mid-broadcast; sends never block, so the lock is held only briefly.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			obslog.L().Warn("event_dropped", zap.Int("subscriber", s.id), zap.String("type", evType))
		}
	}
}

// Subscribe registers a new listener and returns its id and channel.
func (h *Hub) Subscribe() (int, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := subscriber{id: h.nextID, ch: make(chan Event, 32)}
	h.subs = append(h.subs, s)
	return s.id, s.ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.subs {
		if s.id == id {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}
