package api

import (
	"encoding/json"
	"net/http"

	"github.com/algorand/go-deadlock"

	"github.com/pobal-network/pobal/internal/domain"
)

// subscriberBuffer is how many events a slow stream may lag before it
// starts dropping them.
const subscriberBuffer = 64

// Hub fans committed events out to streaming HTTP clients.
// It implements domain.EventSink.
type Hub struct {
	mu   deadlock.Mutex
	subs map[chan domain.Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan domain.Event]struct{})}
}

// Publish implements domain.EventSink. A full subscriber misses the event
// rather than stalling the coordinator.
func (h *Hub) Publish(e domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *Hub) subscribe() chan domain.Event {
	ch := make(chan domain.Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan domain.Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// Subscribers returns the number of connected streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// HandleStream writes events as newline-delimited JSON until the client goes away.
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	ch := h.subscribe()
	defer h.unsubscribe(ch)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	enc := json.NewEncoder(w)
	kind := domain.EventKind(r.URL.Query().Get("kind"))
	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-ch:
			if kind != "" && e.Kind != kind {
				continue
			}
			if err := enc.Encode(e); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
