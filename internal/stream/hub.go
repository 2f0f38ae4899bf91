// Package stream pushes assignment changes to connected dashboards.
package stream

import (
	"context"
	"sync"
	"time"

	"topicspin-api/internal/models"
)

type Subscriber chan models.AssignmentEvent

// Hub fans assignment events out to dashboard connections and keeps a
// bounded, time-limited history for clients that reconnect with
// Last-Event-ID. Events carrying an id already in the history are dropped,
// since the brokers deliver at least once.
type Hub struct {
	mu   sync.RWMutex
	subs map[Subscriber]struct{}

	hmu     sync.Mutex
	hist    []models.AssignmentEvent
	seen    map[string]struct{}
	histMax int
	histTTL time.Duration
	now     func() time.Time
}

type HubOption func(*Hub)

func WithHistory(size int, ttl time.Duration) HubOption {
	return func(h *Hub) { h.histMax, h.histTTL = size, ttl }
}

func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:    make(map[Subscriber]struct{}),
		seen:    make(map[string]struct{}),
		histMax: 1000,
		histTTL: time.Hour,
		now:     time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Subscribe returns a channel that receives events until ctx ends, after
// which it is closed.
func (h *Hub) Subscribe(ctx context.Context, buf int) Subscriber {
	ch := make(Subscriber, buf)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	subsGauge.Inc()
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
		subsGauge.Dec()
	}()
	return ch
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (h *Hub) Publish(ev models.AssignmentEvent) {
	if !h.remember(ev) {
		dupCtr.Inc()
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			dropsCtr.Inc()
		}
	}
}

// remember appends ev to the history and reports false for a repeated id.
func (h *Hub) remember(ev models.AssignmentEvent) bool {
	h.hmu.Lock()
	defer h.hmu.Unlock()
	if ev.ID != "" {
		if _, dup := h.seen[ev.ID]; dup {
			return false
		}
		h.seen[ev.ID] = struct{}{}
	}
	h.hist = append(h.hist, ev)

	cut := h.now().Add(-h.histTTL)
	drop := max(len(h.hist)-h.histMax, 0)
	for drop < len(h.hist) && h.hist[drop].TS.Before(cut) {
		drop++
	}
	for _, old := range h.hist[:drop] {
		delete(h.seen, old.ID)
	}
	h.hist = h.hist[drop:]
	histGauge.Set(float64(len(h.hist)))
	return true
}

// ReplaySince sends retained events newer than since to out, skipping any
// that do not fit its buffer, and returns how many were sent.
func (h *Hub) ReplaySince(since time.Time, out Subscriber) int {
	h.hmu.Lock()
	defer h.hmu.Unlock()
	n := 0
	for _, ev := range h.hist {
		if !ev.TS.After(since) {
			continue
		}
		select {
		case out <- ev:
			n++
		default:
			dropsCtr.Inc()
		}
	}
	replayCtr.Add(float64(n))
	return n
}
