// Package events carries store-change notices between instances so each one
// can drop its cached view when another instance writes.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"topicspin-api/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, ev models.AssignmentEvent) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, models.AssignmentEvent) error { return nil }

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev models.AssignmentEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Local delivers events to an in-process sink such as the stream hub.
type Local func(ev models.AssignmentEvent)

func (f Local) Publish(_ context.Context, ev models.AssignmentEvent) error {
	f(ev)
	return nil
}

func Encode(ev models.AssignmentEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func Decode(b []byte) (models.AssignmentEvent, error) {
	var ev models.AssignmentEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return ev, errors.New("decode event: missing type")
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	return ev, nil
}

type Refresher interface {
	Invalidate()
	RefreshAsync(delay time.Duration)
}

// Handler applies events received from other instances.
type Handler struct {
	origin string
	cache  Refresher
	local  Local
}

// NewHandler builds a handler that ignores events stamped with origin and
// forwards the rest to local, which may be nil.
func NewHandler(origin string, c Refresher, local Local) *Handler {
	return &Handler{origin: origin, cache: c, local: local}
}

// Handle invalidates the cache for any foreign event. It reports whether the
// event was applied.
func (h *Handler) Handle(ev models.AssignmentEvent) bool {
	if ev.Origin != "" && ev.Origin == h.origin {
		received.WithLabelValues("self").Inc()
		return false
	}
	h.cache.Invalidate()
	h.cache.RefreshAsync(0)
	if h.local != nil {
		h.local(ev)
	}
	received.WithLabelValues(ev.Type).Inc()
	log.Debug().Str("type", ev.Type).Str("origin", ev.Origin).Msg("remote event")
	return true
}
