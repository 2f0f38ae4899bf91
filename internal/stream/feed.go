package stream

import (
	"context"
	"time"

	"topicspin-api/internal/admin"
	"topicspin-api/internal/cache"
	"topicspin-api/internal/models"
)

// View is what a dashboard renders: the filtered rows plus counts over the
// whole set.
type View struct {
	admin.Listing
	Stats admin.Stats `json:"stats"`
}

// Source is the cache surface a feed needs.
type Source interface {
	Current() cache.Snapshot
	Subscribe(l cache.Listener) (unsubscribe func())
}

// Feed merges cache snapshots and hub events for one client.
type Feed struct {
	Views  <-chan View
	Events Subscriber
}

// Open subscribes to both the cache and the hub until ctx ends. The first
// view is the current cache contents; later views follow each refresh, with
// intermediate ones coalesced when the client lags.
func Open(ctx context.Context, src Source, hub *Hub, f admin.Filter, rooms []int, since time.Time) Feed {
	views := make(chan View, 1)
	offer := func(s cache.Snapshot) {
		v := render(s, f, rooms)
		for {
			select {
			case views <- v:
				return
			default:
			}
			select {
			case <-views:
				dropsCtr.Inc()
			default:
			}
		}
	}
	offer(src.Current())
	unsub := src.Subscribe(offer)

	evs := hub.Subscribe(ctx, 64)
	if !since.IsZero() {
		hub.ReplaySince(since, evs)
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return Feed{Views: views, Events: evs}
}

func render(s cache.Snapshot, f admin.Filter, rooms []int) View {
	return View{
		Listing: admin.Listing{
			Assignments: f.Apply(s.Assignments),
			Total:       len(s.Assignments),
			Stale:       s.Err != nil,
			At:          s.At,
		},
		Stats: admin.ComputeStats(s.Assignments, rooms),
	}
}

// Visible reports whether ev concerns rows the filter shows. Deletes and
// clears always pass since the client cannot tell what they removed.
func Visible(ev models.AssignmentEvent, f admin.Filter) bool {
	if ev.Type != models.EventAssignmentCreated || ev.Assignment == nil {
		return true
	}
	return f.Match(*ev.Assignment)
}
