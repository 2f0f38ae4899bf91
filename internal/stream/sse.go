package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"topicspin-api/internal/admin"
)

const (
	pingEvery  = 15 * time.Second
	retryAfter = 3 * time.Second
)

// ReplayFrom reads the point a reconnecting client wants events from: the
// Last-Event-ID header (an event's unix nanoseconds), or a since parameter
// holding a duration ("5m") or an RFC 3339 time. Zero means no replay.
func ReplayFrom(r *http.Request, now time.Time) time.Time {
	if id := r.Header.Get("Last-Event-ID"); id != "" {
		if ns, err := strconv.ParseInt(id, 10, 64); err == nil {
			return time.Unix(0, ns)
		}
	}
	s := r.URL.Query().Get("since")
	if s == "" {
		return time.Time{}
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(-d)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (s sseWriter) send(id, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(s.w, "id: %s\n", id); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, b); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

func (s sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// SSE streams "snapshot" events with the filtered dashboard view and
// "assignment" events as changes happen. Filters come from the query string
// as in the listing endpoint.
func SSE(src Source, hub *Hub, rooms []int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "stream unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		out := sseWriter{w: w, f: flusher}
		_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryAfter.Milliseconds())

		filter := admin.ParseFilter(r.URL.Query())
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		feed := Open(ctx, src, hub, filter, rooms, ReplayFrom(r, time.Now()))

		ping := time.NewTicker(pingEvery)
		defer ping.Stop()

		var err error
		for err == nil {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				err = out.comment("ping")
			case v := <-feed.Views:
				err = out.send("", "snapshot", v)
			case ev, ok := <-feed.Events:
				if !ok {
					return
				}
				if Visible(ev, filter) {
					err = out.send(strconv.FormatInt(ev.TS.UnixNano(), 10), "assignment", ev)
				}
			}
		}
		log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("sse client gone")
	}
}
