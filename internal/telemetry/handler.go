// Package telemetry accepts client-side events from the trainer form and the
// dashboard, such as a finished wheel reveal or a failed submission.
package telemetry

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type Payload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Tags    map[string]string `json:"tags"`
	TS      time.Time         `json:"ts"`
}

var knownTypes = map[string]struct{}{
	"spin_started":      {},
	"reveal_shown":      {},
	"submit_failed":     {},
	"duplicate_notice":  {},
	"export_downloaded": {},
	"client_error":      {},
}

var clientEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "client_events_total",
	Help: "client telemetry events by type",
}, []string{"type"})

func init() { prometheus.MustRegister(clientEvents) }

var re = regexp.MustCompile(`(?i)(bearer\s+[A-Za-z0-9._-]+|api[-_]?key\s*[=:]\s*[A-Za-z0-9._-]+|token\s*[=:]\s*[A-Za-z0-9._-]+|passphrase\s*[=:]\s*\S+)`)

func mask(s string) string { return re.ReplaceAllString(s, "***redacted***") }

func Handle(w http.ResponseWriter, r *http.Request) {
	var p Payload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if p.Tags == nil {
		p.Tags = map[string]string{}
	}
	p.Message = mask(p.Message)
	for k, v := range p.Tags {
		p.Tags[k] = mask(v)
	}
	if p.TS.IsZero() {
		p.TS = time.Now().UTC()
	}

	typ := p.Type
	if _, ok := knownTypes[typ]; !ok {
		typ = "other"
	}
	clientEvents.WithLabelValues(typ).Inc()
	log.Info().
		Str("type", p.Type).
		Str("message", p.Message).
		Interface("tags", p.Tags).
		Time("client_ts", p.TS).
		Msg("client event")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}
