package stream

import "github.com/prometheus/client_golang/prometheus"

var (
	subsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_feed_subscribers",
		Help: "open dashboard SSE and websocket feeds",
	})
	histGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_feed_history_events",
		Help: "assignment events retained for replay",
	})
	dropsCtr = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_feed_dropped_events_total",
		Help: "assignment events not delivered because a feed buffer was full",
	})
	dupCtr = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_feed_duplicate_events_total",
		Help: "redelivered assignment events ignored by id",
	})
	replayCtr = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_feed_replayed_events_total",
		Help: "assignment events replayed to reconnecting feeds",
	})
)

func init() { prometheus.MustRegister(subsGauge, histGauge, dropsCtr, dupCtr, replayCtr) }
