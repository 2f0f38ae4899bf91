package events

import "github.com/prometheus/client_golang/prometheus"

var (
	published = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "events published by transport and result",
	}, []string{"transport", "result"})
	received = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_received_total",
		Help: "events received from other instances by type",
	}, []string{"type"})
)

func init() { prometheus.MustRegister(published, received) }

func observe(transport string, err error) {
	if err != nil {
		published.WithLabelValues(transport, "error").Inc()
		return
	}
	published.WithLabelValues(transport, "ok").Inc()
}
