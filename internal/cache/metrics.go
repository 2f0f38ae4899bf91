package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_refresh_total",
		Help: "cache refresh calls by outcome",
	}, []string{"result"})
	sizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_assignments",
		Help: "assignments held by the cache",
	})
	listenersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_listeners",
		Help: "registered cache listeners",
	})
)

func init() { prometheus.MustRegister(refreshes, sizeGauge, listenersGauge) }
