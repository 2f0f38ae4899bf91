package assign

import "github.com/prometheus/client_golang/prometheus"

var outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "assign_total",
	Help: "assignment requests by outcome",
}, []string{"outcome"})

func init() { prometheus.MustRegister(outcomes) }
