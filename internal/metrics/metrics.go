package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects scheduler and delivery counters. Repeated storage or send
// failures surface here rather than killing any loop.
type Metrics struct {
	SchedulerTicks  *prometheus.CounterVec
	SchedulerErrors *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
}

// New registers all counters on the given registerer. Production passes
// prometheus.DefaultRegisterer; tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SchedulerTicks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "konkurbot_scheduler_ticks_total",
			Help: "Completed scheduler ticks per reminder kind.",
		}, []string{"kind"}),
		SchedulerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "konkurbot_scheduler_tick_errors_total",
			Help: "Scheduler ticks that ended with an error, per reminder kind.",
		}, []string{"kind"}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "konkurbot_deliveries_total",
			Help: "Delivery attempts per reminder kind and status.",
		}, []string{"kind", "status"}),
	}
}
