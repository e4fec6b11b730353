// Package metrics holds the Prometheus collectors of the synchronization
// core. Collectors are package level and registered explicitly with
// Register.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var ModeTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rigsync",
	Subsystem: "gate",
	Name:      "mode_transitions",
	Help:      "Mode changes requested by the mode guard.",
}, []string{"mode", "result"})

var GuardSections = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "rigsync",
	Subsystem: "gate",
	Name:      "held_sections",
	Help:      "Mode guard sections currently open, nested ones included.",
})

var PendingEntries = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "rigsync",
	Subsystem: "pending",
	Name:      "entries",
	Help:      "Gated regions waiting for a deferred commit.",
})

// Eviction reasons.
const (
	EvictExpired = "expired"
	EvictNoSpace = "no_space"
)

var PendingEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rigsync",
	Subsystem: "pending",
	Name:      "evictions",
	Help:      "Gated regions dropped by the store before a deferred commit.",
}, []string{"reason"})

var Commits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rigsync",
	Subsystem: "rig",
	Name:      "commits",
	Help:      "Deferred gated-region commits by status.",
}, []string{"status"})

var Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rigsync",
	Subsystem: "rig",
	Name:      "operations",
	Help:      "Proxy lifecycle operations by result.",
}, []string{"op", "result"})

var OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "rigsync",
	Subsystem: "rig",
	Name:      "operation_duration_seconds",
	Help:      "Duration of proxy lifecycle operations.",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
}, []string{"op"})

// Collectors returns every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		ModeTransitions,
		GuardSections,
		PendingEntries,
		PendingEvictions,
		Commits,
		Operations,
		OperationDuration,
	}
}

// Register registers the collectors with reg. Collectors that are already
// registered are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Result maps err to a result label value.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
