// Package metrics defines Prometheus metrics for the alarm engine.
//
// Metrics are registered with the default registry and served by Handler.
// Counter names carry the alarm_engine_ prefix and the _total suffix.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch results.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

var (
	// StateUpdatesTotal counts accepted alarm state changes by severity.
	StateUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarm_engine_state_updates_total",
			Help: "Total alarm state changes applied to the tree by severity.",
		},
		[]string{"severity"},
	)

	// ActionsScheduledTotal counts automated action timers started.
	ActionsScheduledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alarm_engine_actions_scheduled_total",
			Help: "Total automated actions scheduled on escalation.",
		},
	)

	// ActionsCancelledTotal counts automated action timers cancelled before firing.
	ActionsCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alarm_engine_actions_cancelled_total",
			Help: "Total scheduled automated actions cancelled before they fired.",
		},
	)

	// ActionsDispatchedTotal counts dispatched actions by kind and result.
	ActionsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarm_engine_actions_dispatched_total",
			Help: "Total automated actions dispatched by kind and result.",
		},
		[]string{"kind", "result"},
	)

	// InfoPVWritesTotal counts info PV write attempts by result.
	InfoPVWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarm_engine_infopv_writes_total",
			Help: "Total info PV write attempts by result.",
		},
		[]string{"result"},
	)
)

func init() { //nolint:gochecknoinits // Metrics must be registered once per process.
	prometheus.MustRegister(
		StateUpdatesTotal,
		ActionsScheduledTotal,
		ActionsCancelledTotal,
		ActionsDispatchedTotal,
		InfoPVWritesTotal,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordStateUpdate records one applied state change.
func RecordStateUpdate(severity string) {
	StateUpdatesTotal.WithLabelValues(severity).Inc()
}

// RecordScheduled records one scheduled action.
func RecordScheduled() {
	ActionsScheduledTotal.Inc()
}

// RecordCancelled records one cancelled action.
func RecordCancelled() {
	ActionsCancelledTotal.Inc()
}

// RecordDispatch records one dispatched action.
func RecordDispatch(kind, result string) {
	ActionsDispatchedTotal.WithLabelValues(kind, result).Inc()
}

// RecordInfoPVWrite records one info PV write attempt.
func RecordInfoPVWrite(result string) {
	InfoPVWritesTotal.WithLabelValues(result).Inc()
}
