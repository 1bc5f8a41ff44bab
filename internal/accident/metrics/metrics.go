package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics provides observability for the accident workflow.
// All methods are safe on a nil receiver so services can run without metrics.
type Metrics struct {
	AccidentsCreated    prometheus.Counter
	StatementsSubmitted prometheus.Counter
	StatementsCompleted prometheus.Counter
	DriversAdmitted     prometheus.Counter
	CompletionRejected  *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	OperationErrors     *prometheus.CounterVec
	TxRetries           prometheus.Counter
}

// New registers the accident metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AccidentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "amicable_accidents_created_total",
			Help: "Total number of accidents reported",
		}),
		StatementsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "amicable_statements_submitted_total",
			Help: "Statements created by invited drivers",
		}),
		StatementsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "amicable_statements_completed_total",
			Help: "Statements that reached done",
		}),
		DriversAdmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "amicable_drivers_admitted_total",
			Help: "Temporary driver invites created",
		}),
		CompletionRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "amicable_completion_rejected_total",
			Help: "Complete calls rejected as incomplete, by missing requirement",
		}, []string{"reason"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amicable_operation_duration_seconds",
			Help:    "Duration of accident workflow operations",
			Buckets: latencyBuckets,
		}, []string{"operation"}),
		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "amicable_operation_errors_total",
			Help: "Failed accident workflow operations by error code",
		}, []string{"operation", "code"}),
		TxRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "amicable_accident_tx_retries_total",
			Help: "Per-accident transactions retried after a transient storage failure",
		}),
	}
}

func (m *Metrics) IncrementAccidentsCreated() {
	if m == nil {
		return
	}
	m.AccidentsCreated.Inc()
}

func (m *Metrics) IncrementStatementsSubmitted() {
	if m == nil {
		return
	}
	m.StatementsSubmitted.Inc()
}

func (m *Metrics) IncrementStatementsCompleted() {
	if m == nil {
		return
	}
	m.StatementsCompleted.Inc()
}

func (m *Metrics) IncrementDriversAdmitted() {
	if m == nil {
		return
	}
	m.DriversAdmitted.Inc()
}

func (m *Metrics) IncrementCompletionRejected(reason string) {
	if m == nil {
		return
	}
	m.CompletionRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementTxRetries() {
	if m == nil {
		return
	}
	m.TxRetries.Inc()
}

// ObserveOperation records one finished operation. Call with time.Now()
// captured at the start; code is empty on success.
func (m *Metrics) ObserveOperation(operation string, start time.Time, code string) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if code != "" {
		m.OperationErrors.WithLabelValues(operation, code).Inc()
	}
}
