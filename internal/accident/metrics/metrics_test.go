package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.IncrementAccidentsCreated()
	m.IncrementCompletionRejected("missing_sketch")
	m.IncrementCompletionRejected("missing_sketch")
	m.ObserveOperation("complete", time.Now(), "incomplete_statement")
	m.ObserveOperation("complete", time.Now(), "")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccidentsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CompletionRejected.WithLabelValues("missing_sketch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationErrors.WithLabelValues("complete", "incomplete_statement")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementAccidentsCreated()
		m.IncrementStatementsSubmitted()
		m.IncrementStatementsCompleted()
		m.IncrementDriversAdmitted()
		m.IncrementCompletionRejected("x")
		m.IncrementTxRetries()
		m.ObserveOperation("x", time.Now(), "y")
	})
}
