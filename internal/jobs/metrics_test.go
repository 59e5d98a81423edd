package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("stock_reconcile").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("stock_reconcile").End(boom), boom)
	m.AddCorrections(3)
	m.AddCorrections(0)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("stock_reconcile", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("stock_reconcile")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.corrections))
}

func TestNilMetricsAreInert(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("x").End(nil))
	m.AddCorrections(2)
}
