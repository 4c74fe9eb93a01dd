package core

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveFile(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.observeFile(OutcomeImported, 5, 4, 10*time.Millisecond)
	m.observeFile(OutcomeDryRun, 7, 0, time.Millisecond)
	m.observeFile(OutcomeFailed, 0, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesProcessed.WithLabelValues(OutcomeImported)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesProcessed.WithLabelValues(OutcomeDryRun)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesProcessed.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.readingsParsed))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.readingsImported))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeFile(OutcomeImported, 1, 1, time.Second)
	})
}

func TestMetrics_OutcomesPreinitialized(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	n, err := testutil.GatherAndCount(reg, "d0010_files_processed_total")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
}
