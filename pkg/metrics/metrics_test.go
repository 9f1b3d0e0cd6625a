package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordImport(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordImport("dictcc", 10, time.Second, nil)
	m.RecordImport("dictcc", 5, time.Second, nil)
	m.RecordImport("yomitan", 3, time.Second, errors.New("bad"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.importsTotal.WithLabelValues("dictcc", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importsTotal.WithLabelValues("yomitan", "error")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.importedEntries.WithLabelValues("dictcc")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.importedEntries.WithLabelValues("yomitan")))
}

func TestRecordLookup(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordLookup(4, time.Millisecond, nil)
	m.RecordLookup(0, time.Millisecond, errors.New("store"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookupsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookupsTotal.WithLabelValues("error")))
}

func TestDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordImport("dictcc", 1, time.Second, nil)
	m.RecordLookup(1, time.Second, nil)
}
