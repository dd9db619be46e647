package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/milosgajdos/go-approx/dp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	assert := assert.New(t)

	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Record(dp.Stats{Nodes: 3, Edges: 8, Violations: 2, Duration: time.Millisecond}, true)
	assert.Equal(1.0, testutil.ToFloat64(m.solves.WithLabelValues(ResultOK)))
	assert.Equal(8.0, testutil.ToFloat64(m.edges))
	assert.Equal(2.0, testutil.ToFloat64(m.violations))
	assert.Equal(1.0, testutil.ToFloat64(m.success))

	m.Record(dp.Stats{Edges: 4}, false)
	assert.Equal(1.0, testutil.ToFloat64(m.solves.WithLabelValues(ResultInfeasible)))
	assert.Equal(12.0, testutil.ToFloat64(m.edges))
	assert.Equal(0.0, testutil.ToFloat64(m.success))

	m.RecordError()
	assert.Equal(1.0, testutil.ToFloat64(m.solves.WithLabelValues(ResultError)))

	assert.Equal(1, testutil.CollectAndCount(m.duration))

	// collectors can be registered only once
	_, err = New(reg)
	assert.Error(err)
}

func TestWriteText(t *testing.T) {
	assert := assert.New(t)

	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.Record(dp.Stats{Edges: 27, Violations: 9}, true)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))

	out := buf.String()
	assert.Contains(out, "approx_edges_total 27")
	assert.Contains(out, "approx_dwell_violations_total 9")
	assert.Contains(out, `approx_solve_total{result="ok"} 1`)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, WriteFile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(strings.Contains(string(data), "approx_solve_success 1"))
}
