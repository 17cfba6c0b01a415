package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
)

func TestNewRegistry_Independent(t *testing.T) {
	a := metrics.NewRegistry()
	b := metrics.NewRegistry()

	a.SnapshotsCaptured.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.SnapshotsCaptured))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SnapshotsCaptured))
}

func TestRegistry_Gather(t *testing.T) {
	r := metrics.NewRegistry()
	r.Operations.WithLabelValues("write", "success").Inc()
	r.Operations.WithLabelValues("write", "blocked").Add(2)

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "sumerian_file_operations_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2)
		}
	}
	assert.True(t, found)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Operations.WithLabelValues("write", "blocked")))
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, metrics.Default(), metrics.OrDefault(nil))
	r := metrics.NewRegistry()
	assert.Same(t, r, metrics.OrDefault(r))
}
