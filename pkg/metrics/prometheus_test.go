package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollectorRegistersAndUpdates(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.IncCounter("jobs_total", map[string]string{"tag": "default"}, 1)
	c.IncCounter("jobs_total", map[string]string{"tag": "default"}, 2)
	c.SetGauge("candidates_scanned", map[string]string{"tag": "default"}, 5)
	c.ObserveHistogram("job_duration_seconds", map[string]string{"tag": "default"}, 0.5)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	var counterFound bool
	for _, f := range families {
		if f.GetName() == "jobs_total" {
			counterFound = true
			require.Equal(t, 3.0, f.Metric[0].GetCounter().GetValue())
		}
	}
	require.True(t, counterFound)
}

func TestPrometheusCollectorSatisfiesCollector(t *testing.T) {
	var _ Collector = NewPrometheusCollector(prometheus.NewRegistry())
}
