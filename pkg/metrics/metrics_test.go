package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SnapshotsTotal.WithLabelValues("ok").Inc()
	m.AggregationFailures.WithLabelValues("top_searches").Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SnapshotsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.AggregationFailures.WithLabelValues("top_searches")))

	// A second set on a fresh registry must not collide.
	require.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}

func TestHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.PagesRenderedTotal.WithLabelValues("dashboard").Inc()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pages_rendered_total{page="dashboard"} 1`)
}
