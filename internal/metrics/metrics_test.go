package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := New()

	c.ObserveCycle("ok", 2*time.Second)
	c.ObserveCycle("unreachable", time.Second)
	c.ObserveDelivery("pdf", true)
	c.ObserveDelivery("pdf", false)
	c.ObserveDelivery("pdf", true)
	c.ObserveRender("success", 3*time.Second)
	c.IncSkippedFiring()
	c.SetScheduledTargets(7)
	c.IncContentChange()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.cyclesTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.deliveriesTotal.WithLabelValues("pdf", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveriesTotal.WithLabelValues("pdf", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.renderTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.firingsSkipped))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.scheduledTargets))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.contentChanges))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.IncSkippedFiring()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.firingsSkipped))
}

func TestHandler(t *testing.T) {
	c := New()
	c.ObserveDelivery("image", true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `resourcewatch_deliveries_total{status="success",type="image"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
