package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHTTPRequest(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("helloworld", "GET", "/api/hello-world", "200", 10*time.Millisecond)
	m.RecordHTTPRequest("helloworld", "GET", "/api/hello-world", "200", 10*time.Millisecond)

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("helloworld", "GET", "/api/hello-world", "200"))
	assert.Equal(t, float64(2), got)
}

func TestInFlight(t *testing.T) {
	m := New()
	m.IncrementInFlight()
	m.IncrementInFlight()
	m.DecrementInFlight()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpInFlight))
}

func TestClientRequests(t *testing.T) {
	m := New()
	m.RecordClientRequest("POST", "success", time.Millisecond)
	m.RecordClientRequest("POST", "", time.Millisecond)
	m.RecordClientRetry("GET")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.clientRequests.WithLabelValues("POST", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.clientRequests.WithLabelValues("POST", "unknown")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.clientRetries.WithLabelValues("GET")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.IncrementInFlight()
	m.DecrementInFlight()
	m.RecordHTTPRequest("s", "GET", "/", "200", time.Millisecond)
	m.RecordClientRequest("GET", "success", time.Millisecond)
	m.RecordClientRetry("GET")
	assert.Nil(t, m.Registry())

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.RecordClientRequest("GET", "success", time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "helloworld_transport_requests_total"))
}
