package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/greeter/internal/httputil"
	"github.com/R3E-Network/greeter/internal/logging"
	"github.com/R3E-Network/greeter/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// =============================================================================
// Logging
// =============================================================================

func TestLogging_GeneratesTraceID(t *testing.T) {
	var seen string
	h := Logging(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetTraceID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(httputil.TraceIDHeader))
}

func TestLogging_ReusesCallerTraceID(t *testing.T) {
	var seen string
	h := Logging(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(httputil.TraceIDHeader, "trace-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "trace-123", seen)
	assert.Equal(t, "trace-123", rr.Header().Get(httputil.TraceIDHeader))
}

// =============================================================================
// Metrics
// =============================================================================

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	r := mux.NewRouter()
	r.HandleFunc("/api/hello-world/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Use(Metrics("mock", m))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/hello-world/7", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	out := scrape(t, m)
	assert.Contains(t, out, `path="/api/hello-world/{id}"`)
	assert.Contains(t, out, `status="404"`)
	assert.Contains(t, out, `method="DELETE"`)
	assert.NotContains(t, out, `path="/api/hello-world/7"`)
}

func TestMetrics_NilMetricsIsSafe(t *testing.T) {
	h := Metrics("mock", nil)(okHandler())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStatusRecorder_FirstHeaderWins(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := newStatusRecorder(rr)

	_, err := rec.Write([]byte("hi"))
	require.NoError(t, err)
	rec.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, rec.status)
	assert.Equal(t, http.StatusOK, rr.Code)
}

// =============================================================================
// CORS
// =============================================================================

func TestStatusRecorder_Hijack(t *testing.T) {
	var hijacked atomic.Bool
	h := Logging(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !assert.True(t, ok) {
			return
		}
		conn, buf, err := hj.Hijack()
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		hijacked.Store(true)
		_, _ = buf.WriteString("HTTP/1.1 204 No Content\r\n\r\n")
		_ = buf.Flush()
	}))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.True(t, hijacked.Load())

	rec := newStatusRecorder(httptest.NewRecorder())
	_, _, err = rec.Hijack()
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	c := NewCORS([]string{"http://localhost:5173"})
	h := c.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/hello-world", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Trace-ID", rr.Header().Get("Access-Control-Expose-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/api/hello-world", nil)
	req.Header.Set("Origin", "http://evil.localhost:5173")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := NewCORS([]string{"*"}).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/hello-world", nil)
	req.Header.Set("Origin", "http://anywhere.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://anywhere.test", rr.Header().Get("Access-Control-Allow-Origin"))
}

// =============================================================================
// Rate limiting
// =============================================================================

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, logging.Discard())
	h := rl.Handler(okHandler())

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/hello-world", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001").Code)

	rr := send("10.0.0.1:1002")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, httputil.StatusError, env.Status)
	assert.Equal(t, "rate_limit_exceeded", env.Error)

	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000").Code, "other clients are unaffected")
}

func TestRateLimiter_FractionalRate(t *testing.T) {
	rl := NewRateLimiter(0.5, 1, logging.Discard())

	err := rl.exceeded()
	assert.Equal(t, 0.5, err.Details["limit"])
	assert.Equal(t, "1s", err.Details["window"])
	assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatus)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, logging.Discard())
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiter("a")
	now = now.Add(time.Minute)
	rl.limiter("b")

	assert.Equal(t, 1, rl.Cleanup(30*time.Second))
	_, hasA := rl.clients["a"]
	_, hasB := rl.clients["b"]
	assert.False(t, hasA)
	assert.True(t, hasB)
}

// =============================================================================
// Chain
// =============================================================================

func TestChain_FirstIsOutermost(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mw("a"), mw("b"), mw("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "a,b,c", strings.Join(order, ","))
}
