package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/auth/profile", 200, 0.01)
	m.ObserveHTTP("GET", "/api/auth/profile", 404, 0.02)
	m.ObserveHTTP("GET", "/api/auth/profile", 401, 0.02)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/auth/profile", "2xx")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/auth/profile", "4xx")))
}

func TestAuthEvent(t *testing.T) {
	m := New()
	m.AuthEvent("login", true)
	m.AuthEvent("login", false)
	m.AuthEvent("login", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("login", "failure")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.AuthEvent("register", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `visadesk_auth_events_total{event="register",result="success"} 1`))
	assert.Contains(t, body, "go_goroutines")
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(201))
	assert.Equal(t, "3xx", statusClass(304))
	assert.Equal(t, "4xx", statusClass(409))
	assert.Equal(t, "5xx", statusClass(503))
}
