package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	reg := New()
	reg.ObserveRequest("/v1/classify", http.StatusOK, 3*time.Millisecond)
	reg.ObserveRequest("/v1/classify", http.StatusServiceUnavailable, time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(reg.RequestDuration))
}

func TestHandlerExposesRegistry(t *testing.T) {
	reg := New()
	reg.ObserveRequest("/healthz", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "idscore_http_request_duration_seconds")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(503))
}
