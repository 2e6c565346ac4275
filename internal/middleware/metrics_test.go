package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/gemforge/backend/internal/metrics"
)

func TestMetrics_UsesRoutePattern(t *testing.T) {
	metrics.HTTPRequestsTotal.Reset()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := Metrics(mux)

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil))
	}

	got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "GET /jobs/{id}", "404"))
	assert.Equal(t, float64(2), got)
}
