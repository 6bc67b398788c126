package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/payments/abc-123", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var foundRequestsTotal, foundDuration bool
	for _, mf := range metricFamilies {
		switch *mf.Name {
		case "test_http_requests_total":
			foundRequestsTotal = true
			require.Greater(t, len(mf.Metric), 0)
			// Labeled with the route pattern, not the raw path
			for _, label := range mf.Metric[0].Label {
				if *label.Name == "path" {
					assert.Equal(t, "/payments/{id}", *label.Value)
				}
			}
		case "test_http_request_duration_seconds":
			foundDuration = true
		}
	}
	assert.True(t, foundRequestsTotal)
	assert.True(t, foundDuration)
}

func TestMetrics_ErrorStatusRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Post("/payments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	req := httptest.NewRequest("POST", "/payments", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStatusWriter(t *testing.T) {
	w := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

	sw.WriteHeader(http.StatusCreated)
	assert.Equal(t, http.StatusCreated, sw.statusCode)
	assert.Equal(t, http.StatusCreated, w.Code)
}
