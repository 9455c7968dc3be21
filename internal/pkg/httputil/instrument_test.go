package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endrycofr/nginx-load-balancer/internal/pkg/metrics"
)

func newInstrumentedRouter(t *testing.T) (*metrics.Registry, *chi.Mux) {
	t.Helper()
	reg := metrics.NewRegistry(nil)
	r := chi.NewRouter()
	instr, err := NewInstrumentor(reg, r, "attendance", nil)
	require.NoError(t, err)
	r.Use(instr.Middleware)
	r.Use(middleware.Recoverer)
	return reg, r
}

func seriesLabels(m *dto.Metric) map[string]string {
	labels := map[string]string{}
	for _, l := range m.GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	return labels
}

func findSeries(t *testing.T, reg *metrics.Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			labels := seriesLabels(m)
			for k, v := range want {
				if labels[k] != v {
					continue metric
				}
			}
			return m
		}
	}
	return nil
}

func TestInstrumentorCountsByRoutePattern(t *testing.T) {
	reg, r := newInstrumentedRouter(t)
	r.Get("/attendance/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attendance/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// Distinct ids collapse into one pattern-labeled series.
	series := findSeries(t, reg, metrics.RequestsTotal.Name, map[string]string{
		"endpoint":    "/attendance/{id}",
		"method":      http.MethodGet,
		"status_code": "200",
		"service":     "attendance",
	})
	require.NotNil(t, series)
	assert.Equal(t, 3.0, series.GetCounter().GetValue())

	duration := findSeries(t, reg, metrics.RequestDuration.Name, map[string]string{
		"endpoint": "/attendance/{id}",
	})
	require.NotNil(t, duration)
	assert.Equal(t, uint64(3), duration.GetHistogram().GetSampleCount())
}

func TestInstrumentorUnknownRoute(t *testing.T) {
	reg, r := newInstrumentedRouter(t)
	r.Get("/attendance", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	series := findSeries(t, reg, metrics.RequestsTotal.Name, map[string]string{
		"endpoint":    metrics.EndpointUnknown,
		"status_code": "404",
	})
	require.NotNil(t, series)
	assert.Equal(t, 1.0, series.GetCounter().GetValue())

	errSeries := findSeries(t, reg, metrics.ErrorsTotal.Name, map[string]string{
		"endpoint":   metrics.EndpointUnknown,
		"error_type": "http_404",
	})
	require.NotNil(t, errSeries)
}

func TestInstrumentorInProgressGauge(t *testing.T) {
	reg, r := newInstrumentedRouter(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	r.Get("/attendance", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attendance", nil))
	}()

	<-entered
	series := findSeries(t, reg, metrics.RequestsInProgress.Name, map[string]string{
		"endpoint": "/attendance",
	})
	require.NotNil(t, series)
	assert.Equal(t, 1.0, series.GetGauge().GetValue())

	close(release)
	<-done

	series = findSeries(t, reg, metrics.RequestsInProgress.Name, map[string]string{
		"endpoint": "/attendance",
	})
	require.NotNil(t, series)
	assert.Equal(t, 0.0, series.GetGauge().GetValue())
}

func TestInstrumentorPanicRestoresGauge(t *testing.T) {
	reg, r := newInstrumentedRouter(t)
	r.Get("/attendance", func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attendance", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	inProgress := findSeries(t, reg, metrics.RequestsInProgress.Name, map[string]string{
		"endpoint": "/attendance",
	})
	require.NotNil(t, inProgress)
	assert.Equal(t, 0.0, inProgress.GetGauge().GetValue(), "in-flight gauge must be restored after a panic")

	errSeries := findSeries(t, reg, metrics.ErrorsTotal.Name, map[string]string{
		"endpoint":   "/attendance",
		"error_type": "http_500",
	})
	require.NotNil(t, errSeries)
	assert.Equal(t, 1.0, errSeries.GetCounter().GetValue())
}

func TestInstrumentorEndpointInContext(t *testing.T) {
	_, r := newInstrumentedRouter(t)

	var got string
	r.Get("/attendance/{id}", func(w http.ResponseWriter, r *http.Request) {
		got = metrics.EndpointFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attendance/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/attendance/{id}", got)
}

func TestInstrumentorErrorStatusCounted(t *testing.T) {
	reg, r := newInstrumentedRouter(t)
	r.Post("/attendance", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/attendance", nil))

	errSeries := findSeries(t, reg, metrics.ErrorsTotal.Name, map[string]string{
		"endpoint":   "/attendance",
		"error_type": "http_400",
		"service":    "attendance",
	})
	require.NotNil(t, errSeries)
	assert.Equal(t, 1.0, errSeries.GetCounter().GetValue())
}
