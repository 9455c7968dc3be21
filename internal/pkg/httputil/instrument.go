package httputil

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/endrycofr/nginx-load-balancer/internal/pkg/metrics"
)

// Instrumentor records the lifecycle of every inbound request: in-flight
// count, latency, outcome counts, and error classification.
type Instrumentor struct {
	reg     *metrics.Registry
	routes  chi.Routes
	service string
	logger  *slog.Logger
}

// NewInstrumentor registers the request metrics. routes is the route tree
// used to resolve the endpoint label before the handler runs; it may be the
// same mux the middleware is mounted on.
func NewInstrumentor(reg *metrics.Registry, routes chi.Routes, service string, logger *slog.Logger) (*Instrumentor, error) {
	decls := []metrics.Decl{
		metrics.RequestsTotal,
		metrics.RequestDuration,
		metrics.RequestsInProgress,
		metrics.ErrorsTotal,
	}
	for _, d := range decls {
		if err := reg.Register(d); err != nil {
			return nil, fmt.Errorf("register %s: %w", d.Name, err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumentor{reg: reg, routes: routes, service: service, logger: logger}, nil
}

// Middleware wraps a handler with request instrumentation. The release runs
// deferred so the in-flight gauge is restored on every exit path, including
// handler panics and client aborts.
func (in *Instrumentor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := in.resolveEndpoint(r)

		in.inc(metrics.RequestsInProgress.Name, 1, endpoint)

		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			in.inc(metrics.RequestsInProgress.Name, -1, endpoint)

			elapsed := time.Since(start).Seconds()
			in.observe(metrics.RequestDuration.Name, elapsed, endpoint, r.Method, in.service)

			code := wrapped.status
			in.inc(metrics.RequestsTotal.Name, 1, endpoint, r.Method, strconv.Itoa(code), in.service)

			if code >= 400 {
				in.inc(metrics.ErrorsTotal.Name, 1, endpoint, fmt.Sprintf("http_%d", code), in.service)
			}
		}()

		ctx := metrics.WithEndpoint(r.Context(), endpoint)
		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

// resolveEndpoint matches the route tree to find the pattern that will
// serve this request. Route patterns, not raw paths, keep label cardinality
// bounded. Requests that match nothing degrade to the unknown sentinel.
func (in *Instrumentor) resolveEndpoint(r *http.Request) string {
	if in.routes == nil {
		return metrics.EndpointUnknown
	}
	rctx := chi.NewRouteContext()
	if !in.routes.Match(rctx, r.Method, r.URL.Path) {
		return metrics.EndpointUnknown
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return metrics.EndpointUnknown
}

func (in *Instrumentor) inc(name string, delta float64, labelValues ...string) {
	if err := in.reg.Inc(name, delta, labelValues...); err != nil {
		in.logger.Warn("dropping request metric", "metric", name, "error", err)
	}
}

func (in *Instrumentor) observe(name string, value float64, labelValues ...string) {
	if err := in.reg.Observe(name, value, labelValues...); err != nil {
		in.logger.Warn("dropping request metric", "metric", name, "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap returns the underlying ResponseWriter for middleware compatibility.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush implements http.Flusher for streaming support.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker for WebSocket support.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("ResponseWriter does not implement http.Hijacker")
}
