package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"storefront-order-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(data)
	r.bytes += n
	return n, err
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

// latencyRing keeps the last n samples of one route.
type latencyRing struct {
	samples []int64
	next    int
}

func (l *latencyRing) add(v int64, n int) {
	if len(l.samples) < n {
		l.samples = append(l.samples, v)
		return
	}
	l.samples[l.next] = v
	l.next = (l.next + 1) % n
}

type routeLatencies struct {
	mu     sync.Mutex
	size   int
	routes map[string]*latencyRing
}

func newRouteLatencies(size int) *routeLatencies {
	return &routeLatencies{size: size, routes: make(map[string]*latencyRing)}
}

// observe records ms for route and returns the route's p50 and p95.
func (a *routeLatencies) observe(route string, ms int64) (int64, int64) {
	a.mu.Lock()
	ring, ok := a.routes[route]
	if !ok {
		ring = &latencyRing{}
		a.routes[route] = ring
	}
	ring.add(ms, a.size)
	values := append([]int64(nil), ring.samples...)
	a.mu.Unlock()

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return percentile(values, 50), percentile(values, 95)
}

func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p*len(sorted)+99)/100 - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Telemetry logs one line per request with rolling per-route percentiles
// and feeds the request duration histogram.
func Telemetry(logger *zap.Logger) func(http.Handler) http.Handler {
	latencies := newRouteLatencies(200)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			route := ""
			if rc := chi.RouteContext(r.Context()); rc != nil {
				route = rc.RoutePattern()
			}
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(duration.Seconds())

			if logger == nil {
				return
			}
			p50, p95 := latencies.observe(r.Method+" "+route, duration.Milliseconds())
			logger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.String("requestId", RequestIDFrom(r)),
				zap.Int("status", status),
				zap.Int("bytes", rec.bytes),
				zap.Int64("duration_ms", duration.Milliseconds()),
				zap.Int64("p50_ms", p50),
				zap.Int64("p95_ms", p95),
			)
		})
	}
}
