// Package metrics exposes Prometheus counters and latency histograms for
// catalog reads, query generation and statement execution.
//
// Collectors register on the default registry at init. Nothing is served
// unless Serve is called (see the --metrics-addr flag).
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/DachengChen/askSQL/applog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	schemaCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asksql_schema_calls_total",
			Help: "Total number of catalog calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	schemaCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asksql_schema_call_duration_seconds",
			Help:    "Catalog call latency, including connect.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asksql_generations_total",
			Help: "Total number of query generation requests by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	generationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asksql_generation_duration_seconds",
			Help:    "Language model round-trip latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"provider"},
	)

	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asksql_executions_total",
			Help: "Total number of executed statements by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	executionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asksql_execution_duration_seconds",
			Help:    "Statement execution latency by kind.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		schemaCallsTotal,
		schemaCallDurationSeconds,
		generationsTotal,
		generationDurationSeconds,
		executionsTotal,
		executionDurationSeconds,
	)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveSchema records one catalog call.
func ObserveSchema(op string, elapsed time.Duration, err error) {
	schemaCallsTotal.WithLabelValues(op, outcome(err)).Inc()
	schemaCallDurationSeconds.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveGeneration records one model round trip.
func ObserveGeneration(provider string, elapsed time.Duration, err error) {
	generationsTotal.WithLabelValues(provider, outcome(err)).Inc()
	generationDurationSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveExecution records one executed statement.
func ObserveExecution(kind string, elapsed time.Duration, err error) {
	executionsTotal.WithLabelValues(kind, outcome(err)).Inc()
	executionDurationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Server is a running metrics endpoint.
type Server struct {
	srv  *http.Server
	addr net.Addr
}

// Serve listens on addr and serves /metrics in the background.
func Serve(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		srv:  &http.Server{Handler: Handler(), ReadHeaderTimeout: 5 * time.Second},
		addr: ln.Addr(),
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error("metrics server: %v", err)
		}
	}()
	return s, nil
}

// Addr is the address actually bound, useful when addr had port 0.
func (s *Server) Addr() string {
	return s.addr.String()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
