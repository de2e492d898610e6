package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizcrawl_fetch_requests_total",
			Help: "Total number of fetches executed, by pipeline stage and outcome",
		},
		[]string{"stage", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizcrawl_fetch_duration_seconds",
			Help:    "Duration of fetches in seconds, including retries",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizcrawl_fetch_bytes_total",
			Help: "Total response bytes downloaded",
		},
		[]string{"stage"},
	)

	SearchPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bizcrawl_search_pages_total",
			Help: "Search pages accepted by the pipeline",
		},
	)

	RecordsEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bizcrawl_records_emitted_total",
			Help: "Business records written to the output sink",
		},
	)

	ChainFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizcrawl_chain_failures_total",
			Help: "Crawl chains abandoned, by the stage that failed",
		},
		[]string{"stage"},
	)
)

// RecordFetch updates the fetch metrics for one delivered response. A
// non-nil err is counted under status "error" regardless of statusCode.
func RecordFetch(stage string, statusCode int, err error, duration time.Duration, bytes int) {
	status := strconv.Itoa(statusCode)
	if err != nil {
		status = "error"
	}

	FetchRequestsTotal.WithLabelValues(stage, status).Inc()
	FetchDuration.WithLabelValues(stage).Observe(duration.Seconds())
	FetchBytesTotal.WithLabelValues(stage).Add(float64(bytes))
}

// RecordChainFailure counts a chain abandoned at stage.
func RecordChainFailure(stage string) {
	ChainFailuresTotal.WithLabelValues(stage).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", srv.Addr, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
