// Package metrics provides Prometheus metrics for keep-alive runs.
//
// A run is short-lived, so metrics are never scraped from the process.
// They are pushed to a Pushgateway or written to a node_exporter textfile.
package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the Pushgateway job name for keep-alive runs.
const Job = "supabase_keepalive"

var (
	// Global metrics - used by the application
	// Using atomic.Pointer so Record* is a no-op before Init.
	probeTotal    atomic.Pointer[prometheus.CounterVec]
	probeDuration atomic.Pointer[prometheus.HistogramVec]
	probeRows     atomic.Pointer[prometheus.GaugeVec]
	lastSuccess   atomic.Pointer[prometheus.GaugeVec]
)

// Init initializes all Prometheus metrics and registers them with the provided registry.
// This should be called once at application startup.
func Init(reg prometheus.Registerer, version string) error {
	// Probe counter: one increment per run, labelled by outcome (success or error kind)
	probeTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supabase",
			Subsystem: "keepalive",
			Name:      "probe_total",
			Help:      "Total number of liveness probes by outcome",
		},
		[]string{"table", "outcome"},
	)
	if err := reg.Register(probeTotalVec); err != nil {
		return fmt.Errorf("failed to register probeTotal: %w", err)
	}

	probeDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "supabase",
			Subsystem: "keepalive",
			Name:      "probe_duration_seconds",
			Help:      "Liveness probe latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"table"},
	)
	if err := reg.Register(probeDurationVec); err != nil {
		return fmt.Errorf("failed to register probeDuration: %w", err)
	}

	probeRowsVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "supabase",
			Subsystem: "keepalive",
			Name:      "probe_rows",
			Help:      "Rows returned by the last successful probe (0 or 1)",
		},
		[]string{"table"},
	)
	if err := reg.Register(probeRowsVec); err != nil {
		return fmt.Errorf("failed to register probeRows: %w", err)
	}

	lastSuccessVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "supabase",
			Subsystem: "keepalive",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful probe",
		},
		[]string{"table"},
	)
	if err := reg.Register(lastSuccessVec); err != nil {
		return fmt.Errorf("failed to register lastSuccess: %w", err)
	}

	// Info gauge: static metric with constant label values for build info
	infoGaugeVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "supabase",
			Subsystem: "keepalive",
			Name:      "info",
			Help:      "Keep-alive version and build information",
		},
		[]string{"version"},
	)
	if err := reg.Register(infoGaugeVec); err != nil {
		return fmt.Errorf("failed to register infoGauge: %w", err)
	}
	infoGaugeVec.WithLabelValues(version).Set(1)

	probeTotal.Store(probeTotalVec)
	probeDuration.Store(probeDurationVec)
	probeRows.Store(probeRowsVec)
	lastSuccess.Store(lastSuccessVec)

	return nil
}

// RecordSuccess records a successful probe of table.
func RecordSuccess(table string, rows int, duration time.Duration, now time.Time) {
	if counter := probeTotal.Load(); counter != nil {
		counter.WithLabelValues(table, "success").Inc()
	}
	if histogram := probeDuration.Load(); histogram != nil {
		histogram.WithLabelValues(table).Observe(duration.Seconds())
	}
	if gauge := probeRows.Load(); gauge != nil {
		gauge.WithLabelValues(table).Set(float64(rows))
	}
	if gauge := lastSuccess.Load(); gauge != nil {
		gauge.WithLabelValues(table).Set(float64(now.Unix()))
	}
}

// RecordFailure records a failed probe of table. outcome is the error kind,
// e.g. "resource_not_found".
func RecordFailure(table, outcome string, duration time.Duration) {
	if counter := probeTotal.Load(); counter != nil {
		counter.WithLabelValues(table, outcome).Inc()
	}
	if histogram := probeDuration.Load(); histogram != nil {
		histogram.WithLabelValues(table).Observe(duration.Seconds())
	}
}

// Push replaces the job's metric group on the Pushgateway at url.
func Push(ctx context.Context, url string, g prometheus.Gatherer, client *http.Client) error {
	pusher := push.New(url, Job).Gatherer(g)
	if client != nil {
		pusher = pusher.Client(client)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

// WriteTextfile writes the registry atomically in the node_exporter textfile
// collector format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// GetMetricsText returns the Prometheus text-format output from a registry.
// This is useful for testing and debugging.
func GetMetricsText(reg prometheus.Gatherer) (string, error) {
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	// Use httptest to capture the handler output
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	body, err := io.ReadAll(w.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metrics output: %w", err)
	}

	return string(body), nil
}
