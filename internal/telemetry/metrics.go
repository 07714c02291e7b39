// Package telemetry exposes Prometheus metrics for the chat sync engine and
// the development backend.
package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	chatsync "github.com/nhle/clinic-chat/internal/sync"
)

const namespace = "clinicchat"

// SyncMetrics records sync engine activity. It implements chatsync.Metrics.
type SyncMetrics struct {
	fetchDuration  *prometheus.HistogramVec
	fetchesTotal   *prometheus.CounterVec
	submitDuration prometheus.Histogram
	submitsTotal   *prometheus.CounterVec
	staleTotal     *prometheus.CounterVec
	pollInterval   *prometheus.GaugeVec
	unreadTotal    prometheus.Gauge
}

var _ chatsync.Metrics = (*SyncMetrics)(nil)

// NewSyncMetrics creates the sync instruments and registers them with reg.
func NewSyncMetrics(reg prometheus.Registerer) (*SyncMetrics, error) {
	m := &SyncMetrics{
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of message fetches in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"kind"}),
		fetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "fetches_total",
			Help:      "Total number of message fetches.",
		}, []string{"kind", "result"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "submit_duration_seconds",
			Help:      "Duration of message submissions in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		submitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "submits_total",
			Help:      "Total number of message submissions.",
		}, []string{"result"}),
		staleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because the active channel changed.",
		}, []string{"op"}),
		pollInterval: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "poll_interval_seconds",
			Help:      "Current polling interval; only the active mode is non-zero.",
		}, []string{"mode"}),
		unreadTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "unread_messages",
			Help:      "Total unread messages across channels.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.fetchDuration, m.fetchesTotal, m.submitDuration, m.submitsTotal,
		m.staleTotal, m.pollInterval, m.unreadTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveFetch records one fetch.
func (m *SyncMetrics) ObserveFetch(kind chatsync.FetchKind, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	m.fetchesTotal.WithLabelValues(string(kind), result(err)).Inc()
}

// ObserveSubmit records one message submission.
func (m *SyncMetrics) ObserveSubmit(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.submitDuration.Observe(elapsed.Seconds())
	m.submitsTotal.WithLabelValues(result(err)).Inc()
}

// ObserveStale counts a discarded stale response.
func (m *SyncMetrics) ObserveStale(op string) {
	if m == nil {
		return
	}
	m.staleTotal.WithLabelValues(op).Inc()
}

// ObserveInterval sets the polling interval gauge for mode and zeroes the others.
func (m *SyncMetrics) ObserveInterval(mode chatsync.Mode, interval time.Duration) {
	if m == nil {
		return
	}
	for _, other := range []chatsync.Mode{chatsync.ModeActiveFast, chatsync.ModeBackground, chatsync.ModeIdle} {
		if other != mode {
			m.pollInterval.WithLabelValues(other.String()).Set(0)
		}
	}
	m.pollInterval.WithLabelValues(mode.String()).Set(interval.Seconds())
}

// ObserveUnread sets the total unread gauge.
func (m *SyncMetrics) ObserveUnread(total int) {
	if m == nil {
		return
	}
	m.unreadTotal.Set(float64(total))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Registry bundles a Prometheus registry with the process collectors.
type Registry struct {
	*prometheus.Registry
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{Registry: reg}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// Serve runs a metrics-only HTTP server on addr until it fails or is closed.
func (r *Registry) Serve(addr string) (*http.Server, <-chan error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return srv, errCh
}
