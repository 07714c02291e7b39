package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatsync "github.com/nhle/clinic-chat/internal/sync"
)

func TestSyncMetricsRecordsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewSyncMetrics(reg)
	require.NoError(t, err)

	m.ObserveFetch(chatsync.FetchFull, 20*time.Millisecond, nil)
	m.ObserveFetch(chatsync.FetchIncremental, 5*time.Millisecond, errors.New("boom"))
	m.ObserveSubmit(time.Millisecond, nil)
	m.ObserveStale("fetch")
	m.ObserveStale("fetch")
	m.ObserveInterval(chatsync.ModeActiveFast, 3*time.Second)
	m.ObserveInterval(chatsync.ModeBackground, 15*time.Second)
	m.ObserveUnread(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchesTotal.WithLabelValues("full", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchesTotal.WithLabelValues("incremental", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submitsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.staleTotal.WithLabelValues("fetch")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.pollInterval.WithLabelValues("active")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.pollInterval.WithLabelValues("background")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.unreadTotal))
}

func TestNilSyncMetricsIsSafe(t *testing.T) {
	var m *SyncMetrics
	assert.NotPanics(t, func() {
		m.ObserveFetch(chatsync.FetchFull, time.Second, nil)
		m.ObserveSubmit(time.Second, nil)
		m.ObserveStale("fetch")
		m.ObserveInterval(chatsync.ModeIdle, time.Second)
		m.ObserveUnread(1)
	})
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewSyncMetrics(reg)
	require.NoError(t, err)
	_, err = NewSyncMetrics(reg)
	assert.Error(t, err)
}

func TestHTTPMiddlewareUsesRoutePattern(t *testing.T) {
	reg := NewRegistry()
	m, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Post("/rpc", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/metrics", reg.Handler().ServeHTTP)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	m.ObserveAction("chat.sendMessage", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "/rpc", "202")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actionsTotal.WithLabelValues("chat.sendMessage", "true")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "clinicchat_http_requests_total"))
}
