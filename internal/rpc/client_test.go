package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/clinic-chat/internal/logging"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(handler)
	srv.Config.SetKeepAlivesEnabled(false)
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string, opts Options) *Client {
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			return backoff.NewConstantBackOff(time.Millisecond)
		}
	}
	return NewClient(url, opts)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestCallDecodesData(t *testing.T) {
	var got Request
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, `{"success":true,"data":{"messages":[{"sender":"ana","message":"oi","timestamp":"2024-01-01T10:00:00Z"}]},"errors":[]}`)
	})

	client := newTestClient(srv.URL, Options{Token: "secret"})
	var out struct {
		Messages []map[string]any `json:"messages"`
	}
	err := client.Call(context.Background(), ActionListMessages, map[string]string{"roomId": "r1"}, &out)
	require.NoError(t, err)

	assert.Equal(t, ActionListMessages, got.Action)
	assert.Equal(t, map[string]any{"roomId": "r1"}, got.Payload)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "oi", out.Messages[0]["message"])
}

func TestCallNilPayloadSendsEmptyObject(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"action":"usuarios.listAll","payload":{}}`, string(raw))
		writeJSON(w, `{"success":true,"data":null,"errors":[]}`)
	})

	client := newTestClient(srv.URL, Options{})
	require.NoError(t, client.Call(context.Background(), ActionListUsers, nil, nil))
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		check     func(error) bool
		wantInMsg string
	}{
		{
			name:      "success false joins string and object errors",
			status:    http.StatusOK,
			body:      `{"success":false,"data":null,"errors":["sala inválida",{"message":"sem permissão"}]}`,
			check:     IsProtocolError,
			wantInMsg: "sala inválida\nsem permissão",
		},
		{
			name:      "success false without errors",
			status:    http.StatusOK,
			body:      `{"success":false,"data":null,"errors":[]}`,
			check:     IsProtocolError,
			wantInMsg: "success=false",
		},
		{
			name:      "missing errors key",
			status:    http.StatusOK,
			body:      `{"success":true,"data":{}}`,
			check:     IsProtocolError,
			wantInMsg: `envelope missing "errors"`,
		},
		{
			name:      "not an object",
			status:    http.StatusOK,
			body:      `[1,2,3]`,
			check:     IsProtocolError,
			wantInMsg: "not a JSON object",
		},
		{
			name:      "server error status",
			status:    http.StatusInternalServerError,
			body:      `boom`,
			check:     IsNetworkError,
			wantInMsg: "unexpected status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := newTestClient(srv.URL, Options{}).Call(context.Background(), ActionGetUnreadSummary, nil, nil)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
			assert.Contains(t, err.Error(), tt.wantInMsg)
		})
	}
}

func TestCallRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, `{"success":true,"data":{"ok":true},"errors":[]}`)
	})

	client := newTestClient(srv.URL, Options{MaxRetries: 3})
	require.NoError(t, client.Call(context.Background(), ActionMarkAsRead, nil, nil))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallRateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := newTestClient(srv.URL, Options{MaxRetries: 2}).Call(context.Background(), ActionMarkAsRead, nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestCallTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := newTestClient(srv.URL, Options{Timeout: 50 * time.Millisecond})
	err := client.Call(context.Background(), ActionListMessages, nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestCallEmptyActionIsValidationError(t *testing.T) {
	err := NewClient("http://unused.invalid", Options{}).Call(context.Background(), "   ", nil, nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestNormalizeAction(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: " chat.listMessages ", want: "chat.listMessages"},
		{in: "Medicamentos.listar", want: "Remedios.listar"},
		{in: "Medicamentos_Buscar", want: "Remedios_Buscar"},
		{in: "Remedios.listar", want: "Remedios.listar"},
	}
	for _, tt := range tests {
		got, err := NormalizeAction(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizeActionLogsLegacyRewrite(t *testing.T) {
	var buf bytes.Buffer
	_, err := logging.Init(logging.Config{Level: "warn", Format: "json", Output: &buf})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = logging.Init(logging.DefaultConfig()) })

	got, err := NormalizeAction("Medicamentos.buscar")
	require.NoError(t, err)
	assert.Equal(t, "Remedios.buscar", got)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rpc", entry["component"])
	assert.Equal(t, "Medicamentos.buscar", entry["from"])
	assert.Equal(t, "Remedios.buscar", entry["to"])
}
