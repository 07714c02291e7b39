package devserver_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/clinic-chat/internal/backend/rpcbackend"
	"github.com/nhle/clinic-chat/internal/devserver"
	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/rpc"
	chatsync "github.com/nhle/clinic-chat/internal/sync"
	"github.com/nhle/clinic-chat/internal/telemetry"
	"github.com/nhle/clinic-chat/tests/testutil"
)

var (
	ana = model.User{ID: "1", Name: "Dra. Ana Souza", Type: "medico"}
	bia = model.User{ID: "2", Name: "Bianca Lima", Type: "recepcao"}
)

func newServer(t *testing.T, opts devserver.Options) *httptest.Server {
	t.Helper()
	st := testutil.NewTestStore(t)
	require.NoError(t, devserver.Seed(context.Background(), st))
	opts.Store = st

	ts := httptest.NewUnstartedServer(devserver.New(opts).Handler())
	ts.Config.SetKeepAlivesEnabled(false)
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func newBackend(ts *httptest.Server, token string) *rpcbackend.Backend {
	client := rpc.NewClient(ts.URL+"/rpc", rpc.Options{Token: token, MaxRetries: 1})
	return rpcbackend.New(client)
}

func TestActionsRoundTrip(t *testing.T) {
	ts := newServer(t, devserver.Options{})
	b := newBackend(ts, "")
	ctx := context.Background()

	res, err := b.SendMessage(ctx, "default", bia.Name, "  bom dia  ")
	require.NoError(t, err)
	require.True(t, res.Authoritative)
	require.Len(t, res.Messages, 1)
	first := res.Messages[0]
	assert.Equal(t, "bom dia", first.Text)
	assert.Equal(t, "default", first.ChannelID)
	assert.NotZero(t, first.Seq)

	res, err = b.SendMessage(ctx, "default", bia.Name, "tudo bem?")
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	second := res.Messages[1]

	all, err := b.ListMessages(ctx, "default")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	since, err := b.ListMessagesSince(ctx, "default", first.Timestamp)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, second.ID, since[0].ID)

	summary, err := b.GetUnreadSummary(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, "default", summary[0].ChannelID)
	assert.Equal(t, 2, summary[0].Count)

	// Own messages never count as unread.
	summary, err = b.GetUnreadSummary(ctx, bia.ID)
	require.NoError(t, err)
	assert.Empty(t, summary)

	require.NoError(t, b.MarkAsRead(ctx, "default", ana.ID, second.Timestamp))
	summary, err = b.GetUnreadSummary(ctx, ana.ID)
	require.NoError(t, err)
	assert.Empty(t, summary)

	users, err := b.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, len(devserver.DefaultUsers))
}

func TestCreatedOnlySend(t *testing.T) {
	ts := newServer(t, devserver.Options{CreatedOnly: true})
	b := newBackend(ts, "")

	res, err := b.SendMessage(context.Background(), "agenda-9", ana.Name, "oi")
	require.NoError(t, err)
	assert.False(t, res.Authoritative)
	require.NotNil(t, res.Created)
	assert.Equal(t, "oi", res.Created.Text)
	assert.Equal(t, "agenda-9", res.Created.ChannelID)
}

func TestFailuresUseEnvelope(t *testing.T) {
	ts := newServer(t, devserver.Options{})
	client := rpc.NewClient(ts.URL+"/rpc", rpc.Options{MaxRetries: 1})
	ctx := context.Background()

	tests := []struct {
		name    string
		action  string
		payload any
		wantMsg string
	}{
		{name: "unknown action", action: "chat.nope", wantMsg: `unknown action "chat.nope"`},
		{name: "missing room", action: rpc.ActionListMessages, payload: map[string]string{}, wantMsg: "roomId is required"},
		{name: "blank message", action: rpc.ActionSendMessage, payload: map[string]string{"roomId": "default", "sender": "Ana", "message": "  "}, wantMsg: "message is required"},
		{name: "missing user", action: rpc.ActionGetUnreadSummary, payload: map[string]string{}, wantMsg: "userId is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Call(ctx, tt.action, tt.payload, nil)
			require.Error(t, err)
			assert.True(t, rpc.IsProtocolError(err), "got %T", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestTokenRequired(t *testing.T) {
	ts := newServer(t, devserver.Options{Token: "s3cret"})

	_, err := newBackend(ts, "").ListMessages(context.Background(), "default")
	require.Error(t, err)
	assert.True(t, rpc.IsNetworkError(err))

	_, err = newBackend(ts, "s3cret").ListMessages(context.Background(), "default")
	assert.NoError(t, err)
}

func TestCORSPreflight(t *testing.T) {
	ts := newServer(t, devserver.Options{AllowedOrigins: []string{"http://clinic.local"}})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/rpc", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://clinic.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://clinic.local", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := telemetry.NewRegistry()
	m, err := telemetry.NewHTTPMetrics(reg)
	require.NoError(t, err)
	ts := newServer(t, devserver.Options{Metrics: m, Registry: reg})

	_, err = newBackend(ts, "").ListMessages(context.Background(), "default")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `clinicchat_rpc_actions_total{action="chat.listMessages",success="true"} 1`)
}

func TestEngineAgainstDevServer(t *testing.T) {
	ts := newServer(t, devserver.Options{})
	ctx := context.Background()

	sender := chatsync.NewEngine(chatsync.Options{Backend: newBackend(ts, ""), User: bia})
	reader := chatsync.NewEngine(chatsync.Options{Backend: newBackend(ts, ""), User: ana})

	room := model.AppointmentRoom("42", "Maria", "2024-03-01", "09:30")
	require.NoError(t, sender.Submit(ctx, room.ID, "", "paciente chegou"))

	require.NoError(t, reader.RefreshSummary(ctx))
	ch, _ := reader.CreateOrGet(room.ID, room.Title, room.Description)
	assert.Equal(t, 1, ch.UnreadCount)

	require.NoError(t, reader.Switch(ctx, room.ID, room.Title, room.Description))
	msgs := reader.Messages(room.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, bia.Name, msgs[0].Sender)

	ch, _ = reader.Get(room.ID)
	assert.Equal(t, 0, ch.UnreadCount)
	require.NotNil(t, ch.LastSyncedTimestamp)
	assert.Equal(t, msgs[0].Timestamp, *ch.LastSyncedTimestamp)

	require.NoError(t, sender.Submit(ctx, room.ID, "", "sala 3"))
	require.NoError(t, reader.LoadIncremental(ctx, room.ID))
	assert.Len(t, reader.Messages(room.ID), 2)
}
