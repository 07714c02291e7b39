package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/clinic-chat/internal/devserver"
	"github.com/nhle/clinic-chat/internal/model"
	chatsync "github.com/nhle/clinic-chat/internal/sync"
	"github.com/nhle/clinic-chat/tests/testutil"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd("dev")

	for _, name := range []string{"tui", "send", "tail", "unread", "rooms", "whoami", "login", "devserver"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, found.Name())
	}
	assert.NotNil(t, root.RunE, "no subcommand opens the TUI")
}

func TestRoomFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    model.RoomRef
		wantErr bool
	}{
		{name: "default", want: model.DefaultRoom()},
		{
			name: "appointment",
			args: []string{"--agenda", "7", "--patient-name", "Maria", "--date", "2024-03-01", "--hour", "10:00"},
			want: model.AppointmentRoom("7", "Maria", "2024-03-01", "10:00"),
		},
		{
			name: "patient",
			args: []string{"--patient", "12"},
			want: model.PatientRoom("12", ""),
		},
		{name: "both", args: []string{"--agenda", "7", "--patient", "12"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newTUICmd()
			require.NoError(t, cmd.ParseFlags(tt.args))
			got, err := roomFromFlags(cmd)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUser(t *testing.T) {
	ctx := context.Background()
	cfg := model.DefaultAppConfig()

	t.Run("configured user wins", func(t *testing.T) {
		st := testutil.NewTestStore(t)
		c := *cfg
		c.User = model.UserConfig{ID: "2", Name: "Bianca Lima"}
		u, err := resolveUser(ctx, &c, st)
		require.NoError(t, err)
		assert.Equal(t, "2", u.ID)
	})

	t.Run("anonymous identity is kept", func(t *testing.T) {
		st := testutil.NewTestStore(t)
		first, err := resolveUser(ctx, cfg, st)
		require.NoError(t, err)
		assert.True(t, first.IsAnonymous())

		again, err := resolveUser(ctx, cfg, st)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})
}

func TestTailPrinterPrintsEachMessageOnce(t *testing.T) {
	var out, errOut bytes.Buffer
	p := newTailPrinter(&out, &errOut, model.User{ID: "1", Name: "Ana"}, false)

	p.Render(chatsync.RenderBatch{ChannelID: "a", Empty: true})
	first := model.Message{ChannelID: "a", Sender: "Bia", Text: "oi", Timestamp: "2024-03-01T10:00:00Z"}
	second := model.Message{ChannelID: "a", Sender: "Ana", Text: "olá", Timestamp: "2024-03-01T10:01:00Z"}
	p.Render(chatsync.RenderBatch{ChannelID: "a", Messages: []model.Message{first}})
	p.Render(chatsync.RenderBatch{ChannelID: "a", Messages: []model.Message{first, second}})
	p.Report(chatsync.Status{Severity: chatsync.SeverityWarn, Op: "loading messages"})

	text := out.String()
	assert.Contains(t, text, "No messages yet.")
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("Bia: oi")))
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("Ana: olá")))
	assert.Equal(t, "[warn] loading messages ok\n", errOut.String())
}

func TestSendAgainstDevServer(t *testing.T) {
	st := testutil.NewTestStore(t)
	require.NoError(t, devserver.Seed(context.Background(), st))
	ts := httptest.NewUnstartedServer(devserver.New(devserver.Options{Store: st}).Handler())
	ts.Config.SetKeepAlivesEnabled(false)
	ts.Start()
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	t.Setenv("CLINICCHAT_TOKEN", "test-token")
	t.Setenv("CLINICCHAT_STORE_PATH", filepath.Join(dir, "client.db"))
	t.Setenv("CLINICCHAT_USER_ID", "2")
	t.Setenv("CLINICCHAT_USER_NAME", "Bianca Lima")

	run := func(args ...string) string {
		t.Helper()
		var out, errOut bytes.Buffer
		root := newRootCmd("test")
		root.SetOut(&out)
		root.SetErr(&errOut)
		base := []string{"--config", filepath.Join(dir, "missing.yaml"), "--url", ts.URL + "/rpc"}
		root.SetArgs(append(args[:1:1], append(base, args[1:]...)...))
		require.NoError(t, root.Execute(), errOut.String())
		return out.String()
	}

	out := run("send", "default", "bom", "dia")
	assert.Contains(t, out, "Bianca Lima: bom dia")

	out = run("send", "--json", "default", "tudo bem?")
	assert.Contains(t, out, `"message": "tudo bem?"`)
	assert.Contains(t, out, `"message": "bom dia"`)

	out = run("whoami")
	assert.Contains(t, out, "Bianca Lima [2]")

	// Messages sent by the user are never unread for them.
	out = run("unread")
	assert.Contains(t, out, "TOTAL")
	assert.NotContains(t, out, "default  ")
}
