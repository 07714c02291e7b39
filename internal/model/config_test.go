package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Sync.ActiveInterval)
	assert.Equal(t, 15*time.Second, cfg.Sync.BackgroundInterval)
	assert.Equal(t, 30*time.Second, cfg.Sync.IdleInterval)
	assert.Equal(t, 2*time.Minute, cfg.Sync.IdleThreshold)
	assert.Equal(t, ProdAPIURL, cfg.API.Endpoint())
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  env: dev
  timeout: 5s
sync:
  active_interval: 1s
user:
  id: "42"
  name: Ana
  type: medico
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DevAPIURL, cfg.API.Endpoint())
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, time.Second, cfg.Sync.ActiveInterval)
	assert.Equal(t, 15*time.Second, cfg.Sync.BackgroundInterval)

	user, ok := UserFromConfig(cfg.User)
	require.True(t, ok)
	assert.Equal(t, "Ana (medico)", user.Label())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CLINICCHAT_API_URL", "http://example.test/rpc")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/rpc", cfg.API.Endpoint())
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.User = UserConfig{ID: "7", Name: "Bruno", Type: "recepcao"}
	cfg.Sync.IdleInterval = 45 * time.Second

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Bruno", loaded.User.Name)
	assert.Equal(t, 45*time.Second, loaded.Sync.IdleInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*AppConfig) {}},
		{
			name:    "zero timeout",
			mutate:  func(c *AppConfig) { c.API.Timeout = 0 },
			wantErr: "api.timeout",
		},
		{
			name:    "tiny interval",
			mutate:  func(c *AppConfig) { c.Sync.ActiveInterval = time.Millisecond },
			wantErr: "sync.active_interval",
		},
		{
			name:    "active slower than background",
			mutate:  func(c *AppConfig) { c.Sync.ActiveInterval = time.Minute },
			wantErr: "must not exceed",
		},
		{
			name:    "unknown env",
			mutate:  func(c *AppConfig) { c.API.Env = "staging" },
			wantErr: "api.env",
		},
		{
			name:    "unknown theme",
			mutate:  func(c *AppConfig) { c.Display.Theme = "neon" },
			wantErr: "display.theme",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAppConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
