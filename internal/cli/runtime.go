package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/clinic-chat/internal/backend/rpcbackend"
	"github.com/nhle/clinic-chat/internal/credential"
	"github.com/nhle/clinic-chat/internal/logging"
	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/rpc"
	"github.com/nhle/clinic-chat/internal/store"
	chatsync "github.com/nhle/clinic-chat/internal/sync"
	"github.com/nhle/clinic-chat/internal/telemetry"
	"github.com/nhle/clinic-chat/internal/theme"
)

// runtime holds everything a command needs to talk to the backend.
type runtime struct {
	cfg     *model.AppConfig
	store   *store.SQLiteStore
	client  *rpc.Client
	backend *rpcbackend.Backend
	user    model.User
	logger  zerolog.Logger

	metricsSrv *http.Server
	closeLog   func() error
}

// runtimeOptions tune loadRuntime per command.
type runtimeOptions struct {
	// logToFile keeps the terminal clean for the TUI.
	logToFile bool
}

// loadRuntime reads the config, sets up logging and theme, opens the local
// store and builds the RPC backend.
func loadRuntime(cmd *cobra.Command, opts runtimeOptions) (*runtime, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
		File:   cfg.Logging.File,
	}
	if opts.logToFile && logCfg.File == "" {
		logCfg.File = defaultLogPath()
	}
	closeLog, err := logging.Init(logCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	theme.Apply(cfg.Display.Theme)

	rt := &runtime{cfg: cfg, closeLog: closeLog, logger: logging.Component("cli")}

	rt.store, err = store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	rt.client = rpc.NewClient(cfg.API.Endpoint(), rpc.Options{
		Token:      loadToken(rt.logger),
		Timeout:    cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
	})
	rt.backend = rpcbackend.New(rt.client)

	rt.user, err = resolveUser(cmd.Context(), cfg, rt.store)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.logger.Debug().
		Str("endpoint", cfg.API.Endpoint()).
		Str("user_id", rt.user.ID).
		Msg("runtime ready")
	return rt, nil
}

// Close releases the store, the metrics server and the log file.
func (rt *runtime) Close() {
	if rt.metricsSrv != nil {
		_ = rt.metricsSrv.Close()
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Warn().Err(err).Msg("closing store")
		}
	}
	if rt.closeLog != nil {
		_ = rt.closeLog()
	}
}

// newEngine builds a sync engine for the runtime user. When addr is set,
// sync metrics are served there.
func (rt *runtime) newEngine(renderer chatsync.Renderer, status chatsync.StatusReporter, metricsAddr string) (*chatsync.Engine, error) {
	var metrics chatsync.Metrics
	if metricsAddr != "" {
		reg := telemetry.NewRegistry()
		m, err := telemetry.NewSyncMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("registering sync metrics: %w", err)
		}
		srv, errCh := reg.Serve(metricsAddr)
		rt.metricsSrv = srv
		go func() {
			for err := range errCh {
				rt.logger.Error().Err(err).Str("addr", metricsAddr).Msg("metrics server failed")
			}
		}()
		metrics = m
	}

	return chatsync.NewEngine(chatsync.Options{
		Backend:        rt.backend,
		Renderer:       renderer,
		Status:         status,
		Metrics:        metrics,
		User:           rt.user,
		RequestTimeout: rt.cfg.API.Timeout,
		Schedule: chatsync.ScheduleConfig{
			ActiveInterval:     rt.cfg.Sync.ActiveInterval,
			BackgroundInterval: rt.cfg.Sync.BackgroundInterval,
			IdleInterval:       rt.cfg.Sync.IdleInterval,
			IdleThreshold:      rt.cfg.Sync.IdleThreshold,
		},
	}), nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *model.AppConfig) error {
	if env, _ := cmd.Flags().GetString("env"); env != "" {
		cfg.API.Env = env
	}
	if url, _ := cmd.Flags().GetString("url"); url != "" {
		cfg.API.URL = url
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating flags: %w", err)
	}
	return nil
}

// resolveUser picks the chat identity: the configured user, then the saved
// profile, then a new anonymous identity which is saved for next time.
func resolveUser(ctx context.Context, cfg *model.AppConfig, st store.Store) (model.User, error) {
	if u, ok := model.UserFromConfig(cfg.User); ok {
		return u, nil
	}

	saved, err := st.GetProfile(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("loading profile: %w", err)
	}
	if saved != nil {
		return *saved, nil
	}

	u := model.AnonymousUser()
	if err := st.SaveProfile(ctx, u); err != nil {
		return model.User{}, fmt.Errorf("saving profile: %w", err)
	}
	return u, nil
}

// loadToken reads the API token from CLINICCHAT_TOKEN or the keyring. A
// missing keyring is not an error.
func loadToken(log zerolog.Logger) string {
	if token := strings.TrimSpace(os.Getenv("CLINICCHAT_TOKEN")); token != "" {
		return token
	}
	creds, err := credential.Open()
	if err != nil {
		log.Debug().Err(err).Msg("keyring unavailable")
		return ""
	}
	token, err := creds.Token()
	if err != nil {
		log.Warn().Err(err).Msg("reading api token")
		return ""
	}
	return token
}

func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "clinicchat.log")
	}
	return filepath.Join(home, ".local", "state", "clinicchat", "clinicchat.log")
}

// roomFromFlags derives the room to open from --agenda / --patient.
func roomFromFlags(cmd *cobra.Command) (model.RoomRef, error) {
	agenda, _ := cmd.Flags().GetString("agenda")
	patient, _ := cmd.Flags().GetString("patient")
	name, _ := cmd.Flags().GetString("patient-name")
	date, _ := cmd.Flags().GetString("date")
	hour, _ := cmd.Flags().GetString("hour")

	agenda, patient = strings.TrimSpace(agenda), strings.TrimSpace(patient)
	switch {
	case agenda != "" && patient != "":
		return model.RoomRef{}, errors.New("--agenda and --patient are mutually exclusive")
	case agenda != "":
		return model.AppointmentRoom(agenda, name, date, hour), nil
	case patient != "":
		return model.PatientRoom(patient, name), nil
	default:
		return model.DefaultRoom(), nil
	}
}

func addRoomFlags(cmd *cobra.Command) {
	cmd.Flags().String("agenda", "", "Open the room of this appointment id")
	cmd.Flags().String("patient", "", "Open the long-running room of this patient id")
	cmd.Flags().String("patient-name", "", "Patient name shown in the room title")
	cmd.Flags().String("date", "", "Appointment date shown in the room description")
	cmd.Flags().String("hour", "", "Appointment time shown in the room description")
}
