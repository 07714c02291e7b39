package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/clinic-chat/internal/devserver"
	"github.com/nhle/clinic-chat/internal/logging"
	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/store"
	"github.com/nhle/clinic-chat/internal/telemetry"
)

func newDevserverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local chat backend for development",
		Args:  cobra.NoArgs,
		RunE:  runDevserver,
	}
	cmd.Flags().String("addr", ":8787", "Listen address")
	cmd.Flags().String("db", "", "SQLite database (defaults to the configured store)")
	cmd.Flags().String("token", "", "Require this Bearer token")
	cmd.Flags().Bool("created-only", false, "Answer sends with the created message only")
	cmd.Flags().StringSlice("origin", nil, "Allowed CORS origin (repeatable)")
	return cmd
}

func runDevserver(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	closeLog, err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
		File:   cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	addr, _ := cmd.Flags().GetString("addr")
	dbPath, _ := cmd.Flags().GetString("db")
	token, _ := cmd.Flags().GetString("token")
	createdOnly, _ := cmd.Flags().GetBool("created-only")
	origins, _ := cmd.Flags().GetStringSlice("origin")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}

	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := devserver.Seed(ctx, st); err != nil {
		return err
	}

	reg := telemetry.NewRegistry()
	httpMetrics, err := telemetry.NewHTTPMetrics(reg)
	if err != nil {
		return fmt.Errorf("registering http metrics: %w", err)
	}
	if metricsAddr != "" {
		srv, errCh := reg.Serve(metricsAddr)
		defer srv.Close()
		log := logging.Component("devserver")
		go func() {
			for err := range errCh {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	srv := devserver.New(devserver.Options{
		Store:          st,
		Token:          token,
		CreatedOnly:    createdOnly,
		AllowedOrigins: origins,
		Metrics:        httpMetrics,
		Registry:       reg,
	})
	fmt.Fprintf(cmd.OutOrStdout(), "chat backend listening on %s (POST /rpc)\n", addr)
	return srv.ListenAndServe(ctx, addr)
}
