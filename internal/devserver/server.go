// Package devserver is a local implementation of the chat RPC backend,
// backed by the SQLite store. It serves the same {action, payload} protocol
// as production so the client and the web front end can run offline.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/nhle/clinic-chat/internal/logging"
	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/rpc"
	"github.com/nhle/clinic-chat/internal/store"
	"github.com/nhle/clinic-chat/internal/telemetry"
)

const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Store store.Store

	// Token, when set, must be presented as a Bearer token.
	Token string

	// CreatedOnly makes chat.sendMessage answer with only the created
	// message instead of the room's full message list.
	CreatedOnly bool

	// AllowedOrigins for CORS. Defaults to local web front end origins.
	AllowedOrigins []string

	// Metrics records request and action counters. Optional.
	Metrics *telemetry.HTTPMetrics

	// Registry, when set, is exposed on GET /metrics.
	Registry *telemetry.Registry
}

// Server dispatches RPC actions onto the store.
type Server struct {
	store       store.Store
	token       string
	createdOnly bool
	origins     []string
	metrics     *telemetry.HTTPMetrics
	registry    *telemetry.Registry
	actions     map[string]actionFunc
	logger      zerolog.Logger
}

type actionFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// envelope is the response body of every RPC call.
type envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data"`
	Errors  []string `json:"errors"`
}

// New creates a Server.
func New(opts Options) *Server {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173", "http://127.0.0.1:5500"}
	}
	s := &Server{
		store:       opts.Store,
		token:       opts.Token,
		createdOnly: opts.CreatedOnly,
		origins:     origins,
		metrics:     opts.Metrics,
		registry:    opts.Registry,
		logger:      logging.Component("devserver"),
	}
	s.actions = map[string]actionFunc{
		rpc.ActionSendMessage:       s.sendMessage,
		rpc.ActionListMessages:      s.listMessages,
		rpc.ActionListMessagesSince: s.listMessagesSince,
		rpc.ActionMarkAsRead:        s.markAsRead,
		rpc.ActionGetUnreadSummary:  s.getUnreadSummary,
		rpc.ActionListUsers:         s.listUsers,
	}
	return s
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/rpc", s.handleRPC)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", s.registry.Handler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("dev server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("dev server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		writeJSON(w, http.StatusUnauthorized, envelope{Errors: []string{"unauthorized"}})
		return
	}

	var req struct {
		Action  string          `json:"action"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Errors: []string{"invalid request body"}})
		return
	}

	action, err := rpc.NormalizeAction(req.Action)
	if err != nil {
		s.fail(w, req.Action, err)
		return
	}
	fn, ok := s.actions[action]
	if !ok {
		s.fail(w, action, fmt.Errorf("unknown action %q", action))
		return
	}

	data, err := fn(r.Context(), req.Payload)
	if err != nil {
		s.fail(w, action, err)
		return
	}
	s.metrics.ObserveAction(action, true)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Errors: []string{}})
}

// fail answers with success=false. Validation problems are the caller's
// fault and are logged at debug; anything else is a server error.
func (s *Server) fail(w http.ResponseWriter, action string, err error) {
	s.metrics.ObserveAction(action, false)
	if rpc.IsValidationError(err) {
		s.logger.Debug().Str("action", action).Err(err).Msg("rejected call")
	} else {
		s.logger.Error().Str("action", action).Err(err).Msg("action failed")
	}
	writeJSON(w, http.StatusOK, envelope{Errors: []string{err.Error()}})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodePayload unmarshals payload into v. A missing payload decodes as {}.
func decodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &rpc.ValidationError{Field: "payload", Message: err.Error()}
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &rpc.ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// requireAll checks field/value pairs in order.
func requireAll(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := required(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// DefaultUsers is the staff directory seeded into an empty store.
var DefaultUsers = []model.User{
	{ID: "1", Name: "Dra. Ana Souza", Type: "medico"},
	{ID: "2", Name: "Bianca Lima", Type: "recepcao"},
	{ID: "3", Name: "Carlos Pereira", Type: "enfermagem"},
}

// Seed fills the staff directory with DefaultUsers when it is empty.
func Seed(ctx context.Context, st store.Store) error {
	users, err := st.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("seeding users: %w", err)
	}
	if len(users) > 0 {
		return nil
	}
	for _, u := range DefaultUsers {
		if err := st.UpsertUser(ctx, u); err != nil {
			return fmt.Errorf("seeding users: %w", err)
		}
	}
	return nil
}
