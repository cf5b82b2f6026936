// Package server exposes the conversation pipeline over HTTP.
//
// Routes:
//
//   - POST   /v1/characters/{name}/turns   — run one conversation turn.
//   - GET    /v1/characters/{name}/turns   — recent archived turns.
//   - GET    /v1/characters                 — list configured characters.
//   - GET    /v1/characters/{name}         — one character with its scene state.
//   - PUT    /v1/characters/{name}/state   — replace the character's scene state.
//   - DELETE /v1/characters/{name}/history — reset the conversation session.
//   - GET  /healthz, /readyz            — liveness and readiness probes.
//   - GET  /metrics                     — Prometheus scrape endpoint.
//
// All routes run behind the observe middleware, so every request carries a
// trace span and an X-Correlation-ID header.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bottega-vr/bottega/internal/character"
	"github.com/bottega-vr/bottega/internal/health"
	"github.com/bottega-vr/bottega/internal/observe"
	"github.com/bottega-vr/bottega/internal/orchestrator"
	"github.com/bottega-vr/bottega/internal/transcript"
)

// shutdownTimeout bounds graceful drain of in-flight requests on Stop.
const shutdownTimeout = 10 * time.Second

// Character bundles the per-character collaborators the HTTP layer needs:
// the orchestrator that runs turns and the prompt context whose scene state
// can be updated at runtime.
type Character struct {
	Orchestrator *orchestrator.Orchestrator
	Context      *character.Context
}

// Config carries the collaborators for a [Server].
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string

	// Characters maps display names to their runtime bundles. Lookup is
	// case-insensitive.
	Characters map[string]*Character

	// Health serves /healthz and /readyz. Defaults to a handler with no
	// readiness checkers.
	Health *health.Handler

	// Metrics feeds the request-duration middleware. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Archive serves the recent-turns read. Defaults to [transcript.Nop].
	Archive transcript.Store

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Server is the HTTP front end. Create with [New], start with [Run].
type Server struct {
	characters map[string]*Character
	names      []string
	health     *health.Handler
	metrics    *observe.Metrics
	archive    transcript.Store
	logger     *slog.Logger
	httpSrv    *http.Server
	certFile   string
	keyFile    string
}

// New validates cfg, fills defaults, and returns a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		return nil, errors.New("server: listen address is required")
	}
	if len(cfg.Characters) == 0 {
		return nil, errors.New("server: at least one character is required")
	}
	if cfg.Health == nil {
		cfg.Health = health.New()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Archive == nil {
		cfg.Archive = transcript.Nop{}
	}

	s := &Server{
		characters: make(map[string]*Character, len(cfg.Characters)),
		health:     cfg.Health,
		metrics:    cfg.Metrics,
		archive:    cfg.Archive,
		logger:     cfg.Logger,
		certFile:   cfg.CertFile,
		keyFile:    cfg.KeyFile,
	}
	for name, c := range cfg.Characters {
		if c == nil || c.Orchestrator == nil || c.Context == nil {
			return nil, errors.New("server: character " + name + " is missing its orchestrator or context")
		}
		s.characters[strings.ToLower(name)] = c
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler builds the full route table wrapped in the observe middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/characters", s.handleListCharacters)
	mux.HandleFunc("GET /v1/characters/{name}", s.handleGetCharacter)
	mux.HandleFunc("POST /v1/characters/{name}/turns", s.handleTurn)
	mux.HandleFunc("GET /v1/characters/{name}/turns", s.handleRecentTurns)
	mux.HandleFunc("PUT /v1/characters/{name}/state", s.handlePutState)
	mux.HandleFunc("DELETE /v1/characters/{name}/history", s.handleResetSession)

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// lookup resolves a character by path name, case-insensitively.
func (s *Server) lookup(name string) (*Character, bool) {
	c, ok := s.characters[strings.ToLower(name)]
	return c, ok
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpSrv.Addr, "tls", s.certFile != "")
		var err error
		if s.certFile != "" && s.keyFile != "" {
			err = s.httpSrv.ListenAndServeTLS(s.certFile, s.keyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
