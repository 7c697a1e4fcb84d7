// Package diag exposes the installation's internals over a small debug HTTP
// server: current state, bus history, registered modes and observers. It is
// read-only and meant for a laptop on the gallery network, not the public
// internet.
package diag

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/artifact"
	"github.com/GoCodeAlone/artifact/eventbus"
	"github.com/GoCodeAlone/artifact/frame"
	"github.com/GoCodeAlone/artifact/mode"
)

// Server serves the diagnostics endpoints.
type Server struct {
	addr       string
	bus        *eventbus.Bus
	controller *artifact.Controller
	registry   *mode.Registry
	logger     *slog.Logger
	frames     *frame.Buffer

	mu     sync.Mutex
	server *http.Server
}

// New creates a diagnostics server bound to addr.
func New(addr string, bus *eventbus.Bus, controller *artifact.Controller, registry *mode.Registry, logger *slog.Logger) (*Server, error) {
	if addr == "" {
		return nil, ErrAddrEmpty
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:       addr,
		bus:        bus,
		controller: controller,
		registry:   registry,
		logger:     logger,
	}, nil
}

// SetFrameBuffer attaches the camera frame buffer so /debug/camera can report
// capture liveness. Must be called before Start.
func (s *Server) SetFrameBuffer(buf *frame.Buffer) {
	s.frames = buf
}

// Router builds the chi router serving the diagnostics endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/debug", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/history", s.handleHistory)
		r.Get("/modes", s.handleModes)
		r.Get("/observers", s.handleObservers)
		r.Get("/camera", s.handleCamera)
	})
	return r
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return ErrServerStarted
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		s.logger.Info("diagnostics server listening", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("diagnostics server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()

	if server == nil {
		return ErrServerNotStarted
	}
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("diagnostics server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	published, delivered, dropped := s.bus.Stats()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"state":  string(s.controller.State()),
		"bus": map[string]uint64{
			"published": published,
			"delivered": delivered,
			"dropped":   dropped,
		},
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"state":        string(s.controller.State()),
		"timeInState":  s.controller.TimeInState().String(),
		"staleDropped": s.controller.StaleDropped(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	predicate := eventbus.MatchAll()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		predicate = eventbus.MatchPattern(kind)
	}
	s.writeJSON(w, http.StatusOK, s.bus.History(predicate, 0))
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.Descriptors())
}

func (s *Server) handleObservers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.GetObservers())
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	if s.frames == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": "no camera attached"})
		return
	}
	latest := s.frames.Latest()
	if latest == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"published": false})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"published": true,
		"seq":       latest.Seq,
		"width":     latest.Width,
		"height":    latest.Height,
		"captured":  latest.Captured.Format(time.RFC3339Nano),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode diagnostics response", "error", err)
	}
}
