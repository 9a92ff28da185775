// Package api exposes the reconciled watchlist state over a small read-only
// JSON surface, so companion tools and dashboards can consume the same view
// the client renders.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/rewired-gh/stockwatch/internal/logger"
	"github.com/rewired-gh/stockwatch/internal/session"
	"github.com/rewired-gh/stockwatch/internal/store"
)

// Server serves the HTTP API. Snapshot reads come from the in-memory store;
// comment and vote reads go through per-symbol sessions, so they return the
// merged thread view kept current by the realtime stream rather than a raw
// backend page.
type Server struct {
	store    *store.Store
	sessions *session.Manager

	httpServer *http.Server
}

// New assembles the router and middleware. allowedOrigins feeds the CORS
// layer; an empty list allows every origin (the rs/cors default). sessions
// may be nil when no comment backend is configured, which disables the
// per-symbol endpoints.
func New(listenAddr string, allowedOrigins []string, snapshots *store.Store, sessions *session.Manager) *Server {
	s := &Server{
		store:    snapshots,
		sessions: sessions,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	v1.HandleFunc("/symbols/{symbol}/comments", s.handleComments).Methods(http.MethodGet)
	v1.HandleFunc("/symbols/{symbol}/votes", s.handleVotes).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})

	s.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      c.Handler(r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the assembled handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown. It blocks, so run it in its own goroutine.
func (s *Server) Start() error {
	logger.Info("API listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	view, ok := s.symbolView(w, r, symbol)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.Comments.Threads())
}

func (s *Server) handleVotes(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	view, ok := s.symbolView(w, r, symbol)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.Votes.State())
}

// symbolView resolves the session for a symbol, writing the error response
// itself when it cannot.
func (s *Server) symbolView(w http.ResponseWriter, r *http.Request, symbol string) (*session.View, bool) {
	if s.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "comment backend not configured")
		return nil, false
	}

	view, err := s.sessions.Ensure(r.Context(), symbol)
	if err != nil {
		logger.Warn("session for %s unavailable: %v", symbol, err)
		writeError(w, http.StatusBadGateway, "comment backend unavailable")
		return nil, false
	}
	return view, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
