// Package api exposes the sync engine over a single message endpoint. The
// endpoint carries an action envelope rather than one route per operation
// so callers keep the exact request shapes the browser extension used.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bianchenglequ/OneClick/internal/domain"
	"github.com/bianchenglequ/OneClick/internal/platform"
)

// SyncAPI is the slice of the sync service the endpoint needs.
type SyncAPI interface {
	StartSync(ctx context.Context, article *domain.Article, platforms []platform.ID) []domain.SyncResult
	Status() domain.SyncStatus
	CheckLogin(ctx context.Context, id platform.ID) (bool, string, error)
}

// Message is the request envelope. Which fields matter depends on action:
// startSync reads platforms and article, checkLogin reads platform,
// getStatus reads nothing.
type Message struct {
	Action    string          `json:"action"`
	Platforms []string        `json:"platforms,omitempty"`
	Platform  string          `json:"platform,omitempty"`
	Article   *domain.Article `json:"article,omitempty"`
}

type Server struct {
	sync   SyncAPI
	logger *slog.Logger
	mux    *http.ServeMux
}

func NewServer(sync SyncAPI, logger *slog.Logger) *Server {
	s := &Server{
		sync:   sync,
		logger: logger.With(slog.String("component", "api")),
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /message", s.handleMessage)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "invalid message body",
		})
		return
	}

	s.logger.Info("message received", slog.String("action", msg.Action))

	switch msg.Action {
	case "startSync":
		s.handleStartSync(w, r, &msg)
	case "getStatus":
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"status":  s.sync.Status(),
		})
	case "checkLogin":
		s.handleCheckLogin(w, r, &msg)
	default:
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "unknown operation",
		})
	}
}

func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request, msg *Message) {
	if msg.Article == nil || len(msg.Platforms) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "startSync requires an article and at least one platform",
		})
		return
	}

	ids := make([]platform.ID, 0, len(msg.Platforms))
	for _, p := range msg.Platforms {
		ids = append(ids, platform.ID(p))
	}

	// The call blocks until every platform settles. Callers poll getStatus
	// from another connection for progress.
	results := s.sync.StartSync(r.Context(), msg.Article, ids)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
		"status":  s.sync.Status(),
	})
}

func (s *Server) handleCheckLogin(w http.ResponseWriter, r *http.Request, msg *Message) {
	if msg.Platform == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "checkLogin requires a platform",
		})
		return
	}

	loggedIn, _, err := s.sync.CheckLogin(r.Context(), platform.ID(msg.Platform))
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"isLoggedIn": loggedIn,
		"platform":   msg.Platform,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
	}
}
