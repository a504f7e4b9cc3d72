// Package server exposes the reminder state over a local HTTP API with
// a websocket push channel for live status displays.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rebootreminder/internal/models"
	"rebootreminder/internal/notify"
)

// StateSource is the engine surface the server reads from.
type StateSource interface {
	Snapshot() (*models.RebootState, bool)
	ForceCheck() error
}

// Archive serves the persisted audit trail.
type Archive interface {
	History(limit int) []models.RebootHistory
	Notifications(limit int) []models.Notification
	Interactions(limit int) []models.NotificationInteraction
}

// Responder routes user responses delivered over the API.
type Responder interface {
	RecordInteraction(notificationID, action, userName, sessionID string) error
}

// Server wraps HTTP serving of the status API.
type Server struct {
	httpServer   *http.Server
	source       StateSource
	archive      Archive
	responder    Responder
	logger       *slog.Logger
	historyLimit int
}

// New creates a configured HTTP server.
func New(addr string, source StateSource, archive Archive, responder Responder, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer:   &http.Server{Addr: addr, Handler: mux},
		source:       source,
		archive:      archive,
		responder:    responder,
		logger:       logger,
		historyLimit: 200,
	}
	s.registerRoutes(mux)
	return s
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/notifications", s.handleNotifications)
	mux.HandleFunc("/api/interactions", s.handleInteractions)
	mux.HandleFunc("/api/check", s.handleCheck)
	mux.HandleFunc("/ws", s.handleStateWS)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, s.historyLimit)
	writeJSON(w, http.StatusOK, s.archive.History(limit))
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, s.historyLimit)
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": s.archive.Notifications(limit),
		"interactions":  s.archive.Interactions(limit),
	})
}

type interactionRequest struct {
	NotificationID string `json:"notification_id"`
	Action         string `json:"action"`
	UserName       string `json:"user_name"`
	SessionID      string `json:"session_id"`
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.NotificationID == "" || req.Action == "" {
		http.Error(w, "notification_id and action are required", http.StatusBadRequest)
		return
	}

	err := s.responder.RecordInteraction(req.NotificationID, req.Action, req.UserName, req.SessionID)
	switch {
	case errors.Is(err, notify.ErrRebootDeclined):
		writeJSON(w, http.StatusOK, map[string]string{"result": "declined"})
	case err != nil:
		s.logger.Error("interaction failed", "action", req.Action, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	}
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.source.ForceCheck(); err != nil {
		s.logger.Error("forced check failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.statePayload())
}

type statePayload struct {
	GeneratedAt time.Time           `json:"generated_at"`
	State       *models.RebootState `json:"state"`
}

func (s *Server) statePayload() statePayload {
	payload := statePayload{GeneratedAt: time.Now().UTC()}
	if state, ok := s.source.Snapshot(); ok {
		payload.State = state
	}
	return payload
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > fallback {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
