// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-match/auth"
	"github.com/danielhkuo/quickly-match/cliparse"
	"github.com/danielhkuo/quickly-match/matching"
	"github.com/danielhkuo/quickly-match/middleware"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/roster"
	"github.com/danielhkuo/quickly-match/rounds"
	"github.com/danielhkuo/quickly-match/sessions"
)

type SessionHandler struct {
	sessions   *sessions.Manager
	controller *rounds.Controller
	engine     *matching.Engine
	roster     *roster.Static
	cfg        cliparse.Config
}

// NewSessionHandler wires the session endpoints. members receives the
// member_count sent on create and may be nil when counts come only from an
// external roster.
func NewSessionHandler(mgr *sessions.Manager, controller *rounds.Controller, engine *matching.Engine, members *roster.Static, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{
		sessions:   mgr,
		controller: controller,
		engine:     engine,
		roster:     members,
		cfg:        cfg,
	}
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.MemberCount < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "member_count must not be negative")
		return
	}

	sess, err := h.sessions.CreateAndStart(r.Context(), req.GroupID, req.EnergyLevel, req.Config)
	if err != nil {
		writeError(w, r, err, "create session")
		return
	}

	if req.MemberCount > 0 && h.roster != nil {
		h.roster.Set(sess.GroupID, req.MemberCount)
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreateSessionResponse{
		Session:  sess,
		AdminKey: auth.GenerateAdminKey(sess.ID, h.cfg.AdminKeySalt),
	})
}

// GetSession handles GET /sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "get session")
		return
	}

	resp := models.SessionResponse{Session: sess}
	if sess.Status == models.StatusCompleted {
		matches, err := h.engine.RankedMatches(r.Context(), sess.ID, sess.RoundNumber)
		if err != nil {
			writeError(w, r, err, "get session")
			return
		}
		if len(matches) > 0 {
			resp.WinningMatch = &matches[0]
		}
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Evaluate handles POST /sessions/{id}/evaluate
// Closes the current round if quorum is reached or the round timed out.
func (h *SessionHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	h.evaluate(w, r, rounds.TriggerQuorum)
}

// CloseRound handles POST /sessions/{id}/close-round
// Requires the admin key; closes the round regardless of quorum.
func (h *SessionHandler) CloseRound(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	h.evaluate(w, r, rounds.TriggerManual)
}

func (h *SessionHandler) evaluate(w http.ResponseWriter, r *http.Request, trigger rounds.Trigger) {
	out, err := h.controller.Evaluate(r.Context(), r.PathValue("id"), trigger)
	if err != nil {
		writeError(w, r, err, "evaluate round")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, evaluateResponse(out))
}

// CancelSession handles POST /sessions/{id}/cancel
func (h *SessionHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	var req models.CancelSessionRequest
	if r.ContentLength != 0 {
		if err := middleware.ParseJSONBody(r, &req); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "cancelled by host"
	}

	sess, err := h.sessions.Cancel(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, r, err, "cancel session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{Session: sess})
}

func (h *SessionHandler) authorized(w http.ResponseWriter, r *http.Request) bool {
	sessionID := r.PathValue("id")
	if err := auth.ValidateAdminKey(sessionID, r.Header.Get(auth.AdminKeyHeader), h.cfg.AdminKeySalt); err != nil {
		slog.Debug("admin key rejected", "session_id", sessionID)
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

func evaluateResponse(out rounds.Outcome) models.EvaluateResponse {
	return models.EvaluateResponse{
		SessionID: out.SessionID,
		Round:     out.Round,
		Action:    string(out.Action),
		Winner:    out.Winner,
		Matches:   out.Matches,
	}
}
