// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quickly-match/matching"
	"github.com/danielhkuo/quickly-match/middleware"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/sessions"
)

type MatchHandler struct {
	sessions *sessions.Manager
	engine   *matching.Engine
}

func NewMatchHandler(mgr *sessions.Manager, engine *matching.Engine) *MatchHandler {
	return &MatchHandler{sessions: mgr, engine: engine}
}

// ListMatches handles GET /sessions/{id}/matches?round=
// Returns the ranked matches of a closed round; an open round has none.
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "list matches")
		return
	}

	round, err := roundParam(r, sess.RoundNumber)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	matches, err := h.engine.RankedMatches(r.Context(), sess.ID, round)
	if err != nil {
		writeError(w, r, err, "list matches")
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.MatchesResponse{
		SessionID: sess.ID,
		Round:     round,
		Matches:   matches,
	})
}
