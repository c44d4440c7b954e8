// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-match/ledger"
	"github.com/danielhkuo/quickly-match/middleware"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/rounds"
	"github.com/danielhkuo/quickly-match/sessions"
)

type VoteHandler struct {
	sessions   *sessions.Manager
	ledger     *ledger.Ledger
	controller *rounds.Controller
}

func NewVoteHandler(mgr *sessions.Manager, l *ledger.Ledger, controller *rounds.Controller) *VoteHandler {
	return &VoteHandler{sessions: mgr, ledger: l, controller: controller}
}

// CastVote handles POST /sessions/{id}/votes
//
// An accepted vote acts as the "last voter" notification: the round is
// evaluated for quorum before responding. That evaluation never fails the
// vote, which is already recorded.
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	vote, err := h.ledger.CastVote(r.Context(), ledger.CastVoteParams{
		SessionID:    sessionID,
		VoterID:      req.VoterID,
		ItemID:       req.ItemID,
		ItemType:     req.ItemType,
		Decision:     req.Decision,
		ItemSnapshot: req.ItemSnapshot,
	})
	if err != nil {
		writeError(w, r, err, "cast vote")
		return
	}

	if h.controller != nil {
		out, err := h.controller.Evaluate(r.Context(), sessionID, rounds.TriggerQuorum)
		switch {
		case err != nil:
			slog.WarnContext(r.Context(), "quorum check after vote failed", "session_id", sessionID, "error", err)
		case out.Action != rounds.ActionNone:
			slog.InfoContext(r.Context(), "vote closed the round", "session_id", sessionID,
				"round", out.Round, "action", out.Action)
		}
	}

	middleware.JSONResponse(w, http.StatusCreated, vote)
}

// ListVotes handles GET /sessions/{id}/votes?round=
// Defaults to the current round.
func (h *VoteHandler) ListVotes(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "list votes")
		return
	}

	round, err := roundParam(r, sess.RoundNumber)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	votes, err := h.ledger.ListVotes(r.Context(), sess.ID, round)
	if err != nil {
		writeError(w, r, err, "list votes")
		return
	}
	if votes == nil {
		votes = []models.Vote{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.VotesResponse{
		SessionID: sess.ID,
		Round:     round,
		Votes:     votes,
	})
}
