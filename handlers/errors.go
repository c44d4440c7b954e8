// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/quickly-match/middleware"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/roster"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidConfig),
		errors.Is(err, models.ErrInvalidVote):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrStaleRound),
		errors.Is(err, models.ErrSessionNotVotable),
		errors.Is(err, models.ErrDuplicateVote),
		errors.Is(err, models.ErrRoundLimitExceeded),
		errors.Is(err, roster.ErrUnknownGroup),
		errors.Is(err, models.ErrInvalidMemberCount):
		return http.StatusConflict
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status for err. Client-side outcomes are
// logged at debug; only failures reach the error log.
func writeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	status := statusFor(err)

	switch status {
	case http.StatusInternalServerError:
		slog.ErrorContext(r.Context(), "failed to "+action, "path", r.URL.Path, "error", err)
		middleware.ErrorResponse(w, status, "Failed to "+action)
	case http.StatusServiceUnavailable:
		slog.WarnContext(r.Context(), "store unavailable", "action", action, "error", err)
		middleware.ErrorResponse(w, status, "Storage temporarily unavailable, retry later")
	default:
		slog.DebugContext(r.Context(), "request rejected", "action", action, "status", status, "error", err)
		middleware.ErrorResponse(w, status, err.Error())
	}
}

// roundParam reads ?round=, defaulting to current.
func roundParam(r *http.Request, current int) (int, error) {
	raw := r.URL.Query().Get("round")
	if raw == "" {
		return current, nil
	}
	round, err := strconv.Atoi(raw)
	if err != nil || round < 1 {
		return 0, fmt.Errorf("round must be a positive integer, got %q", raw)
	}
	return round, nil
}
