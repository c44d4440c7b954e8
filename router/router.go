// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/quickly-match/cliparse"
	"github.com/danielhkuo/quickly-match/handlers"
	"github.com/danielhkuo/quickly-match/ledger"
	"github.com/danielhkuo/quickly-match/matching"
	"github.com/danielhkuo/quickly-match/metrics"
	"github.com/danielhkuo/quickly-match/middleware"
	"github.com/danielhkuo/quickly-match/roster"
	"github.com/danielhkuo/quickly-match/rounds"
	"github.com/danielhkuo/quickly-match/sessions"
)

// Deps are the services the HTTP API is served from.
type Deps struct {
	Sessions   *sessions.Manager
	Ledger     *ledger.Ledger
	Engine     *matching.Engine
	Controller *rounds.Controller
	Roster     *roster.Static       // optional
	Registry   *prometheus.Registry // optional; enables GET /metrics
	Clock      clockwork.Clock      // optional; drives the vote rate limiter

	// Health reports storage health; nil means always healthy.
	Health func(context.Context) error
}

func NewRouter(deps Deps, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.Controller, deps.Engine, deps.Roster, cfg)
	voteHandler := handlers.NewVoteHandler(deps.Sessions, deps.Ledger, deps.Controller)
	matchHandler := handlers.NewMatchHandler(deps.Sessions, deps.Engine)

	voteLimiter := middleware.NewRateLimiter(cfg.VoteRateLimit, cfg.VoteRateBurst, deps.Clock)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(r.Context()); err != nil {
				slog.Warn("health check failed", "error", err)
				http.Error(w, "UNAVAILABLE", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if deps.Registry != nil {
		mux.Handle("GET /metrics", metrics.Handler(deps.Registry))
	}

	// Session lifecycle
	mux.HandleFunc("POST /sessions", middleware.WithLogging(sessionHandler.CreateSession))
	mux.HandleFunc("GET /sessions/{id}", middleware.WithLogging(sessionHandler.GetSession))
	mux.HandleFunc("POST /sessions/{id}/evaluate", middleware.WithLogging(sessionHandler.Evaluate))

	// Host operations (X-Admin-Key)
	mux.HandleFunc("POST /sessions/{id}/close-round", middleware.WithLogging(sessionHandler.CloseRound))
	mux.HandleFunc("POST /sessions/{id}/cancel", middleware.WithLogging(sessionHandler.CancelSession))

	// Voting
	mux.HandleFunc("POST /sessions/{id}/votes", middleware.WithLogging(voteLimiter.Limit(voteHandler.CastVote)))
	mux.HandleFunc("GET /sessions/{id}/votes", middleware.WithLogging(voteHandler.ListVotes))

	// Results
	mux.HandleFunc("GET /sessions/{id}/matches", middleware.WithLogging(matchHandler.ListMatches))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quickly-match API v1"))
	})

	return mux
}
