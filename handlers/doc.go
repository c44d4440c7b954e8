// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quickly Match API.

# Handler Types

  - SessionHandler: create, read, evaluate, close-round and cancel
  - VoteHandler: swipe submission and the per-round vote audit
  - MatchHandler: ranked matches of a closed round

Handlers take the domain services they call:

	sessionHandler := handlers.NewSessionHandler(mgr, controller, engine, members, cfg)

# Session Lifecycle

	POST /sessions                   → CreateSession (returns admin_key)
	POST /sessions/{id}/votes        → CastVote (may close the round)
	POST /sessions/{id}/evaluate     → Evaluate (quorum or timeout)
	POST /sessions/{id}/close-round  → CloseRound (host, X-Admin-Key)
	POST /sessions/{id}/cancel       → CancelSession (host, X-Admin-Key)

Every accepted vote is also a quorum check, so the last member to vote
closes the round without a separate call.

# Errors

Domain errors map onto status codes in one place (errors.go): invalid input
is 400, a missing session 404, lifecycle conflicts and duplicate votes 409,
an unavailable store 503. Anything else is logged and answered with a
generic 500.
*/
package handlers
