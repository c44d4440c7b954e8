// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Match API server.

Quickly Match runs group food-picking sessions: members swipe like, dislike
or skip on restaurants and dishes, each round closes on quorum, timeout or
the host's call, and the session completes as soon as an item is liked by
enough of the group. Rounds that find nothing open the next round until the
session runs out of rounds.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	ADMIN_KEY_SALT=... DATABASE_URL=quickly-match.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -redis redis://localhost:6379/0

A .env file in the working directory is loaded first.

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL URL or SQLite path (not needed with -t memory)
  - ADMIN_KEY_SALT (-admin-salt): Secret for admin key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres or memory (default: sqlite)
  - REDIS_URL (-redis): publishes session events and reads shared rosters
  - TICK_INTERVAL (-tick): how often timed-out rounds are swept (default: 5s)
  - VOTE_RATE_LIMIT, VOTE_RATE_BURST: per-IP vote limits
  - LOG_LEVEL, LOG_FORMAT: slog level and text or json output

# Architecture

  - sessions: lifecycle state machine
  - ledger: vote recording and per-round aggregates
  - matching: scoring, ranking and match persistence
  - rounds: round closure decisions and the timeout ticker
  - roster: active member counts
  - events: session notifications (slog, Redis)
  - store, db, memstore: persistence
  - handlers, router, middleware: HTTP API
  - metrics: Prometheus collectors
  - auth: admin keys
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
