// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadEnv reads a .env file if present, then ParseFlags returns a Config:

	cliparse.LoadEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p           Server port
	-d           Database URL or SQLite path
	-t           Database type (postgres, sqlite, memory)
	-redis       Redis URL
	-admin-salt  Admin key salt
	-tick        Round timer sweep interval
	-log-level   Log level

# Environment Variables

Flags fall back to environment variables:

	PORT            → -p (default 3318)
	DATABASE_URL    → -d (not needed for memory)
	DATABASE_TYPE   → -t (default sqlite)
	REDIS_URL       → -redis (optional)
	ADMIN_KEY_SALT  → -admin-salt (required)
	TICK_INTERVAL   → -tick (default 5s)
	VOTE_RATE_LIMIT   votes per second per client (default 5)
	VOTE_RATE_BURST   (default 20)
	LOG_LEVEL       → -log-level (default info)
	LOG_FORMAT        text or json (default text)

CLI flags take precedence over environment variables, and the environment
takes precedence over .env.
*/
package cliparse
