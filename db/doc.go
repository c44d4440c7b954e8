// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db is the SQL implementation of store.Store for PostgreSQL and SQLite.

# Opening

Open connects, pings and creates the schema:

	st, err := db.Open(ctx, db.Postgres, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

CreateSchema is safe to call multiple times - uses IF NOT EXISTS for all
tables and indexes.

# Tables

  - session: lifecycle state, current round and config (JSON)
  - vote: one row per (session_id, voter_id, item_id, round_number)
  - item_match: one row per (session_id, item_id, round_number)

	session 1──* vote
	session 1──* item_match

Votes and matches are append-only. All foreign keys use ON DELETE CASCADE.
Timestamps are stored as Unix milliseconds in both dialects.

# Concurrency

Session transitions are single conditional UPDATEs on (status, round).
CastVote reads the session and inserts the vote in one transaction; on
PostgreSQL the read takes FOR SHARE so a concurrent transition waits for
the vote. SQLite runs with one connection and BEGIN IMMEDIATE, which
serializes writers.

Matches are inserted with ON CONFLICT DO NOTHING, so recomputing a round
keeps the rows written first.

# Errors

Unique violations (PostgreSQL 23505, SQLite constraint codes) become
models.ErrDuplicateVote. Connection, resource and lock-contention failures
wrap models.ErrStoreUnavailable.
*/
package db
