// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(schema, d.jsonType, d.scoreType))
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Timestamps are Unix milliseconds so both dialects store them identically.
const schema = `
-- Sessions
CREATE TABLE IF NOT EXISTS session (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active', 'voting', 'completed', 'cancelled')),
    energy_level TEXT NOT NULL DEFAULT 'medium' CHECK (energy_level IN ('low', 'medium', 'high')),
    round_number INTEGER NOT NULL DEFAULT 1 CHECK (round_number >= 1),
    config %[1]s NOT NULL,
    round_started_at BIGINT,
    started_at BIGINT,
    ended_at BIGINT,
    end_reason TEXT,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_status ON session(status);
CREATE INDEX IF NOT EXISTS idx_session_group_id ON session(group_id);

-- Votes (append-only)
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    item_type TEXT NOT NULL CHECK (item_type IN ('restaurant', 'dish', 'cuisine')),
    decision TEXT NOT NULL CHECK (decision IN ('like', 'dislike', 'skip')),
    item_snapshot %[1]s NOT NULL,
    round_number INTEGER NOT NULL CHECK (round_number >= 1),
    voted_at BIGINT NOT NULL,
    UNIQUE (session_id, voter_id, item_id, round_number)
);

CREATE INDEX IF NOT EXISTS idx_vote_session_round ON vote(session_id, round_number);
CREATE INDEX IF NOT EXISTS idx_vote_likes ON vote(session_id, round_number, decision, item_id);

-- Matches (append-only)
CREATE TABLE IF NOT EXISTS item_match (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
    item_id TEXT NOT NULL,
    item_type TEXT NOT NULL,
    item_snapshot %[1]s NOT NULL,
    vote_count INTEGER NOT NULL CHECK (vote_count >= 1),
    match_score %[2]s NOT NULL,
    round_number INTEGER NOT NULL CHECK (round_number >= 1),
    created_at BIGINT NOT NULL,
    UNIQUE (session_id, item_id, round_number)
);

CREATE INDEX IF NOT EXISTS idx_item_match_session_round ON item_match(session_id, round_number);
`
