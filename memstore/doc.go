// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package memstore keeps sessions, votes and matches in process memory.

It implements store.Store for tests and for running the server with
-t memory. Nothing survives a restart.

# Atomicity

One mutex guards all state, so each Store method is atomic on its own:

  - TransitionSession checks and applies a store.Transition in one step,
    which is what makes concurrent closes and advances race safely.
  - CastVote checks that the session is active and reads its round under
    the same lock that inserts the vote. A vote can never land in a round
    that has already moved to voting.
  - InsertMatches skips (session, item, round) keys that already exist,
    so recomputing a round returns the rows stored the first time.

# Ordering

Votes are ordered by voted_at, then id. Vote ids are UUIDv7, so votes
cast within one clock tick still come back in the order they were cast,
and LikeTallies keeps the snapshot of the earliest like per item.
*/
package memstore
