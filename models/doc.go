// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

  - Session: lifecycle state, current round and SessionConfig
  - Vote: one swipe, tagged with the round it was cast in
  - Match: an item that reached the threshold when its round closed
  - ItemTally: like count and first snapshot per item in a round

SessionConfig and ItemSnapshot keep JSON fields this build does not know in
Extra and write them back unchanged, so newer clients can add fields
without losing them on a round trip.

# Request Types

  - CreateSessionRequest: group_id, energy_level, member_count, config
  - CastVoteRequest: voter_id, item_id, item_type, decision, item_snapshot
  - CancelSessionRequest: reason

# Response Types

  - CreateSessionResponse: session, admin_key
  - SessionResponse: session, winning_match
  - VotesResponse, MatchesResponse: per-round lists
  - EvaluateResponse: what a round evaluation did
  - ErrorResponse: error, message

# Constants

Status values:

	StatusPending   = "pending"
	StatusActive    = "active"
	StatusVoting    = "voting"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

Decisions:

	DecisionLike    = "like"
	DecisionDislike = "dislike"
	DecisionSkip    = "skip"

# Errors

Sentinel errors (ErrDuplicateVote, ErrStaleRound, ...) are wrapped with
detail by the packages that return them; match with errors.Is.
*/
package models
