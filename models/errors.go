// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "errors"

var (
	ErrInvalidConfig      = errors.New("invalid session config")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrStaleRound         = errors.New("stale round")
	ErrRoundLimitExceeded = errors.New("round limit exceeded")
	ErrSessionNotVotable  = errors.New("session is not accepting votes")
	ErrDuplicateVote      = errors.New("duplicate vote")
	ErrSessionNotFound    = errors.New("session not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrInvalidVote        = errors.New("invalid vote")
	ErrInvalidMemberCount = errors.New("active member count must be positive")
)
