// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"slices"
	"time"

	"github.com/danielhkuo/quickly-match/models"
)

// Store is the persistence capability set the core depends on. Session rows
// are the single arbitration point; votes and matches are append-only.
type Store interface {
	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id string) (models.Session, error)
	ListSessionsByStatus(ctx context.Context, statuses ...models.SessionStatus) ([]models.Session, error)

	// TransitionSession applies t only if the row still matches t's
	// expectations. It reports whether the row was changed.
	TransitionSession(ctx context.Context, t Transition) (bool, error)

	// CastVote reads the session's status and round and inserts v tagged with
	// that round, atomically. v.RoundNumber is ignored on input.
	CastVote(ctx context.Context, v models.Vote) (models.Vote, error)
	ListVotes(ctx context.Context, sessionID string, round int) ([]models.Vote, error)

	CountDistinctVoters(ctx context.Context, sessionID string, round int) (int, error)
	CountLikes(ctx context.Context, sessionID string, round int, itemID string) (int, error)
	ListItemsWithAnyLike(ctx context.Context, sessionID string, round int) ([]string, error)
	LikeTallies(ctx context.Context, sessionID string, round int) ([]models.ItemTally, error)

	// InsertMatches inserts each match unless one already exists for
	// (session, item, round). Existing rows are left untouched.
	InsertMatches(ctx context.Context, matches []models.Match) error
	ListMatches(ctx context.Context, sessionID string, round int) ([]models.Match, error)
}

// Transition is a conditional update of one session row.
type Transition struct {
	SessionID string

	// Expectations. FromRound 0 matches any round.
	From      []models.SessionStatus
	FromRound int

	To models.SessionStatus

	// Changes. Zero values leave the column untouched.
	NewRound       int
	RoundStartedAt *time.Time
	StartedAt      *time.Time
	EndedAt        *time.Time
	EndReason      string
}

// Matches reports whether s satisfies the transition's expectations.
func (t Transition) Matches(s models.Session) bool {
	if !slices.Contains(t.From, s.Status) {
		return false
	}
	return t.FromRound == 0 || t.FromRound == s.RoundNumber
}

// Apply returns s with the transition's changes applied.
func (t Transition) Apply(s models.Session) models.Session {
	s.Status = t.To
	if t.NewRound != 0 {
		s.RoundNumber = t.NewRound
	}
	if t.RoundStartedAt != nil {
		s.RoundStartedAt = t.RoundStartedAt
	}
	if t.StartedAt != nil {
		s.StartedAt = t.StartedAt
	}
	if t.EndedAt != nil {
		s.EndedAt = t.EndedAt
	}
	if t.EndReason != "" {
		s.EndReason = t.EndReason
	}
	return s
}
