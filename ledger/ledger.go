// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/quickly-match/metrics"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/store"
)

// Vote results recorded in metrics.
const (
	ResultAccepted    = "accepted"
	ResultDuplicate   = "duplicate"
	ResultNotVotable  = "not_votable"
	ResultInvalid     = "invalid"
	ResultNotFound    = "not_found"
	ResultStoreFailed = "error"
)

// CastVoteParams is one swipe as received from a participant.
type CastVoteParams struct {
	SessionID    string
	VoterID      string
	ItemID       string
	ItemType     models.ItemType
	Decision     models.Decision
	ItemSnapshot models.ItemSnapshot
}

// Ledger records votes and answers the aggregate queries round closure
// depends on. It never triggers closure itself.
type Ledger struct {
	store   store.Store
	clock   clockwork.Clock
	metrics *metrics.Metrics
}

func New(st store.Store, clock clockwork.Clock, m *metrics.Metrics) *Ledger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ledger{store: st, clock: clock, metrics: m}
}

// CastVote persists one vote tagged with the session's current round.
func (l *Ledger) CastVote(ctx context.Context, p CastVoteParams) (models.Vote, error) {
	if err := validate(&p); err != nil {
		l.metrics.ObserveVote(ResultInvalid)
		return models.Vote{}, err
	}

	// v7 ids sort by creation time, which breaks ties between votes cast
	// within the same voted_at tick.
	id, err := uuid.NewV7()
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to generate vote id: %w", err)
	}

	vote, err := l.store.CastVote(ctx, models.Vote{
		ID:           id.String(),
		SessionID:    p.SessionID,
		VoterID:      p.VoterID,
		ItemID:       p.ItemID,
		ItemType:     p.ItemType,
		Decision:     p.Decision,
		ItemSnapshot: p.ItemSnapshot,
		VotedAt:      l.clock.Now().UTC(),
	})
	if err != nil {
		result := classify(err)
		l.metrics.ObserveVote(result)
		if result == ResultStoreFailed {
			slog.ErrorContext(ctx, "failed to cast vote", "session_id", p.SessionID, "error", err)
		} else {
			slog.DebugContext(ctx, "vote rejected", "session_id", p.SessionID, "voter_id", p.VoterID,
				"item_id", p.ItemID, "result", result)
		}
		return models.Vote{}, err
	}

	l.metrics.ObserveVote(ResultAccepted)
	slog.DebugContext(ctx, "vote cast", "session_id", vote.SessionID, "voter_id", vote.VoterID,
		"item_id", vote.ItemID, "decision", vote.Decision, "round", vote.RoundNumber)
	return vote, nil
}

func (l *Ledger) CountDistinctVoters(ctx context.Context, sessionID string, round int) (int, error) {
	return l.store.CountDistinctVoters(ctx, sessionID, round)
}

func (l *Ledger) CountLikes(ctx context.Context, sessionID string, round int, itemID string) (int, error) {
	return l.store.CountLikes(ctx, sessionID, round, itemID)
}

func (l *Ledger) ListItemsWithAnyLike(ctx context.Context, sessionID string, round int) ([]string, error) {
	return l.store.ListItemsWithAnyLike(ctx, sessionID, round)
}

// ListVotes returns a round's votes in the order they were cast.
func (l *Ledger) ListVotes(ctx context.Context, sessionID string, round int) ([]models.Vote, error) {
	return l.store.ListVotes(ctx, sessionID, round)
}

func validate(p *CastVoteParams) error {
	p.SessionID = strings.TrimSpace(p.SessionID)
	p.VoterID = strings.TrimSpace(p.VoterID)
	p.ItemID = strings.TrimSpace(p.ItemID)

	switch {
	case p.SessionID == "":
		return fmt.Errorf("%w: session_id is required", models.ErrInvalidVote)
	case p.VoterID == "":
		return fmt.Errorf("%w: voter_id is required", models.ErrInvalidVote)
	case p.ItemID == "":
		return fmt.Errorf("%w: item_id is required", models.ErrInvalidVote)
	case !p.ItemType.Valid():
		return fmt.Errorf("%w: unknown item_type %q", models.ErrInvalidVote, p.ItemType)
	case !p.Decision.Valid():
		return fmt.Errorf("%w: unknown decision %q", models.ErrInvalidVote, p.Decision)
	}
	return nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, models.ErrDuplicateVote):
		return ResultDuplicate
	case errors.Is(err, models.ErrSessionNotVotable):
		return ResultNotVotable
	case errors.Is(err, models.ErrSessionNotFound):
		return ResultNotFound
	default:
		return ResultStoreFailed
	}
}
