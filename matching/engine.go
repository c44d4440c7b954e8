// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package matching

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/quickly-match/metrics"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/store"
)

// Engine turns a closed round's votes into ranked matches.
type Engine struct {
	store   store.Store
	clock   clockwork.Clock
	metrics *metrics.Metrics
}

func NewEngine(st store.Store, clock clockwork.Clock, m *metrics.Metrics) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{store: st, clock: clock, metrics: m}
}

// ComputeMatches scores every liked item of round against activeMemberCount,
// persists the ones that reach the session's threshold and returns them
// ranked. Calling it again for the same round returns the same list and
// writes nothing new.
func (e *Engine) ComputeMatches(ctx context.Context, sessionID string, round, activeMemberCount int) ([]models.Match, error) {
	if activeMemberCount < 1 {
		return nil, fmt.Errorf("%w: got %d", models.ErrInvalidMemberCount, activeMemberCount)
	}

	start := e.clock.Now()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if round < 1 || round > sess.RoundNumber {
		return nil, fmt.Errorf("%w: round %d is outside 1..%d", models.ErrStaleRound, round, sess.RoundNumber)
	}
	if round == sess.RoundNumber && (sess.Status == models.StatusPending || sess.Status == models.StatusActive) {
		return nil, fmt.Errorf("%w: round %d of session %s is still open", models.ErrInvalidTransition, round, sessionID)
	}
	threshold := sess.Config.Threshold()

	tallies, err := e.store.LikeTallies(ctx, sessionID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to tally likes: %w", err)
	}

	now := e.clock.Now().UTC()
	var candidates []models.Match
	for _, t := range tallies {
		score := ScoreHundredths(t.Likes, activeMemberCount)
		if !Qualifies(score, threshold) {
			continue
		}
		candidates = append(candidates, models.Match{
			ID:           uuid.NewString(),
			SessionID:    sessionID,
			ItemID:       t.ItemID,
			ItemType:     t.ItemType,
			ItemSnapshot: t.Snapshot,
			VoteCount:    t.Likes,
			MatchScore:   float64(score) / 100,
			RoundNumber:  round,
			CreatedAt:    now,
		})
	}

	if err := e.store.InsertMatches(ctx, candidates); err != nil {
		return nil, fmt.Errorf("failed to persist matches: %w", err)
	}

	// Re-read so a recomputation returns the rows the first run stored.
	ranked, err := e.RankedMatches(ctx, sessionID, round)
	if err != nil {
		return nil, err
	}

	e.metrics.ObserveMatchComputation(e.clock.Since(start), len(candidates))
	slog.DebugContext(ctx, "matches computed", "session_id", sessionID, "round", round,
		"liked_items", len(tallies), "matches", len(ranked), "active_members", activeMemberCount)
	return ranked, nil
}

// RankedMatches returns the persisted matches of round in ranking order
// with Rank set.
func (e *Engine) RankedMatches(ctx context.Context, sessionID string, round int) ([]models.Match, error) {
	matches, err := e.store.ListMatches(ctx, sessionID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	Rank(matches)
	return matches, nil
}

// Rank sorts matches in place and assigns 1-indexed ranks.
func Rank(matches []models.Match) {
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]

		// 1. Higher score wins
		if sa, sb := a.ScoreHundredths(), b.ScoreHundredths(); sa != sb {
			return sa > sb
		}

		// 2. More likes wins
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}

		// 3. Stable tie-breaking by item ID (ascending)
		return a.ItemID < b.ItemID
	})

	for i := range matches {
		matches[i].Rank = i + 1
	}
}

// ScoreHundredths returns likes/members in hundredths, rounded half up.
// Members who did not like the item, including those who never voted,
// count in the denominator.
func ScoreHundredths(likes, members int) int {
	return (likes*200 + members) / (2 * members)
}

// epsilon absorbs binary representation error, so that 0.29*100 or
// 3*(2/3.0) do not land just past an integer.
const epsilon = 1e-9

// Qualifies reports whether a score in hundredths reaches threshold, a
// fraction in (0,1]. The threshold is not rounded: 0.67 falls short of 0.674.
func Qualifies(scoreHundredths int, threshold float64) bool {
	return float64(scoreHundredths) >= threshold*100-epsilon
}

// QuorumVoters returns ceil(members * fraction), and at least 1.
func QuorumVoters(members int, fraction float64) int {
	return max(1, int(math.Ceil(float64(members)*fraction-epsilon)))
}
