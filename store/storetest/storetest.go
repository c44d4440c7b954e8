// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package storetest is a behavioral test suite every store.Store must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/store"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// Run runs the suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("SessionRoundTrip", func(t *testing.T) { testSessionRoundTrip(t, newStore(t)) })
	t.Run("ListSessionsByStatus", func(t *testing.T) { testListSessionsByStatus(t, newStore(t)) })
	t.Run("TransitionCompareAndSwap", func(t *testing.T) { testTransition(t, newStore(t)) })
	t.Run("TransitionConcurrent", func(t *testing.T) { testTransitionConcurrent(t, newStore(t)) })
	t.Run("CastVote", func(t *testing.T) { testCastVote(t, newStore(t)) })
	t.Run("CastVoteConcurrent", func(t *testing.T) { testCastVoteConcurrent(t, newStore(t)) })
	t.Run("Aggregates", func(t *testing.T) { testAggregates(t, newStore(t)) })
	t.Run("InsertMatchesIdempotent", func(t *testing.T) { testInsertMatches(t, newStore(t)) })
}

func newSession(id string, status models.SessionStatus) models.Session {
	started := base
	return models.Session{
		ID:             id,
		GroupID:        "group-1",
		Status:         status,
		EnergyLevel:    models.EnergyHigh,
		RoundNumber:    1,
		Config:         models.SessionConfig{MaxRounds: models.Rounds(2)}.WithDefaults(),
		RoundStartedAt: &started,
		StartedAt:      &started,
		CreatedAt:      base,
	}
}

func mustCreate(t *testing.T, st store.Store, s models.Session) {
	t.Helper()
	require.NoError(t, st.CreateSession(context.Background(), s))
}

func cast(st store.Store, sessionID, voter, item string, d models.Decision, at time.Time) (models.Vote, error) {
	return st.CastVote(context.Background(), models.Vote{
		ID:           fmt.Sprintf("%s-%s-%s-%d", sessionID, voter, item, at.UnixNano()),
		SessionID:    sessionID,
		VoterID:      voter,
		ItemID:       item,
		ItemType:     models.ItemDish,
		Decision:     d,
		ItemSnapshot: models.ItemSnapshot{Name: item + "/" + voter},
		VotedAt:      at,
	})
}

func testSessionRoundTrip(t *testing.T, st store.Store) {
	ctx := context.Background()

	s := newSession("s1", models.StatusActive)
	mustCreate(t, st, s)

	got, err := st.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.GroupID, got.GroupID)
	assert.Equal(t, s.Status, got.Status)
	assert.Equal(t, s.EnergyLevel, got.EnergyLevel)
	assert.Equal(t, s.RoundNumber, got.RoundNumber)
	assert.Equal(t, s.Config.MaxRounds, got.Config.MaxRounds)
	assert.Equal(t, s.Config.RoundTimeout(), got.Config.RoundTimeout())
	require.NotNil(t, got.StartedAt)
	assert.True(t, s.StartedAt.Equal(*got.StartedAt))
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.EndedAt)

	_, err = st.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func testListSessionsByStatus(t *testing.T, st store.Store) {
	ctx := context.Background()
	mustCreate(t, st, newSession("a", models.StatusActive))
	mustCreate(t, st, newSession("b", models.StatusVoting))
	mustCreate(t, st, newSession("c", models.StatusCompleted))
	mustCreate(t, st, newSession("d", models.StatusPending))

	got, err := st.ListSessionsByStatus(ctx, models.StatusActive, models.StatusVoting)
	require.NoError(t, err)

	var ids []string
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func testTransition(t *testing.T, st store.Store) {
	ctx := context.Background()
	mustCreate(t, st, newSession("s1", models.StatusActive))

	ok, err := st.TransitionSession(ctx, store.Transition{
		SessionID: "s1",
		From:      []models.SessionStatus{models.StatusActive},
		FromRound: 2,
		To:        models.StatusVoting,
	})
	require.NoError(t, err)
	assert.False(t, ok, "wrong round")

	ok, err = st.TransitionSession(ctx, store.Transition{
		SessionID: "s1",
		From:      []models.SessionStatus{models.StatusActive},
		FromRound: 1,
		To:        models.StatusVoting,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ended := base.Add(time.Hour)
	ok, err = st.TransitionSession(ctx, store.Transition{
		SessionID: "s1",
		From:      []models.SessionStatus{models.StatusActive, models.StatusVoting},
		To:        models.StatusCancelled,
		EndedAt:   &ended,
		EndReason: models.ReasonNoConsensus,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := st.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, models.ReasonNoConsensus, got.EndReason)
	require.NotNil(t, got.EndedAt)
	assert.True(t, ended.Equal(*got.EndedAt))
	assert.Equal(t, 1, got.RoundNumber)

	_, err = st.TransitionSession(ctx, store.Transition{
		SessionID: "missing",
		From:      []models.SessionStatus{models.StatusActive},
		To:        models.StatusVoting,
	})
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func testTransitionConcurrent(t *testing.T, st store.Store) {
	mustCreate(t, st, newSession("s1", models.StatusActive))

	var wg sync.WaitGroup
	var wins atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.TransitionSession(context.Background(), store.Transition{
				SessionID: "s1",
				From:      []models.SessionStatus{models.StatusActive},
				FromRound: 1,
				To:        models.StatusVoting,
			})
			if assert.NoError(t, err) && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func testCastVote(t *testing.T, st store.Store) {
	ctx := context.Background()
	s := newSession("s1", models.StatusActive)
	s.RoundNumber = 2
	mustCreate(t, st, s)
	mustCreate(t, st, newSession("closed", models.StatusVoting))

	v, err := cast(st, "s1", "alice", "R1", models.DecisionLike, base)
	require.NoError(t, err)
	assert.Equal(t, 2, v.RoundNumber, "round comes from the session")

	_, err = cast(st, "s1", "alice", "R1", models.DecisionSkip, base.Add(time.Second))
	assert.ErrorIs(t, err, models.ErrDuplicateVote)

	_, err = cast(st, "closed", "alice", "R1", models.DecisionLike, base)
	assert.ErrorIs(t, err, models.ErrSessionNotVotable)

	_, err = cast(st, "missing", "alice", "R1", models.DecisionLike, base)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	votes, err := st.ListVotes(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, models.DecisionLike, votes[0].Decision)
	assert.Equal(t, "R1/alice", votes[0].ItemSnapshot.Name)
	assert.True(t, base.Equal(votes[0].VotedAt))

	empty, err := st.ListVotes(ctx, "s1", 1)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testCastVoteConcurrent(t *testing.T, st store.Store) {
	mustCreate(t, st, newSession("s1", models.StatusActive))

	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cast(st, "s1", "alice", "R1", models.DecisionLike, base.Add(time.Duration(i)))
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, models.ErrDuplicateVote):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(9), dup.Load())

	votes, err := st.ListVotes(context.Background(), "s1", 1)
	require.NoError(t, err)
	assert.Len(t, votes, 1)
}

func testAggregates(t *testing.T, st store.Store) {
	ctx := context.Background()
	mustCreate(t, st, newSession("s1", models.StatusActive))

	votes := []struct {
		voter, item string
		d           models.Decision
	}{
		{"carol", "R2", models.DecisionLike},
		{"alice", "R1", models.DecisionLike},
		{"bob", "R1", models.DecisionLike},
		{"bob", "R2", models.DecisionDislike},
		{"dave", "R3", models.DecisionSkip},
	}
	for i, v := range votes {
		_, err := cast(st, "s1", v.voter, v.item, v.d, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	voters, err := st.CountDistinctVoters(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, 4, voters)

	likes, err := st.CountLikes(ctx, "s1", 1, "R1")
	require.NoError(t, err)
	assert.Equal(t, 2, likes)

	likes, err = st.CountLikes(ctx, "s1", 1, "R3")
	require.NoError(t, err)
	assert.Zero(t, likes)

	items, err := st.ListItemsWithAnyLike(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2"}, items)

	tallies, err := st.LikeTallies(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, tallies, 2)
	assert.Equal(t, "R1", tallies[0].ItemID)
	assert.Equal(t, 2, tallies[0].Likes)
	assert.Equal(t, "R1/alice", tallies[0].Snapshot.Name, "earliest like wins")
	assert.Equal(t, models.ItemDish, tallies[0].ItemType)
	assert.Equal(t, "R2", tallies[1].ItemID)
	assert.Equal(t, 1, tallies[1].Likes)

	voters, err = st.CountDistinctVoters(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Zero(t, voters)
}

func testInsertMatches(t *testing.T, st store.Store) {
	ctx := context.Background()
	mustCreate(t, st, newSession("s1", models.StatusVoting))

	first := []models.Match{
		{ID: "m1", SessionID: "s1", ItemID: "R1", ItemType: models.ItemDish, VoteCount: 3, MatchScore: 0.75, RoundNumber: 1, CreatedAt: base},
		{ID: "m2", SessionID: "s1", ItemID: "R2", ItemType: models.ItemDish, VoteCount: 4, MatchScore: 1, RoundNumber: 1, CreatedAt: base},
	}
	require.NoError(t, st.InsertMatches(ctx, first))

	again := []models.Match{
		{ID: "m3", SessionID: "s1", ItemID: "R1", ItemType: models.ItemDish, VoteCount: 9, MatchScore: 0.9, RoundNumber: 1, CreatedAt: base},
	}
	require.NoError(t, st.InsertMatches(ctx, again))
	require.NoError(t, st.InsertMatches(ctx, nil))

	got, err := st.ListMatches(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byItem := map[string]models.Match{}
	for _, m := range got {
		byItem[m.ItemID] = m
	}
	assert.Equal(t, "m1", byItem["R1"].ID, "existing match is left untouched")
	assert.Equal(t, 3, byItem["R1"].VoteCount)
	assert.Equal(t, 0.75, byItem["R1"].MatchScore)
	assert.Equal(t, 1.0, byItem["R2"].MatchScore)

	none, err := st.ListMatches(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}
