package matching

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-match/memstore"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/sessions"
	"github.com/danielhkuo/quickly-match/store"
)

type vote struct {
	voter    string
	item     string
	decision models.Decision
}

// closedRound creates an active session, records votes in round 1 and
// closes the round.
func closedRound(t *testing.T, st store.Store, clock *clockwork.FakeClock, cfg models.SessionConfig, votes []vote) models.Session {
	t.Helper()
	ctx := context.Background()

	mgr := sessions.NewManager(st, nil, clock)
	sess, err := mgr.CreateAndStart(ctx, "group-1", models.EnergyMedium, cfg)
	require.NoError(t, err)

	for i, v := range votes {
		clock.Advance(time.Second)
		_, err := st.CastVote(ctx, models.Vote{
			ID:           fmt.Sprintf("v%03d", i),
			SessionID:    sess.ID,
			VoterID:      v.voter,
			ItemID:       v.item,
			ItemType:     models.ItemRestaurant,
			Decision:     v.decision,
			ItemSnapshot: models.ItemSnapshot{Name: v.item + " by " + v.voter},
			VotedAt:      clock.Now(),
		})
		require.NoError(t, err)
	}

	sess, err = mgr.BeginRoundClosure(ctx, sess.ID, 1)
	require.NoError(t, err)
	return sess
}

func TestComputeMatches_ThreeOfFourQualifies(t *testing.T) {
	st := memstore.New()
	clock := clockwork.NewFakeClock()
	sess := closedRound(t, st, clock, models.SessionConfig{MatchThresholdFraction: models.Fraction(0.75)}, []vote{
		{"a", "R1", models.DecisionLike},
		{"b", "R1", models.DecisionLike},
		{"c", "R1", models.DecisionLike},
		{"d", "R1", models.DecisionDislike},
	})

	engine := NewEngine(st, clock, nil)
	matches, err := engine.ComputeMatches(context.Background(), sess.ID, 1, 4)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "R1", matches[0].ItemID)
	assert.Equal(t, 3, matches[0].VoteCount)
	assert.Equal(t, 0.75, matches[0].MatchScore)
	assert.Equal(t, 1, matches[0].Rank)
	assert.Equal(t, "R1 by a", matches[0].ItemSnapshot.Name, "snapshot comes from the earliest like")
}

func TestComputeMatches_HalfDoesNotQualify(t *testing.T) {
	st := memstore.New()
	clock := clockwork.NewFakeClock()
	sess := closedRound(t, st, clock, models.SessionConfig{MatchThresholdFraction: models.Fraction(0.75)}, []vote{
		{"a", "R1", models.DecisionLike},
		{"b", "R1", models.DecisionLike},
		{"c", "R1", models.DecisionDislike},
		{"d", "R1", models.DecisionDislike},
	})

	engine := NewEngine(st, clock, nil)
	matches, err := engine.ComputeMatches(context.Background(), sess.ID, 1, 4)
	require.NoError(t, err)
	assert.Empty(t, matches)

	stored, err := st.ListMatches(context.Background(), sess.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestComputeMatches_AbsenteesCountAgainst(t *testing.T) {
	st := memstore.New()
	clock := clockwork.NewFakeClock()
	// Everyone who voted liked R1, but only 2 of 4 members voted.
	sess := closedRound(t, st, clock, models.SessionConfig{MatchThresholdFraction: models.Fraction(0.75)}, []vote{
		{"a", "R1", models.DecisionLike},
		{"b", "R1", models.DecisionLike},
	})

	engine := NewEngine(st, clock, nil)
	matches, err := engine.ComputeMatches(context.Background(), sess.ID, 1, 4)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestComputeMatches_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	clock := clockwork.NewFakeClock()
	sess := closedRound(t, st, clock, models.SessionConfig{MatchThresholdFraction: models.Fraction(0.5)}, []vote{
		{"a", "R1", models.DecisionLike},
		{"b", "R1", models.DecisionLike},
		{"a", "R2", models.DecisionLike},
		{"b", "R2", models.DecisionLike},
		{"c", "R2", models.DecisionLike},
	})

	engine := NewEngine(st, clock, nil)
	first, err := engine.ComputeMatches(ctx, sess.ID, 1, 4)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, err := engine.ComputeMatches(ctx, sess.ID, 1, 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	stored, err := st.ListMatches(ctx, sess.ID, 1)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestComputeMatches_RankingIgnoresInsertionOrder(t *testing.T) {
	// R3 and R1 tie on score and likes; R2 wins on score.
	base := []vote{
		{"a", "R2", models.DecisionLike},
		{"b", "R2", models.DecisionLike},
		{"c", "R2", models.DecisionLike},
		{"a", "R3", models.DecisionLike},
		{"b", "R3", models.DecisionLike},
		{"a", "R1", models.DecisionLike},
		{"c", "R1", models.DecisionLike},
		{"d", "R4", models.DecisionLike},
	}

	var want []string
	for i := range 10 {
		votes := append([]vote(nil), base...)
		rand.Shuffle(len(votes), func(a, b int) { votes[a], votes[b] = votes[b], votes[a] })

		st := memstore.New()
		clock := clockwork.NewFakeClock()
		sess := closedRound(t, st, clock, models.SessionConfig{MatchThresholdFraction: models.Fraction(0.5)}, votes)

		matches, err := NewEngine(st, clock, nil).ComputeMatches(context.Background(), sess.ID, 1, 4)
		require.NoError(t, err)

		var got []string
		for _, m := range matches {
			got = append(got, m.ItemID)
		}
		if i == 0 {
			want = got
		}
		assert.Equal(t, []string{"R2", "R1", "R3"}, got)
		assert.Equal(t, want, got)
	}
}

func TestComputeMatches_Errors(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	clock := clockwork.NewFakeClock()
	engine := NewEngine(st, clock, nil)

	sess := closedRound(t, st, clock, models.SessionConfig{}, []vote{{"a", "R1", models.DecisionLike}})

	_, err := engine.ComputeMatches(ctx, sess.ID, 1, 0)
	assert.ErrorIs(t, err, models.ErrInvalidMemberCount)

	_, err = engine.ComputeMatches(ctx, sess.ID, 2, 4)
	assert.ErrorIs(t, err, models.ErrStaleRound)

	_, err = engine.ComputeMatches(ctx, "missing", 1, 4)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	stored, err := st.ListMatches(ctx, sess.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestComputeMatches_OpenRoundRejected(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	clock := clockwork.NewFakeClock()

	sess, err := sessions.NewManager(st, nil, clock).CreateAndStart(ctx, "group-1", models.EnergyLow, models.SessionConfig{})
	require.NoError(t, err)

	_, err = NewEngine(st, clock, nil).ComputeMatches(ctx, sess.ID, 1, 3)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestRank(t *testing.T) {
	matches := []models.Match{
		{ItemID: "b", MatchScore: 0.5, VoteCount: 2},
		{ItemID: "a", MatchScore: 0.5, VoteCount: 2},
		{ItemID: "c", MatchScore: 0.5, VoteCount: 3},
		{ItemID: "d", MatchScore: 1.0, VoteCount: 1},
	}
	Rank(matches)

	want := []string{"d", "c", "a", "b"}
	for i, m := range matches {
		assert.Equal(t, want[i], m.ItemID)
		assert.Equal(t, i+1, m.Rank)
	}
}

func TestScoreHundredths(t *testing.T) {
	tests := []struct {
		likes, members, want int
	}{
		{3, 4, 75},
		{2, 4, 50},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds half up
		{1, 200, 1},
		{1, 201, 0},
		{5, 5, 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.likes, tt.members), func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreHundredths(tt.likes, tt.members))
		})
	}
}

func TestQuorumVoters(t *testing.T) {
	tests := []struct {
		members  int
		fraction float64
		want     int
	}{
		{4, 1, 4},
		{4, 0.75, 3},
		{3, 0.51, 2},
		{3, 0.01, 1},
		{7, 0.5, 4},
		{3, 0.334, 2}, // 1.002 needs a second voter
		{3, 2.0 / 3, 2},
		{10, 0.3, 3},
		{1000, 0.0001, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d*%v", tt.members, tt.fraction), func(t *testing.T) {
			assert.Equal(t, tt.want, QuorumVoters(tt.members, tt.fraction))
		})
	}
}

func TestQualifies(t *testing.T) {
	tests := []struct {
		score     int
		threshold float64
		want      bool
	}{
		{75, 0.75, true},
		{74, 0.75, false},
		{67, 0.674, false},
		{68, 0.674, true},
		{67, 0.665, true},
		{29, 0.29, true},
		{100, 1, true},
		{99, 1, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d>=%v", tt.score, tt.threshold), func(t *testing.T) {
			assert.Equal(t, tt.want, Qualifies(tt.score, tt.threshold))
		})
	}
}
