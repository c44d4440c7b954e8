// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/testutil"
)

func TestListMatches(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 4, models.SessionConfig{MatchThresholdFraction: models.Fraction(0.5)})

	// R2 and R3 tie on score and likes; item ID breaks the tie.
	likes := map[string][]string{
		"alice": {"R1", "R2", "R3"},
		"bob":   {"R1", "R3", "R2"},
		"carol": {"R1"},
		"dave":  {"R4"},
	}
	for voter, items := range likes {
		for _, item := range items {
			a.app.CastTestVote(t, sess.ID, voter, item, models.DecisionLike)
		}
	}

	w := call(a.sessions.Evaluate, "POST", "/sessions/"+sess.ID+"/evaluate", sess.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	w = call(a.matches.ListMatches, "GET", "/sessions/"+sess.ID+"/matches", sess.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.MatchesResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, 1, resp.Round)
	require.Len(t, resp.Matches, 3)

	ids := []string{resp.Matches[0].ItemID, resp.Matches[1].ItemID, resp.Matches[2].ItemID}
	assert.Equal(t, []string{"R1", "R2", "R3"}, ids)
	assert.Equal(t, 0.75, resp.Matches[0].MatchScore)
	assert.Equal(t, 0.5, resp.Matches[1].MatchScore)
	assert.Equal(t, []int{1, 2, 3}, []int{resp.Matches[0].Rank, resp.Matches[1].Rank, resp.Matches[2].Rank})
	assert.Equal(t, "R1", resp.Matches[0].ItemSnapshot.Name)
}

func TestListMatches_OpenRoundIsEmpty(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 3, models.SessionConfig{})
	a.app.CastTestVote(t, sess.ID, "alice", "R1", models.DecisionLike)

	w := call(a.matches.ListMatches, "GET", "/sessions/"+sess.ID+"/matches", sess.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.JSONEq(t, `{"session_id":"`+sess.ID+`","round":1,"matches":[]}`, w.Body.String())
}

func TestListMatches_Errors(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 3, models.SessionConfig{})

	w := call(a.matches.ListMatches, "GET", "/sessions/"+sess.ID+"/matches?round=0", sess.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = call(a.matches.ListMatches, "GET", "/sessions/nope/matches", "nope", nil, nil)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
