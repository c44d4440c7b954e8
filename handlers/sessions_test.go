// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-match/auth"
	"github.com/danielhkuo/quickly-match/events"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/testutil"
)

func TestCreateSession(t *testing.T) {
	a := newAPI(t)

	w := call(a.sessions.CreateSession, "POST", "/sessions", "", map[string]any{
		"group_id":     "g1",
		"energy_level": "high",
		"member_count": 4,
		"config":       map[string]any{"max_rounds": 2, "theme": "friday"},
	}, nil)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreateSessionResponse
	testutil.AssertJSON(t, w, &resp)

	assert.NotEmpty(t, resp.Session.ID)
	assert.Equal(t, models.StatusActive, resp.Session.Status)
	assert.Equal(t, models.EnergyHigh, resp.Session.EnergyLevel)
	assert.Equal(t, 1, resp.Session.RoundNumber)
	assert.Equal(t, 2, resp.Session.Config.RoundLimit())
	assert.Equal(t, models.DefaultQuorumFraction, resp.Session.Config.Quorum())
	assert.Contains(t, resp.Session.Config.Extra, "theme")
	assert.NoError(t, auth.ValidateAdminKey(resp.Session.ID, resp.AdminKey, a.app.Config.AdminKeySalt))

	n, err := a.app.Roster.ActiveMemberCount(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCreateSession_Invalid(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing group", map[string]any{"member_count": 2}},
		{"bad quorum", map[string]any{"group_id": "g1", "config": map[string]any{"quorum_fraction": 1.5}}},
		{"negative max rounds", map[string]any{"group_id": "g1", "config": map[string]any{"max_rounds": -1}}},
		{"zero max rounds", map[string]any{"group_id": "g1", "config": map[string]any{"max_rounds": 0}}},
		{"zero threshold", map[string]any{"group_id": "g1", "config": map[string]any{"match_threshold_fraction": 0}}},
		{"unknown energy", map[string]any{"group_id": "g1", "energy_level": "frantic"}},
		{"negative member count", map[string]any{"group_id": "g1", "member_count": -3}},
		{"not json", "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(a.sessions.CreateSession, "POST", "/sessions", "", tt.body, nil)
			testutil.AssertStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestGetSession(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 3, models.SessionConfig{})

	resp := a.getSession(t, sess.ID)
	assert.Equal(t, sess.ID, resp.Session.ID)
	assert.Equal(t, models.StatusActive, resp.Session.Status)
	assert.NotNil(t, resp.Session.StartedAt)
	assert.Nil(t, resp.WinningMatch)

	w := call(a.sessions.GetSession, "GET", "/sessions/nope", "nope", nil, nil)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestEvaluate_WaitsForQuorum(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 3, models.SessionConfig{})
	a.app.CastTestVote(t, sess.ID, "alice", "R1", models.DecisionLike)

	w := call(a.sessions.Evaluate, "POST", "/sessions/"+sess.ID+"/evaluate", sess.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.EvaluateResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, "none", resp.Action)
	assert.Equal(t, 1, resp.Round)
	assert.Equal(t, models.StatusActive, a.getSession(t, sess.ID).Session.Status)
}

func TestEvaluate_Timeout(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 3, models.SessionConfig{RoundTimeoutSeconds: models.Seconds(30)})
	a.app.CastTestVote(t, sess.ID, "alice", "R1", models.DecisionLike)

	a.app.Clock.Advance(30 * time.Second)

	w := call(a.sessions.Evaluate, "POST", "/sessions/"+sess.ID+"/evaluate", sess.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.EvaluateResponse
	testutil.AssertJSON(t, w, &resp)
	// One like out of three members is well under the threshold.
	assert.Equal(t, "advanced", resp.Action)
	assert.Equal(t, 1, resp.Round)
	assert.Equal(t, 2, a.getSession(t, sess.ID).Session.RoundNumber)
}

func TestEvaluate_UnknownGroup(t *testing.T) {
	a := newAPI(t)
	sess, err := a.app.Sessions.CreateAndStart(context.Background(), "no-roster", "", models.SessionConfig{})
	require.NoError(t, err)

	w := call(a.sessions.Evaluate, "POST", "/sessions/"+sess.ID+"/evaluate", sess.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestCloseRound(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 4, models.SessionConfig{})
	for _, voter := range []string{"alice", "bob", "carol"} {
		a.app.CastTestVote(t, sess.ID, voter, "R1", models.DecisionLike)
	}

	path := "/sessions/" + sess.ID + "/close-round"

	w := call(a.sessions.CloseRound, "POST", path, sess.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = call(a.sessions.CloseRound, "POST", path, sess.ID, nil, map[string]string{auth.AdminKeyHeader: "guess"})
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = call(a.sessions.CloseRound, "POST", path, sess.ID, nil, a.adminHeaders(sess.ID))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.EvaluateResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, "completed", resp.Action)
	require.NotNil(t, resp.Winner)
	assert.Equal(t, "R1", resp.Winner.ItemID)
	assert.Equal(t, 0.75, resp.Winner.MatchScore)

	got := a.getSession(t, sess.ID)
	assert.Equal(t, models.StatusCompleted, got.Session.Status)
	require.NotNil(t, got.WinningMatch)
	assert.Equal(t, "R1", got.WinningMatch.ItemID)
	assert.Equal(t, 1, got.WinningMatch.Rank)

	// Closing again is a no-op
	w = call(a.sessions.CloseRound, "POST", path, sess.ID, nil, a.adminHeaders(sess.ID))
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, "none", resp.Action)
}

func TestCancelSession(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 3, models.SessionConfig{})
	path := "/sessions/" + sess.ID + "/cancel"

	w := call(a.sessions.CancelSession, "POST", path, sess.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = call(a.sessions.CancelSession, "POST", path, sess.ID, models.CancelSessionRequest{Reason: "everyone went home"}, a.adminHeaders(sess.ID))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.SessionResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, models.StatusCancelled, resp.Session.Status)
	assert.Equal(t, "everyone went home", resp.Session.EndReason)
	assert.NotNil(t, resp.Session.EndedAt)

	cancelled := a.app.Events.OfType(events.TypeCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "everyone went home", cancelled[0].Reason)

	w = call(a.sessions.CancelSession, "POST", path, sess.ID, nil, a.adminHeaders(sess.ID))
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestCancelSession_DefaultReason(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 3, models.SessionConfig{})

	w := call(a.sessions.CancelSession, "POST", "/sessions/"+sess.ID+"/cancel", sess.ID, nil, a.adminHeaders(sess.ID))
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.True(t, strings.Contains(w.Body.String(), "cancelled by host"))
}
