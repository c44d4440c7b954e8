// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-match/events"
	"github.com/danielhkuo/quickly-match/models"
)

// TestConcurrentDuplicateVotes verifies that when the same swipe is sent
// many times at once, exactly one is recorded
func TestConcurrentDuplicateVotes(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 3, models.SessionConfig{})

	numAttempts := 10
	var created, conflicts atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch a.vote(sess.ID, "alice", "R1", models.DecisionLike).Code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(numAttempts-1), conflicts.Load())
}

// TestConcurrentLastVoters verifies that when every member votes at once,
// the round is closed and the session completed exactly once
func TestConcurrentLastVoters(t *testing.T) {
	a := newAPI(t)
	numVoters := 8
	sess := a.app.CreateTestSession(t, "g1", numVoters, models.SessionConfig{})

	var created atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(voterIdx int) {
			defer wg.Done()
			if a.vote(sess.ID, fmt.Sprintf("voter-%d", voterIdx), "R1", models.DecisionLike).Code == http.StatusCreated {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(numVoters), created.Load())

	got := a.getSession(t, sess.ID)
	assert.Equal(t, models.StatusCompleted, got.Session.Status)
	require.NotNil(t, got.WinningMatch)
	assert.Equal(t, numVoters, got.WinningMatch.VoteCount)

	assert.Len(t, a.app.Events.OfType(events.TypeCompleted), 1)
}

// TestConcurrentManualClose verifies that racing host requests end the
// session once and the rest report no action
func TestConcurrentManualClose(t *testing.T) {
	a := newAPI(t)
	sess := a.app.CreateTestSession(t, "g1", 4, models.SessionConfig{MaxRounds: models.Rounds(1)})
	a.app.CastTestVote(t, sess.ID, "alice", "R1", models.DecisionLike)

	numRequests := 12
	var cancelled, none atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := call(a.sessions.CloseRound, "POST", "/sessions/"+sess.ID+"/close-round", sess.ID, nil, a.adminHeaders(sess.ID))
			if w.Code != http.StatusOK {
				return
			}
			var resp models.EvaluateResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				return
			}
			switch resp.Action {
			case "cancelled":
				cancelled.Add(1)
			case "none":
				none.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), cancelled.Load())
	assert.Equal(t, int32(numRequests-1), none.Load())

	got := a.getSession(t, sess.ID)
	assert.Equal(t, models.StatusCancelled, got.Session.Status)
	assert.Equal(t, models.ReasonNoConsensus, got.Session.EndReason)
	assert.Len(t, a.app.Events.OfType(events.TypeCancelled), 1)
}
