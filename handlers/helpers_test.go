// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/quickly-match/auth"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/testutil"
)

// api holds the handlers over one wired test App.
type api struct {
	app      *testutil.App
	sessions *SessionHandler
	votes    *VoteHandler
	matches  *MatchHandler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	return newAPIFor(testutil.NewApp(t))
}

func newAPIFor(app *testutil.App) *api {
	return &api{
		app:      app,
		sessions: NewSessionHandler(app.Sessions, app.Controller, app.Engine, app.Roster, app.Config),
		votes:    NewVoteHandler(app.Sessions, app.Ledger, app.Controller),
		matches:  NewMatchHandler(app.Sessions, app.Engine),
	}
}

// call runs h with {id} set to sessionID.
func call(h http.HandlerFunc, method, path, sessionID string, body any, headers map[string]string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, headers)
	if sessionID != "" {
		req.SetPathValue("id", sessionID)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func (a *api) adminHeaders(sessionID string) map[string]string {
	return map[string]string{auth.AdminKeyHeader: auth.GenerateAdminKey(sessionID, a.app.Config.AdminKeySalt)}
}

func (a *api) vote(sessionID, voterID, itemID string, decision models.Decision) *httptest.ResponseRecorder {
	return call(a.votes.CastVote, "POST", "/sessions/"+sessionID+"/votes", sessionID, models.CastVoteRequest{
		VoterID:      voterID,
		ItemID:       itemID,
		ItemType:     models.ItemRestaurant,
		Decision:     decision,
		ItemSnapshot: models.ItemSnapshot{Name: itemID},
	}, nil)
}

func (a *api) getSession(t *testing.T, sessionID string) models.SessionResponse {
	t.Helper()
	w := call(a.sessions.GetSession, "GET", "/sessions/"+sessionID, sessionID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.SessionResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}
