// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-match/auth"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/testutil"
)

func newTestRouter(t *testing.T) (*http.ServeMux, *testutil.App) {
	t.Helper()
	app := testutil.NewApp(t)
	mux := NewRouter(Deps{
		Sessions:   app.Sessions,
		Ledger:     app.Ledger,
		Engine:     app.Engine,
		Controller: app.Controller,
		Roster:     app.Roster,
		Registry:   app.Registry,
		Clock:      app.Clock,
	}, app.Config)
	return mux, app
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestHealthEndpoint_StoreDown(t *testing.T) {
	app := testutil.NewApp(t)
	mux := NewRouter(Deps{
		Sessions:   app.Sessions,
		Ledger:     app.Ledger,
		Engine:     app.Engine,
		Controller: app.Controller,
		Health:     func(context.Context) error { return errors.New("connection refused") },
	}, app.Config)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRootEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "quickly-match API v1", w.Body.String())

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	mux, app := newTestRouter(t)
	sess := app.CreateTestSession(t, "g1", 2, models.SessionConfig{})
	app.CastTestVote(t, sess.ID, "alice", "R1", models.DecisionLike)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `quickly_match_votes_cast_total{result="accepted"} 1`)
}

func TestRouteExistence(t *testing.T) {
	mux, _ := newTestRouter(t)

	// Handlers answer 400, 401 or 404 for a missing session; a 405 means
	// the route is not registered.
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/sessions"},
		{"GET", "/sessions/test-id"},
		{"POST", "/sessions/test-id/evaluate"},
		{"POST", "/sessions/test-id/close-round"},
		{"POST", "/sessions/test-id/cancel"},
		{"POST", "/sessions/test-id/votes"},
		{"GET", "/sessions/test-id/votes"},
		{"GET", "/sessions/test-id/matches"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			assert.NotEqual(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},
		{"DELETE", "/sessions/test-id"},
		{"PUT", "/sessions/test-id/votes"},
		{"GET", "/sessions/test-id/close-round"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	mux, app := newTestRouter(t)
	sess := app.CreateTestSession(t, "g1", 3, models.SessionConfig{})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/sessions/"+sess.ID, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), sess.ID)

	req := httptest.NewRequest("POST", "/sessions/"+sess.ID+"/cancel", nil)
	req.Header.Set(auth.AdminKeyHeader, auth.GenerateAdminKey(sess.ID, app.Config.AdminKeySalt))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestVoteRateLimit(t *testing.T) {
	app := testutil.NewApp(t)
	cfg := app.Config
	cfg.VoteRateLimit, cfg.VoteRateBurst = 1, 2
	mux := NewRouter(Deps{
		Sessions:   app.Sessions,
		Ledger:     app.Ledger,
		Engine:     app.Engine,
		Controller: app.Controller,
		Roster:     app.Roster,
		Clock:      app.Clock,
	}, cfg)

	sess := app.CreateTestSession(t, "g1", 10, models.SessionConfig{})
	codes := make([]int, 0, 3)
	for _, item := range []string{"R1", "R2", "R3"} {
		body := `{"voter_id":"alice","item_id":"` + item + `","item_type":"restaurant","decision":"like"}`
		req := httptest.NewRequest("POST", "/sessions/"+sess.ID+"/votes", strings.NewReader(body))
		req.RemoteAddr = "192.0.2.10:4000"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// Reads are not limited
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/sessions/"+sess.ID+"/votes", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
