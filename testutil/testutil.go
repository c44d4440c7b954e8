// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package testutil builds fully wired services for HTTP-level tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-match/cliparse"
	"github.com/danielhkuo/quickly-match/db"
	"github.com/danielhkuo/quickly-match/events"
	"github.com/danielhkuo/quickly-match/ledger"
	"github.com/danielhkuo/quickly-match/matching"
	"github.com/danielhkuo/quickly-match/memstore"
	"github.com/danielhkuo/quickly-match/metrics"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/roster"
	"github.com/danielhkuo/quickly-match/rounds"
	"github.com/danielhkuo/quickly-match/sessions"
	"github.com/danielhkuo/quickly-match/store"
)

// App is the service graph main wires, on a fake clock.
type App struct {
	Store      store.Store
	Clock      *clockwork.FakeClock
	Events     *events.Recorder
	Roster     *roster.Static
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Sessions   *sessions.Manager
	Ledger     *ledger.Ledger
	Engine     *matching.Engine
	Controller *rounds.Controller
	Config     cliparse.Config
}

// NewApp wires an App over an in-memory store.
func NewApp(t *testing.T) *App {
	t.Helper()
	return newApp(memstore.New())
}

// NewSQLiteApp wires an App over a SQLite file in a temp dir.
func NewSQLiteApp(t *testing.T) *App {
	t.Helper()

	st, err := db.Open(context.Background(), db.SQLite, filepath.Join(t.TempDir(), "quickly-match.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return newApp(st)
}

func newApp(st store.Store) *App {
	a := &App{
		Store:    st,
		Clock:    clockwork.NewFakeClock(),
		Events:   &events.Recorder{},
		Roster:   roster.NewStatic(),
		Registry: prometheus.NewRegistry(),
		Config:   GetTestConfig(),
	}
	a.Metrics = metrics.New(a.Registry)
	a.Sessions = sessions.NewManager(st, a.Events, a.Clock)
	a.Ledger = ledger.New(st, a.Clock, a.Metrics)
	a.Engine = matching.NewEngine(st, a.Clock, a.Metrics)
	a.Controller = rounds.NewController(a.Sessions, a.Ledger, a.Engine, a.Roster, a.Clock, a.Metrics)
	return a
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseType:  "memory",
		AdminKeySalt:  "test-admin-salt",
		TickInterval:  cliparse.DefaultTickInterval,
		VoteRateLimit: 1000,
		VoteRateBurst: 1000,
		LogLevel:      "debug",
		LogFormat:     "text",
	}
}

// CreateTestSession creates and starts a session for groupID with members
// active members.
func (a *App) CreateTestSession(t *testing.T, groupID string, members int, cfg models.SessionConfig) models.Session {
	t.Helper()

	a.Roster.Set(groupID, members)
	sess, err := a.Sessions.CreateAndStart(context.Background(), groupID, models.EnergyMedium, cfg)
	require.NoError(t, err)
	return sess
}

// CastTestVote records one vote directly through the ledger.
func (a *App) CastTestVote(t *testing.T, sessionID, voterID, itemID string, decision models.Decision) models.Vote {
	t.Helper()

	v, err := a.Ledger.CastVote(context.Background(), ledger.CastVoteParams{
		SessionID:    sessionID,
		VoterID:      voterID,
		ItemID:       itemID,
		ItemType:     models.ItemRestaurant,
		Decision:     decision,
		ItemSnapshot: models.ItemSnapshot{Name: itemID},
	})
	require.NoError(t, err)
	return v
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body any, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	require.Equal(t, expected, w.Code, "body: %s", w.Body.String())
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v), "failed to decode JSON response")
}
