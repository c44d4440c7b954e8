// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rounds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/quickly-match/ledger"
	"github.com/danielhkuo/quickly-match/matching"
	"github.com/danielhkuo/quickly-match/metrics"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/roster"
	"github.com/danielhkuo/quickly-match/sessions"
)

// Trigger names what prompted an evaluation.
type Trigger string

const (
	TriggerTimer  Trigger = "timer"
	TriggerQuorum Trigger = "quorum"
	TriggerManual Trigger = "manual" // closes the round regardless of readiness
)

// Action is what an evaluation did to the session.
type Action string

const (
	ActionNone      Action = "none"
	ActionCompleted Action = "completed"
	ActionAdvanced  Action = "advanced"
	ActionCancelled Action = "cancelled"
)

// Outcome reports the result of one evaluation. Round is the round that
// was evaluated.
type Outcome struct {
	SessionID string          `json:"session_id"`
	Round     int             `json:"round"`
	Action    Action          `json:"action"`
	Winner    *models.Match   `json:"winner,omitempty"`
	Matches   []models.Match  `json:"matches,omitempty"`
	Session   *models.Session `json:"session,omitempty"`
}

// Controller decides when a round closes and what happens next.
type Controller struct {
	sessions *sessions.Manager
	ledger   *ledger.Ledger
	engine   *matching.Engine
	roster   roster.Source
	clock    clockwork.Clock
	metrics  *metrics.Metrics
}

func NewController(mgr *sessions.Manager, l *ledger.Ledger, engine *matching.Engine, src roster.Source, clock clockwork.Clock, m *metrics.Metrics) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		sessions: mgr,
		ledger:   l,
		engine:   engine,
		roster:   src,
		clock:    clock,
		metrics:  m,
	}
}

// Evaluate closes the session's current round if it is ready, computes its
// matches and completes, advances or cancels the session. Safe to call
// concurrently and redundantly: losers of any race get ActionNone.
//
// A session already in voting had its closure won by a caller that did not
// finish; Evaluate resumes it from match computation.
func (c *Controller) Evaluate(ctx context.Context, sessionID string, trigger Trigger) (Outcome, error) {
	sess, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{SessionID: sessionID, Round: sess.RoundNumber, Action: ActionNone}

	if sess.Status != models.StatusActive && sess.Status != models.StatusVoting {
		return out, nil
	}

	members, err := c.activeMembers(ctx, sess)
	if err != nil {
		return Outcome{}, err
	}

	if sess.Status == models.StatusActive {
		ready, err := c.ready(ctx, sess, members, trigger)
		if err != nil {
			return Outcome{}, err
		}
		if !ready {
			return out, nil
		}

		if _, err := c.sessions.BeginRoundClosure(ctx, sessionID, sess.RoundNumber); err != nil {
			if errors.Is(err, models.ErrStaleRound) {
				slog.DebugContext(ctx, "round already closed by another trigger", "session_id", sessionID,
					"round", sess.RoundNumber, "trigger", trigger)
				return out, nil
			}
			return Outcome{}, err
		}
		slog.InfoContext(ctx, "round closed", "session_id", sessionID, "round", sess.RoundNumber,
			"trigger", trigger, "active_members", members)
	} else {
		slog.InfoContext(ctx, "resuming closed round", "session_id", sessionID, "round", sess.RoundNumber)
	}

	return c.finish(ctx, out, members)
}

// finish runs the post-closure steps for out.Round.
func (c *Controller) finish(ctx context.Context, out Outcome, members int) (Outcome, error) {
	matches, err := c.engine.ComputeMatches(ctx, out.SessionID, out.Round, members)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to compute matches: %w", err)
	}
	out.Matches = matches

	if len(matches) > 0 {
		winner := matches[0]
		sess, err := c.sessions.Complete(ctx, out.SessionID, &winner)
		if err != nil {
			return c.lost(ctx, out, err)
		}
		out.Action, out.Winner, out.Session = ActionCompleted, &winner, &sess
		c.metrics.ObserveRoundOutcome(string(out.Action))
		return out, nil
	}

	sess, err := c.sessions.AdvanceRoundFrom(ctx, out.SessionID, out.Round)
	switch {
	case err == nil:
		out.Action, out.Session = ActionAdvanced, &sess
	case errors.Is(err, models.ErrRoundLimitExceeded):
		sess, err = c.sessions.Cancel(ctx, out.SessionID, models.ReasonNoConsensus)
		if err != nil {
			return c.lost(ctx, out, err)
		}
		out.Action, out.Session = ActionCancelled, &sess
	default:
		return c.lost(ctx, out, err)
	}

	c.metrics.ObserveRoundOutcome(string(out.Action))
	return out, nil
}

// lost turns a conflict from a concurrent finisher or a cancel into a
// no-op and passes every other error through.
func (c *Controller) lost(ctx context.Context, out Outcome, err error) (Outcome, error) {
	if errors.Is(err, models.ErrInvalidTransition) || errors.Is(err, models.ErrStaleRound) {
		slog.DebugContext(ctx, "round already finished elsewhere", "session_id", out.SessionID, "round", out.Round, "error", err)
		out.Action = ActionNone
		return out, nil
	}
	return Outcome{}, err
}

func (c *Controller) ready(ctx context.Context, sess models.Session, members int, trigger Trigger) (bool, error) {
	if trigger == TriggerManual {
		return true, nil
	}

	if timeout := sess.Config.RoundTimeout(); timeout > 0 && sess.RoundStartedAt != nil {
		if c.clock.Since(*sess.RoundStartedAt) >= timeout {
			return true, nil
		}
	}

	voters, err := c.ledger.CountDistinctVoters(ctx, sess.ID, sess.RoundNumber)
	if err != nil {
		return false, fmt.Errorf("failed to count voters: %w", err)
	}
	return voters >= matching.QuorumVoters(members, sess.Config.Quorum()), nil
}

func (c *Controller) activeMembers(ctx context.Context, sess models.Session) (int, error) {
	n, err := c.roster.ActiveMemberCount(ctx, sess.GroupID)
	if err != nil {
		return 0, fmt.Errorf("failed to get active member count for group %s: %w", sess.GroupID, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: group %s has %d", models.ErrInvalidMemberCount, sess.GroupID, n)
	}
	return n, nil
}
