// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/quickly-match/events"
	"github.com/danielhkuo/quickly-match/models"
	"github.com/danielhkuo/quickly-match/store"
)

// Manager owns the session lifecycle. It is the only writer of session
// status and round number.
type Manager struct {
	store     store.Store
	publisher events.Publisher
	clock     clockwork.Clock
}

func NewManager(st store.Store, publisher events.Publisher, clock clockwork.Clock) *Manager {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{store: st, publisher: publisher, clock: clock}
}

// Create stores a new pending session at round 1.
func (m *Manager) Create(ctx context.Context, groupID string, energy models.EnergyLevel, cfg models.SessionConfig) (models.Session, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return models.Session{}, fmt.Errorf("%w: group_id is required", models.ErrInvalidConfig)
	}
	if energy == "" {
		energy = models.EnergyMedium
	}
	if !energy.Valid() {
		return models.Session{}, fmt.Errorf("%w: unknown energy level %q", models.ErrInvalidConfig, energy)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return models.Session{}, err
	}

	sess := models.Session{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		Status:      models.StatusPending,
		EnergyLevel: energy,
		RoundNumber: 1,
		Config:      cfg,
		CreatedAt:   m.clock.Now().UTC(),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return models.Session{}, err
	}

	slog.InfoContext(ctx, "session created", "session_id", sess.ID, "group_id", groupID, "max_rounds", cfg.RoundLimit())
	return sess, nil
}

// ReasonStartFailed is recorded on a session CreateAndStart could not start.
const ReasonStartFailed = "failed to start"

// CreateAndStart creates a session and immediately opens round 1. If the
// start fails, the new session is cancelled before the error is returned.
func (m *Manager) CreateAndStart(ctx context.Context, groupID string, energy models.EnergyLevel, cfg models.SessionConfig) (models.Session, error) {
	sess, err := m.Create(ctx, groupID, energy, cfg)
	if err != nil {
		return models.Session{}, err
	}

	started, err := m.Start(ctx, sess.ID)
	if err != nil {
		// Do not leave a pending session nobody knows the id of.
		if _, cerr := m.Cancel(context.WithoutCancel(ctx), sess.ID, ReasonStartFailed); cerr != nil {
			slog.WarnContext(ctx, "failed to cancel session that did not start", "session_id", sess.ID, "error", cerr)
		}
		return models.Session{}, err
	}
	return started, nil
}

func (m *Manager) Get(ctx context.Context, id string) (models.Session, error) {
	return m.store.GetSession(ctx, id)
}

// ListOpen returns sessions whose current round may still need closing.
func (m *Manager) ListOpen(ctx context.Context) ([]models.Session, error) {
	return m.store.ListSessionsByStatus(ctx, models.StatusActive, models.StatusVoting)
}

// Start moves a pending session to active and opens round 1.
func (m *Manager) Start(ctx context.Context, id string) (models.Session, error) {
	now := m.clock.Now().UTC()
	sess, err := m.transition(ctx, store.Transition{
		SessionID:      id,
		From:           []models.SessionStatus{models.StatusPending},
		To:             models.StatusActive,
		StartedAt:      &now,
		RoundStartedAt: &now,
	})
	if err != nil {
		return models.Session{}, err
	}

	slog.InfoContext(ctx, "session started", "session_id", id)
	return sess, nil
}

// BeginRoundClosure stops accepting votes for round. Only one caller per
// (session, round) succeeds; the others get models.ErrStaleRound.
func (m *Manager) BeginRoundClosure(ctx context.Context, id string, round int) (models.Session, error) {
	ok, err := m.store.TransitionSession(ctx, store.Transition{
		SessionID: id,
		From:      []models.SessionStatus{models.StatusActive},
		FromRound: round,
		To:        models.StatusVoting,
	})
	if err != nil {
		return models.Session{}, err
	}
	if !ok {
		return models.Session{}, fmt.Errorf("%w: round %d of session %s is no longer open", models.ErrStaleRound, round, id)
	}

	slog.DebugContext(ctx, "round closing", "session_id", id, "round", round)
	return m.store.GetSession(ctx, id)
}

// AdvanceRound reopens voting on the next round. It fails with
// models.ErrRoundLimitExceeded when the session has used all its rounds.
func (m *Manager) AdvanceRound(ctx context.Context, id string) (models.Session, error) {
	return m.advance(ctx, id, 0)
}

// AdvanceRoundFrom is AdvanceRound that only moves on from round. It fails
// with models.ErrStaleRound when the session is already past it.
func (m *Manager) AdvanceRoundFrom(ctx context.Context, id string, round int) (models.Session, error) {
	return m.advance(ctx, id, round)
}

func (m *Manager) advance(ctx context.Context, id string, from int) (models.Session, error) {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return models.Session{}, err
	}
	if from != 0 && sess.RoundNumber != from {
		return models.Session{}, fmt.Errorf("%w: session %s is at round %d, not %d", models.ErrStaleRound, id, sess.RoundNumber, from)
	}
	if sess.Status != models.StatusVoting {
		return models.Session{}, fmt.Errorf("%w: cannot advance round from %s", models.ErrInvalidTransition, sess.Status)
	}

	next := sess.RoundNumber + 1
	if next > sess.Config.RoundLimit() {
		return models.Session{}, fmt.Errorf("%w: round %d exceeds max_rounds %d", models.ErrRoundLimitExceeded, next, sess.Config.RoundLimit())
	}

	now := m.clock.Now().UTC()
	ok, err := m.store.TransitionSession(ctx, store.Transition{
		SessionID:      id,
		From:           []models.SessionStatus{models.StatusVoting},
		FromRound:      sess.RoundNumber,
		To:             models.StatusActive,
		NewRound:       next,
		RoundStartedAt: &now,
	})
	if err != nil {
		return models.Session{}, err
	}
	if !ok {
		return models.Session{}, fmt.Errorf("%w: round %d of session %s already moved on", models.ErrStaleRound, sess.RoundNumber, id)
	}

	sess, err = m.store.GetSession(ctx, id)
	if err != nil {
		return models.Session{}, err
	}

	slog.InfoContext(ctx, "round advanced", "session_id", id, "round", next)
	m.publish(ctx, events.RoundAdvanced(id, next))
	return sess, nil
}

// Complete ends the session with a match. winner may be nil when the
// session is completed without a computed match.
func (m *Manager) Complete(ctx context.Context, id string, winner *models.Match) (models.Session, error) {
	now := m.clock.Now().UTC()
	sess, err := m.transition(ctx, store.Transition{
		SessionID: id,
		From:      []models.SessionStatus{models.StatusActive, models.StatusVoting},
		To:        models.StatusCompleted,
		EndedAt:   &now,
	})
	if err != nil {
		return models.Session{}, err
	}

	if winner != nil {
		slog.InfoContext(ctx, "session completed", "session_id", id, "item_id", winner.ItemID, "match_score", winner.MatchScore)
		m.publish(ctx, events.Completed(id, winner.ItemID, winner.MatchScore))
	} else {
		slog.InfoContext(ctx, "session completed", "session_id", id)
		m.publish(ctx, events.Completed(id, "", 0))
	}
	return sess, nil
}

// Cancel ends a non-terminal session without a match.
func (m *Manager) Cancel(ctx context.Context, id string, reason string) (models.Session, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled"
	}

	now := m.clock.Now().UTC()
	sess, err := m.transition(ctx, store.Transition{
		SessionID: id,
		From:      []models.SessionStatus{models.StatusPending, models.StatusActive, models.StatusVoting},
		To:        models.StatusCancelled,
		EndedAt:   &now,
		EndReason: reason,
	})
	if err != nil {
		return models.Session{}, err
	}

	slog.InfoContext(ctx, "session cancelled", "session_id", id, "reason", reason)
	m.publish(ctx, events.Cancelled(id, reason))
	return sess, nil
}

// transition applies t and returns the updated row, or
// models.ErrInvalidTransition naming the status the caller lost to.
func (m *Manager) transition(ctx context.Context, t store.Transition) (models.Session, error) {
	ok, err := m.store.TransitionSession(ctx, t)
	if err != nil {
		return models.Session{}, err
	}

	sess, err := m.store.GetSession(ctx, t.SessionID)
	if err != nil {
		return models.Session{}, err
	}
	if !ok {
		return models.Session{}, fmt.Errorf("%w: session %s is %s, cannot move to %s",
			models.ErrInvalidTransition, t.SessionID, sess.Status, t.To)
	}
	return sess, nil
}

func (m *Manager) publish(ctx context.Context, ev events.Event) {
	if err := m.publisher.Publish(ctx, ev); err != nil {
		// The transition is already committed; delivery is best effort.
		slog.WarnContext(ctx, "failed to publish event", "type", ev.Type, "session_id", ev.SessionID, "error", err)
	}
}

// IsConflict reports whether err is an expected state conflict rather than a failure.
func IsConflict(err error) bool {
	return errors.Is(err, models.ErrInvalidTransition) ||
		errors.Is(err, models.ErrStaleRound) ||
		errors.Is(err, models.ErrDuplicateVote) ||
		errors.Is(err, models.ErrSessionNotVotable)
}
