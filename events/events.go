// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

type Type string

const (
	TypeRoundAdvanced Type = "session.round_advanced"
	TypeCompleted     Type = "session.completed"
	TypeCancelled     Type = "session.cancelled"
)

// Event carries the minimal fields a notification service needs to route a
// message. Only the fields relevant to Type are set.
type Event struct {
	Type          Type    `json:"type"`
	SessionID     string  `json:"session_id"`
	NewRound      int     `json:"new_round,omitempty"`
	WinningItemID string  `json:"winning_item_id,omitempty"`
	MatchScore    float64 `json:"match_score,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

func RoundAdvanced(sessionID string, newRound int) Event {
	return Event{Type: TypeRoundAdvanced, SessionID: sessionID, NewRound: newRound}
}

func Completed(sessionID, winningItemID string, score float64) Event {
	return Event{Type: TypeCompleted, SessionID: sessionID, WinningItemID: winningItemID, MatchScore: score}
}

func Cancelled(sessionID, reason string) Event {
	return Event{Type: TypeCancelled, SessionID: sessionID, Reason: reason}
}

// Publisher hands events to the notification collaborator.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// LogPublisher writes events to the structured log.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev Event) error {
	slog.InfoContext(ctx, "event", "type", ev.Type, "session_id", ev.SessionID,
		"new_round", ev.NewRound, "winning_item_id", ev.WinningItemID, "match_score", ev.MatchScore, "reason", ev.Reason)
	return nil
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
