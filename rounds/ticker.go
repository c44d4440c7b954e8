// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rounds

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultTickInterval = 5 * time.Second
	defaultMaxPerTick   = 200
)

// Ticker periodically evaluates every open session with the timer trigger.
// This is what closes rounds on timeout when no voter ever reports the
// quorum, and what resumes rounds left in voting by an interrupted closer.
type Ticker struct {
	controller *Controller
	clock      clockwork.Clock
	interval   time.Duration
	maxPerTick int
	offset     int
}

func NewTicker(controller *Controller, clock clockwork.Clock, interval time.Duration) *Ticker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{
		controller: controller,
		clock:      clock,
		interval:   interval,
		maxPerTick: defaultMaxPerTick,
	}
}

// Run starts the evaluation loop. It blocks until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	slog.Info("round ticker started", "interval", t.interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("round ticker stopped")
			return
		case <-ticker.Chan():
			t.Tick(ctx)
		}
	}
}

// Tick evaluates up to maxPerTick open sessions once and returns how many
// changed state. When more sessions are open, successive ticks rotate
// through them. Not safe for concurrent use.
func (t *Ticker) Tick(ctx context.Context) int {
	open, err := t.controller.sessions.ListOpen(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Ticker: failed to list open sessions", "error", err)
		return 0
	}
	if len(open) > t.maxPerTick {
		slog.WarnContext(ctx, "Ticker: too many open sessions, deferring the rest", "open", len(open), "limit", t.maxPerTick)
		start := t.offset % len(open)
		open = slices.Concat(open[start:], open[:start])[:t.maxPerTick]
		t.offset = start + t.maxPerTick
	}

	changed := 0
	for _, sess := range open {
		if ctx.Err() != nil {
			return changed
		}

		out, err := t.controller.Evaluate(ctx, sess.ID, TriggerTimer)
		if err != nil {
			slog.WarnContext(ctx, "Ticker: evaluation failed", "session_id", sess.ID, "error", err)
			continue
		}
		if out.Action != ActionNone {
			changed++
			slog.DebugContext(ctx, "Ticker: round finished", "session_id", sess.ID, "round", out.Round, "action", out.Action)
		}
	}
	return changed
}
