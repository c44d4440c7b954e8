// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package sessions owns the session lifecycle state machine.

# States

	pending ──start──▶ active ──beginRoundClosure──▶ voting
	                     ▲                             │
	                     └────────advanceRound─────────┤
	                                                   ▼
	active|voting ──complete──▶ completed
	pending|active|voting ──cancel──▶ cancelled

completed and cancelled are terminal. Only active accepts votes.

# Concurrency

Every transition is one conditional update keyed on the expected status
(and round, where it matters). Concurrent callers race on the store, not
on a lock in this process: one wins, the others get
models.ErrInvalidTransition or models.ErrStaleRound.

Events for the notification service are published after the transition
commits. A publishing failure is logged and does not undo the transition.
*/
package sessions
