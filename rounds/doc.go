// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package rounds decides when a round closes and what follows.

# Closure

A round of an active session is ready to close when either holds:

	distinct voters >= ceil(active members * quorum_fraction)
	now - round_started_at >= round_timeout_seconds   (0 disables)

The manual trigger closes the round regardless. Closure is the
active->voting compare-and-swap on (status, round); when several triggers
fire together exactly one wins and the rest are no-ops.

# After closure

 1. Compute the round's matches
 2. Any match: complete the session with the top-ranked one
 3. No match: advance to the next round
 4. No rounds left: cancel with "no consensus reached"

A session found in voting is resumed at step 1. Match computation is
idempotent and every later step is a conditional transition, so
concurrent resumers converge on one outcome.

# Ticker

Ticker evaluates all active and voting sessions on an interval with the
timer trigger. It never waits on a session in-process; readiness is
re-checked on the next tick.
*/
package rounds
