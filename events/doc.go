// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package events defines the lifecycle events emitted for the notification
service and the publishers that deliver them.

# Events

	session.round_advanced {session_id, new_round}
	session.completed      {session_id, winning_item_id, match_score}
	session.cancelled      {session_id, reason}

# Publishers

  - LogPublisher: writes events to slog
  - RedisPublisher: PUBLISH JSON on a Redis channel behind a circuit breaker
  - Fanout: sends to several publishers
  - Recorder: keeps events in memory (tests)
  - Discard: drops events

Publishing is best effort. A failure is logged by the caller and never
undoes the transition that produced the event.
*/
package events
