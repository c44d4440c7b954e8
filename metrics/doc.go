// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics defines the Prometheus collectors for the voting pipeline.

# Collectors

All names carry the quickly_match namespace:

	votes_cast_total{result}              vote attempts by ledger result
	round_outcomes_total{action}          evaluations that changed state
	match_computation_duration_seconds    time spent computing a round's matches
	match_candidates_total                qualifying candidates computed

NewRegistry adds the Go runtime and process collectors, and Handler serves
a registry at GET /metrics.

# Nil safety

A nil *Metrics is valid. Every Observe method returns early on nil, so
packages that take a *Metrics can be built in tests without a registry.
*/
package metrics
