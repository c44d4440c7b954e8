// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Match API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Deps{...}, cfg)

# Endpoints

Operations:

	GET /health   - Storage health
	GET /metrics  - Prometheus metrics (when a registry is given)

Sessions:

	POST /sessions                  - Create and start a session
	GET  /sessions/{id}             - Status, round, winning match
	POST /sessions/{id}/evaluate    - Close the round if quorum or timeout
	POST /sessions/{id}/close-round - Close the round now (X-Admin-Key)
	POST /sessions/{id}/cancel      - Cancel (X-Admin-Key)

Voting:

	POST /sessions/{id}/votes          - Cast a vote (rate limited per IP)
	GET  /sessions/{id}/votes?round=   - Votes of a round

Results:

	GET /sessions/{id}/matches?round= - Ranked matches of a round
*/
package router
