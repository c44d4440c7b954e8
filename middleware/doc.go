// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /sessions/{id}", middleware.WithLogging(handler))

Logs request start at debug and completion (status, duration_ms) at info.

# Rate Limiting

Per-client token buckets for write-heavy endpoints:

	limiter := middleware.NewRateLimiter(20, 40, nil)
	mux.HandleFunc("POST /sessions/{id}/votes", middleware.WithLogging(limiter.Limit(h.CastVote)))

Clients over their rate get 429 with Retry-After.

# CORS Middleware

Enable cross-origin requests for client apps:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies (capped at 1 MiB):

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used as the rate limiter key.
*/
package middleware
