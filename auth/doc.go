// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth issues and checks session admin keys.

Admin keys use HMAC-SHA256 of the session ID:

	adminKey := auth.GenerateAdminKey(sessionID, salt)
	err := auth.ValidateAdminKey(sessionID, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same session ID and salt always produce the same key, so nothing is
stored. Clients send it in the X-Admin-Key header to close a round early or
cancel a session.
*/
package auth
