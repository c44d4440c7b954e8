// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ledger records round-scoped votes. Each (session, voter, item,
// round) holds at most one vote; a second attempt fails with
// models.ErrDuplicateVote instead of overwriting the first.
package ledger
