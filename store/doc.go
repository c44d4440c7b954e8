// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package store defines the persistence capabilities the core needs and a
// decorator that retries idempotent reads when the backend is unavailable.
// Implementations live in db (SQL) and memstore (in-memory); both are
// checked by the suite in store/storetest.
package store
