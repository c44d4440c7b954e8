// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package roster supplies active group member counts, the denominator for
// quorum and match scores. Membership itself is owned by another service.
package roster
