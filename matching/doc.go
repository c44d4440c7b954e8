// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package matching aggregates a closed round's votes into ranked matches.

# Scoring

For every item with at least one like in the round:

	vote_count  = number of likes
	match_score = vote_count / active_member_count

Scores are kept in integer hundredths and rounded half up, so 2 of 3
members gives 0.67. Members who disliked, skipped or never voted stay in
the denominator: abstaining counts against consensus.

An item becomes a match when its rounded score reaches the configured
match_threshold_fraction. The threshold itself is not rounded: with a
threshold of 0.674, 2 of 3 (0.67) does not qualify.

# Ranking

Matches are ordered lexicographically:

 1. Higher match_score
 2. Higher vote_count
 3. Item ID ascending

The order depends only on these fields, never on storage or insertion
order.

# Persistence

Matches are inserted with insert-if-absent on (session, item, round).
Recomputing a round keeps the original rows and returns the same ranked
list.
*/
package matching
