// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/danielhkuo/quickly-match/models"
)

// RetryPolicy bounds the backoff used for idempotent reads.
type RetryPolicy struct {
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    4,
	InitialBackoff: 50 * time.Millisecond,
	MaxBackoff:     time.Second,
}

// Retrying wraps a Store and retries reads that fail with
// models.ErrStoreUnavailable. Writes are passed through untouched so a
// transient failure is never applied twice.
type Retrying struct {
	Store
	policy RetryPolicy
}

func NewRetrying(inner Store, policy RetryPolicy) *Retrying {
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 1
	}
	return &Retrying{Store: inner, policy: policy}
}

func (r *Retrying) GetSession(ctx context.Context, id string) (models.Session, error) {
	return retryRead(ctx, r.policy, "get_session", func() (models.Session, error) {
		return r.Store.GetSession(ctx, id)
	})
}

func (r *Retrying) ListSessionsByStatus(ctx context.Context, statuses ...models.SessionStatus) ([]models.Session, error) {
	return retryRead(ctx, r.policy, "list_sessions", func() ([]models.Session, error) {
		return r.Store.ListSessionsByStatus(ctx, statuses...)
	})
}

func (r *Retrying) ListVotes(ctx context.Context, sessionID string, round int) ([]models.Vote, error) {
	return retryRead(ctx, r.policy, "list_votes", func() ([]models.Vote, error) {
		return r.Store.ListVotes(ctx, sessionID, round)
	})
}

func (r *Retrying) CountDistinctVoters(ctx context.Context, sessionID string, round int) (int, error) {
	return retryRead(ctx, r.policy, "count_distinct_voters", func() (int, error) {
		return r.Store.CountDistinctVoters(ctx, sessionID, round)
	})
}

func (r *Retrying) CountLikes(ctx context.Context, sessionID string, round int, itemID string) (int, error) {
	return retryRead(ctx, r.policy, "count_likes", func() (int, error) {
		return r.Store.CountLikes(ctx, sessionID, round, itemID)
	})
}

func (r *Retrying) ListItemsWithAnyLike(ctx context.Context, sessionID string, round int) ([]string, error) {
	return retryRead(ctx, r.policy, "list_liked_items", func() ([]string, error) {
		return r.Store.ListItemsWithAnyLike(ctx, sessionID, round)
	})
}

func (r *Retrying) LikeTallies(ctx context.Context, sessionID string, round int) ([]models.ItemTally, error) {
	return retryRead(ctx, r.policy, "like_tallies", func() ([]models.ItemTally, error) {
		return r.Store.LikeTallies(ctx, sessionID, round)
	})
}

func (r *Retrying) ListMatches(ctx context.Context, sessionID string, round int) ([]models.Match, error) {
	return retryRead(ctx, r.policy, "list_matches", func() ([]models.Match, error) {
		return r.Store.ListMatches(ctx, sessionID, round)
	})
}

func retryRead[T any](ctx context.Context, p RetryPolicy, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff

	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !errors.Is(err, models.ErrStoreUnavailable) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxAttempts),
		backoff.WithNotify(func(err error, d time.Duration) {
			slog.WarnContext(ctx, "store read failed, retrying", "op", op, "backoff_ms", d.Milliseconds(), "error", err)
		}),
	)
}

var _ Store = (*Retrying)(nil)
