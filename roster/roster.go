// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownGroup means a source has no member count for the group.
var ErrUnknownGroup = errors.New("unknown group")

// Source reports how many members of a group are currently active.
type Source interface {
	ActiveMemberCount(ctx context.Context, groupID string) (int, error)
}

// Static is an in-memory roster, fed from the member_count given when a
// session is created.
type Static struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewStatic() *Static {
	return &Static{counts: make(map[string]int)}
}

// Set records n active members for groupID. Non-positive counts are ignored.
func (s *Static) Set(groupID string, n int) {
	if n < 1 {
		return
	}
	s.mu.Lock()
	s.counts[groupID] = n
	s.mu.Unlock()
}

func (s *Static) ActiveMemberCount(_ context.Context, groupID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.counts[groupID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	return n, nil
}

// Key is the Redis key the membership service keeps the active count under.
func Key(groupID string) string {
	return "quickly-match:roster:" + groupID + ":active"
}

// lookupTimeout bounds one shared Redis lookup.
const lookupTimeout = 2 * time.Second

// Redis reads active member counts maintained by the membership service.
// Concurrent lookups for the same group share one round trip.
type Redis struct {
	rdb     goredis.UniversalClient
	flights flights
}

func NewRedis(rdb goredis.UniversalClient) *Redis {
	return &Redis{rdb: rdb, flights: flights{timeout: lookupTimeout}}
}

func (r *Redis) ActiveMemberCount(ctx context.Context, groupID string) (int, error) {
	return r.flights.do(ctx, groupID, func(ctx context.Context) (int, error) {
		n, err := r.rdb.Get(ctx, Key(groupID)).Int()
		if errors.Is(err, goredis.Nil) {
			return 0, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read roster for %s: %w", groupID, err)
		}
		return n, nil
	})
}

// flights collapses concurrent lookups of one key. The shared lookup does
// not inherit the first caller's cancellation, only its values, and is
// bounded by timeout. Each caller stops waiting when its own ctx ends.
type flights struct {
	group   singleflight.Group
	timeout time.Duration
}

func (f *flights) do(ctx context.Context, key string, lookup func(context.Context) (int, error)) (int, error) {
	ch := f.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		return lookup(lctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Chain asks each source in turn and returns the first answer.
type Chain []Source

func (c Chain) ActiveMemberCount(ctx context.Context, groupID string) (int, error) {
	var errs []error
	for _, src := range c {
		n, err := src.ActiveMemberCount(ctx, groupID)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, ErrUnknownGroup) {
			slog.WarnContext(ctx, "roster source failed, trying next", "group_id", groupID, "error", err)
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	return 0, errors.Join(errs...)
}
