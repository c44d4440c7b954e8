// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// DefaultChannel is the pub/sub channel events are published on.
const DefaultChannel = "quickly-match:events"

// RedisPublisher publishes events as JSON on a Redis pub/sub channel. A
// circuit breaker stops hammering Redis while it is down; events published
// while the breaker is open fail fast.
type RedisPublisher struct {
	rdb     goredis.UniversalClient
	channel string
	cb      *gobreaker.CircuitBreaker
}

func NewRedisPublisher(rdb goredis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-events",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		},
	})
	return &RedisPublisher{rdb: rdb, channel: channel, cb: cb}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.rdb.Publish(ctx, p.channel, payload).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Type, err)
	}
	return nil
}

// State reports the circuit breaker state.
func (p *RedisPublisher) State() gobreaker.State {
	return p.cb.State()
}
