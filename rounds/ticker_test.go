package rounds

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-match/models"
)

func TestTicker_TickClosesTimedOutRounds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	short := h.start(t, 3, models.SessionConfig{RoundTimeoutSeconds: models.Seconds(10)})
	long := h.start(t, 3, models.SessionConfig{RoundTimeoutSeconds: models.Seconds(60)})

	ticker := NewTicker(h.controller, h.clock, time.Second)

	assert.Equal(t, 0, ticker.Tick(ctx))

	h.clock.Advance(10 * time.Second)
	assert.Equal(t, 1, ticker.Tick(ctx))

	assert.Equal(t, 2, h.session(t, short.ID).RoundNumber)
	assert.Equal(t, 1, h.session(t, long.ID).RoundNumber)
}

func TestTicker_TickRespectsLimit(t *testing.T) {
	h := newHarness(t)
	for range 3 {
		h.start(t, 1, models.SessionConfig{RoundTimeoutSeconds: models.Seconds(1)})
	}
	h.clock.Advance(time.Second)

	ticker := NewTicker(h.controller, h.clock, time.Second)
	ticker.maxPerTick = 2

	assert.Equal(t, 2, ticker.Tick(context.Background()))
	assert.Equal(t, 1, ticker.Tick(context.Background()))
}

func TestTicker_RunUntilCancelled(t *testing.T) {
	h := newHarness(t)
	sess := h.start(t, 2, models.SessionConfig{RoundTimeoutSeconds: models.Seconds(5)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewTicker(h.controller, h.clock, time.Second).Run(ctx)
		close(done)
	}()

	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	h.clock.Advance(5 * time.Second)

	require.Eventually(t, func() bool {
		got, err := h.manager.Get(context.Background(), sess.ID)
		return err == nil && got.RoundNumber == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}
