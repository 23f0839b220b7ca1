package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLimiter_BurstThenBlocks(t *testing.T) {
	l := New("omdb", 2)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(short), "third request must wait longer than the deadline allows")
}

func TestLimiter_DisabledNeverBlocks(t *testing.T) {
	l := New("omdb", 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for range 100 {
		require.NoError(t, l.Wait(ctx))
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := New("omdb", 1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "omdb rate limit")
}

func TestKeyedLimiter_PerKeyBuckets(t *testing.T) {
	k := NewKeyed(rate.Every(time.Hour), 2)

	assert.True(t, k.Allow("10.0.0.1"))
	assert.True(t, k.Allow("10.0.0.1"))
	assert.False(t, k.Allow("10.0.0.1"))

	assert.True(t, k.Allow("10.0.0.2"), "other clients keep their own bucket")
	assert.Equal(t, 2, k.Len())
}

func TestKeyedLimiter_SweepEvictsIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	k := NewPerMinute(60)
	k.now = func() time.Time { return now }

	k.Allow("old")
	now = now.Add(idleTTL + time.Second)
	k.Allow("fresh")

	k.Sweep()
	assert.Equal(t, 1, k.Len())

	k.mu.Lock()
	_, stillThere := k.limiters["fresh"]
	k.mu.Unlock()
	assert.True(t, stillThere)
}
