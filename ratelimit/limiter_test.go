package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLimiterBudget verifies SPEC_FULL.md §8 property 4: no more than
// max_weight units can be recorded within any 60s window.
func TestLimiterBudget(t *testing.T) {
	now := time.Now()
	l := New("binance", 100, WithClock(func() time.Time { return now }))

	for i := 0; i < 10; i++ {
		require.True(t, l.Admit(10))
		l.Record(10)
	}
	require.False(t, l.Admit(1), "window should be exhausted at the budget")

	wait := l.TimeToWait()
	require.Greater(t, wait, time.Duration(0))

	now = now.Add(wait)
	require.True(t, l.Admit(10), "new window should reopen the budget")
}

func TestLimiterAdmitDoesNotRecord(t *testing.T) {
	now := time.Now()
	l := New("binance", 100, WithClock(func() time.Time { return now }))

	require.True(t, l.Admit(50))
	require.True(t, l.Admit(50), "Admit alone must not consume budget")
	l.Record(50)
	require.True(t, l.Admit(50))
	l.Record(50)
	require.False(t, l.Admit(1))
}

func TestWaitIfNeededRespectsContextCancellation(t *testing.T) {
	now := time.Now()
	l := New("binance", 1, WithClock(func() time.Time { return now }))
	l.Record(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.WaitIfNeeded(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDefaultMaxWeight(t *testing.T) {
	l := New("binance", 0)
	require.True(t, l.Admit(DefaultMaxWeight))
	require.False(t, l.Admit(DefaultMaxWeight+1))
}
