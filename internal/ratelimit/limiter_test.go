package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckAllowsUpToCapPerWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(5, 15*time.Minute)
	l.SetNow(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		res := l.Check("login:1.2.3.4")
		require.True(t, res.Allowed, "attempt %d should be allowed", i+1)
	}

	res := l.Check("login:1.2.3.4")
	require.False(t, res.Allowed)
	require.Greater(t, res.RetryAfterSeconds, 0)
	require.LessOrEqual(t, res.RetryAfterSeconds, 900)
}

func TestCheckResetsAfterWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(5, 15*time.Minute)
	l.SetNow(func() time.Time { return now })

	for i := 0; i < 6; i++ {
		l.Check("login:1.2.3.4")
	}
	require.False(t, l.Check("login:1.2.3.4").Allowed)

	// Step past the reset time: the counter starts a fresh window.
	now = now.Add(15*time.Minute + time.Second)
	res := l.Check("login:1.2.3.4")
	require.True(t, res.Allowed)
}

func TestKeysAreIndependent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(1, 15*time.Minute)
	l.SetNow(func() time.Time { return now })

	require.True(t, l.Check("login:1.2.3.4").Allowed)
	require.False(t, l.Check("login:1.2.3.4").Allowed)
	require.True(t, l.Check("register:1.2.3.4").Allowed)
	require.True(t, l.Check("login:5.6.7.8").Allowed)
}

func TestRetryAfterShrinksOverTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(1, 15*time.Minute)
	l.SetNow(func() time.Time { return now })

	l.Check("k")
	first := l.Check("k")
	require.False(t, first.Allowed)
	require.Equal(t, 900, first.RetryAfterSeconds)

	now = now.Add(10 * time.Minute)
	later := l.Check("k")
	require.False(t, later.Allowed)
	require.Equal(t, 300, later.RetryAfterSeconds)
}

func TestSweepEvictsExpiredBuckets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(5, 15*time.Minute)
	l.SetNow(func() time.Time { return now })

	l.Check("a")
	l.Check("b")
	require.Equal(t, 2, l.Len())

	l.Sweep(now.Add(10 * time.Minute))
	require.Equal(t, 2, l.Len(), "live buckets must survive a sweep")

	l.Sweep(now.Add(16 * time.Minute))
	require.Equal(t, 0, l.Len())
}
