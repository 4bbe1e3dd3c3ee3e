package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestLimiter() (*Limiter, *fakeClock) {
	clk := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(WithClock(clk.Now)), clk
}

var loginPolicy = Policy{
	MaxAttempts:   5,
	Window:        15 * time.Minute,
	BlockDuration: 30 * time.Minute,
}

func TestCheck_AllowsUpToMaxAttempts(t *testing.T) {
	l, clk := newTestLimiter()

	for i, wantRemaining := range []int{4, 3, 2, 1, 0} {
		res := l.Check("login:1.2.3.4", loginPolicy)
		assert.True(t, res.Allowed, "attempt %d should be allowed", i+1)
		assert.Equal(t, wantRemaining, res.RemainingAttempts)
		assert.Equal(t, clk.Now().Add(15*time.Minute), res.WindowResetAt)
	}

	res := l.Check("login:1.2.3.4", loginPolicy)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.RemainingAttempts)
	assert.Equal(t, clk.Now().Add(30*time.Minute), res.BlockedUntil)
	assert.Equal(t, 30*time.Minute, res.RetryAfter)
}

func TestCheck_BlockTakesPrecedenceOverWindowState(t *testing.T) {
	l, clk := newTestLimiter()

	for i := 0; i < 6; i++ {
		l.Check("login:1.2.3.4", loginPolicy)
	}

	// Even after the window lapses, the block still rejects.
	clk.Advance(16 * time.Minute)
	res := l.Check("login:1.2.3.4", loginPolicy)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.RemainingAttempts)
	assert.False(t, res.BlockedUntil.IsZero())
	assert.Equal(t, 14*time.Minute, res.RetryAfter)
}

func TestCheck_BlockIsNotStickyPastExpiry(t *testing.T) {
	l, clk := newTestLimiter()

	for i := 0; i < 6; i++ {
		l.Check("login:1.2.3.4", loginPolicy)
	}

	clk.Advance(30*time.Minute + time.Second)
	res := l.Check("login:1.2.3.4", loginPolicy)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.RemainingAttempts)
	assert.Equal(t, clk.Now().Add(15*time.Minute), res.WindowResetAt)
}

func TestCheck_LapsedWindowReplaysAsFresh(t *testing.T) {
	l, clk := newTestLimiter()

	for i := 0; i < 4; i++ {
		l.Check("login:1.2.3.4", loginPolicy)
	}

	clk.Advance(15*time.Minute + time.Second)
	res := l.Check("login:1.2.3.4", loginPolicy)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.RemainingAttempts)
}

func TestCheck_IdentitiesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 6; i++ {
		l.Check("login:1.2.3.4", loginPolicy)
	}

	res := l.Check("login:5.6.7.8", loginPolicy)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.RemainingAttempts)

	// Same address under a different purpose keeps its own budget.
	res = l.Check("register:1.2.3.4", loginPolicy)
	assert.True(t, res.Allowed)
}

func TestRecordSuccess_ResetsEvenWhenBlocked(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 6; i++ {
		l.Check("login:1.2.3.4", loginPolicy)
	}
	require.False(t, l.Check("login:1.2.3.4", loginPolicy).Allowed)

	l.RecordSuccess("login:1.2.3.4")

	res := l.Check("login:1.2.3.4", loginPolicy)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.RemainingAttempts)
}

func TestRemainingAttempts(t *testing.T) {
	registerPolicy := Policy{MaxAttempts: 3, Window: time.Hour, BlockDuration: time.Hour}

	t.Run("unknown identity reports the policy maximum", func(t *testing.T) {
		l, _ := newTestLimiter()
		assert.Equal(t, 5, l.RemainingAttempts("login:1.2.3.4", loginPolicy))
		assert.Equal(t, 3, l.RemainingAttempts("register:1.2.3.4", registerPolicy))
	})

	t.Run("tracks the write-side count without mutating", func(t *testing.T) {
		l, _ := newTestLimiter()
		l.Check("login:1.2.3.4", loginPolicy)
		l.Check("login:1.2.3.4", loginPolicy)

		assert.Equal(t, 3, l.RemainingAttempts("login:1.2.3.4", loginPolicy))
		// The read must not count as an attempt.
		assert.Equal(t, 3, l.RemainingAttempts("login:1.2.3.4", loginPolicy))
	})

	t.Run("blocked identity reports zero", func(t *testing.T) {
		l, _ := newTestLimiter()
		for i := 0; i < 6; i++ {
			l.Check("login:1.2.3.4", loginPolicy)
		}
		assert.Equal(t, 0, l.RemainingAttempts("login:1.2.3.4", loginPolicy))
	})

	t.Run("lapsed window reports the policy maximum", func(t *testing.T) {
		l, clk := newTestLimiter()
		for i := 0; i < 5; i++ {
			l.Check("login:1.2.3.4", loginPolicy)
		}
		clk.Advance(15*time.Minute + time.Second)
		assert.Equal(t, 5, l.RemainingAttempts("login:1.2.3.4", loginPolicy))
	})

	t.Run("lapsed window reports the maximum even while blocked", func(t *testing.T) {
		l, clk := newTestLimiter()
		for i := 0; i < 6; i++ {
			l.Check("login:1.2.3.4", loginPolicy)
		}

		// 20 minutes in: the 15-minute window has lapsed but the 30-minute
		// block is still active. The read reflects window state only; the
		// write side still rejects.
		clk.Advance(20 * time.Minute)
		assert.Equal(t, 5, l.RemainingAttempts("login:1.2.3.4", loginPolicy))
		assert.False(t, l.Check("login:1.2.3.4", loginPolicy).Allowed)
	})
}

func TestCheck_ZeroPolicyFallsBackToDefaults(t *testing.T) {
	l, _ := newTestLimiter()

	res := l.Check("login:1.2.3.4", Policy{})
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.RemainingAttempts)
}

func TestSweep_DropsFullyExpiredEntries(t *testing.T) {
	l, clk := newTestLimiter()

	// One entry that will fully expire, one that stays blocked.
	l.Check("stale:1.1.1.1", loginPolicy)
	for i := 0; i < 6; i++ {
		l.Check("blocked:2.2.2.2", loginPolicy)
	}
	require.Len(t, l.entries, 2)

	// Past the stale entry's window but inside the block of the other.
	clk.Advance(20 * time.Minute)
	l.Check("other:3.3.3.3", loginPolicy)

	l.mu.Lock()
	_, staleKept := l.entries["stale:1.1.1.1"]
	_, blockedKept := l.entries["blocked:2.2.2.2"]
	l.mu.Unlock()

	assert.False(t, staleKept)
	assert.True(t, blockedKept)
}

func TestSweep_IsAmortized(t *testing.T) {
	l, clk := newTestLimiter()

	l.Check("stale:1.1.1.1", loginPolicy)
	clk.Advance(16 * time.Minute)

	// The window has lapsed but the sweep interval has not passed since the
	// last sweep ran at construction time... it has (16m > 5m), so one more
	// Check collects the garbage.
	l.Check("other:2.2.2.2", loginPolicy)

	l.mu.Lock()
	_, kept := l.entries["stale:1.1.1.1"]
	l.mu.Unlock()
	assert.False(t, kept)

	// New garbage survives until the next interval elapses.
	short := Policy{MaxAttempts: 5, Window: time.Minute, BlockDuration: time.Minute}
	l.Check("stale:3.3.3.3", short)
	// Window lapsed, sweep interval not reached.
	clk.Advance(2 * time.Minute)
	l.Check("other:4.4.4.4", loginPolicy)

	l.mu.Lock()
	_, kept3 := l.entries["stale:3.3.3.3"]
	l.mu.Unlock()
	assert.True(t, kept3)

	// Sweep interval reached.
	clk.Advance(4 * time.Minute)
	l.Check("other:5.5.5.5", loginPolicy)

	l.mu.Lock()
	_, kept3 = l.entries["stale:3.3.3.3"]
	l.mu.Unlock()
	assert.False(t, kept3)
}

func TestCheck_ConcurrentCallersDoNotLoseUpdates(t *testing.T) {
	l, _ := newTestLimiter()
	policy := Policy{MaxAttempts: 50, Window: time.Hour, BlockDuration: time.Hour}

	const callers = 100
	allowed := make(chan bool, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Check("login:1.2.3.4", policy).Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	got := 0
	for ok := range allowed {
		if ok {
			got++
		}
	}
	assert.Equal(t, policy.MaxAttempts, got)
}

func TestCheck_ScenarioFromPolicyTriple(t *testing.T) {
	l, clk := newTestLimiter()
	policy := Policy{
		MaxAttempts:   5,
		Window:        900000 * time.Millisecond,
		BlockDuration: 1800000 * time.Millisecond,
	}

	for i, want := range []int{4, 3, 2, 1, 0} {
		res := l.Check("login:1.2.3.4", policy)
		require.True(t, res.Allowed, fmt.Sprintf("attempt %d", i+1))
		require.Equal(t, want, res.RemainingAttempts)
	}

	res := l.Check("login:1.2.3.4", policy)
	assert.False(t, res.Allowed)
	assert.Equal(t, clk.Now().Add(1800000*time.Millisecond), res.BlockedUntil)
}
