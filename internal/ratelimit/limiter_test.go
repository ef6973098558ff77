package ratelimit

import (
	"math/rand"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func TestSlidingWindow_RejectsAfterCeiling(t *testing.T) {
	clock := newClock()
	const max = 5
	window := 15 * time.Minute
	l := NewSlidingWindow(window, max).WithClock(clock.Now)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < max; i++ {
		d := l.Allow("10.0.0.1")
		require.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, max-i-1, d.Remaining)
		clock.Advance(time.Duration(rng.Int63n(int64(time.Minute))))
	}

	d := l.Allow("10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, max, d.Limit)

	// Other clients are unaffected.
	assert.True(t, l.Allow("10.0.0.2").Allowed)

	clock.Advance(window)
	assert.True(t, l.Allow("10.0.0.1").Allowed)
}

func TestSlidingWindow_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	window := time.Minute

	for round := 0; round < 20; round++ {
		clock := newClock()
		max := 1 + rng.Intn(10)
		l := NewSlidingWindow(window, max).WithClock(clock.Now)

		step := window / time.Duration(4*max)
		for i := 0; i < max; i++ {
			require.True(t, l.Allow("k").Allowed, "round %d request %d", round, i+1)
			clock.Advance(time.Duration(rng.Int63n(int64(step))))
		}
		assert.False(t, l.Allow("k").Allowed, "round %d: request %d must be rejected", round, max+1)

		clock.Advance(window)
		assert.True(t, l.Allow("k").Allowed, "round %d: admitted after window", round)
	}
}

func TestSlidingWindow_RejectedRequestsAreNotRecorded(t *testing.T) {
	clock := newClock()
	l := NewSlidingWindow(time.Minute, 1).WithClock(clock.Now)

	require.True(t, l.Allow("k").Allowed)
	clock.Advance(30 * time.Second)
	require.False(t, l.Allow("k").Allowed)

	// Only the first admission counts toward the window.
	clock.Advance(30 * time.Second)
	assert.True(t, l.Allow("k").Allowed)
}

func TestSlidingWindow_ResetAt(t *testing.T) {
	clock := newClock()
	l := NewSlidingWindow(time.Minute, 2).WithClock(clock.Now)

	first := clock.Now()
	l.Allow("k")
	clock.Advance(10 * time.Second)
	d := l.Allow("k")
	assert.Equal(t, first.Add(time.Minute), d.ResetAt)
}

func TestSlidingWindow_Sweep(t *testing.T) {
	clock := newClock()
	l := NewSlidingWindow(time.Minute, 10).WithClock(clock.Now)

	l.Allow("a")
	clock.Advance(45 * time.Second)
	l.Allow("b")
	require.Equal(t, 2, l.Len())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, l.Len())
}

func TestSlidingWindow_ConcurrentAllow(t *testing.T) {
	l := NewSlidingWindow(time.Hour, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestSweeper_StartStop(t *testing.T) {
	l := NewSlidingWindow(time.Minute, 1)
	s, err := NewSweeper(l, time.Second, nil)
	require.NoError(t, err)

	s.Start()
	s.Stop()
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", ClientIP(r, true))

	r.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(r, true))

	r.Header.Set("X-Forwarded-For", " 203.0.113.1 , 10.0.0.1")
	assert.Equal(t, "203.0.113.1", ClientIP(r, true))
	assert.Equal(t, "192.0.2.10", ClientIP(r, false))

	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = ""
	assert.Equal(t, "unknown", ClientIP(r, true))
}
