package speech

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock drives the monitor's notion of now without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestMonitor_FiresAfterThresholdWithBufferedSpeech(t *testing.T) {
	clock := newFakeClock()
	fired := 0
	m := NewMonitor(func() bool { return false }, func() { fired++ })
	m.now = clock.now
	m.mu.Lock()
	m.armed = true
	m.lastActivity = clock.now()
	m.mu.Unlock()

	// Below threshold: nothing happens.
	clock.advance(3 * time.Second)
	require.False(t, m.check())
	require.Equal(t, 0, fired)

	// Past threshold with a non-empty buffer: fires once and disarms.
	clock.advance(2 * time.Second)
	require.True(t, m.check())
	require.Equal(t, 1, fired)

	// Disarmed: further checks never fire again.
	clock.advance(time.Minute)
	require.True(t, m.check())
	require.Equal(t, 1, fired)
}

func TestMonitor_EmptyBufferNeverFires(t *testing.T) {
	clock := newFakeClock()
	fired := 0
	m := NewMonitor(func() bool { return true }, func() { fired++ })
	m.now = clock.now
	m.mu.Lock()
	m.armed = true
	m.lastActivity = clock.now()
	m.mu.Unlock()

	clock.advance(time.Hour)
	require.False(t, m.check())
	require.Equal(t, 0, fired)
}

func TestMonitor_TouchResetsQuietPeriod(t *testing.T) {
	clock := newFakeClock()
	fired := 0
	m := NewMonitor(func() bool { return false }, func() { fired++ })
	m.now = clock.now
	m.mu.Lock()
	m.armed = true
	m.lastActivity = clock.now()
	m.mu.Unlock()

	clock.advance(3900 * time.Millisecond)
	m.Touch()
	clock.advance(3900 * time.Millisecond)
	require.False(t, m.check())
	require.Equal(t, 0, fired)
}

func TestMonitor_StartStop(t *testing.T) {
	m := NewMonitor(func() bool { return true }, func() {})
	m.Start()
	m.Start() // second Start while armed is a no-op
	m.Stop()
	m.Stop() // Stop when disarmed is safe
}
