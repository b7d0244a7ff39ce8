// Package testutil provides shared test helpers for the timeline engine.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"
)

// FakeClock provides deterministic wall time for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// FakeDayClock provides a deterministic seconds-of-day clock.
type FakeDayClock struct {
	mu   sync.Mutex
	sec  float64
	live bool
}

func NewFakeDayClock(sec float64) *FakeDayClock {
	return &FakeDayClock{sec: sec, live: true}
}

func (c *FakeDayClock) Now() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sec, c.live
}

// Set moves the day clock to sec.
func (c *FakeDayClock) Set(sec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sec = sec
}

// SetLive flips whether the clock reports a live source.
func (c *FakeDayClock) SetLive(live bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = live
}

// TestContext returns a context with a 5-second timeout.
// The context is cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
