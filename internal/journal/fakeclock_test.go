package journal

import "sync/atomic"

// fakeClock is a manually-advanced Clock so tests can exercise sealing,
// draining, and sampling without sleeping on a wall clock.
type fakeClock struct {
	started atomic.Bool
	micros  atomic.Uint64
}

func newFakeClock() *fakeClock { return &fakeClock{} }

func (c *fakeClock) Start()        { c.started.Store(true) }
func (c *fakeClock) Started() bool { return c.started.Load() }
func (c *fakeClock) Now() uint64   { return c.micros.Load() }

// Advance moves the fake clock forward by delta microseconds.
func (c *fakeClock) Advance(delta uint64) {
	c.micros.Add(delta)
}
