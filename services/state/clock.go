package state

import "time"

// Epoch is the wall-clock time the device assumes at boot, before the modem
// supplies real time. It keeps early timestamps positive and recognisable.
var Epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock is the real-time clock held in the shared state.
type Clock interface {
	Now() time.Time
	Set(t time.Time)
}

// OffsetClock derives wall time from a monotonic source plus an offset that
// Set re-bases. The zero value is not usable; use NewOffsetClock.
type OffsetClock struct {
	mono   func() time.Time
	base   time.Time // mono reading at the last Set
	wall   time.Time // wall time at the last Set
	synced bool
}

// NewOffsetClock starts at Epoch. mono defaults to time.Now.
func NewOffsetClock(mono func() time.Time) *OffsetClock {
	if mono == nil {
		mono = time.Now
	}
	return &OffsetClock{mono: mono, base: mono(), wall: Epoch}
}

func (c *OffsetClock) Now() time.Time {
	return c.wall.Add(c.mono().Sub(c.base))
}

func (c *OffsetClock) Set(t time.Time) {
	c.base = c.mono()
	c.wall = t
	c.synced = true
}

// Synced reports whether Set has been called since boot.
func (c *OffsetClock) Synced() bool { return c.synced }
