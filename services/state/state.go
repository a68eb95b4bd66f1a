// Package state holds the clock and last position fix shared by the IMU
// interrupt handler and the main loop. Every access runs inside a critical
// section; callbacks must be short and must not perform I/O.
package state

import (
	"time"

	"sfy-go/x/critical"
)

// State is the shared cell content.
type State struct {
	Clock    Clock
	Lon, Lat float64
}

// Shared is the single shared-state cell. Use of an uninitialised cell
// panics.
type Shared struct {
	st    State
	ready bool
}

// Init populates the cell. It must be called once, before the timer
// interrupt is enabled.
func (s *Shared) Init(st State) {
	if st.Clock == nil {
		panic("state: nil clock")
	}
	critical.Do(func() {
		if s.ready {
			panic("state: already initialised")
		}
		s.st = st
		s.ready = true
	})
}

// With runs f with exclusive access to the state.
func (s *Shared) With(f func(*State)) {
	critical.Do(func() {
		if !s.ready {
			panic("state: not initialised")
		}
		f(&s.st)
	})
}

// Read returns f's result computed with exclusive access to the state.
func Read[T any](s *Shared, f func(*State) T) T {
	var v T
	s.With(func(st *State) { v = f(st) })
	return v
}

// Now reads the clock.
func (s *Shared) Now() time.Time {
	return Read(s, func(st *State) time.Time { return st.Clock.Now() })
}

// NowMs reads the clock as Unix milliseconds.
func (s *Shared) NowMs() int64 { return s.Now().UnixMilli() }

// Snapshot returns the time in milliseconds and the position in one section.
func (s *Shared) Snapshot() (nowMs int64, lon, lat float64) {
	s.With(func(st *State) {
		nowMs = st.Clock.Now().UnixMilli()
		lon, lat = st.Lon, st.Lat
	})
	return nowMs, lon, lat
}

// SetPosition stores a fresh fix.
func (s *Shared) SetPosition(lon, lat float64) {
	s.With(func(st *State) { st.Lon, st.Lat = lon, lat })
}

// SetTime re-bases the clock.
func (s *Shared) SetTime(t time.Time) {
	s.With(func(st *State) { st.Clock.Set(t) })
}
