// Package location keeps the shared clock and position fix in step with
// the Notecard.
package location

import (
	"time"

	"sfy-go/services/state"
	"sfy-go/x/timex"
)

// Locator is the uplink surface used here. *note.Notecarrier satisfies it.
type Locator interface {
	CardTime() (t time.Time, ok bool, err error)
	CardLocation() (lon, lat float64, ok bool, err error)
}

// Location refreshes time and position at most once per Interval.
type Location struct {
	Interval time.Duration

	st     *state.Shared
	last   int64
	polled bool
	fixes  uint32
}

// New returns a Location writing into st. interval<=0 selects 60 s.
func New(st *state.Shared, interval time.Duration) *Location {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Location{Interval: interval, st: st}
}

// CheckRetrieve queries the card when due. A missing time or fix is not an
// error; transport failures are, and leave the refresh due on the next call.
func (l *Location) CheckRetrieve(n Locator) error {
	now := l.st.NowMs()
	if l.polled && !timex.Due(now, l.last, l.Interval) {
		return nil
	}

	t, ok, err := n.CardTime()
	if err != nil {
		return err
	}
	if ok {
		l.st.SetTime(t)
	}

	lon, lat, ok, err := n.CardLocation()
	if err != nil {
		return err
	}
	if ok {
		l.st.SetPosition(lon, lat)
		l.fixes++
	}

	// Measure the next interval on the (possibly re-based) clock.
	l.last = l.st.NowMs()
	l.polled = true
	return nil
}

// Fixes counts position updates written to the shared state.
func (l *Location) Fixes() uint32 { return l.fixes }
