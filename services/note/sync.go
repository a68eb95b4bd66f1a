package note

import (
	"context"
	"strings"
	"time"
)

// Sync requests a hub sync.
func (n *Notecarrier) Sync() error {
	return n.do(n.req.begin("hub.sync"))
}

// SyncStatus reports whether a sync is in progress and whether the last
// one completed.
func (n *Notecarrier) SyncStatus() (syncing, completed bool, err error) {
	m, err := n.call(n.req.begin("hub.sync.status"))
	if err != nil {
		return false, false, err
	}
	return m.flag("sync"), m.has("completed"), nil
}

// SyncAndWait requests a sync and then polls its status once per second for
// timeout/1s polls. It returns true as soon as completion is reported and
// false, with a nil error, when the polls run out. Only transport failures
// and ctx cancellation are errors.
func (n *Notecarrier) SyncAndWait(ctx context.Context, timeout time.Duration) (bool, error) {
	if err := n.Sync(); err != nil {
		return false, err
	}
	polls := int(timeout / time.Second)
	for i := 0; i < polls; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		n.opts.Sleep(time.Second)
		_, completed, err := n.SyncStatus()
		if err != nil {
			return false, err
		}
		if completed {
			return true, nil
		}
	}
	return false, nil
}

// Status is the subset of card.status used for housekeeping.
type Status struct {
	StoragePct float64
	Connected  bool
}

// CardStatus queries card.status.
func (n *Notecarrier) CardStatus() (Status, error) {
	m, err := n.call(n.req.begin("card.status"))
	if err != nil {
		return Status{}, err
	}
	pct, _ := m.num("storage")
	return Status{StoragePct: pct, Connected: m.flag("connected")}, nil
}

// CheckAndSync requests a sync when none is running and either the card's
// note storage is filling up or SyncInterval has passed since the last
// request.
func (n *Notecarrier) CheckAndSync(nowMs int64) error {
	st, err := n.CardStatus()
	if err != nil {
		return err
	}
	syncing, _, err := n.SyncStatus()
	if err != nil {
		return err
	}
	if syncing {
		return nil
	}
	due := n.lastSyncMs == 0 || nowMs-n.lastSyncMs >= n.opts.SyncInterval.Milliseconds() || nowMs < n.lastSyncMs
	if st.StoragePct < n.opts.SyncStoragePct && !due {
		return nil
	}
	if err := n.Sync(); err != nil {
		return err
	}
	n.lastSyncMs = nowMs
	return nil
}

// CardTime returns the card's wall-clock time. ok is false when the card has
// not acquired time yet.
func (n *Notecarrier) CardTime() (t time.Time, ok bool, err error) {
	m, err := n.call(n.req.begin("card.time"))
	if err != nil {
		if m != nil && strings.Contains(errText(m), "{no-time}") {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	secs, ok := m.num("time")
	if !ok || secs <= 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(int64(secs), 0).UTC(), true, nil
}

// CardLocation returns the last GPS fix. ok is false when the card has no
// fix.
func (n *Notecarrier) CardLocation() (lon, lat float64, ok bool, err error) {
	m, err := n.call(n.req.begin("card.location"))
	if err != nil {
		if m != nil && strings.Contains(errText(m), "{no-location}") {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	lat, okLat := m.num("lat")
	lon, okLon := m.num("lon")
	if !okLat || !okLon {
		return 0, 0, false, nil
	}
	return lon, lat, true, nil
}

func errText(m reply) string {
	s, _ := m.str("err")
	return s
}
