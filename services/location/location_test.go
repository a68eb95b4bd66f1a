package location

import (
	"errors"
	"testing"
	"time"

	"sfy-go/services/state"
)

type mono struct{ t time.Time }

func (m *mono) now() time.Time { return m.t }

type fakeLocator struct {
	timeCalls, locCalls int
	t                   time.Time
	lon, lat            float64
	fix                 bool
	err                 error
}

func (f *fakeLocator) CardTime() (time.Time, bool, error) {
	f.timeCalls++
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	return f.t, !f.t.IsZero(), nil
}

func (f *fakeLocator) CardLocation() (float64, float64, bool, error) {
	f.locCalls++
	return f.lon, f.lat, f.fix, nil
}

func setup() (*mono, *state.Shared) {
	m := &mono{t: time.Unix(0, 0)}
	var st state.Shared
	st.Init(state.State{Clock: state.NewOffsetClock(m.now)})
	return m, &st
}

func TestRetrieveUpdatesState(t *testing.T) {
	_, st := setup()
	l := New(st, time.Minute)
	cardTime := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeLocator{t: cardTime, lon: 5.32, lat: 60.39, fix: true}

	if err := l.CheckRetrieve(f); err != nil {
		t.Fatal(err)
	}
	if !st.Now().Equal(cardTime) {
		t.Fatalf("clock=%v", st.Now())
	}
	_, lon, lat := st.Snapshot()
	if lon != 5.32 || lat != 60.39 || l.Fixes() != 1 {
		t.Fatalf("lon=%f lat=%f fixes=%d", lon, lat, l.Fixes())
	}
}

func TestRetrieveIsGatedByInterval(t *testing.T) {
	m, st := setup()
	l := New(st, time.Minute)
	f := &fakeLocator{}
	_ = l.CheckRetrieve(f)
	m.t = m.t.Add(30 * time.Second)
	_ = l.CheckRetrieve(f)
	if f.timeCalls != 1 {
		t.Fatalf("queried %d times inside interval", f.timeCalls)
	}
	m.t = m.t.Add(31 * time.Second)
	_ = l.CheckRetrieve(f)
	if f.timeCalls != 2 {
		t.Fatalf("not queried after interval: %d", f.timeCalls)
	}
}

func TestNoFixIsNotAnError(t *testing.T) {
	_, st := setup()
	l := New(st, 0)
	st.SetPosition(1, 2)
	if err := l.CheckRetrieve(&fakeLocator{}); err != nil {
		t.Fatal(err)
	}
	_, lon, lat := st.Snapshot()
	if lon != 1 || lat != 2 {
		t.Fatal("position overwritten without a fix")
	}
}

func TestTransportErrorRetriesNextCall(t *testing.T) {
	_, st := setup()
	l := New(st, time.Minute)
	f := &fakeLocator{err: errors.New("i2c")}
	if err := l.CheckRetrieve(f); err == nil {
		t.Fatal("expected error")
	}
	f.err = nil
	if err := l.CheckRetrieve(f); err != nil {
		t.Fatal(err)
	}
	if f.timeCalls != 2 || f.locCalls != 1 {
		t.Fatalf("time=%d loc=%d", f.timeCalls, f.locCalls)
	}
}
