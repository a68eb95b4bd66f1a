//go:build !rp2040

package board

import (
	"sync/atomic"
	"testing"
	"time"

	"sfy-go/services/system"
)

var _ system.Hardware = (*Board)(nil)

func TestHostI2CRecordsAndZeroes(t *testing.T) {
	bus := &HostI2C{}
	r := []byte{1, 2, 3}
	if err := bus.Tx(0x6A, []byte{0x0F}, r); err != nil {
		t.Fatal(err)
	}
	if bus.LastTx.Addr != 0x6A || bus.LastTx.Rn != 3 || bus.LastTx.W[0] != 0x0F {
		t.Fatalf("last=%+v", bus.LastTx)
	}
	if r[0] != 0 || r[2] != 0 {
		t.Fatalf("read not zeroed: %v", r)
	}
}

func TestTimerStopsOnDisableInterrupts(t *testing.T) {
	b, _ := Open()
	var n atomic.Int32
	b.Every(time.Millisecond, func() { n.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("timer never fired")
		}
		time.Sleep(time.Millisecond)
	}
	b.DisableInterrupts()
	b.DisableInterrupts()
	time.Sleep(5 * time.Millisecond)
	at := n.Load()
	time.Sleep(10 * time.Millisecond)
	if n.Load() > at+1 {
		t.Fatalf("timer still running: %d -> %d", at, n.Load())
	}
}

func TestSysResetLEDAndFeed(t *testing.T) {
	b, _ := Open()
	code := -1
	b.hw.Exit = func(c int) { code = c }
	b.ToggleLED()
	if !b.LED() {
		t.Fatal("led not toggled")
	}
	b.Feed()
	if b.Feeds() != 1 {
		t.Fatalf("feeds=%d", b.Feeds())
	}
	b.SysReset()
	if code != 3 || b.Resets() != 1 {
		t.Fatalf("code=%d resets=%d", code, b.Resets())
	}
	if b.ResetCause() != system.CausePowerOn {
		t.Fatalf("cause=%v", b.ResetCause())
	}
}
