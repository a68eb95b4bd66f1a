package ism330dhcx

import (
	"errors"
	"testing"
)

// fakeIMU models the register file and FIFO of the device.
type fakeIMU struct {
	regs    [256]byte
	fifo    []Word
	ovr     bool
	resetIn int  // reads of CTRL3_C before SW_RESET clears
	stuck   bool // SW_RESET never clears
	fail    error
	txs     int
}

func newFake() *fakeIMU {
	f := &fakeIMU{}
	f.regs[regWhoAmI] = whoAmIValue
	return f
}

func (f *fakeIMU) Tx(addr uint16, w, r []byte) error {
	f.txs++
	if f.fail != nil {
		return f.fail
	}
	if addr != AddressLow {
		return errors.New("nak")
	}
	reg := w[0]
	if len(r) == 0 {
		f.regs[reg] = w[1]
		if reg == regCtrl3C && w[1]&ctrl3SWReset != 0 {
			f.resetIn = 2
		}
		return nil
	}
	switch reg {
	case regCtrl3C:
		if f.resetIn > 0 && !f.stuck {
			f.resetIn--
			if f.resetIn == 0 {
				f.regs[regCtrl3C] &^= ctrl3SWReset
			}
		}
		r[0] = f.regs[regCtrl3C]
	case regFifoStatus1:
		n := len(f.fifo)
		r[0] = byte(n)
		r[1] = byte(n>>8) & fifoDiffHighMask
		if f.ovr {
			r[1] |= fifoStatusOvr
		}
	case regFifoDataOutTag:
		wd := f.fifo[0]
		f.fifo = f.fifo[1:]
		r[0] = wd.Tag << 3
		r[1], r[2] = byte(wd.X), byte(uint16(wd.X)>>8)
		r[3], r[4] = byte(wd.Y), byte(uint16(wd.Y)>>8)
		r[5], r[6] = byte(wd.Z), byte(uint16(wd.Z)>>8)
	default:
		r[0] = f.regs[reg]
	}
	return nil
}

func TestConfigureProgramsRegisters(t *testing.T) {
	f := newFake()
	d := New(f)
	if err := d.Configure(Config{}); err != nil {
		t.Fatal(err)
	}
	if got := f.regs[regCtrl1XL]; got != 0x58 {
		t.Fatalf("CTRL1_XL=%#x want 0x58", got)
	}
	if got := f.regs[regCtrl3C]; got != ctrl3BDU|ctrl3IfInc {
		t.Fatalf("CTRL3_C=%#x", got)
	}
	if got := f.regs[regFifoCtrl4]; got != fifoModeBypass {
		t.Fatalf("FIFO left enabled: %#x", got)
	}
	if err := d.EnableFifo(); err != nil {
		t.Fatal(err)
	}
	if f.regs[regFifoCtrl3] != byte(Rate208Hz) || f.regs[regFifoCtrl4] != fifoModeContinuous {
		t.Fatalf("fifo ctrl3=%#x ctrl4=%#x", f.regs[regFifoCtrl3], f.regs[regFifoCtrl4])
	}
	if d.SampleRate() != 208 {
		t.Fatalf("rate=%d", d.SampleRate())
	}
}

func TestConfigureNotConnected(t *testing.T) {
	f := newFake()
	f.regs[regWhoAmI] = 0
	d := New(f)
	if err := d.Configure(Config{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err=%v", err)
	}
}

func TestResetTimeoutIsBounded(t *testing.T) {
	f := newFake()
	f.stuck = true
	d := New(f)
	err := d.Reset()
	if !errors.Is(err, ErrResetTimeout) {
		t.Fatalf("err=%v", err)
	}
	if f.txs > resetPolls+1 {
		t.Fatalf("unbounded polling: %d transactions", f.txs)
	}
}

func TestReadFifoDecodesWords(t *testing.T) {
	f := newFake()
	d := New(f)
	if err := d.Configure(Config{}); err != nil {
		t.Fatal(err)
	}
	f.fifo = []Word{
		{Tag: TagAccel, X: 1000, Y: -1000, Z: 8196},
		{Tag: TagGyro, X: 1, Y: 2, Z: 3},
		{Tag: TagAccel, X: -1, Y: 0, Z: 32767},
	}
	var dst [8]Word
	n, err := d.ReadFifo(dst[:])
	if err != nil || n != 3 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if dst[0] != (Word{Tag: TagAccel, X: 1000, Y: -1000, Z: 8196}) || dst[1].Tag != TagGyro || dst[2].Z != 32767 {
		t.Fatalf("words=%v", dst[:n])
	}
	_, _, z := d.Accel(dst[0])
	// 8196 LSB * 0.122 mg ≈ 1 g.
	if z < 9.7 || z > 9.9 {
		t.Fatalf("z=%f m/s²", z)
	}
}

func TestReadFifoLimitedByDst(t *testing.T) {
	f := newFake()
	d := New(f)
	_ = d.Configure(Config{})
	for i := 0; i < 10; i++ {
		f.fifo = append(f.fifo, Word{Tag: TagAccel, X: int16(i)})
	}
	var dst [4]Word
	n, err := d.ReadFifo(dst[:])
	if err != nil || n != 4 || len(f.fifo) != 6 {
		t.Fatalf("n=%d err=%v left=%d", n, err, len(f.fifo))
	}
}

func TestReadFifoOverrun(t *testing.T) {
	f := newFake()
	d := New(f)
	_ = d.Configure(Config{Overrun: true})
	f.fifo = []Word{{Tag: TagAccel}}
	f.ovr = true
	var dst [4]Word
	n, err := d.ReadFifo(dst[:])
	if !errors.Is(err, ErrFifoOverrun) || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestBusErrorPropagates(t *testing.T) {
	f := newFake()
	d := New(f)
	_ = d.Configure(Config{})
	boom := errors.New("i2c timeout")
	f.fail = boom
	var dst [4]Word
	if _, err := d.ReadFifo(dst[:]); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}
