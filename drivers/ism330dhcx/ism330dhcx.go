// Package ism330dhcx provides a driver for the ST ISM330DHCX 6-axis IMU,
// limited to what a FIFO-batched accelerometer pipeline needs:
//
//	d := ism330dhcx.New(bus)
//	err := d.Configure(ism330dhcx.Config{})   // reset, ODR, FIFO continuous
//	n, err := d.ReadFifo(words[:])            // drain unread FIFO words
//
// Every call is a bounded, direct I2C transaction with no sleeping so the
// driver may be used from an interrupt handler. The bus implementation is
// responsible for its own short transfer timeout.
package ism330dhcx

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Errors returned by the driver.
var (
	ErrNotConnected = errors.New("ism330dhcx: not connected")
	ErrResetTimeout = errors.New("ism330dhcx: reset timeout")
	ErrFifoOverrun  = errors.New("ism330dhcx: fifo overrun")
)

const standardGravity = 9.80665

// resetPolls bounds the SW_RESET completion poll. The reset completes in
// ~50 µs, well inside a handful of 400 kHz register reads.
const resetPolls = 64

// Config controls device setup. All fields are optional.
type Config struct {
	// Address defaults to AddressLow if zero.
	Address uint16
	// AccelRate defaults to Rate208Hz.
	AccelRate Rate
	// AccelRange defaults to Accel4G.
	AccelRange AccelRange
	// GyroRate defaults to Rate208Hz. Gyro words are not batched.
	GyroRate Rate
	// GyroRange defaults to Gyro1000DPS.
	GyroRange GyroRange
	// FifoRate is the accelerometer batch rate; defaults to AccelRate.
	FifoRate Rate
	// Overrun makes ReadFifo report ErrFifoOverrun (after draining) when the
	// FIFO overflowed since the last read.
	Overrun bool
}

// Word is one FIFO entry.
type Word struct {
	Tag     uint8
	X, Y, Z int16
}

// Device wraps an I2C connection to an ISM330DHCX.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg   Config
	scale float32 // m/s² per LSB
	w     [2]byte
	r     [7]byte
}

// New creates a Device. The I2C bus must already be configured; the device is
// not touched until Configure.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: AddressLow}
}

func (c *Config) defaults() {
	if c.Address == 0 {
		c.Address = AddressLow
	}
	if c.AccelRate == RateOff {
		c.AccelRate = Rate208Hz
	}
	if c.AccelRange == Accel2G {
		c.AccelRange = Accel4G
	}
	if c.GyroRate == RateOff {
		c.GyroRate = Rate208Hz
	}
	if c.GyroRange == Gyro250DPS {
		c.GyroRange = Gyro1000DPS
	}
	if c.FifoRate == RateOff {
		c.FifoRate = c.AccelRate
	}
}

// Configure probes, soft-resets and programs the device, leaving the FIFO
// disabled (bypass). Call EnableFifo to start batching.
//
// Zero-valued rate and range fields take the defaults, so ±2 g and
// 250 dps cannot be selected through Config.
func (d *Device) Configure(cfg Config) error {
	cfg.defaults()
	d.cfg = cfg
	d.Address = cfg.Address
	d.scale = cfg.AccelRange.mgPerLSB() * 1e-3 * standardGravity

	if !d.Connected() {
		return ErrNotConnected
	}
	if err := d.Reset(); err != nil {
		return err
	}
	if err := d.writeReg(regCtrl3C, ctrl3BDU|ctrl3IfInc); err != nil {
		return err
	}
	if err := d.writeReg(regCtrl1XL, byte(cfg.AccelRate)<<4|byte(cfg.AccelRange)<<2); err != nil {
		return err
	}
	if err := d.writeReg(regCtrl2G, byte(cfg.GyroRate)<<4|byte(cfg.GyroRange)<<2); err != nil {
		return err
	}
	return d.DisableFifo()
}

// Connected reports whether WHO_AM_I matches.
func (d *Device) Connected() bool {
	v, err := d.readReg(regWhoAmI)
	return err == nil && v == whoAmIValue
}

// Reset issues a software reset and waits (bounded, without sleeping) for
// the device to clear the reset bit. Configuration is lost.
func (d *Device) Reset() error {
	if err := d.writeReg(regCtrl3C, ctrl3SWReset); err != nil {
		return err
	}
	for i := 0; i < resetPolls; i++ {
		v, err := d.readReg(regCtrl3C)
		if err != nil {
			return err
		}
		if v&ctrl3SWReset == 0 {
			return nil
		}
	}
	return ErrResetTimeout
}

// EnableFifo starts batching accelerometer words in continuous mode.
func (d *Device) EnableFifo() error {
	if err := d.writeReg(regFifoCtrl3, byte(d.cfg.FifoRate)); err != nil {
		return err
	}
	return d.writeReg(regFifoCtrl4, fifoModeContinuous)
}

// DisableFifo flushes and stops the FIFO.
func (d *Device) DisableFifo() error {
	return d.writeReg(regFifoCtrl4, fifoModeBypass)
}

// FifoStatus returns the number of unread words and whether the FIFO
// overflowed.
func (d *Device) FifoStatus() (unread uint16, overrun bool, err error) {
	d.w[0] = regFifoStatus1
	if err = d.bus.Tx(d.Address, d.w[:1], d.r[:2]); err != nil {
		return 0, false, err
	}
	unread = uint16(d.r[0]) | uint16(d.r[1]&fifoDiffHighMask)<<8
	overrun = d.r[1]&(fifoStatusOvr|fifoStatusOvrLatched) != 0
	return unread, overrun, nil
}

// ReadFifo reads up to len(dst) unread words into dst and returns how many
// were read. Words of every tag are returned; see Word.Tag.
func (d *Device) ReadFifo(dst []Word) (int, error) {
	unread, overrun, err := d.FifoStatus()
	if err != nil {
		return 0, err
	}
	n := int(unread)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		d.w[0] = regFifoDataOutTag
		if err := d.bus.Tx(d.Address, d.w[:1], d.r[:7]); err != nil {
			return i, err
		}
		dst[i] = Word{
			Tag: d.r[0] >> 3,
			X:   int16(uint16(d.r[1]) | uint16(d.r[2])<<8),
			Y:   int16(uint16(d.r[3]) | uint16(d.r[4])<<8),
			Z:   int16(uint16(d.r[5]) | uint16(d.r[6])<<8),
		}
	}
	if overrun && d.cfg.Overrun {
		return n, ErrFifoOverrun
	}
	return n, nil
}

// Accel converts an accelerometer word to m/s².
func (d *Device) Accel(w Word) (x, y, z float32) {
	s := d.scale
	return float32(w.X) * s, float32(w.Y) * s, float32(w.Z) * s
}

// SampleRate is the configured accelerometer batch rate in Hz.
func (d *Device) SampleRate() uint32 { return d.cfg.FifoRate.Hz() }

func (d *Device) readReg(reg byte) (byte, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) writeReg(reg, val byte) error {
	d.w[0] = reg
	d.w[1] = val
	return d.bus.Tx(d.Address, d.w[:2], nil)
}
