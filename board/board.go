// Package board binds the runtime to the buoy hardware: the two I2C buses
// (IMU and Notecard), the console, the SD card, the LED, the watchdog and
// the processor reset. The rp2040 build drives real peripherals; the host
// build provides inert stand-ins so the firmware links and runs in tests.
package board

import (
	"io"
	"time"

	"tinygo.org/x/drivers"

	"sfy-go/services/storage"
	"sfy-go/services/system"
)

// WatchdogTimeout is armed by Open and fed from the main loop.
const WatchdogTimeout = 8 * time.Second

// Board is created once by Open.
type Board struct {
	IMU     drivers.I2C
	Modem   drivers.I2C
	Console io.Writer
	// Storage is nil when no card is mounted.
	Storage storage.Controller

	hw
}

// Every runs fn from the periodic acquisition interrupt until
// DisableInterrupts.
func (b *Board) Every(period time.Duration, fn func()) { b.hw.every(period, fn) }

// DisableInterrupts stops the acquisition interrupt and masks interrupts.
func (b *Board) DisableInterrupts() { b.hw.disableInterrupts() }

func (b *Board) SysReset() { b.hw.sysReset() }

// Sleep yields to the scheduler, or busy-waits when called from the
// interrupt or after DisableInterrupts.
func (b *Board) Sleep(d time.Duration) { b.hw.sleep(d) }

func (b *Board) ToggleLED() { b.hw.toggleLED() }

func (b *Board) Feed() { b.hw.feed() }

// ResetCause reports why this boot happened.
func (b *Board) ResetCause() system.ResetCause { return b.hw.cause }
