// board/board_rp2040.go
//go:build rp2040

package board

import (
	"device/rp"
	"errors"
	"machine"
	"runtime/interrupt"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/sdcard"
	"tinygo.org/x/tinyfs/fatfs"

	"sfy-go/services/storage"
	"sfy-go/services/system"
)

// SD card on SPI0.
const (
	sdSCK = machine.GP18
	sdSDO = machine.GP19
	sdSDI = machine.GP16
	sdCS  = machine.GP17
)

// tickAlarm is the TIMER alarm driving acquisition. Alarm 0 belongs to the
// runtime's sleep timer.
const tickAlarm = 1

var (
	tickFn       func()
	tickPeriodUs uint32
)

// Open configures the peripherals and starts the watchdog. A missing SD
// card is not an error.
func Open() (*Board, error) {
	cause := resetCause()

	imu := machine.I2C0
	if err := imu.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		return nil, err
	}
	modem := machine.I2C1
	if err := modem.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C1_SDA_PIN,
		SCL:       machine.I2C1_SCL_PIN,
	}); err != nil {
		return nil, err
	}

	console := uartx.UART0
	_ = console.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})

	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	machine.Watchdog.Configure(machine.WatchdogConfig{
		TimeoutMillis: uint32(WatchdogTimeout.Milliseconds()),
	})
	machine.Watchdog.Start()

	b := &Board{
		IMU:     imu,
		Modem:   modem,
		Console: console,
		hw:      hw{led: machine.LED, cause: cause},
	}
	if fs := mountSD(); fs != nil {
		b.Storage = storage.NewFS(fs, notExist)
	}
	return b, nil
}

func resetCause() system.ResetCause {
	r := rp.WATCHDOG.REASON.Get()
	switch {
	case r&rp.WATCHDOG_REASON_FORCE != 0:
		return system.CauseRequested
	case r&rp.WATCHDOG_REASON_TIMER != 0:
		return system.CauseWatchdog
	}
	return system.CausePowerOn
}

func mountSD() *fatfs.FATFS {
	sd := sdcard.New(machine.SPI0, sdSCK, sdSDO, sdSDI, sdCS)
	if err := sd.Configure(); err != nil {
		println("board: no sd card:", err.Error())
		return nil
	}
	fs := fatfs.New(&sd)
	fs.Configure(&fatfs.Config{SectorSize: 512})
	if err := fs.Mount(); err != nil {
		println("board: sd mount failed:", err.Error())
		return nil
	}
	return fs
}

// notExist matches the FAT driver's missing-file results.
func notExist(err error) bool {
	return errors.Is(err, fatfs.FileResultNoFile) || errors.Is(err, fatfs.FileResultNoPath)
}

type hw struct {
	led    machine.Pin
	cause  system.ResetCause
	masked bool
}

// every arms a TIMER alarm whose IRQ preempts the main loop.
func (h *hw) every(period time.Duration, fn func()) {
	tickFn = fn
	tickPeriodUs = uint32(period.Microseconds())
	irq := interrupt.New(rp.IRQ_TIMER_IRQ_1, tickISR)
	irq.SetPriority(0x00)
	rp.TIMER.INTE.SetBits(1 << tickAlarm)
	rp.TIMER.ALARM1.Set(rp.TIMER.TIMERAWL.Get() + tickPeriodUs)
	irq.Enable()
}

func tickISR(interrupt.Interrupt) {
	rp.TIMER.INTR.Set(1 << tickAlarm)
	tickFn()
	// Re-armed after the body so an overrunning tick cannot leave the alarm
	// in the past.
	rp.TIMER.ALARM1.Set(rp.TIMER.TIMERAWL.Get() + tickPeriodUs)
}

func (h *hw) disableInterrupts() {
	h.masked = true
	rp.TIMER.INTE.ClearBits(1 << tickAlarm)
	interrupt.Disable()
}

func (h *hw) sleep(d time.Duration) {
	if !h.masked && !interrupt.In() {
		time.Sleep(d)
		return
	}
	us := uint32(d.Microseconds())
	start := rp.TIMER.TIMERAWL.Get()
	for rp.TIMER.TIMERAWL.Get()-start < us {
	}
}

// sysReset forces a watchdog reset; the next boot reads it as requested.
func (h *hw) sysReset() {
	rp.WATCHDOG.CTRL.SetBits(rp.WATCHDOG_CTRL_TRIGGER)
	for {
	}
}

func (h *hw) toggleLED() { h.led.Set(!h.led.Get()) }

func (h *hw) feed() { machine.Watchdog.Update() }
