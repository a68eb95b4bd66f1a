// Package system owns device-level fault handling: the single reset routine,
// the panic and hard-fault paths that funnel into it, and the main loop's
// retry state machine.
package system

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"sfy-go/services/diag"
)

// Hardware is the processor capability set the runtime needs.
type Hardware interface {
	// DisableInterrupts masks the timer interrupt for good.
	DisableInterrupts()
	// SysReset restarts the processor. It does not return on hardware.
	SysReset()
	// Sleep idles the processor.
	Sleep(d time.Duration)
	// ToggleLED flips the heartbeat LED.
	ToggleLED()
	// Feed restarts the hardware watchdog countdown.
	Feed()
}

// ResetCause is why the processor last came out of reset.
type ResetCause uint8

const (
	CausePowerOn   ResetCause = iota // cold start or external reset
	CauseRequested                   // SysReset from Reset or Panic
	CauseWatchdog                    // watchdog expired: a hang or a halted fault handler
)

func (c ResetCause) String() string {
	switch c {
	case CausePowerOn:
		return "power-on"
	case CauseRequested:
		return "requested"
	case CauseWatchdog:
		return "watchdog"
	}
	return "unknown"
}

// StartupNote is the first hub.log of a boot. An unrequested watchdog reset
// is called out since nothing got the chance to report it before.
func StartupNote(ver, serial string, cause ResetCause) string {
	s := "SFY (v" + ver + ") (sn: " + serial + ") started up."
	if cause == CauseWatchdog {
		s += " Previous run ended by watchdog reset (hang or hard fault)."
	}
	return s
}

// Uplink is the modem surface used on the way down.
type Uplink interface {
	diag.Sink
	ConsumeResponse() error
	HubLog(text string, alert, sync bool) error
	CardRestart() error
}

// RestartNote is the final note sent by Reset.
const RestartNote = "Error occurred in main loop: restarting."

// System is shared by the main loop and, through Panic, the interrupt
// handler.
type System struct {
	hw     Hardware
	up     Uplink
	diag   *diag.Log
	log    *slog.Logger
	settle time.Duration

	resetting atomic.Bool
	starved   atomic.Bool
	resets    atomic.Uint32
}

// Options configures New.
type Options struct {
	// Settle is waited between restarting the modem and resetting the
	// processor. Default 3 s.
	Settle time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func New(hw Hardware, d *diag.Log, opts Options) *System {
	if opts.Settle <= 0 {
		opts.Settle = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &System{hw: hw, diag: d, log: opts.Logger, settle: opts.Settle}
}

// SetUplink attaches the modem once the session exists. Before that, the
// reset path skips every modem step.
func (s *System) SetUplink(u Uplink) {
	s.up = u
	if u != nil {
		s.diag.Install(u)
	}
}

// Reset is the only firmware path that restarts the device. In order it
// disables interrupts, abandons any in-flight modem reply, flushes
// diagnostics, sends a final note, restarts the modem, waits for it to
// settle and resets the processor. Every step is best effort. A Reset
// raised while another is in progress goes straight to the processor reset.
func (s *System) Reset(reason string) {
	if !s.resetting.CompareAndSwap(false, true) {
		s.hw.SysReset()
		return
	}
	s.starved.Store(true)
	s.resets.Add(1)
	s.hw.DisableInterrupts()
	s.log.Error("system:reset", "reason", reason)

	if s.up != nil {
		if err := s.up.ConsumeResponse(); err != nil {
			s.log.Warn("system:consume-response", "err", err)
		}
		if err := s.diag.Drain(s.up); err != nil {
			s.log.Warn("system:drain-log", "err", err)
		}
		if err := s.up.HubLog(RestartNote, false, false); err != nil {
			s.log.Warn("system:restart-note", "err", err)
		}
		if err := s.up.CardRestart(); err != nil {
			s.log.Warn("system:card-restart", "err", err)
		}
	}
	s.hw.Sleep(s.settle)
	s.hw.SysReset()
	s.resetting.Store(false)
}

// Panic handles unrecoverable faults: record reason, attempt one diagnostic
// flush, then reset. Retry budgets are bypassed.
func (s *System) Panic(reason string) {
	if s.resetting.Load() {
		s.hw.SysReset()
		return
	}
	s.starved.Store(true)
	s.hw.DisableInterrupts()
	s.diag.Push("panic: " + reason)
	if s.up != nil {
		if err := s.diag.PanicDrain(); err != nil {
			s.log.Warn("system:panic-drain", "err", err)
		}
	}
	s.Reset(reason)
}

// Feed keeps the watchdog from firing. Once Reset or Panic has started it
// is a no-op, so a teardown that wedges still ends in a processor reset.
func (s *System) Feed() {
	if !s.starved.Load() {
		s.hw.Feed()
	}
}

// Recover is deferred at the top of main and of the interrupt body; it turns
// an unexpected panic into Panic.
func (s *System) Recover() {
	if r := recover(); r != nil {
		s.Panic(fmt.Sprint(r))
	}
}

// Resets counts Reset invocations.
func (s *System) Resets() uint32 { return s.resets.Load() }
