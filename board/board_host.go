// board/board_host.go
//go:build !rp2040

package board

import (
	"os"
	"sync"
	"time"

	"sfy-go/services/system"
)

// HostI2C is an inert bus: writes are recorded, reads return zeros.
type HostI2C struct {
	mu     sync.Mutex
	LastTx struct {
		Addr uint16
		W    []byte
		Rn   int
	}
}

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastTx.Addr = addr
	h.LastTx.W = append(h.LastTx.W[:0], w...)
	h.LastTx.Rn = len(r)
	clear(r)
	return nil
}

// Open returns a board with inert buses, the console on stdout and no
// storage. The timer is a goroutine ticker.
func Open() (*Board, error) {
	return &Board{
		IMU:     &HostI2C{},
		Modem:   &HostI2C{},
		Console: os.Stdout,
		hw:      hw{cause: system.CausePowerOn},
	}, nil
}

type hw struct {
	cause system.ResetCause

	mu     sync.Mutex
	led    bool
	masked bool
	resets int
	feeds  int
	done   chan struct{}
	// Exit replaces os.Exit in tests.
	Exit func(code int)
}

func (h *hw) every(period time.Duration, fn func()) {
	done := make(chan struct{})
	h.mu.Lock()
	h.done = done
	h.mu.Unlock()
	go func() {
		tk := time.NewTicker(period)
		defer tk.Stop()
		for {
			select {
			case <-done:
				return
			case <-tk.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()
}

func (h *hw) disableInterrupts() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.masked = true
	if h.done != nil {
		close(h.done)
		h.done = nil
	}
}

func (h *hw) sleep(d time.Duration) { time.Sleep(d) }

func (h *hw) sysReset() {
	h.mu.Lock()
	h.resets++
	exit := h.Exit
	h.mu.Unlock()
	if exit == nil {
		exit = os.Exit
	}
	exit(3)
}

func (h *hw) toggleLED() {
	h.mu.Lock()
	h.led = !h.led
	h.mu.Unlock()
}

func (h *hw) feed() {
	h.mu.Lock()
	h.feeds++
	h.mu.Unlock()
}

// LED reports the host LED state.
func (b *Board) LED() bool {
	b.hw.mu.Lock()
	defer b.hw.mu.Unlock()
	return b.hw.led
}

// Resets counts SysReset calls.
func (b *Board) Resets() int {
	b.hw.mu.Lock()
	defer b.hw.mu.Unlock()
	return b.hw.resets
}

// Feeds counts watchdog feeds.
func (b *Board) Feeds() int {
	b.hw.mu.Lock()
	defer b.hw.mu.Unlock()
	return b.hw.feeds
}
