package imu

import (
	"sync/atomic"

	"sfy-go/services/diag"
	"sfy-go/services/state"
	"sfy-go/x/budget"
	"sfy-go/x/conv"
	"sfy-go/x/slot"
)

// Phase is the handler's position in its tick cycle.
type Phase uint8

const (
	Idle Phase = iota
	Draining
	Faulted
)

// FaultAfter is the number of consecutive budget exhaustions, with no
// successful drain in between, after which the handler gives up and hands
// control to the fault path.
const FaultAfter = 2

// Handler is the body of the periodic timer interrupt. Construct it on the
// main side, then call Tick from the interrupt only.
type Handler struct {
	cell  *slot.Cell[Waves]
	waves *Waves

	st     *state.Shared
	q      Enqueuer
	log    *diag.Log
	fault  func(reason string)
	budget *budget.Budget

	phase   Phase
	lastErr error
	ticks   uint32
	resets  atomic.Uint32

	msg [diag.LineMax]byte
}

// Options wires a Handler.
type Options struct {
	// Cell is the install slot the first Tick takes the driver from.
	Cell *slot.Cell[Waves]
	// State supplies batch timestamps and position.
	State *state.Shared
	// Queue is the producer end of the acquisition queue.
	Queue Enqueuer
	// Log receives failure lines. Optional.
	Log *diag.Log
	// Fault is called with a reason once retries are exhausted FaultAfter
	// times in a row. It is not expected to return.
	Fault func(reason string)
	// Retries defaults to budget.DefaultInitial.
	Retries uint32
}

func NewHandler(o Options) *Handler {
	h := &Handler{
		cell:  o.Cell,
		st:    o.State,
		q:     o.Queue,
		log:   o.Log,
		fault: o.Fault,
	}
	h.budget = budget.New(o.Retries, h.exhausted)
	return h
}

// Tick drains the FIFO once. It never blocks beyond the bus transactions of
// one FIFO drain and one sensor reset.
func (h *Handler) Tick() {
	h.ticks++
	if h.phase == Faulted {
		return
	}
	if h.waves == nil {
		w, ok := h.cell.Take()
		if !ok {
			return
		}
		h.waves = w
	}

	h.phase = Draining
	now, lon, lat := h.st.Snapshot()
	err := h.waves.CheckRetrieve(now, lon, lat, h.q)
	if err == nil {
		h.budget.Success()
		h.phase = Idle
		return
	}

	h.lastErr = err
	rerr := h.waves.Reset(now, lon, lat)
	h.resets.Add(1)
	h.report("IMU failure: ", err, rerr)
	h.budget.Fail()
	if h.phase != Faulted {
		h.phase = Idle
	}
}

// exhausted is the budget's escalation action.
func (h *Handler) exhausted() {
	if h.budget.Exhaustions() < FaultAfter {
		h.report("IMU retries exhausted: ", h.lastErr, nil)
		return
	}
	h.phase = Faulted
	if h.fault != nil {
		h.fault("IMU failed repeatedly, resetting device")
	}
}

func (h *Handler) report(prefix string, err, rerr error) {
	if h.log == nil {
		return
	}
	b := conv.AppendTrunc(h.msg[:0], prefix, diag.LineMax)
	if err != nil {
		b = conv.AppendTrunc(b, err.Error(), diag.LineMax)
	}
	b = conv.AppendTrunc(b, ", reset: ", diag.LineMax)
	if rerr != nil {
		b = conv.AppendTrunc(b, rerr.Error(), diag.LineMax)
	} else {
		b = conv.AppendTrunc(b, "ok", diag.LineMax)
	}
	b = conv.AppendTrunc(b, ", tries: ", diag.LineMax)
	if len(b) <= diag.LineMax-10 {
		b = conv.AppendUint(b, uint64(h.budget.Remaining()))
	}
	h.log.PushBytes(b)
}

// Phase returns the current phase.
func (h *Handler) Phase() Phase { return h.phase }

// Remaining is the IMU retry budget left.
func (h *Handler) Remaining() uint32 { return h.budget.Remaining() }

// Resets counts lightweight sensor resets.
func (h *Handler) Resets() uint32 { return h.resets.Load() }

// Waves exposes the installed pipeline once the first Tick took it.
func (h *Handler) Waves() *Waves { return h.waves }
