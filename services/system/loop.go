package system

import (
	"context"
	"log/slog"
	"time"

	"sfy-go/services/diag"
	"sfy-go/services/location"
	"sfy-go/services/note"
	"sfy-go/services/state"
	"sfy-go/x/budget"
	"sfy-go/x/timex"
)

// Modem is the uplink surface the main loop drives. *note.Notecarrier
// satisfies it.
type Modem interface {
	diag.Sink
	location.Locator
	DrainQueue(q note.Dequeuer) (int, error)
	CheckAndSync(nowMs int64) error
}

// Supervisor keeps the watchdog fed and is the escalation target of the
// loop budget. *System satisfies it.
type Supervisor interface {
	Feed()
	Reset(reason string)
}

// LoopConfig configures NewLoop.
type LoopConfig struct {
	Period    time.Duration // cycle gate, default 1 s
	Retries   uint32        // consecutive failed cycles tolerated, default 5
	IdleSleep bool          // sleep a full period between polls
	// OnCycle runs after every gated cycle. Optional.
	OnCycle func(nowMs int64)
	Logger  *slog.Logger
}

// Loop is the foreground task: drain diagnostics, then once per Period
// refresh location, forward queued packets and check sync.
type Loop struct {
	st    *state.Shared
	hw    Hardware
	modem Modem
	loc   *location.Location
	q     note.Dequeuer
	diag  *diag.Log
	log   *slog.Logger
	sup   Supervisor

	period  time.Duration
	idle    time.Duration
	budget  *budget.Budget
	onCycle func(nowMs int64)

	last   int64
	ran    bool
	cycles uint32
}

func NewLoop(st *state.Shared, hw Hardware, modem Modem, loc *location.Location, q note.Dequeuer, d *diag.Log, sup Supervisor, cfg LoopConfig) *Loop {
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	l := &Loop{
		st:      st,
		hw:      hw,
		modem:   modem,
		loc:     loc,
		q:       q,
		diag:    d,
		log:     cfg.Logger,
		sup:     sup,
		period:  cfg.Period,
		idle:    10 * time.Millisecond,
		onCycle: cfg.OnCycle,
	}
	if cfg.IdleSleep {
		l.idle = cfg.Period
	}
	l.budget = budget.New(cfg.Retries, func() {
		l.log.Error("loop:retries-exhausted")
		sup.Reset("main loop retries exhausted")
	})
	return l
}

// Step runs one iteration and reports whether the gated cycle ran.
func (l *Loop) Step(ctx context.Context) bool {
	l.sup.Feed()
	if err := l.diag.Drain(l.modem); err != nil {
		l.log.Warn("loop:drain-log", "err", err)
	}

	now := l.st.NowMs()
	if l.ran && !timex.Due(now, l.last, l.period) {
		return false
	}
	l.last, l.ran = now, true
	l.cycles++
	l.hw.ToggleLED()

	errLoc := l.loc.CheckRetrieve(l.modem)
	_, errDrain := l.modem.DrainQueue(l.q)
	errSync := l.modem.CheckAndSync(now)
	if l.onCycle != nil {
		l.onCycle(now)
	}

	if errLoc == nil && errDrain == nil && errSync == nil {
		l.budget.Success()
		return true
	}
	l.log.Error("loop:cycle-failed",
		"location", errLoc,
		"drain", errDrain,
		"sync", errSync,
		"tries", l.budget.Remaining(),
	)
	l.budget.Fail()
	return true
}

// Run steps until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		l.Step(ctx)
		l.hw.Sleep(l.idle)
	}
}

// Cycles counts gated cycles run.
func (l *Loop) Cycles() uint32 { return l.cycles }

// Remaining is the loop retry budget left.
func (l *Loop) Remaining() uint32 { return l.budget.Remaining() }
