// Package budget implements the bounded retry counter used by the IMU
// interrupt handler and the main loop: consecutive failures consume the
// budget, a success restores it, and running out fires an escalation action.
package budget

// State is the externally visible health of the owning loop.
type State uint8

const (
	Healthy  State = iota // budget full
	Degraded              // at least one failure since the last success
	Faulted               // exhausted; escalation in progress
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

// DefaultInitial is the number of consecutive failures tolerated.
const DefaultInitial = 5

// Budget is not safe for use from more than one context; each loop owns its
// own instance.
type Budget struct {
	initial     uint32
	left        uint32
	faulted     bool
	exhaustions uint32
	escalate    func()
}

// New returns a full budget. initial==0 selects DefaultInitial. escalate may
// be nil.
func New(initial uint32, escalate func()) *Budget {
	if initial == 0 {
		initial = DefaultInitial
	}
	return &Budget{initial: initial, left: initial, escalate: escalate}
}

// Success restores the budget.
func (b *Budget) Success() {
	b.left = b.initial
	b.exhaustions = 0
}

// Fail consumes one retry. When the budget reaches zero the escalation
// action runs once, the budget is re-armed and Fail reports true.
func (b *Budget) Fail() (exhausted bool) {
	if b.left > 0 {
		b.left--
	}
	if b.left > 0 {
		return false
	}
	b.exhaustions++
	b.faulted = true
	if b.escalate != nil {
		b.escalate()
	}
	b.faulted = false
	b.left = b.initial
	return true
}

// Remaining is the number of failures left before escalation.
func (b *Budget) Remaining() uint32 { return b.left }

// Initial is the configured budget size.
func (b *Budget) Initial() uint32 { return b.initial }

// Exhaustions counts escalations since the last Success.
func (b *Budget) Exhaustions() uint32 { return b.exhaustions }

func (b *Budget) State() State {
	switch {
	case b.faulted:
		return Faulted
	case b.left == b.initial:
		return Healthy
	default:
		return Degraded
	}
}
