// Package diag buffers short diagnostic lines for best-effort delivery over
// the uplink. Push is safe from the interrupt handler; delivery happens from
// the main loop (Drain) or, as a last effort, from the fault path
// (PanicDrain).
package diag

import (
	"errors"

	"sfy-go/x/critical"
)

// LineMax caps one diagnostic line.
const LineMax = 256

// Depth is the number of buffered lines. When full the oldest is dropped.
const Depth = 16

var ErrNoSink = errors.New("diag: no sink installed")

// Sink delivers one line. Implementations must bound their own waits.
type Sink interface {
	Log(text []byte) error
}

// responseConsumer is implemented by sinks that can abandon an in-flight
// exchange before the panic path reuses them.
type responseConsumer interface {
	ConsumeResponse() error
}

type line struct {
	seq uint32
	n   int
	b   [LineMax]byte
}

// Log is a fixed ring of lines. The zero value is ready to use.
type Log struct {
	lines   [Depth]line
	head    uint32 // sequence of the oldest line
	tail    uint32 // sequence of the next line
	dropped uint32

	sink Sink
	out  line // scratch for the line being delivered
}

// Push appends msg, truncated to LineMax.
func (l *Log) Push(msg string) {
	l.push(func(dst []byte) int { return copy(dst, msg) })
}

// PushBytes is Push for a byte slice.
func (l *Log) PushBytes(msg []byte) {
	l.push(func(dst []byte) int { return copy(dst, msg) })
}

func (l *Log) push(fill func([]byte) int) {
	critical.Do(func() {
		if l.tail-l.head == Depth {
			l.head++
			l.dropped++
		}
		e := &l.lines[l.tail%Depth]
		e.seq = l.tail
		e.n = fill(e.b[:])
		l.tail++
	})
}

// Len is the number of buffered lines.
func (l *Log) Len() int {
	return critical.Get(func() int { return int(l.tail - l.head) })
}

// Dropped counts lines overwritten before delivery.
func (l *Log) Dropped() uint32 {
	return critical.Get(func() uint32 { return l.dropped })
}

// Drain delivers buffered lines oldest first through sink. It stops at the
// first delivery error and returns it; the failed line stays buffered.
// Lines pushed while Drain runs are delivered too, up to 2*Depth lines per
// call.
func (l *Log) Drain(sink Sink) error {
	for i := 0; i < 2*Depth; i++ {
		ok := false
		critical.Do(func() {
			if l.tail == l.head {
				return
			}
			l.out = l.lines[l.head%Depth]
			ok = true
		})
		if !ok {
			return nil
		}
		if err := sink.Log(l.out.b[:l.out.n]); err != nil {
			return err
		}
		critical.Do(func() {
			// The line may have been overwritten by a Push during delivery.
			if l.tail != l.head && l.lines[l.head%Depth].seq == l.out.seq {
				l.head++
			}
		})
	}
	return nil
}

// Install registers the sink used by PanicDrain.
func (l *Log) Install(sink Sink) { l.sink = sink }

// PanicDrain is the fault-path flush: abandon any in-flight exchange on the
// installed sink, then attempt one Drain.
func (l *Log) PanicDrain() error {
	if l.sink == nil {
		return ErrNoSink
	}
	if rc, ok := l.sink.(responseConsumer); ok {
		_ = rc.ConsumeResponse()
	}
	return l.Drain(l.sink)
}
