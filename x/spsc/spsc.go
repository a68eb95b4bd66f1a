// Package spsc provides a fixed-capacity single-producer, single-consumer
// queue of values. Storage is allocated once in New; Enqueue and Dequeue never
// allocate, never block and take no locks. Correctness relies on exactly one
// goroutine (or interrupt handler) holding the Producer and exactly one
// holding the Consumer, which Split enforces by handing each out once.
package spsc

import (
	"sync/atomic"

	"sfy-go/x/mathx"
)

// Queue is the shared storage. Use Split to obtain the two endpoints.
type Queue[T any] struct {
	buf  []T
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	drops atomic.Uint32
	split atomic.Bool
}

// New allocates a queue holding up to size items.
func New[T any](size int) *Queue[T] {
	if size < 2 || !mathx.IsPow2(size) {
		panic("spsc: size must be power of two >= 2")
	}
	return &Queue[T]{
		buf:  make([]T, size),
		mask: uint32(size - 1),
	}
}

// Split returns the producer and consumer endpoints. It may be called once.
func (q *Queue[T]) Split() (*Producer[T], *Consumer[T]) {
	if !q.split.CompareAndSwap(false, true) {
		panic("spsc: queue already split")
	}
	return &Producer[T]{q: q}, &Consumer[T]{q: q}
}

func (q *Queue[T]) size() uint32 { return uint32(len(q.buf)) }

// Cap is the number of slots.
func (q *Queue[T]) Cap() int { return len(q.buf) }

// Len is a snapshot of the number of queued items.
func (q *Queue[T]) Len() int {
	rd := q.rd.Load()
	wr := q.wr.Load()
	return int(wr - rd)
}

// Drops is the number of enqueue attempts rejected because the queue was full.
func (q *Queue[T]) Drops() uint32 { return q.drops.Load() }

// Producer is the write endpoint.
type Producer[T any] struct{ q *Queue[T] }

// Enqueue copies v into the next free slot. It returns false, leaving the
// queue untouched, when every slot is occupied.
func (p *Producer[T]) Enqueue(v T) bool {
	q := p.q
	rd := q.rd.Load() // acquire
	wr := q.wr.Load()
	if wr-rd >= q.size() {
		q.drops.Add(1)
		return false
	}
	q.buf[wr&q.mask] = v
	q.wr.Store(wr + 1) // release
	return true
}

// EnqueueFrom copies *src into the next free slot, avoiding a by-value copy
// of large items through the call.
func (p *Producer[T]) EnqueueFrom(src *T) bool {
	q := p.q
	rd := q.rd.Load()
	wr := q.wr.Load()
	if wr-rd >= q.size() {
		q.drops.Add(1)
		return false
	}
	q.buf[wr&q.mask] = *src
	q.wr.Store(wr + 1)
	return true
}

// Full reports whether the next Enqueue would be rejected.
func (p *Producer[T]) Full() bool { return p.q.Len() >= p.q.Cap() }

// Consumer is the read endpoint.
type Consumer[T any] struct{ q *Queue[T] }

// Dequeue removes the oldest item. ok is false when the queue is empty.
func (c *Consumer[T]) Dequeue() (v T, ok bool) {
	q := c.q
	rd := q.rd.Load()
	wr := q.wr.Load() // acquire
	if wr == rd {
		return v, false
	}
	slot := &q.buf[rd&q.mask]
	v = *slot
	var zero T
	*slot = zero
	q.rd.Store(rd + 1) // release
	return v, true
}

// DequeueInto copies the oldest item into dst, avoiding a return copy of
// large values.
func (c *Consumer[T]) DequeueInto(dst *T) bool {
	q := c.q
	rd := q.rd.Load()
	wr := q.wr.Load()
	if wr == rd {
		return false
	}
	*dst = q.buf[rd&q.mask]
	q.rd.Store(rd + 1)
	return true
}

// Len is a snapshot of the number of queued items.
func (c *Consumer[T]) Len() int { return c.q.Len() }
