// Package imu runs the acquisition side of the pipeline: it drains the IMU
// FIFO from the timer interrupt, assembles fixed-size batches and hands them
// to the acquisition queue.
package imu

import (
	"sync/atomic"

	"sfy-go/axl"
	"sfy-go/drivers/ism330dhcx"
)

// Sensor is the driver surface used by Waves. *ism330dhcx.Device satisfies
// it.
type Sensor interface {
	Configure(cfg ism330dhcx.Config) error
	EnableFifo() error
	DisableFifo() error
	ReadFifo(dst []ism330dhcx.Word) (int, error)
	Accel(w ism330dhcx.Word) (x, y, z float32)
}

// Enqueuer is the producer end of the acquisition queue.
type Enqueuer interface {
	EnqueueFrom(src *axl.Packet) bool
}

// readBatch is the number of FIFO words read per bus burst.
const readBatch = 32

// Waves owns the sensor and the batch under construction. It belongs to the
// interrupt context once installed.
type Waves struct {
	dev Sensor
	cfg ism330dhcx.Config

	pck   axl.Packet
	words [readBatch]ism330dhcx.Word

	enqueued atomic.Uint32
	lost     atomic.Uint32
}

// NewWaves configures dev and starts an empty batch stamped with now, lon,
// lat. The FIFO is left disabled; call EnableFifo once the interrupt is
// ready to drain it.
func NewWaves(dev Sensor, cfg ism330dhcx.Config, nowMs int64, lon, lat float64) (*Waves, error) {
	w := &Waves{dev: dev, cfg: cfg}
	if err := dev.Configure(cfg); err != nil {
		return nil, err
	}
	w.TakeBuf(nowMs, lon, lat)
	return w, nil
}

// EnableFifo starts sample batching on the sensor.
func (w *Waves) EnableFifo() error { return w.dev.EnableFifo() }

// TakeBuf discards the partial batch and starts a new one.
func (w *Waves) TakeBuf(nowMs int64, lon, lat float64) {
	w.pck.Reset(nowMs, lon, lat)
}

// CheckRetrieve drains every unread FIFO word into the current batch. Each
// completed batch is enqueued and a new one is started at nowMs. A full
// queue drops the batch and counts it as lost; it is not an error.
func (w *Waves) CheckRetrieve(nowMs int64, lon, lat float64, q Enqueuer) error {
	for total := 0; total < ism330dhcx.FifoDepth; {
		n, err := w.dev.ReadFifo(w.words[:])
		w.consume(w.words[:n], nowMs, lon, lat, q)
		if err != nil {
			return err
		}
		total += n
		if n < len(w.words) {
			return nil
		}
	}
	return nil
}

func (w *Waves) consume(words []ism330dhcx.Word, nowMs int64, lon, lat float64, q Enqueuer) {
	for i := range words {
		if words[i].Tag != ism330dhcx.TagAccel {
			continue
		}
		x, y, z := w.dev.Accel(words[i])
		w.pck.Push(x, y, z)
		if !w.pck.Full() {
			continue
		}
		if q.EnqueueFrom(&w.pck) {
			w.enqueued.Add(1)
		} else {
			w.lost.Add(1)
		}
		w.pck.Reset(nowMs, lon, lat)
	}
}

// Reset re-initialises the sensor configuration and restarts batching. The
// partial batch is discarded.
func (w *Waves) Reset(nowMs int64, lon, lat float64) error {
	_ = w.dev.DisableFifo()
	if err := w.dev.Configure(w.cfg); err != nil {
		return err
	}
	w.pck.Reset(nowMs, lon, lat)
	return w.dev.EnableFifo()
}

// Enqueued counts batches handed to the queue.
func (w *Waves) Enqueued() uint32 { return w.enqueued.Load() }

// Lost counts complete batches dropped on a full queue.
func (w *Waves) Lost() uint32 { return w.lost.Load() }

// Pending is the number of values in the partial batch.
func (w *Waves) Pending() int { return w.pck.N }
