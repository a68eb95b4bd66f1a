// Package heartbeat periodically reports pipeline counters through the
// console and the diagnostic uplink.
package heartbeat

import (
	"log/slog"
	"time"

	"sfy-go/services/diag"
	"sfy-go/x/conv"
	"sfy-go/x/timex"
)

// Counters is a snapshot of the pipeline totals.
type Counters struct {
	Enqueued uint32 // batches handed to the queue
	Lost     uint32 // batches dropped on a full queue
	Sent     uint32 // batches uploaded
	Resets   uint32 // IMU reconfigurations
	Fixes    uint32 // position fixes applied
}

// Source fills a Counters snapshot.
type Source func() Counters

type Service struct {
	interval time.Duration
	src      Source
	diag     *diag.Log
	log      *slog.Logger

	last  int64
	armed bool
	buf   [diag.LineMax]byte
}

// New returns a Service reporting every interval. interval<=0 selects
// 10 minutes. d may be nil to report on the console only.
func New(interval time.Duration, src Source, d *diag.Log, log *slog.Logger) *Service {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{interval: interval, src: src, diag: d, log: log}
}

// Beat reports when interval has passed since the previous report. The first
// call only arms the timer.
func (s *Service) Beat(nowMs int64) bool {
	if !s.armed {
		s.last, s.armed = nowMs, true
		return false
	}
	if !timex.Due(nowMs, s.last, s.interval) {
		return false
	}
	s.last = nowMs

	c := s.src()
	s.log.Info("heartbeat:status",
		"enqueued", c.Enqueued,
		"lost", c.Lost,
		"sent", c.Sent,
		"imu_resets", c.Resets,
		"fixes", c.Fixes,
	)
	if s.diag != nil {
		s.diag.PushBytes(s.line(c))
	}
	return true
}

func (s *Service) line(c Counters) []byte {
	b := append(s.buf[:0], "heartbeat: enq="...)
	b = conv.AppendUint(b, uint64(c.Enqueued))
	b = append(b, " lost="...)
	b = conv.AppendUint(b, uint64(c.Lost))
	b = append(b, " sent="...)
	b = conv.AppendUint(b, uint64(c.Sent))
	b = append(b, " resets="...)
	b = conv.AppendUint(b, uint64(c.Resets))
	b = append(b, " fixes="...)
	b = conv.AppendUint(b, uint64(c.Fixes))
	return b
}
