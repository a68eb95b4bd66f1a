package diag

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type recSink struct {
	lines     []string
	failAt    int // 1-based call index that fails; 0 never
	calls     int
	consumed  int
	onDeliver func()
}

func (s *recSink) Log(text []byte) error {
	s.calls++
	if s.onDeliver != nil {
		s.onDeliver()
	}
	if s.failAt == s.calls {
		return errors.New("uplink down")
	}
	s.lines = append(s.lines, string(text))
	return nil
}

func (s *recSink) ConsumeResponse() error { s.consumed++; return nil }

func TestDrainInOrder(t *testing.T) {
	var l Log
	l.Push("a")
	l.Push("b")
	l.Push("c")
	s := &recSink{}
	if err := l.Drain(s); err != nil {
		t.Fatal(err)
	}
	if strings.Join(s.lines, ",") != "a,b,c" || l.Len() != 0 {
		t.Fatalf("lines=%v len=%d", s.lines, l.Len())
	}
}

func TestDrainFailureKeepsLine(t *testing.T) {
	var l Log
	l.Push("a")
	l.Push("b")
	s := &recSink{failAt: 2}
	if err := l.Drain(s); err == nil {
		t.Fatal("expected error")
	}
	if l.Len() != 1 {
		t.Fatalf("len=%d want 1", l.Len())
	}
	s.failAt = 0
	if err := l.Drain(s); err != nil {
		t.Fatal(err)
	}
	if strings.Join(s.lines, ",") != "a,b" {
		t.Fatalf("lines=%v", s.lines)
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	var l Log
	for i := 0; i < Depth+3; i++ {
		l.Push(string(rune('a' + i)))
	}
	if l.Len() != Depth || l.Dropped() != 3 {
		t.Fatalf("len=%d dropped=%d", l.Len(), l.Dropped())
	}
	s := &recSink{}
	_ = l.Drain(s)
	if s.lines[0] != "d" {
		t.Fatalf("oldest kept=%q", s.lines[0])
	}
}

func TestTruncatesToLineMax(t *testing.T) {
	var l Log
	l.Push(strings.Repeat("x", 400))
	s := &recSink{}
	_ = l.Drain(s)
	if len(s.lines[0]) != LineMax {
		t.Fatalf("len=%d", len(s.lines[0]))
	}
}

func TestPushDuringDelivery(t *testing.T) {
	var l Log
	l.Push("first")
	s := &recSink{}
	pushed := false
	s.onDeliver = func() {
		if !pushed {
			pushed = true
			l.Push("late")
		}
	}
	if err := l.Drain(s); err != nil {
		t.Fatal(err)
	}
	if strings.Join(s.lines, ",") != "first,late" {
		t.Fatalf("lines=%v", s.lines)
	}
}

func TestPanicDrain(t *testing.T) {
	var l Log
	if err := l.PanicDrain(); !errors.Is(err, ErrNoSink) {
		t.Fatalf("err=%v", err)
	}
	s := &recSink{}
	l.Install(s)
	l.Push("fault")
	if err := l.PanicDrain(); err != nil {
		t.Fatal(err)
	}
	if s.consumed != 1 || len(s.lines) != 1 {
		t.Fatalf("consumed=%d lines=%v", s.consumed, s.lines)
	}
}

func TestHandlerForwardsWarnings(t *testing.T) {
	var l Log
	var console bytes.Buffer
	log := slog.New(NewHandler(&console, &l, nil))

	log.Info("loop:cycle", "n", 3)
	log.Warn("note:send-failed", "offset", 8192, "err", "timeout")
	log.With("tries", 4).Error("imu:reset")

	if !strings.Contains(console.String(), "loop:cycle") {
		t.Fatalf("console=%q", console.String())
	}
	s := &recSink{}
	_ = l.Drain(s)
	if len(s.lines) != 2 {
		t.Fatalf("forwarded=%v", s.lines)
	}
	if s.lines[0] != "WARN note:send-failed offset=8192 err=timeout" {
		t.Fatalf("line=%q", s.lines[0])
	}
	if s.lines[1] != "ERROR imu:reset tries=4" {
		t.Fatalf("line=%q", s.lines[1])
	}
}
