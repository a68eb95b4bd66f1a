package heartbeat

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"sfy-go/services/diag"
)

type sink struct{ lines []string }

func (s *sink) Log(b []byte) error { s.lines = append(s.lines, string(b)); return nil }

func TestBeatIntervalAndLine(t *testing.T) {
	var d diag.Log
	c := Counters{Enqueued: 12, Lost: 1, Sent: 11, Resets: 2, Fixes: 3}
	s := New(time.Minute, func() Counters { return c }, &d, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if s.Beat(1_000) {
		t.Fatal("first call must only arm")
	}
	if s.Beat(30_000) {
		t.Fatal("reported inside the interval")
	}
	if !s.Beat(62_000) {
		t.Fatal("did not report after the interval")
	}

	var out sink
	if err := d.Drain(&out); err != nil {
		t.Fatal(err)
	}
	want := "heartbeat: enq=12 lost=1 sent=11 resets=2 fixes=3"
	if len(out.lines) != 1 || out.lines[0] != want {
		t.Fatalf("lines=%q", out.lines)
	}
}

func TestBeatWithoutDiag(t *testing.T) {
	s := New(0, func() Counters { return Counters{} }, nil, nil)
	s.Beat(0)
	if !s.Beat((10*time.Minute + time.Second).Milliseconds()) {
		t.Fatal("default interval not applied")
	}
}
