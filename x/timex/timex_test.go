package timex

import (
	"testing"
	"time"
)

func TestDue(t *testing.T) {
	if Due(1000, 0, time.Second) {
		t.Fatal("exactly one period must not be due")
	}
	if !Due(1001, 0, time.Second) {
		t.Fatal("past one period must be due")
	}
	if !Due(5, 10, time.Second) {
		t.Fatal("clock moved backwards must be due")
	}
}

func TestFifoCoverage(t *testing.T) {
	// 512 words at 208 Hz is about 2.46 s.
	got := FifoCoverage(512, 208)
	if got < 2450*time.Millisecond || got > 2470*time.Millisecond {
		t.Fatalf("coverage=%v", got)
	}
}
