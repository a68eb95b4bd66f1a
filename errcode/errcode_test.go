package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOfCodesAndWrappers(t *testing.T) {
	if got := Of(nil); got != OK {
		t.Fatalf("nil: got %q", got)
	}
	if got := Of(Timeout); got != Timeout {
		t.Fatalf("bare code: got %q", got)
	}
	e := Wrap(BusError, "imu:fifo", errors.New("nak"))
	if got := Of(e); got != BusError {
		t.Fatalf("wrapped: got %q", got)
	}
	outer := fmt.Errorf("cycle: %w", e)
	if got := Of(outer); got != BusError {
		t.Fatalf("fmt-wrapped: got %q", got)
	}
	if got := Of(errors.New("x")); got != Error {
		t.Fatalf("plain: got %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(Transport, "note:add", nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
}

func TestEMessage(t *testing.T) {
	e := &E{C: Transport, Op: "note.add", Msg: "chunk 2", Err: errors.New("i2c")}
	want := "note.add: transport: chunk 2: i2c"
	if e.Error() != want {
		t.Fatalf("got %q want %q", e.Error(), want)
	}
}
