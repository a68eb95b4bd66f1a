package notecard

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// fakeCard models the Notecard side of the I2C framing.
type fakeCard struct {
	segments int
	line     []byte   // request being assembled
	requests [][]byte // completed requests
	pending  []byte   // response bytes not yet read
	want     int      // size of the outstanding read query
	reply    func(req []byte) []byte
	silent   bool
}

func (f *fakeCard) Tx(addr uint16, w, r []byte) error {
	if addr != Address {
		return errors.New("nak")
	}
	if len(w) > 0 {
		if w[0] == 0 && len(w) == 2 {
			f.want = int(w[1])
			return nil
		}
		f.segments++
		n := int(w[0])
		if n != len(w)-1 || n > SegmentMax {
			return errors.New("bad segment")
		}
		for _, b := range w[1:] {
			if b == '\n' {
				req := append([]byte(nil), f.line...)
				f.requests = append(f.requests, req)
				f.line = f.line[:0]
				if !f.silent && f.reply != nil {
					f.pending = append(f.pending, f.reply(req)...)
					f.pending = append(f.pending, '\n')
				}
				continue
			}
			f.line = append(f.line, b)
		}
		return nil
	}
	n := f.want
	if n > len(f.pending) {
		n = len(f.pending)
	}
	copy(r[2:], f.pending[:n])
	f.pending = f.pending[n:]
	r[0] = byte(len(f.pending))
	if len(f.pending) > 255 {
		r[0] = 255
	}
	r[1] = byte(n)
	return nil
}

func newTestCard(f *fakeCard) *Card {
	c := New(f)
	c.Configure(Config{Polls: 50, Sleep: func(time.Duration) {}})
	return c
}

func TestTransactionRoundTrip(t *testing.T) {
	f := &fakeCard{reply: func(req []byte) []byte { return []byte(`{"ok":true}`) }}
	c := newTestCard(f)
	resp, err := c.Transaction([]byte(`{"req":"card.status"}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != `{"ok":true}` {
		t.Fatalf("resp=%q", resp)
	}
	if len(f.requests) != 1 || string(f.requests[0]) != `{"req":"card.status"}` {
		t.Fatalf("requests=%q", f.requests)
	}
}

func TestLongRequestIsSegmented(t *testing.T) {
	f := &fakeCard{reply: func([]byte) []byte { return []byte(`{}`) }}
	c := newTestCard(f)
	req := append([]byte(`{"payload":"`), bytes.Repeat([]byte("A"), 1000)...)
	req = append(req, `"}`+"\n"...)
	if _, err := c.Transaction(req); err != nil {
		t.Fatal(err)
	}
	if f.segments != 5 {
		t.Fatalf("segments=%d want 5", f.segments)
	}
	if !bytes.Equal(f.requests[0], req[:len(req)-1]) {
		t.Fatal("request corrupted by segmentation")
	}
}

func TestLongResponseIsReassembled(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 600)
	f := &fakeCard{reply: func([]byte) []byte { return body }}
	c := newTestCard(f)
	resp, err := c.Transaction([]byte(`{"req":"card.location"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(resp, body) {
		t.Fatalf("len=%d want %d", len(resp), len(body))
	}
}

func TestSilentCardTimesOut(t *testing.T) {
	f := &fakeCard{silent: true}
	c := newTestCard(f)
	if _, err := c.Transaction([]byte(`{"req":"hub.sync"}`)); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err=%v", err)
	}
}

func TestOverflow(t *testing.T) {
	f := &fakeCard{reply: func([]byte) []byte { return bytes.Repeat([]byte("y"), ResponseMax+10) }}
	c := newTestCard(f)
	if _, err := c.Transaction([]byte(`{}`)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("err=%v", err)
	}
	if len(f.pending) != 0 {
		t.Fatal("overflowing response not drained")
	}
}

func TestConsumeResponseDiscardsPending(t *testing.T) {
	f := &fakeCard{reply: func([]byte) []byte { return []byte(`{"stale":1}`) }}
	c := newTestCard(f)
	if err := c.Write([]byte(`{"req":"card.restart"}`)); err != nil {
		t.Fatal(err)
	}
	if err := c.ConsumeResponse(); err != nil {
		t.Fatal(err)
	}
	if len(f.pending) != 0 {
		t.Fatalf("pending=%q", f.pending)
	}
}
