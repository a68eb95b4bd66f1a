// Package notecard implements the Blues Notecard serial-over-I2C framing.
//
// Requests are newline-terminated JSON objects written in segments of at
// most SegmentMax bytes, each prefixed with its length. Responses are pulled
// by writing {0, n} and reading back {available, returned, data...} until a
// newline arrives with nothing left pending. Every wait is bounded by
// Config.Polls.
//
// The driver moves bytes only; request construction and response parsing
// live with the caller.
package notecard

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// Address is the default Notecard I2C address.
const Address = 0x17

// SegmentMax is the largest payload of one I2C write or read.
const SegmentMax = 250

// ResponseMax bounds a single response line.
const ResponseMax = 1024

// Errors returned by the driver.
var (
	ErrTimeout  = errors.New("notecard: response timeout")
	ErrProtocol = errors.New("notecard: protocol error")
	ErrOverflow = errors.New("notecard: response too long")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x17 if zero.
	Address uint16
	// Polls bounds the number of read queries per response. Default 1000.
	Polls int
	// PollInterval is slept when the card has nothing pending. Default 5 ms.
	PollInterval time.Duration
	// SegmentDelay is slept between written segments. Default 2 ms.
	SegmentDelay time.Duration
	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

var newline = [1]byte{'\n'}

// Card is a Notecard on an I2C bus. It is not safe for concurrent use.
type Card struct {
	bus     drivers.I2C
	Address uint16

	cfg  Config
	w    [1 + SegmentMax]byte
	r    [2 + SegmentMax]byte
	resp [ResponseMax]byte
}

// New creates a Card with default configuration. The I2C bus must already
// be configured.
func New(bus drivers.I2C) *Card {
	c := &Card{bus: bus}
	c.Configure(Config{})
	return c
}

// Configure applies cfg, filling defaults for zero fields.
func (c *Card) Configure(cfg Config) {
	if cfg.Address == 0 {
		cfg.Address = Address
	}
	if cfg.Polls <= 0 {
		cfg.Polls = 1000
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	if cfg.SegmentDelay <= 0 {
		cfg.SegmentDelay = 2 * time.Millisecond
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	c.Address = cfg.Address
	c.cfg = cfg
}

// Transaction writes req (newline appended when missing) and returns the
// response line without its newline. The result aliases an internal buffer
// valid until the next call.
func (c *Card) Transaction(req []byte) ([]byte, error) {
	if err := c.Write(req); err != nil {
		return nil, err
	}
	return c.readLine()
}

// Write sends req without waiting for a response. Use for commands the card
// does not answer, or follow with ConsumeResponse.
func (c *Card) Write(req []byte) error {
	terminated := len(req) > 0 && req[len(req)-1] == '\n'
	for len(req) > 0 {
		n := len(req)
		if n > SegmentMax {
			n = SegmentMax
		}
		if err := c.writeSegment(req[:n]); err != nil {
			return err
		}
		req = req[n:]
		if len(req) > 0 {
			c.cfg.Sleep(c.cfg.SegmentDelay)
		}
	}
	if terminated {
		return nil
	}
	return c.writeSegment(newline[:])
}

// ConsumeResponse reads and discards anything the card has pending, such as
// the answer to a request interrupted by a reset. It returns nil when the
// card reports nothing left.
func (c *Card) ConsumeResponse() error {
	for polls := 0; polls < c.cfg.Polls; polls++ {
		avail, _, err := c.query(0)
		if err != nil {
			return err
		}
		if avail == 0 {
			return nil
		}
		for avail > 0 {
			want := avail
			if want > SegmentMax {
				want = SegmentMax
			}
			if avail, _, err = c.query(want); err != nil {
				return err
			}
		}
	}
	return ErrTimeout
}

// Reset resynchronises the framing by sending a bare newline and discarding
// the reply.
func (c *Card) Reset() error {
	if err := c.writeSegment(newline[:]); err != nil {
		return err
	}
	c.cfg.Sleep(c.cfg.PollInterval)
	return c.ConsumeResponse()
}

func (c *Card) writeSegment(b []byte) error {
	c.w[0] = byte(len(b))
	copy(c.w[1:], b)
	return c.bus.Tx(c.Address, c.w[:1+len(b)], nil)
}

// query asks for up to want bytes and returns the card's remaining count
// and the bytes actually returned (aliasing c.r).
func (c *Card) query(want int) (avail int, data []byte, err error) {
	c.w[0] = 0
	c.w[1] = byte(want)
	if err := c.bus.Tx(c.Address, c.w[:2], nil); err != nil {
		return 0, nil, err
	}
	if err := c.bus.Tx(c.Address, nil, c.r[:2+want]); err != nil {
		return 0, nil, err
	}
	avail, got := int(c.r[0]), int(c.r[1])
	if got > want {
		return 0, nil, ErrProtocol
	}
	return avail, c.r[2 : 2+got], nil
}

func (c *Card) readLine() ([]byte, error) {
	n := 0
	overflow := false
	var last byte
	want := 0
	for polls := 0; polls < c.cfg.Polls; polls++ {
		avail, data, err := c.query(want)
		if err != nil {
			return nil, err
		}
		for _, b := range data {
			last = b
			if n < len(c.resp) {
				c.resp[n] = b
				n++
			} else {
				overflow = true
			}
		}
		if avail == 0 && last == '\n' {
			if overflow {
				return nil, ErrOverflow
			}
			return c.resp[:n-1], nil
		}
		if avail == 0 {
			want = 0
			c.cfg.Sleep(c.cfg.PollInterval)
			continue
		}
		want = avail
		if want > SegmentMax {
			want = SegmentMax
		}
	}
	return nil, ErrTimeout
}
