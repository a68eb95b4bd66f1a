// Package note is the uplink client. A Notecarrier owns one Notecard session:
// it performs the session setup, uploads batches as chunked notes, drives
// hub syncs and carries diagnostic lines as hub logs.
package note

import (
	"errors"
	"strconv"
	"time"

	"sfy-go/axl"
	"sfy-go/errcode"
	"sfy-go/x/strx"
)

var (
	ErrBadReply = errors.New("note: malformed reply")
	ErrNoTime   = errors.New("note: card time not set")
)

// Transport carries one request line and returns the reply line.
// *notecard.Card satisfies it.
type Transport interface {
	Transaction(req []byte) ([]byte, error)
}

// Dequeuer is the consumer end of the acquisition queue.
type Dequeuer interface {
	DequeueInto(dst *axl.Packet) bool
}

// Options configure the session. Zero fields take defaults.
type Options struct {
	// Product is the notehub product UID. Default "no.met.gauteh:sfy".
	Product string
	// Serial is the device serial number. Default "cain".
	Serial string
	// LocationMode defaults to "periodic".
	LocationMode string
	// LocationPeriod defaults to 60 s.
	LocationPeriod time.Duration
	// SyncStoragePct triggers a sync from CheckAndSync when card storage use
	// reaches it. Default 75.
	SyncStoragePct float64
	// SyncInterval triggers a sync from CheckAndSync when this long has
	// passed since the last request. Default 20 min.
	SyncInterval time.Duration
	// Sleep is used between sync status polls. Default time.Sleep.
	Sleep func(time.Duration)
}

func (o *Options) defaults() {
	o.Product = strx.Coalesce(o.Product, "no.met.gauteh:sfy")
	o.Serial = strx.Coalesce(o.Serial, "cain")
	o.LocationMode = strx.Coalesce(o.LocationMode, "periodic")
	if o.LocationPeriod <= 0 {
		o.LocationPeriod = 60 * time.Second
	}
	if o.SyncStoragePct <= 0 {
		o.SyncStoragePct = 75
	}
	if o.SyncInterval <= 0 {
		o.SyncInterval = 20 * time.Minute
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
}

// Notecarrier is not safe for concurrent use; it belongs to the main loop.
type Notecarrier struct {
	t    Transport
	opts Options

	req request
	enc axl.Encoder
	pck axl.Packet // dequeue target

	lastSyncMs int64
	sent       uint32

	// OnSent, when set, observes every batch that was fully uploaded along
	// with its encoded length.
	OnSent func(p *axl.Packet, encoded int)
}

// New sets up the session: hub identity, location tracking and the batch
// template. Any failure is returned and no Notecarrier is produced.
func New(t Transport, opts Options) (*Notecarrier, error) {
	opts.defaults()
	n := &Notecarrier{t: t, opts: opts}

	if err := n.do(n.req.begin("hub.set").
		Str("product", opts.Product).
		Str("sn", opts.Serial)); err != nil {
		return nil, setupErr("hub.set", err)
	}
	if err := n.do(n.req.begin("card.location.mode").
		Str("mode", opts.LocationMode).
		Int("seconds", int64(opts.LocationPeriod/time.Second))); err != nil {
		return nil, setupErr("card.location.mode", err)
	}
	if err := n.do(n.req.begin("card.location.track").
		Bool("start", true).
		Bool("heartbeat", false).
		Bool("sync", true)); err != nil {
		return nil, setupErr("card.location.track", err)
	}
	if err := n.setupTemplates(); err != nil {
		return nil, setupErr("note.template", err)
	}
	return n, nil
}

// setupTemplates registers the fragment metadata shape: two unsigned 32-bit
// fields and the payload ceiling.
func (n *Notecarrier) setupTemplates() error {
	return n.do(n.req.begin("note.template").
		Str("file", axl.NoteFile).
		Obj("body").
		Int("timestamp", 14).
		Int("offset", 14).
		End().
		Int("length", axl.OutN))
}

func setupErr(op string, err error) error {
	return &errcode.E{C: errcode.Setup, Op: op, Err: err}
}

// do issues the request in r and discards the reply body.
func (n *Notecarrier) do(r *request) error {
	_, err := n.call(r)
	return err
}

// call issues the request in r and returns the decoded reply. A reply
// carrying "err" is returned as a Transport error.
func (n *Notecarrier) call(r *request) (reply, error) {
	resp, err := n.t.Transaction(r.bytes())
	if err != nil {
		return nil, errcode.Wrap(errcode.Transport, "notecard", err)
	}
	m, err := parseReply(resp)
	if err != nil {
		return nil, errcode.Wrap(errcode.Protocol, "notecard", err)
	}
	if msg, ok := m.str("err"); ok {
		return m, &errcode.E{C: errcode.Transport, Op: "notecard", Msg: msg}
	}
	return m, nil
}

// Send uploads p as consecutive ChunkSize notes and returns the number of
// payload bytes sent. On failure the remaining chunks are abandoned and a
// *SendError carrying the failed chunk's offset is returned.
func (n *Notecarrier) Send(p *axl.Packet) (int, error) {
	b64 := n.enc.Encode(p)
	off, err := axl.Chunks(b64, p.Seconds(), func(m axl.Meta, frag []byte) error {
		return n.do(n.req.begin("note.add").
			Str("file", axl.NoteFile).
			Obj("body").
			Uint("timestamp", uint64(m.Timestamp)).
			Uint("offset", uint64(m.Offset)).
			End().
			Raw("payload", frag))
	})
	if err != nil {
		return off, &SendError{Offset: off, Len: len(b64), Err: err}
	}
	n.sent++
	if n.OnSent != nil {
		n.OnSent(p, len(b64))
	}
	return off, nil
}

// SendError reports a partially uploaded batch.
type SendError struct {
	Offset int // offset of the chunk that failed
	Len    int // encoded payload length
	Err    error
}

func (e *SendError) Error() string {
	return "note: send failed at offset " + strconv.Itoa(e.Offset) + " of " + strconv.Itoa(e.Len) + ": " + e.Err.Error()
}
func (e *SendError) Unwrap() error { return e.Err }

// DrainQueue sends queued batches until the queue is empty and returns the
// number sent. The first failure stops the drain and is returned as a
// *DrainError; the failed batch and every batch before it have left the
// queue and are not retried.
func (n *Notecarrier) DrainQueue(q Dequeuer) (int, error) {
	sent := 0
	for q.DequeueInto(&n.pck) {
		if _, err := n.Send(&n.pck); err != nil {
			return sent, &DrainError{Index: sent, Timestamp: n.pck.Timestamp, Err: err}
		}
		sent++
	}
	return sent, nil
}

// DrainError identifies the batch that failed during DrainQueue.
type DrainError struct {
	Index     int   // zero-based position within this drain
	Timestamp int64 // batch timestamp (ms)
	Err       error
}

func (e *DrainError) Error() string {
	return "note: drain failed at batch " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}
func (e *DrainError) Unwrap() error { return e.Err }

// Log sends text as a hub log. It satisfies diag.Sink.
func (n *Notecarrier) Log(text []byte) error {
	return n.do(n.req.begin("hub.log").
		Str("text", string(text)).
		Bool("alert", false).
		Bool("sync", false))
}

// HubLog sends text as a hub log, optionally flagged and synced at once.
func (n *Notecarrier) HubLog(text string, alert, sync bool) error {
	return n.do(n.req.begin("hub.log").
		Str("text", text).
		Bool("alert", alert).
		Bool("sync", sync))
}

// CardRestart asks the card to reboot.
func (n *Notecarrier) CardRestart() error {
	return n.do(n.req.begin("card.restart"))
}

// ConsumeResponse abandons any reply in flight when the transport supports
// it.
func (n *Notecarrier) ConsumeResponse() error {
	type consumer interface{ ConsumeResponse() error }
	if c, ok := n.t.(consumer); ok {
		return c.ConsumeResponse()
	}
	return nil
}

// Sent counts batches fully uploaded by this session.
func (n *Notecarrier) Sent() uint32 { return n.sent }
