package diag

import (
	"context"
	"io"
	"log/slog"
	"strconv"

	"sfy-go/x/conv"
)

// Handler is a slog.Handler that writes every record to the console and
// forwards records at or above Forward into a Log for uplink delivery.
type Handler struct {
	text    slog.Handler
	log     *Log
	forward slog.Leveler
	attrs   []slog.Attr
	group   string
}

// HandlerOptions configures NewHandler.
type HandlerOptions struct {
	// Level is the console threshold. Default Info.
	Level slog.Leveler
	// Forward is the uplink threshold. Default Warn.
	Forward slog.Leveler
}

// NewHandler returns a handler writing text to w and forwarding to log.
func NewHandler(w io.Writer, log *Log, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	fwd := opts.Forward
	if fwd == nil {
		fwd = slog.LevelWarn
	}
	return &Handler{
		text:    slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level}),
		log:     log,
		forward: fwd,
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.text.Enabled(ctx, level) || level >= h.forward.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.text.Enabled(ctx, r.Level) {
		err = h.text.Handle(ctx, r)
	}
	if r.Level >= h.forward.Level() && h.log != nil {
		var buf [LineMax]byte
		h.log.PushBytes(h.line(buf[:0], r))
	}
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := *h
	n.text = h.text.WithAttrs(attrs)
	n.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &n
}

func (h *Handler) WithGroup(name string) slog.Handler {
	n := *h
	n.text = h.text.WithGroup(name)
	if h.group != "" {
		n.group = h.group + "." + name
	} else {
		n.group = name
	}
	return &n
}

// line renders "LEVEL group:msg k=v ..." truncated to LineMax.
func (h *Handler) line(dst []byte, r slog.Record) []byte {
	dst = conv.AppendTrunc(dst, r.Level.String(), LineMax)
	dst = conv.AppendTrunc(dst, " ", LineMax)
	if h.group != "" {
		dst = conv.AppendTrunc(dst, h.group, LineMax)
		dst = conv.AppendTrunc(dst, ":", LineMax)
	}
	dst = conv.AppendTrunc(dst, r.Message, LineMax)
	add := func(a slog.Attr) bool {
		if len(dst) >= LineMax {
			return false
		}
		dst = conv.AppendTrunc(dst, " ", LineMax)
		dst = conv.AppendTrunc(dst, a.Key, LineMax)
		dst = conv.AppendTrunc(dst, "=", LineMax)
		dst = appendValue(dst, a.Value)
		return true
	}
	for _, a := range h.attrs {
		if !add(a) {
			return dst
		}
	}
	r.Attrs(add)
	return dst
}

func appendValue(dst []byte, v slog.Value) []byte {
	var tmp [32]byte
	var s []byte
	switch v.Kind() {
	case slog.KindString:
		return conv.AppendTrunc(dst, v.String(), LineMax)
	case slog.KindInt64:
		s = conv.AppendInt(tmp[:0], v.Int64())
	case slog.KindUint64:
		s = conv.AppendUint(tmp[:0], v.Uint64())
	case slog.KindFloat64:
		s = strconv.AppendFloat(tmp[:0], v.Float64(), 'g', 6, 64)
	case slog.KindBool:
		s = strconv.AppendBool(tmp[:0], v.Bool())
	default:
		return conv.AppendTrunc(dst, v.String(), LineMax)
	}
	return conv.AppendTrunc(dst, string(s), LineMax)
}
