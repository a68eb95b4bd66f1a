package note

import (
	"strconv"

	"github.com/andreyvit/tinyjson"

	"sfy-go/axl"
	"sfy-go/x/conv"
)

// reqMax bounds one encoded request: the largest is note.add carrying a full
// payload chunk.
const reqMax = axl.ChunkSize + 256

// request is an append-only JSON object writer over a fixed buffer.
type request struct {
	buf   [reqMax]byte
	b     []byte
	depth int
	empty bool // no member written at the current depth yet
}

// begin starts {"req":name.
func (r *request) begin(name string) *request {
	r.b = append(r.buf[:0], '{')
	r.depth = 1
	r.empty = true
	return r.Str("req", name)
}

func (r *request) key(k string) {
	if !r.empty {
		r.b = append(r.b, ',')
	}
	r.empty = false
	r.b = appendString(r.b, k)
	r.b = append(r.b, ':')
}

func (r *request) Str(k, v string) *request {
	r.key(k)
	r.b = appendString(r.b, v)
	return r
}

// Raw writes v as a string without escaping; v must be JSON-safe (base64).
func (r *request) Raw(k string, v []byte) *request {
	r.key(k)
	r.b = append(r.b, '"')
	r.b = append(r.b, v...)
	r.b = append(r.b, '"')
	return r
}

func (r *request) Int(k string, v int64) *request {
	r.key(k)
	r.b = conv.AppendInt(r.b, v)
	return r
}

func (r *request) Uint(k string, v uint64) *request {
	r.key(k)
	r.b = conv.AppendUint(r.b, v)
	return r
}

func (r *request) Bool(k string, v bool) *request {
	r.key(k)
	r.b = strconv.AppendBool(r.b, v)
	return r
}

// Obj opens a nested object under k; close it with End.
func (r *request) Obj(k string) *request {
	r.key(k)
	r.b = append(r.b, '{')
	r.depth++
	r.empty = true
	return r
}

func (r *request) End() *request {
	r.b = append(r.b, '}')
	r.depth--
	r.empty = false
	return r
}

// bytes closes every open object and returns the request line.
func (r *request) bytes() []byte {
	for r.depth > 0 {
		r.End()
	}
	return append(r.b, '\n')
}

func appendString(dst []byte, s string) []byte {
	const hex = "0123456789abcdef"
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			dst = append(dst, '\\', c)
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xF])
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}

// reply is a decoded response object.
type reply map[string]any

// parseReply decodes one response line. tinyjson panics on malformed input;
// that is reported as ErrBadReply.
func parseReply(b []byte) (m reply, err error) {
	defer func() {
		if recover() != nil {
			m, err = nil, ErrBadReply
		}
	}()
	if len(b) == 0 {
		return reply{}, nil
	}
	r := tinyjson.Raw(b)
	val := r.Value()
	r.EnsureEOF()
	obj, ok := val.(map[string]any)
	if !ok {
		return nil, ErrBadReply
	}
	return reply(obj), nil
}

func (m reply) str(k string) (string, bool) {
	s, ok := m[k].(string)
	return s, ok
}

func (m reply) num(k string) (float64, bool) {
	f, ok := m[k].(float64)
	return f, ok
}

func (m reply) flag(k string) bool {
	b, _ := m[k].(bool)
	return b
}

func (m reply) has(k string) bool {
	_, ok := m[k]
	return ok
}
