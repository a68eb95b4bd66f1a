package axl

import (
	"encoding/base64"
	"encoding/binary"
	"errors"

	"github.com/x448/float16"
)

var (
	ErrTooLong = errors.New("axl: payload exceeds batch capacity")
	ErrOddLen  = errors.New("axl: payload is not a whole number of samples")
)

// Encoder holds the fixed scratch buffers for one batch encoding. Zero value
// is ready to use; it is not safe for concurrent use.
type Encoder struct {
	raw [RawN]byte
	out [OutN]byte
}

// Encode returns the base64 form of p's populated samples. The returned slice
// aliases the encoder's buffer and is valid until the next call. The result
// depends only on p.Data[:p.N] and never exceeds OutN bytes.
func (e *Encoder) Encode(p *Packet) []byte {
	n := Encode(p, &e.raw, &e.out)
	return e.out[:n]
}

// Encode writes the base64 form of p into out using raw as scratch and
// returns the number of bytes written.
func Encode(p *Packet, raw *[RawN]byte, out *[OutN]byte) int {
	vals := p.Values()
	for i, v := range vals {
		binary.LittleEndian.PutUint16(raw[2*i:], v.Bits())
	}
	src := raw[:2*len(vals)]
	base64.StdEncoding.Encode(out[:], src)
	return base64.StdEncoding.EncodedLen(len(src))
}

// Decode reverses Encode into dst.Data and dst.N. Timestamp and position are
// not carried in the payload and are left untouched.
func Decode(b64 []byte, dst *Packet) error {
	if base64.StdEncoding.DecodedLen(len(b64)) > RawN+2 {
		return ErrTooLong
	}
	var raw [RawN + 2]byte
	n, err := base64.StdEncoding.Decode(raw[:], b64)
	if err != nil {
		return err
	}
	if n > RawN {
		return ErrTooLong
	}
	if n%2 != 0 {
		return ErrOddLen
	}
	dst.N = n / 2
	for i := 0; i < dst.N; i++ {
		dst.Data[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return nil
}

// Chunks calls fn for each ChunkSize fragment of payload in order, stopping
// at the first error. It returns the offset reached: len(payload) when every
// fragment was accepted, otherwise the offset of the rejected fragment.
func Chunks(payload []byte, ts uint32, fn func(m Meta, frag []byte) error) (int, error) {
	off := 0
	for off < len(payload) {
		end := off + ChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		if err := fn(Meta{Timestamp: ts, Offset: uint32(off)}, payload[off:end]); err != nil {
			return off, err
		}
		off = end
	}
	return off, nil
}
