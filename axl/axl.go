// Package axl defines the acceleration batch handed from the IMU interrupt
// to the uplink, and its transport encoding.
//
// A batch holds AxlSz half-precision values (interleaved x, y, z in m/s²).
// On the wire the values are little-endian IEEE-754 binary16 words, base64
// encoded, and split into ChunkSize fragments each tagged with Meta.
package axl

import (
	"github.com/x448/float16"
)

const (
	// AxlSz is the number of scalar values in a full batch (1024 x,y,z triplets).
	AxlSz = 3 * 1024

	// RawN is the byte length of the binary sample payload.
	RawN = AxlSz * 2

	// OutN bounds the base64 form of a batch: ceil(RawN/3)*4 plus slack for the
	// modem's payload accounting.
	OutN = (RawN+2)/3*4 + 4

	// ChunkSize is the largest payload fragment carried by one note.
	ChunkSize = 8 * 1024

	// NoteFile is the outbound notefile every fragment is appended to.
	NoteFile = "axl.qo"
)

// Meta is the per-fragment header. Timestamp is Unix seconds of the first
// sample of the batch; Offset is the fragment's byte offset in the base64
// payload.
type Meta struct {
	Timestamp uint32
	Offset    uint32
}

// Packet is one batch. It is moved by value through the acquisition queue.
type Packet struct {
	Timestamp int64 // ms since epoch of the first sample
	Lon, Lat  float64
	N         int
	Data      [AxlSz]float16.Float16
}

// Reset empties p and stamps it for a new batch.
func (p *Packet) Reset(timestampMs int64, lon, lat float64) {
	p.Timestamp = timestampMs
	p.Lon, p.Lat = lon, lat
	p.N = 0
}

// Push appends one x,y,z triplet. It returns false once the batch is full.
func (p *Packet) Push(x, y, z float32) bool {
	if p.N+3 > AxlSz {
		return false
	}
	p.Data[p.N] = float16.Fromfloat32(x)
	p.Data[p.N+1] = float16.Fromfloat32(y)
	p.Data[p.N+2] = float16.Fromfloat32(z)
	p.N += 3
	return true
}

// Full reports whether no further triplet fits.
func (p *Packet) Full() bool { return p.N+3 > AxlSz }

// Values returns the populated part of the sample buffer.
func (p *Packet) Values() []float16.Float16 { return p.Data[:p.N] }

// Seconds is the Timestamp truncated to the Unix seconds carried in Meta.
func (p *Packet) Seconds() uint32 {
	if p.Timestamp <= 0 {
		return 0
	}
	return uint32(p.Timestamp / 1000)
}
