package storage

import (
	"errors"
	"io"
	"log/slog"

	"github.com/fxamacker/cbor/v2"

	"sfy-go/axl"
)

// File names on the card (8.3 for FAT).
const (
	JournalFile = "AXL.LOG"
	BootFile    = "BOOT.CBR"
)

// Record is the journal entry written for every uploaded batch. The sample
// buffer itself is never stored.
type Record struct {
	Timestamp int64   `cbor:"1,keyasint"`
	Lon       float64 `cbor:"2,keyasint"`
	Lat       float64 `cbor:"3,keyasint"`
	N         int     `cbor:"4,keyasint"`
	Encoded   int     `cbor:"5,keyasint"`
}

// Journal appends Records to JournalFile as a CBOR sequence.
type Journal struct {
	ctrl Controller
	vol  *Volume
	log  *slog.Logger
}

func NewJournal(ctrl Controller, vol *Volume, log *slog.Logger) *Journal {
	if log == nil {
		log = slog.Default()
	}
	return &Journal{ctrl: ctrl, vol: vol, log: log}
}

// Append writes one record.
func (j *Journal) Append(r Record) error {
	b, err := cbor.Marshal(r)
	if err != nil {
		return err
	}
	return WithFile(j.ctrl, j.vol, JournalFile, ReadWriteCreateOrAppend, func(f *FileHandle) error {
		_, err := f.Write(b)
		return err
	})
}

// Sent is a note.Notecarrier OnSent hook. Failures are logged and dropped:
// the journal is an aid, not part of the upload path.
func (j *Journal) Sent(p *axl.Packet, encoded int) {
	err := j.Append(Record{Timestamp: p.Timestamp, Lon: p.Lon, Lat: p.Lat, N: p.N, Encoded: encoded})
	if err != nil {
		j.log.Warn("storage:journal-failed", "err", err)
	}
}

// Records reads back the whole journal.
func (j *Journal) Records() ([]Record, error) {
	var out []Record
	err := WithFile(j.ctrl, j.vol, JournalFile, ReadOnly, func(f *FileHandle) error {
		dec := cbor.NewDecoder(f)
		for {
			var r Record
			if err := dec.Decode(&r); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			out = append(out, r)
		}
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return out, err
}

// BootRecord is persisted across restarts.
type BootRecord struct {
	Count   uint32 `cbor:"1,keyasint"`
	Version string `cbor:"2,keyasint"`
}

// Boot reads the previous boot record, increments the counter, stamps
// version and writes it back. A missing or unreadable record starts at zero.
func Boot(ctrl Controller, vol *Volume, version string) (BootRecord, error) {
	var rec BootRecord
	var raw [128]byte
	err := WithFile(ctrl, vol, BootFile, ReadOnly, func(f *FileHandle) error {
		n, err := io.ReadFull(f, raw[:])
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return err
		}
		if n == 0 {
			return nil
		}
		return cbor.Unmarshal(raw[:n], &rec)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		rec = BootRecord{}
	}
	rec.Count++
	rec.Version = version

	b, err := cbor.Marshal(rec)
	if err != nil {
		return rec, err
	}
	err = WithFile(ctrl, vol, BootFile, ReadWriteCreateOrTruncate, func(f *FileHandle) error {
		_, err := f.Write(b)
		return err
	})
	return rec, err
}
