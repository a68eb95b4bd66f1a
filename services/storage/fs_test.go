package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"tinygo.org/x/tinyfs"

	"sfy-go/axl"
)

// errNoFile mirrors the FAT driver's missing-file result, which is not
// os.ErrNotExist.
var errNoFile = errors.New("(4) Could not find the file")

func isNoFile(err error) bool { return errors.Is(err, errNoFile) }

// fatFlags are the OpenFile combinations the FAT driver recognises.
var fatFlags = map[int]bool{
	os.O_RDONLY:                             true,
	os.O_WRONLY | os.O_CREATE | os.O_TRUNC:  true,
	os.O_WRONLY | os.O_CREATE | os.O_APPEND: true,
	os.O_RDWR:                               true,
	os.O_RDWR | os.O_CREATE | os.O_TRUNC:    true,
	os.O_RDWR | os.O_CREATE | os.O_APPEND:   true,
}

// memFS stands in for a mounted FAT volume.
type memFS struct {
	data   map[string][]byte
	flags  []int
	closed int
}

type memFile struct {
	tinyfs.File // unimplemented methods panic
	fs          *memFS
	path        string
	pos         int
}

func (m *memFS) OpenFile(path string, flags int) (tinyfs.File, error) {
	m.flags = append(m.flags, flags)
	if !fatFlags[flags] {
		return nil, fmt.Errorf("unsupported flags %#x", flags)
	}
	_, ok := m.data[path]
	if !ok && flags&os.O_CREATE == 0 {
		return nil, errNoFile
	}
	if !ok || flags&os.O_TRUNC != 0 {
		m.data[path] = nil
	}
	return &memFile{fs: m, path: path}, nil
}

func (f *memFile) Read(b []byte) (int, error) {
	d := f.fs.data[f.path]
	if f.pos >= len(d) {
		return 0, io.EOF
	}
	n := copy(b, d[f.pos:])
	f.pos += n
	return n, nil
}

func (f *memFile) Write(b []byte) (int, error) {
	f.fs.data[f.path] = append(f.fs.data[f.path], b...)
	return len(b), nil
}

func (f *memFile) Close() error {
	f.fs.closed++
	return nil
}

func TestFSBootAndJournal(t *testing.T) {
	mem := &memFS{data: map[string][]byte{}}
	fs := NewFS(mem, isNoFile)
	vol := &Volume{}

	rec, err := Boot(fs, vol, "0.4.1")
	require.NoError(t, err)
	require.Equal(t, uint32(1), rec.Count)
	rec, err = Boot(fs, vol, "0.4.2")
	require.NoError(t, err)
	require.Equal(t, BootRecord{Count: 2, Version: "0.4.2"}, rec)

	j := NewJournal(fs, vol, nil)
	p := &axl.Packet{}
	p.Reset(1_700_000_000_000, 5.3, 60.4)
	j.Sent(p, 12)
	j.Sent(p, 16)

	recs, err := j.Records()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, 16, recs[1].Encoded)

	require.Contains(t, mem.data, "/"+JournalFile)
	require.Empty(t, fs.files, "every tinyfs file closed")
}

func TestFSMissingFileIsNotFound(t *testing.T) {
	fs := NewFS(&memFS{data: map[string][]byte{}}, isNoFile)
	err := WithFile(fs, &Volume{}, "NONE.TXT", ReadOnly, func(*FileHandle) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFSAppendRequiresExistingFile(t *testing.T) {
	mem := &memFS{data: map[string][]byte{}}
	fs := NewFS(mem, isNoFile)
	vol := &Volume{}

	err := WithFile(fs, vol, "LOG.TXT", ReadWriteAppend, func(*FileHandle) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)
	require.NotContains(t, mem.data, "/LOG.TXT", "append must not create")

	mem.data["/LOG.TXT"] = []byte("a")
	err = WithFile(fs, vol, "LOG.TXT", ReadWriteAppend, func(f *FileHandle) error {
		_, err := f.Write([]byte("b"))
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "ab", string(mem.data["/LOG.TXT"]))
	for _, fl := range mem.flags {
		require.True(t, fatFlags[fl], "flags %#x", fl)
	}
}
