package storage

import (
	"os"

	"tinygo.org/x/tinyfs"
)

// fileOpener is the part of tinyfs.Filesystem the adapter needs.
type fileOpener interface {
	OpenFile(path string, flags int) (tinyfs.File, error)
}

// FS adapts a mounted tinyfs filesystem (FAT on the SD card) to Controller.
// Only the root directory is exposed.
type FS struct {
	fs       fileOpener
	notExist func(error) bool
	files    map[File]tinyfs.File
	next     File
	dirs     int
}

// NewFS wraps a mounted filesystem. notExist reports whether an OpenFile
// error means the file is missing; drivers do not share a sentinel.
func NewFS(fs fileOpener, notExist func(error) bool) *FS {
	return &FS{fs: fs, notExist: notExist, files: make(map[File]tinyfs.File)}
}

func (c *FS) OpenRootDir(*Volume) (Dir, error) {
	c.dirs++
	return Dir(c.dirs), nil
}

func (c *FS) OpenFileInDir(_ *Volume, _ Dir, name string, mode Mode) (File, error) {
	path := "/" + name
	if mode == ReadWriteAppend {
		// FAT has no append-without-create mode.
		if err := c.exists(path); err != nil {
			return 0, err
		}
	}
	f, err := c.fs.OpenFile(path, flags(mode))
	if err != nil {
		return 0, c.mapErr(err)
	}
	c.next++
	c.files[c.next] = f
	return c.next, nil
}

func (c *FS) exists(path string) error {
	f, err := c.fs.OpenFile(path, os.O_RDONLY)
	if err != nil {
		return c.mapErr(err)
	}
	return f.Close()
}

func (c *FS) mapErr(err error) error {
	if c.notExist != nil && c.notExist(err) {
		return ErrNotFound
	}
	return err
}

func (c *FS) Read(_ *Volume, f File, buf []byte) (int, error) {
	h, ok := c.files[f]
	if !ok {
		return 0, ErrClosed
	}
	return h.Read(buf)
}

func (c *FS) Write(_ *Volume, f File, buf []byte) (int, error) {
	h, ok := c.files[f]
	if !ok {
		return 0, ErrClosed
	}
	return h.Write(buf)
}

func (c *FS) CloseFile(_ *Volume, f File) error {
	h, ok := c.files[f]
	if !ok {
		return ErrClosed
	}
	delete(c.files, f)
	return h.Close()
}

func (c *FS) CloseDir(*Volume, Dir) {}

// flags returns only combinations the FAT driver recognises; anything else
// silently opens read-only there.
func flags(m Mode) int {
	switch m {
	case ReadWriteCreateOrTruncate:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case ReadWriteAppend, ReadWriteCreateOrAppend:
		return os.O_RDWR | os.O_CREATE | os.O_APPEND
	}
	return os.O_RDONLY
}
