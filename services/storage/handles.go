// Package storage provides scoped directory and file handles over the SD
// card controller. A handle borrows the controller and volume exclusively and
// releases the underlying resource exactly once, whichever way its scope
// ends. Close is idempotent, so an explicit Close followed by a deferred one
// is safe:
//
//	d, err := storage.OpenRoot(ctrl, vol)
//	if err != nil { return err }
//	defer d.Close()
//	f, err := d.OpenFile("AXL.LOG", storage.ReadWriteCreateOrAppend)
//	if err != nil { return err }
//	defer f.Close()
package storage

import (
	"errors"
)

var (
	ErrBusy     = errors.New("storage: volume or directory already borrowed")
	ErrClosed   = errors.New("storage: handle closed")
	ErrNotFound = errors.New("storage: file not found")
)

// Mode selects how a file is opened.
type Mode uint8

const (
	ReadOnly Mode = iota
	ReadWriteAppend
	ReadWriteCreateOrTruncate
	ReadWriteCreateOrAppend
)

// Dir and File are raw controller tokens.
type (
	Dir  uint32
	File uint32
)

// Volume identifies a mounted partition. Its borrow state lives here so at
// most one DirHandle can hold it.
type Volume struct {
	Index    int
	borrowed bool
}

// Controller is the block-device file API the handles wrap. Raw tokens are
// only valid until closed and must be closed exactly once.
type Controller interface {
	OpenRootDir(v *Volume) (Dir, error)
	OpenFileInDir(v *Volume, d Dir, name string, mode Mode) (File, error)
	Read(v *Volume, f File, buf []byte) (int, error)
	Write(v *Volume, f File, buf []byte) (int, error)
	CloseFile(v *Volume, f File) error
	CloseDir(v *Volume, d Dir)
}

// DirHandle is an open directory. It lends itself to one FileHandle at a
// time.
type DirHandle struct {
	ctrl Controller
	vol  *Volume
	dir  Dir
	open bool
	file *FileHandle // lent file, if any
}

// OpenRoot borrows vol and opens its root directory.
func OpenRoot(ctrl Controller, vol *Volume) (*DirHandle, error) {
	if vol.borrowed {
		return nil, ErrBusy
	}
	dir, err := ctrl.OpenRootDir(vol)
	if err != nil {
		return nil, err
	}
	vol.borrowed = true
	return &DirHandle{ctrl: ctrl, vol: vol, dir: dir, open: true}, nil
}

// OpenFile opens name in the directory.
func (d *DirHandle) OpenFile(name string, mode Mode) (*FileHandle, error) {
	if !d.open {
		return nil, ErrClosed
	}
	if d.file != nil {
		return nil, ErrBusy
	}
	f, err := d.ctrl.OpenFileInDir(d.vol, d.dir, name, mode)
	if err != nil {
		return nil, err
	}
	d.file = &FileHandle{dir: d, file: f, open: true}
	return d.file, nil
}

// Close closes any lent file, then the directory, and returns the volume.
// Closing a closed handle does nothing.
func (d *DirHandle) Close() error {
	if !d.open {
		return nil
	}
	var err error
	if d.file != nil {
		err = d.file.Close()
	}
	d.open = false
	d.ctrl.CloseDir(d.vol, d.dir)
	d.vol.borrowed = false
	return err
}

// FileHandle is an open file borrowed from a DirHandle.
type FileHandle struct {
	dir  *DirHandle
	file File
	open bool
}

func (f *FileHandle) Read(buf []byte) (int, error) {
	if !f.open {
		return 0, ErrClosed
	}
	return f.dir.ctrl.Read(f.dir.vol, f.file, buf)
}

func (f *FileHandle) Write(buf []byte) (int, error) {
	if !f.open {
		return 0, ErrClosed
	}
	return f.dir.ctrl.Write(f.dir.vol, f.file, buf)
}

// Close releases the file. Closing a closed handle does nothing.
func (f *FileHandle) Close() error {
	if !f.open {
		return nil
	}
	f.open = false
	f.dir.file = nil
	return f.dir.ctrl.CloseFile(f.dir.vol, f.file)
}

// WithFile opens name in vol's root for the duration of fn. Both handles are
// closed on every exit path; a close error is reported only when fn
// succeeded.
func WithFile(ctrl Controller, vol *Volume, name string, mode Mode, fn func(f *FileHandle) error) (err error) {
	d, err := OpenRoot(ctrl, vol)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}()
	f, err := d.OpenFile(name, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}
