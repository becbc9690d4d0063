// Package rotate implements the on-disk tail of the write chain: a Store
// wrapped around a file that cuts over to a fresh file once the current one
// crosses a size threshold, keeping exactly one prior segment around as
// path+".1".
package rotate

import (
	"io"
	"os"
	"time"

	"github.com/andrepuel/tapelog/codec"
	"github.com/andrepuel/tapelog/tape"
)

// Rotate is a tape.Machine that writes through to path, rotating to path+".1"
// once the current file exceeds maxLen bytes. A failed rotation leaves the
// machine silently inert (Handle becomes a no-op) rather than panicking the
// caller — matching the original sink's let-else-return shape. Write errors
// are swallowed by the underlying Store and leave the file in use.
type Rotate struct {
	path    string
	path1   string
	maxLen  int64
	file    *os.File
	store   *codec.Store
	sleep   func(time.Duration)
}

// New opens (or creates) path for appending and returns a Rotate that rolls
// over to path+".1" once it grows past maxLen bytes.
func New(path string, maxLen int64) (*Rotate, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Rotate{
		path:   path,
		path1:  path + ".1",
		maxLen: maxLen,
		file:   f,
		store:  codec.NewStore(f),
		sleep:  time.Sleep,
	}, nil
}

// NeedsRestart reports whether the caller should emit a Restart before the
// next instruction, performing the rotation itself as a side effect when the
// file has grown past maxLen. Any I/O error during the check or the rotation
// is treated as "no rotation needed" — the original's unwrap_or_default.
func (r *Rotate) NeedsRestart() bool {
	restart, err := r.doNeedsRestart()
	if err != nil {
		return false
	}
	return restart
}

func (r *Rotate) doNeedsRestart() (bool, error) {
	if r.file == nil {
		return false, io.ErrClosedPipe
	}

	pos, err := r.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}
	if pos <= r.maxLen {
		return false, nil
	}

	r.sleep(time.Second)
	r.file.Close()
	r.file = nil

	if err := os.Rename(r.path, r.path1); err != nil {
		return false, err
	}

	f, err := os.Create(r.path)
	if err != nil {
		return false, err
	}
	r.file = f
	r.store = codec.NewStore(f)
	return true, nil
}

// Handle writes instr through to the current file. A closed or absent file
// (rotation in progress, or a prior rotation failure) makes this a silent
// no-op rather than an error, matching the original sink.
func (r *Rotate) Handle(instr tape.Instruction) {
	if r.file == nil {
		return
	}
	r.store.Handle(instr)
}

// Close closes the underlying file. Safe to call once rotation is done with
// the machine.
func (r *Rotate) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
