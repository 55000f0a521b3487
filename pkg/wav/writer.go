// ABOUTME: Single-pass WAVE writer with seek-based back-patching
// ABOUTME: Writes to a hidden temp file and renames it into place on success
package wav

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/google/uuid"
)

var (
	// ErrIO matches every error returned by the writer
	ErrIO = errors.New("wav: i/o failure")

	// ErrTooLarge is returned when the data would overflow the 32-bit size fields
	ErrTooLarge = errors.New("wav: data exceeds 4 GiB container limit")

	// ErrClosed is returned when writing to a finished writer
	ErrClosed = errors.New("wav: writer closed")
)

// Error records the step that failed
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("wav: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every writer error match ErrIO
func (e *Error) Is(target error) bool { return target == ErrIO }

// file is the subset of *os.File the writer needs
type file interface {
	io.Writer
	io.Seeker
	Sync() error
	Close() error
	Stat() (os.FileInfo, error)
}

// createTemp opens the temp file; replaced in tests to inject failures
var createTemp = func(path string) (file, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
}

// Writer streams sample bytes into a WAVE file whose size fields are
// patched when the writer is closed. Nothing appears at the destination
// path until Close succeeds.
type Writer struct {
	path    string
	tmpPath string
	format  audio.Format

	f   file
	buf *bufio.Writer

	riffSizeAt int64
	dataSizeAt int64
	dataStart  int64
	written    int64

	done bool
}

// Create starts a new file for format at path
func Create(path string, format audio.Format) (*Writer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()))

	f, err := createTemp(tmpPath)
	if err != nil {
		return nil, &Error{Op: "create", Path: tmpPath, Err: err}
	}

	w := &Writer{
		path:    path,
		tmpPath: tmpPath,
		format:  format,
		f:       f,
		buf:     bufio.NewWriterSize(f, 64*1024),
	}

	if err := w.writeHeader(); err != nil {
		w.Abort()
		return nil, err
	}

	return w, nil
}

// Finalize writes samples as one complete file at path.
// The samples must be in the on-disk encoding of format.
func Finalize(format audio.Format, samples []byte, path string) error {
	w, err := Create(path, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(samples); err != nil {
		w.Abort()
		return err
	}
	return w.Close()
}

// writeHeader emits the fixed header with placeholder sizes and records
// where the placeholders and the data start.
func (w *Writer) writeHeader() error {
	h := NewHeader(w.format)
	if err := binary.Write(w.buf, binary.LittleEndian, &h); err != nil {
		return &Error{Op: "write header", Path: w.tmpPath, Err: err}
	}
	w.riffSizeAt = riffSizeOffset
	w.dataSizeAt = dataSizeOffset
	w.dataStart = HeaderSize
	return nil
}

// Write appends sample bytes in capture order
func (w *Writer) Write(p []byte) (int, error) {
	if w.done {
		return 0, &Error{Op: "write data", Path: w.path, Err: ErrClosed}
	}
	if w.written+int64(len(p)) > MaxDataSize {
		return 0, &Error{Op: "write data", Path: w.path, Err: ErrTooLarge}
	}
	n, err := w.buf.Write(p)
	w.written += int64(n)
	if err != nil {
		return n, &Error{Op: "write data", Path: w.tmpPath, Err: err}
	}
	return n, nil
}

// DataSize returns the number of sample bytes written so far
func (w *Writer) DataSize() int64 {
	return w.written
}

// Path returns the destination path
func (w *Writer) Path() string {
	return w.path
}

// SetPath changes the destination used by Close
func (w *Writer) SetPath(path string) {
	w.path = path
}

// Close pads, back-patches both size fields, syncs, and renames the temp
// file to the destination. On failure the temp file is removed.
func (w *Writer) Close() error {
	if w.done {
		return &Error{Op: "close", Path: w.path, Err: ErrClosed}
	}

	if err := w.finish(); err != nil {
		w.Abort()
		return err
	}

	w.done = true
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return &Error{Op: "rename", Path: w.path, Err: err}
	}
	syncDir(filepath.Dir(w.path))
	return nil
}

func (w *Writer) finish() error {
	end := w.dataStart + w.written
	endPadded := end
	if w.written%2 == 1 {
		if err := w.buf.WriteByte(0); err != nil {
			return &Error{Op: "write pad", Path: w.tmpPath, Err: err}
		}
		endPadded++
	}

	if err := w.buf.Flush(); err != nil {
		return &Error{Op: "flush", Path: w.tmpPath, Err: err}
	}

	if err := w.patch(w.dataSizeAt, uint32(end-w.dataStart)); err != nil {
		return err
	}
	if err := w.patch(w.riffSizeAt, uint32(endPadded-8)); err != nil {
		return err
	}

	info, err := w.f.Stat()
	if err != nil {
		return &Error{Op: "stat", Path: w.tmpPath, Err: err}
	}
	if info.Size() != endPadded {
		return &Error{Op: "verify", Path: w.tmpPath,
			Err: fmt.Errorf("file is %d bytes, expected %d", info.Size(), endPadded)}
	}

	if err := w.f.Sync(); err != nil {
		return &Error{Op: "sync", Path: w.tmpPath, Err: err}
	}
	if err := w.f.Close(); err != nil {
		return &Error{Op: "close", Path: w.tmpPath, Err: err}
	}
	return nil
}

// patch overwrites a 4-byte little-endian field in place
func (w *Writer) patch(offset int64, value uint32) error {
	if _, err := w.f.Seek(offset, io.SeekStart); err != nil {
		return &Error{Op: "seek", Path: w.tmpPath, Err: err}
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	if _, err := w.f.Write(b[:]); err != nil {
		return &Error{Op: "patch", Path: w.tmpPath, Err: err}
	}
	return nil
}

// Abort discards the temp file. It is safe to call after Close.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.f.Close()
	os.Remove(w.tmpPath)
}

// syncDir makes the rename durable where the platform allows fsync on a
// directory; failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
