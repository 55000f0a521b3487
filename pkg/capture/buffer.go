// ABOUTME: Bounded capture buffer shared between the audio callback and the writer
// ABOUTME: Appends whole blocks in order under a short-held mutex
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

var (
	// ErrPartialBlock is returned when a block is not a whole number of frames
	ErrPartialBlock = errors.New("capture: partial block")

	// ErrDrained is returned when using a buffer after Drain
	ErrDrained = errors.New("capture: buffer drained")

	// ErrCapacity is returned once the buffer limit has been reached.
	// Data appended before the limit is kept.
	ErrCapacity = errors.New("capture: buffer capacity exceeded")
)

// State is the lifecycle state of a Buffer
type State int

const (
	StateCapturing State = iota
	StateOverflowed
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateCapturing:
		return "capturing"
	case StateOverflowed:
		return "overflowed"
	case StateDrained:
		return "drained"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats is a snapshot of buffer counters
type Stats struct {
	// Bytes and Blocks count everything accepted, including taken data
	Bytes  int64
	Blocks int64

	// Discarded counts rejected blocks
	Discarded int64

	// Pending is the number of bytes currently held
	Pending int

	State State
}

// NoLimit disables the byte cap
const NoLimit int64 = -1

// Option configures a Buffer
type Option func(*Buffer)

// WithLimit caps the total number of bytes the buffer accepts. A limit of
// zero accepts nothing; NoLimit accepts everything.
func WithLimit(maxBytes int64) Option {
	return func(b *Buffer) {
		if maxBytes < 0 {
			maxBytes = NoLimit
		}
		b.limit = maxBytes
	}
}

// WithPrealloc reserves room for n bytes up front
func WithPrealloc(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.prealloc = n
		}
	}
}

// Buffer accumulates encoded sample bytes in capture order.
//
// Append is called from the audio callback goroutine; Take, Drain and
// Stats from any other goroutine. The lock is only held while copying.
type Buffer struct {
	format   audio.Format
	align    int
	limit    int64
	prealloc int

	mu        sync.Mutex
	data      []byte
	total     int64
	blocks    int64
	discarded int64
	state     State
}

// NewBuffer creates an empty buffer for format
func NewBuffer(format audio.Format, opts ...Option) (*Buffer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	b := &Buffer{
		format: format,
		align:  format.BlockAlign(),
		limit:  NoLimit,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.limit != NoLimit && int64(b.prealloc) > b.limit {
		b.prealloc = int(b.limit)
	}
	if b.prealloc > 0 {
		b.data = make([]byte, 0, b.prealloc)
	}
	return b, nil
}

// Format returns the encoding of the buffered bytes
func (b *Buffer) Format() audio.Format {
	return b.format
}

// Append copies one block onto the end of the buffer. The block is either
// appended whole or not at all.
func (b *Buffer) Append(p []byte) error {
	if len(p) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(p)%b.align != 0 {
		b.discarded++
		return fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrPartialBlock, len(p), b.align)
	}

	switch b.state {
	case StateDrained:
		b.discarded++
		return ErrDrained
	case StateOverflowed:
		b.discarded++
		return ErrCapacity
	}

	if b.limit != NoLimit && b.total+int64(len(p)) > b.limit {
		b.state = StateOverflowed
		b.discarded++
		return fmt.Errorf("%w: limit %d bytes", ErrCapacity, b.limit)
	}

	b.data = append(b.data, p...)
	b.total += int64(len(p))
	b.blocks++
	return nil
}

// Take returns the bytes appended since the previous Take and hands their
// ownership to the caller. It returns nil once the buffer is drained.
func (b *Buffer) Take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateDrained || len(b.data) == 0 {
		return nil
	}
	out := b.data
	b.data = nil
	return out
}

// Drain returns all pending bytes and ends the buffer's life. Later
// appends fail with ErrDrained, as does a second Drain.
func (b *Buffer) Drain() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateDrained {
		return nil, ErrDrained
	}
	b.state = StateDrained
	out := b.data
	b.data = nil
	return out, nil
}

// Stats returns a snapshot of the buffer counters
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Bytes:     b.total,
		Blocks:    b.blocks,
		Discarded: b.discarded,
		Pending:   len(b.data),
		State:     b.state,
	}
}
