// ABOUTME: Tests for the capture buffer
// ABOUTME: Covers ordering, rejection rules, limits and concurrent producers
package capture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

var s16Mono = audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 16}

func newTestBuffer(t *testing.T, f audio.Format, opts ...Option) *Buffer {
	t.Helper()
	b, err := NewBuffer(f, opts...)
	if err != nil {
		t.Fatalf("NewBuffer() failed: %v", err)
	}
	return b
}

func TestBufferPreservesOrder(t *testing.T) {
	b := newTestBuffer(t, s16Mono)

	blocks := [][]byte{{1, 2}, {3, 4, 5, 6}, {7, 8}}
	for _, blk := range blocks {
		if err := b.Append(blk); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	data, err := b.Drain()
	if err != nil {
		t.Fatalf("Drain() failed: %v", err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("drained % x", data)
	}

	stats := b.Stats()
	if stats.Bytes != 8 || stats.Blocks != 3 || stats.State != StateDrained {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestBufferRejectsPartialBlock(t *testing.T) {
	stereo := audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16}
	b := newTestBuffer(t, stereo)

	if err := b.Append([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if err := b.Append([]byte{9, 9, 9, 9, 9, 9}); !errors.Is(err, ErrPartialBlock) {
		t.Fatalf("expected ErrPartialBlock, got %v", err)
	}

	data, _ := b.Drain()
	if !bytes.Equal(data, []byte{1, 2, 3, 4}) {
		t.Errorf("partial block leaked into buffer: % x", data)
	}
	if b.Stats().Discarded != 1 {
		t.Errorf("Discarded = %d, want 1", b.Stats().Discarded)
	}
}

func TestBufferEmptyAppendIsNoop(t *testing.T) {
	b := newTestBuffer(t, s16Mono)
	if err := b.Append(nil); err != nil {
		t.Errorf("Append(nil) = %v", err)
	}
	if s := b.Stats(); s.Blocks != 0 || s.Discarded != 0 {
		t.Errorf("empty append changed stats: %+v", s)
	}
}

func TestBufferDrainOnce(t *testing.T) {
	b := newTestBuffer(t, s16Mono)

	data, err := b.Drain()
	if err != nil {
		t.Fatalf("Drain() of empty buffer failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected no data, got %d bytes", len(data))
	}

	if _, err := b.Drain(); !errors.Is(err, ErrDrained) {
		t.Errorf("second Drain() error = %v, want ErrDrained", err)
	}
	if err := b.Append([]byte{1, 2}); !errors.Is(err, ErrDrained) {
		t.Errorf("Append after Drain error = %v, want ErrDrained", err)
	}
	if b.Take() != nil {
		t.Error("Take after Drain returned data")
	}
}

func TestBufferLimit(t *testing.T) {
	b := newTestBuffer(t, s16Mono, WithLimit(4))

	if err := b.Append([]byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := b.Append([]byte{3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := b.Append([]byte{5, 6}); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	if b.Stats().State != StateOverflowed {
		t.Errorf("state = %s, want overflowed", b.Stats().State)
	}
	// a block that would fit is still refused once overflowed
	if err := b.Append([]byte{}); err != nil {
		t.Errorf("empty append after overflow = %v", err)
	}
	if err := b.Append([]byte{7, 8}); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity after overflow, got %v", err)
	}

	data, err := b.Drain()
	if err != nil {
		t.Fatalf("Drain() after overflow failed: %v", err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3, 4}) {
		t.Errorf("captured data not retained: % x", data)
	}
}

func TestBufferLimitValues(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		wantOK bool
	}{
		{"default is unlimited", nil, true},
		{"explicit no limit", []Option{WithLimit(NoLimit)}, true},
		{"negative means no limit", []Option{WithLimit(-42)}, true},
		{"zero accepts nothing", []Option{WithLimit(0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuffer(t, s16Mono, tt.opts...)
			err := b.Append([]byte{1, 2})
			if tt.wantOK && err != nil {
				t.Errorf("Append() failed: %v", err)
			}
			if !tt.wantOK && !errors.Is(err, ErrCapacity) {
				t.Errorf("Append() error = %v, want ErrCapacity", err)
			}
		})
	}
}

func TestBufferPreallocCappedByLimit(t *testing.T) {
	b := newTestBuffer(t, s16Mono, WithLimit(10), WithPrealloc(1<<20))
	if cap(b.data) != 10 {
		t.Errorf("prealloc = %d, want 10", cap(b.data))
	}
}

func TestBufferTake(t *testing.T) {
	b := newTestBuffer(t, s16Mono)

	if b.Take() != nil {
		t.Error("Take on empty buffer returned data")
	}

	b.Append([]byte{1, 2})
	b.Append([]byte{3, 4})
	first := b.Take()
	b.Append([]byte{5, 6})
	rest, _ := b.Drain()

	if !bytes.Equal(append(first, rest...), []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("take/drain lost order: % x + % x", first, rest)
	}
	if b.Stats().Bytes != 6 {
		t.Errorf("Bytes = %d, want 6", b.Stats().Bytes)
	}
}

func TestBufferThreeSamples(t *testing.T) {
	b := newTestBuffer(t, s16Mono)

	block := make([]byte, 6)
	for i, v := range []int16{100, -200, 300} {
		binary.LittleEndian.PutUint16(block[i*2:], uint16(v))
	}
	if err := b.Append(block); err != nil {
		t.Fatal(err)
	}

	data, _ := b.Drain()
	if !bytes.Equal(data, []byte{0x64, 0x00, 0x38, 0xFF, 0x2C, 0x01}) {
		t.Errorf("got % x", data)
	}
}

func TestBufferConcurrentProducers(t *testing.T) {
	// 4-byte frames: producer id, sequence (2 bytes), producer id
	stereo := audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16}
	b := newTestBuffer(t, stereo)

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id byte) {
			defer wg.Done()
			for seq := 0; seq < perProducer; seq++ {
				blk := []byte{id, byte(seq >> 8), byte(seq), id}
				if err := b.Append(blk); err != nil {
					t.Errorf("Append() failed: %v", err)
					return
				}
			}
		}(byte(p))
	}
	wg.Wait()

	data, _ := b.Drain()
	if len(data) != producers*perProducer*4 {
		t.Fatalf("got %d bytes, want %d", len(data), producers*perProducer*4)
	}

	next := make([]int, producers)
	for i := 0; i < len(data); i += 4 {
		id := data[i]
		if data[i+3] != id {
			t.Fatalf("block at %d was split or interleaved", i)
		}
		seq := int(data[i+1])<<8 | int(data[i+2])
		if seq != next[id] {
			t.Fatalf("producer %d: got seq %d, want %d", id, seq, next[id])
		}
		next[id]++
	}
}
