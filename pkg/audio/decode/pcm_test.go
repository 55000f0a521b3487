// ABOUTME: Tests for PCM decoder
// ABOUTME: Tests 8/16/24/32-bit and float PCM decoding
package decode

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

func TestNewPCM_UnsupportedBitDepth(t *testing.T) {
	format := audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 12}

	decoder, err := NewPCM(format)
	if err == nil {
		t.Fatal("expected error for unsupported bit depth, got nil")
	}
	if decoder != nil {
		t.Fatal("expected decoder to be nil for unsupported bit depth")
	}
	if !errors.Is(err, audio.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestPCMDecode16Bit(t *testing.T) {
	decoder, err := NewPCM(audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	// 0x00, 0x01 -> 0x0100 = 256
	// 0x02, 0x83 -> 0x8302 = -31998
	block, err := decoder.Decode([]byte{0x00, 0x01, 0x02, 0x83})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	samples, ok := block.(audio.S16Samples)
	if !ok {
		t.Fatalf("expected S16Samples, got %T", block)
	}
	if len(samples) != 2 || samples[0] != 256 || samples[1] != -31998 {
		t.Errorf("unexpected samples: %v", samples)
	}
}

func TestPCMDecode24Bit(t *testing.T) {
	decoder, err := NewPCM(audio.Format{SampleRate: 192000, Channels: 2, BitDepth: 24})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	block, err := decoder.Decode([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x85})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	samples := block.(audio.S24Samples)
	if samples[0] != 0x020100 {
		t.Errorf("expected first sample %d, got %d", 0x020100, samples[0])
	}
	// 0x850403 sign-extends to a negative value
	if samples[1] != int32(0x850403)-0x1000000 {
		t.Errorf("unexpected second sample %d", samples[1])
	}
}

func TestPCMDecodeFloat(t *testing.T) {
	decoder, err := NewPCM(audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 32, Kind: audio.KindFloat})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(-1))

	block, err := decoder.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	samples := block.(audio.F32Samples)
	if samples[0] != 0.25 || samples[1] != -1 {
		t.Errorf("unexpected samples: %v", samples)
	}
}

func TestPCMDecodeUnsigned8(t *testing.T) {
	decoder, err := NewPCM(audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 8})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	input := []byte{0, 128, 255}
	block, err := decoder.Decode(input)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	// the block must not alias the driver buffer
	input[1] = 7
	if block.(audio.U8Samples)[1] != 128 {
		t.Error("decoded block shares memory with the input")
	}
}

func TestPCMDecode_Truncated(t *testing.T) {
	decoder, err := NewPCM(audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 24})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	if _, err := decoder.Decode([]byte{1, 2, 3, 4}); err == nil {
		t.Error("expected error for truncated sample")
	}
}

func TestPCMDecode_EmptyInput(t *testing.T) {
	decoder, err := NewPCM(audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	block, err := decoder.Decode([]byte{})
	if err != nil {
		t.Fatalf("decode failed with empty input: %v", err)
	}
	if block.Len() != 0 {
		t.Errorf("expected 0 samples from empty input, got %d", block.Len())
	}
}
