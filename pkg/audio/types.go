// ABOUTME: Audio type definitions
// ABOUTME: Defines the capture stream format and sample scaling helpers
package audio

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// SampleKind distinguishes integer PCM from IEEE float samples
type SampleKind int

const (
	KindInt SampleKind = iota
	KindFloat
)

// String returns the config spelling of the kind
func (k SampleKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("SampleKind(%d)", int(k))
	}
}

// ParseKind parses "int" or "float"
func ParseKind(s string) (SampleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer", "pcm", "":
		return KindInt, nil
	case "float", "f32", "ieee":
		return KindFloat, nil
	default:
		return 0, fmt.Errorf("unknown sample kind: %q (supported: int, float)", s)
	}
}

// ErrInvalidFormat is wrapped by Format.Validate failures
var ErrInvalidFormat = errors.New("invalid stream format")

// Format describes the sample encoding of a capture session.
// It is fixed when the stream is opened and never changes afterwards.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Kind       SampleKind
}

// BytesPerSample returns the container width of one sample
func (f Format) BytesPerSample() int {
	return (f.BitDepth + 7) / 8
}

// BlockAlign returns the size in bytes of one interleaved frame
func (f Format) BlockAlign() int {
	return f.Channels * f.BytesPerSample()
}

// ByteRate returns the number of bytes per second of audio
func (f Format) ByteRate() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// Validate reports whether the format can be captured and written
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels <= 0 || f.Channels > math.MaxUint16 {
		return fmt.Errorf("%w: channel count out of range: %d", ErrInvalidFormat, f.Channels)
	}
	switch f.Kind {
	case KindInt:
		switch f.BitDepth {
		case 8, 16, 24, 32:
		default:
			return fmt.Errorf("%w: unsupported bit depth: %d (supported: 8, 16, 24, 32)", ErrInvalidFormat, f.BitDepth)
		}
	case KindFloat:
		if f.BitDepth != 32 {
			return fmt.Errorf("%w: float samples must be 32-bit, got %d", ErrInvalidFormat, f.BitDepth)
		}
	default:
		return fmt.Errorf("%w: unknown sample kind %d", ErrInvalidFormat, int(f.Kind))
	}
	if uint64(f.ByteRate()) > math.MaxUint32 {
		return fmt.Errorf("%w: byte rate overflows header field", ErrInvalidFormat)
	}
	return nil
}

// String renders the format like "48000Hz/2ch/s16"
func (f Format) String() string {
	prefix := "s"
	if f.Kind == KindFloat {
		prefix = "f"
	} else if f.BitDepth == 8 {
		prefix = "u"
	}
	return fmt.Sprintf("%dHz/%dch/%s%d", f.SampleRate, f.Channels, prefix, f.BitDepth)
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// FloatToPCM scales a float sample in [-1, 1] to a signed integer of the
// given bit depth. Full scale maps to the largest positive value; input
// outside the range is clamped.
func FloatToPCM(f float32, bits int) int32 {
	v := float64(f)
	if math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	max := float64(int64(1)<<(bits-1) - 1)
	return int32(math.Round(v * max))
}

// PCMToFloat scales a signed integer of the given bit depth to [-1, 1)
func PCMToFloat(v int32, bits int) float32 {
	return float32(float64(v) / float64(int64(1)<<(bits-1)))
}
