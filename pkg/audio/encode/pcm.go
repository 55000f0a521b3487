// ABOUTME: PCM audio encoder
// ABOUTME: Encodes any sample block to little-endian PCM in the target format
package encode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// PCMEncoder writes samples in the on-disk encoding of one Format
type PCMEncoder struct {
	format audio.Format
}

// NewPCM creates a new PCM encoder for the target format
func NewPCM(format audio.Format) (*PCMEncoder, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &PCMEncoder{format: format}, nil
}

// Format returns the target format
func (e *PCMEncoder) Format() audio.Format {
	return e.format
}

// Encode converts a block to PCM bytes
func (e *PCMEncoder) Encode(block audio.Block) ([]byte, error) {
	return e.Append(make([]byte, 0, block.Len()*e.format.BytesPerSample()), block)
}

// Append converts a block to PCM bytes appended to dst.
// Integer sources are rescaled by shifting their left-justified value;
// float sources are scaled so that full scale maps to the largest
// representable magnitude of the target.
func (e *PCMEncoder) Append(dst []byte, block audio.Block) ([]byte, error) {
	if block.Len()%e.format.Channels != 0 {
		return dst, fmt.Errorf("partial frame: %d samples for %d channels", block.Len(), e.format.Channels)
	}

	n := block.Len()
	width := e.format.BytesPerSample()
	start := len(dst)
	dst = grow(dst, n*width)
	out := dst[start:]

	fromFloat := block.Kind() == audio.KindFloat

	switch {
	case e.format.Kind == audio.KindFloat:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(block.Float32(i)))
		}
	case e.format.BitDepth == 8:
		for i := 0; i < n; i++ {
			var v int32
			if fromFloat {
				v = audio.FloatToPCM(block.Float32(i), 8)
			} else {
				v = block.Int32(i) >> 24
			}
			out[i] = uint8(v + 128)
		}
	case e.format.BitDepth == 16:
		for i := 0; i < n; i++ {
			var v int32
			if fromFloat {
				v = audio.FloatToPCM(block.Float32(i), 16)
			} else {
				v = block.Int32(i) >> 16
			}
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
		}
	case e.format.BitDepth == 24:
		for i := 0; i < n; i++ {
			var v int32
			if fromFloat {
				v = audio.FloatToPCM(block.Float32(i), 24)
			} else {
				v = block.Int32(i) >> 8
			}
			b := audio.SampleTo24Bit(v)
			copy(out[i*3:i*3+3], b[:])
		}
	case e.format.BitDepth == 32:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(block.Int32(i)))
		}
	default:
		return dst[:start], fmt.Errorf("unsupported bit depth: %d", e.format.BitDepth)
	}

	return dst, nil
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}

// grow extends dst by n bytes, reusing capacity when possible
func grow(dst []byte, n int) []byte {
	if cap(dst)-len(dst) >= n {
		return dst[:len(dst)+n]
	}
	next := make([]byte, len(dst)+n, 2*len(dst)+n)
	copy(next, dst)
	return next
}
