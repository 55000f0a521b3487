// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 8/16/24/32-bit integer and 32-bit float PCM into sample blocks
package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// PCMDecoder decodes PCM audio of a single format
type PCMDecoder struct {
	format audio.Format
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (*PCMDecoder, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &PCMDecoder{format: format}, nil
}

// Decode converts PCM bytes to a typed block. The data must hold a whole
// number of samples; trailing bytes are an error rather than silently dropped.
func (d *PCMDecoder) Decode(data []byte) (audio.Block, error) {
	width := d.format.BytesPerSample()
	if len(data)%width != 0 {
		return nil, fmt.Errorf("truncated sample: %d bytes is not a multiple of %d", len(data), width)
	}
	n := len(data) / width

	if d.format.Kind == audio.KindFloat {
		samples := make(audio.F32Samples, n)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return samples, nil
	}

	switch d.format.BitDepth {
	case 8:
		samples := make(audio.U8Samples, n)
		copy(samples, data)
		return samples, nil
	case 16:
		samples := make(audio.S16Samples, n)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		}
		return samples, nil
	case 24:
		samples := make(audio.S24Samples, n)
		for i := range samples {
			samples[i] = audio.SampleFrom24Bit([3]byte{data[i*3], data[i*3+1], data[i*3+2]})
		}
		return samples, nil
	case 32:
		samples := make(audio.S32Samples, n)
		for i := range samples {
			samples[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return samples, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", d.format.BitDepth)
	}
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
