// ABOUTME: Converts device blocks to the byte encoding of the output file
// ABOUTME: Rescales sample depth and kind, and resamples when rates differ
package capture

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/resample"
)

// Adapter turns blocks in the device format into bytes in the file format.
//
// An Adapter is owned by the callback goroutine: the slice returned by
// Convert is reused by the next call.
type Adapter struct {
	device audio.Format
	target audio.Format

	enc encode.Encoder
	rs  *resample.Resampler

	scratch []byte
	in      []int32
	out     []int32
}

// NewAdapter builds an adapter from device to target. Both formats must
// have the same channel count.
func NewAdapter(device, target audio.Format) (*Adapter, error) {
	if err := device.Validate(); err != nil {
		return nil, fmt.Errorf("device format: %w", err)
	}
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("file format: %w", err)
	}
	if device.Channels != target.Channels {
		return nil, fmt.Errorf("channel mismatch: device %d, file %d", device.Channels, target.Channels)
	}

	enc, err := encode.NewPCM(target)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		device: device,
		target: target,
		enc:    enc,
	}
	if device.SampleRate != target.SampleRate {
		a.rs = resample.New(device.SampleRate, target.SampleRate, device.Channels)
	}
	return a, nil
}

// Resampling reports whether the adapter converts sample rates
func (a *Adapter) Resampling() bool {
	return a.rs != nil
}

// Convert encodes one block. A block that does not hold whole frames is
// rejected with ErrPartialBlock.
func (a *Adapter) Convert(b audio.Block) ([]byte, error) {
	if b.Len()%a.device.Channels != 0 {
		return nil, fmt.Errorf("%w: %d samples for %d channels", ErrPartialBlock, b.Len(), a.device.Channels)
	}

	var err error
	if a.rs == nil {
		a.scratch, err = a.enc.Append(a.scratch[:0], b)
		return a.scratch, err
	}

	a.in = a.in[:0]
	for i := 0; i < b.Len(); i++ {
		a.in = append(a.in, b.Int32(i))
	}
	if need := a.rs.OutputSamplesNeeded(len(a.in)); cap(a.out) < need {
		a.out = make([]int32, 0, need)
	}
	a.out = a.rs.Append(a.out[:0], a.in)

	a.scratch, err = a.enc.Append(a.scratch[:0], audio.S32Samples(a.out))
	return a.scratch, err
}
