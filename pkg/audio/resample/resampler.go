// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Used when a capture device cannot run at the file's sample rate
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It keeps the last input frame between calls so that consecutive blocks
// interpolate across their boundary.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
	lastFrame  []int32 // one sample per channel
	havePrev   bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int32, channels),
	}
}

// Append resamples interleaved input and appends the interleaved output
// frames to dst. Input must contain whole frames.
func (r *Resampler) Append(dst []int32, input []int32) []int32 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return dst
	}

	total := inputFrames
	if r.havePrev {
		total++
	}

	frame := func(idx, ch int) int32 {
		if r.havePrev {
			if idx == 0 {
				return r.lastFrame[ch]
			}
			idx--
		}
		return input[idx*r.channels+ch]
	}

	for {
		idx := int(r.position)
		if idx+1 >= total {
			break
		}
		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(frame(idx, ch))
			s2 := float64(frame(idx+1, ch))
			dst = append(dst, int32(s1*(1.0-frac)+s2*frac))
		}
		r.position += r.ratio
	}

	// The last input frame becomes index 0 of the next call
	copy(r.lastFrame, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.havePrev = true
	r.position -= float64(total - 1)

	return dst
}

// OutputSamplesNeeded estimates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames)/r.ratio) + 1
	return outputFrames * r.channels
}
