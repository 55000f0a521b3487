// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts interleaved audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation on interleaved int32 frames. The resampler
// is stateful: feed it consecutive blocks of one stream and it carries the
// boundary frame and fractional position from one block to the next.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out = r.Append(out[:0], block)
package resample
