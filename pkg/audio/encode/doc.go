// ABOUTME: Audio encoder package for serializing sample blocks
// ABOUTME: Provides Encoder interface and the PCM implementation
// Package encode converts typed sample blocks to the byte layout of a
// target stream format.
//
// Supports: unsigned 8-bit, signed 16/24/32-bit and 32-bit float PCM,
// all little-endian. Any block variant can be encoded to any target; the
// conversion uses full-scale mapping without dither.
//
// Example:
//
//	encoder, err := encode.NewPCM(format)
//	data, err := encoder.Encode(audio.F32Samples{0.5, -0.5})
package encode
