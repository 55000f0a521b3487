// ABOUTME: Audio decoder package for raw PCM data
// ABOUTME: Provides Decoder interface and the PCM implementation
// Package decode reads little-endian PCM bytes into typed sample blocks.
//
// Capture hosts use it to wrap the raw buffers handed over by the audio
// driver, and the inspect command uses it to read samples back from a file.
//
// Example:
//
//	decoder, err := decode.NewPCM(format)
//	block, err := decoder.Decode(raw)
package decode
