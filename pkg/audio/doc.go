// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Block types and sample conversion functions
// Package audio provides the sample types shared by capture and file writing.
//
// This package defines:
//   - Format: the fixed stream format of a capture session (rate, channels, depth, kind)
//   - Block: one callback's worth of typed samples, with one variant per encoding
//
// Variants expose explicit accessors instead of reinterpreting memory, so a
// block of float samples can be written as 16-bit PCM (or the other way round)
// by asking each sample for its scaled value:
//
//	format := audio.Format{
//	    SampleRate: 44100,
//	    Channels:   1,
//	    BitDepth:   16,
//	    Kind:       audio.KindInt,
//	}
//
//	block := audio.F32Samples{0.5, -0.5}
//	v := block.Int32(0) >> 16 // 16-bit value of the first sample
package audio
