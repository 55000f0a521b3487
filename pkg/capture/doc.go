// ABOUTME: Capture package connecting audio input to WAVE output
// ABOUTME: Provides the capture Buffer, block Adapter and recording Session
// Package capture records audio from an input.Host into a WAVE file.
//
// The audio callback converts each device block with an Adapter and
// appends it to a Buffer. The control goroutine waits for the stop signal,
// stops the stream, drains the buffer and writes the file with package wav.
// In stream mode a flush goroutine moves data from the buffer to disk while
// recording.
//
// Example:
//
//	s, err := capture.NewSession(capture.Config{
//		Host:   input.NewToneHost(),
//		Format: audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 16},
//		Path:   "take1.wav",
//	})
//	res, err := s.Run(ctx)
package capture
