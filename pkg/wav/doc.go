// ABOUTME: WAVE container package for captured PCM
// ABOUTME: Provides the back-patching Writer, Finalize and a strict header reader
// Package wav writes captured samples into canonical 44-byte-header RIFF/WAVE
// files.
//
// The header is written first with placeholder sizes; once all sample data
// has been written the writer seeks back and patches the data size and the
// RIFF size. An odd-length data chunk is followed by one pad byte that is
// counted by the RIFF size but not by the data size.
//
// Files are assembled under a hidden temporary name in the destination
// directory and renamed into place only after the patched file has been
// synced, so an interrupted write never leaves a file with wrong sizes at the
// destination path.
//
// Example:
//
//	err := wav.Finalize(format, samples, "take1.wav")
//
//	w, err := wav.Create("take2.wav", format)
//	_, err = w.Write(chunk)
//	err = w.Close()
package wav
