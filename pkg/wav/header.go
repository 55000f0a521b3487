// ABOUTME: Canonical 44-byte RIFF/WAVE header layout
// ABOUTME: Builds headers from a stream format and parses them back strictly
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

const (
	// HeaderSize is the size of the canonical header in bytes
	HeaderSize = 44

	// FmtChunkSize is the size of the fmt chunk body for PCM
	FmtChunkSize = 16

	// FormatPCM and FormatIEEEFloat are the supported encoding codes
	FormatPCM       = 1
	FormatIEEEFloat = 3

	// riffSizeOffset and dataSizeOffset locate the back-patched fields
	riffSizeOffset = 4
	dataSizeOffset = 40

	// MaxDataSize leaves room for the pad byte and the 36 header bytes
	// counted by the RIFF size field
	MaxDataSize = math.MaxUint32 - 37
)

var (
	riffID = [4]byte{'R', 'I', 'F', 'F'}
	waveID = [4]byte{'W', 'A', 'V', 'E'}
	fmtID  = [4]byte{'f', 'm', 't', ' '}
	dataID = [4]byte{'d', 'a', 't', 'a'}
)

// ErrInvalidHeader is returned by ReadHeader for malformed files
var ErrInvalidHeader = errors.New("wav: invalid header")

// Header is the on-disk layout of the canonical WAVE header
type Header struct {
	// RIFF header
	RiffID   [4]byte // "RIFF"
	RiffSize uint32  // file size - 8
	WaveID   [4]byte // "WAVE"

	// fmt sub-chunk
	FmtID         [4]byte // "fmt "
	FmtSize       uint32  // 16
	AudioFormat   uint16  // 1 = PCM, 3 = IEEE float
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample/8
	BlockAlign    uint16 // NumChannels * BitsPerSample/8
	BitsPerSample uint16

	// data sub-chunk
	DataID   [4]byte // "data"
	DataSize uint32  // sample bytes, excluding the pad byte
}

// NewHeader builds the header for format with both size fields set to
// placeholders of zero.
func NewHeader(format audio.Format) Header {
	code := uint16(FormatPCM)
	if format.Kind == audio.KindFloat {
		code = FormatIEEEFloat
	}

	return Header{
		RiffID:        riffID,
		WaveID:        waveID,
		FmtID:         fmtID,
		FmtSize:       FmtChunkSize,
		AudioFormat:   code,
		NumChannels:   uint16(format.Channels),
		SampleRate:    uint32(format.SampleRate),
		ByteRate:      uint32(format.ByteRate()),
		BlockAlign:    uint16(format.BlockAlign()),
		BitsPerSample: uint16(format.BitDepth),
		DataID:        dataID,
	}
}

// ReadHeader reads and validates a canonical 44-byte header
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	switch {
	case h.RiffID != riffID:
		return h, fmt.Errorf("%w: missing RIFF tag", ErrInvalidHeader)
	case h.WaveID != waveID:
		return h, fmt.Errorf("%w: missing WAVE tag", ErrInvalidHeader)
	case h.FmtID != fmtID:
		return h, fmt.Errorf("%w: expected fmt chunk at offset 12", ErrInvalidHeader)
	case h.FmtSize != FmtChunkSize:
		return h, fmt.Errorf("%w: fmt chunk size %d, want %d", ErrInvalidHeader, h.FmtSize, FmtChunkSize)
	case h.DataID != dataID:
		return h, fmt.Errorf("%w: expected data chunk at offset 36", ErrInvalidHeader)
	}

	return h, nil
}

// Format returns the stream format described by the header
func (h Header) Format() (audio.Format, error) {
	f := audio.Format{
		SampleRate: int(h.SampleRate),
		Channels:   int(h.NumChannels),
		BitDepth:   int(h.BitsPerSample),
	}
	switch h.AudioFormat {
	case FormatPCM:
		f.Kind = audio.KindInt
	case FormatIEEEFloat:
		f.Kind = audio.KindFloat
	default:
		return f, fmt.Errorf("%w: unsupported encoding code %d", ErrInvalidHeader, h.AudioFormat)
	}
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

// Padded reports whether the data chunk is followed by a pad byte
func (h Header) Padded() bool {
	return h.DataSize%2 == 1
}

// ExpectedFileSize returns the file size implied by the data size field
func (h Header) ExpectedFileSize() int64 {
	size := int64(HeaderSize) + int64(h.DataSize)
	if h.Padded() {
		size++
	}
	return size
}

// Consistent reports whether the size fields agree with each other, with
// the format block, and with the real file size.
func (h Header) Consistent(fileSize int64) error {
	if want := h.ExpectedFileSize(); fileSize != want {
		return fmt.Errorf("%w: file is %d bytes, data size implies %d", ErrInvalidHeader, fileSize, want)
	}
	if int64(h.RiffSize) != fileSize-8 {
		return fmt.Errorf("%w: RIFF size %d, want %d", ErrInvalidHeader, h.RiffSize, fileSize-8)
	}
	f, err := h.Format()
	if err != nil {
		return err
	}
	if int(h.ByteRate) != f.ByteRate() || int(h.BlockAlign) != f.BlockAlign() {
		return fmt.Errorf("%w: byte rate/block align do not match format %s", ErrInvalidHeader, f)
	}
	if h.DataSize%uint32(f.BlockAlign()) != 0 {
		return fmt.Errorf("%w: data size %d is not a whole number of frames", ErrInvalidHeader, h.DataSize)
	}
	return nil
}
