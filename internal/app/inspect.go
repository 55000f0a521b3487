// ABOUTME: WAV inspection command
// ABOUTME: Checks the header against the file size and reports duration and peak level
package app

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/resonate-capture/pkg/wav"
)

// Report describes a recorded file
type Report struct {
	Path     string
	Header   wav.Header
	Size     int64
	Duration float64
	Peak     float64
	HasPeak  bool
}

// Inspect validates the file at path and measures it
func Inspect(path string) (Report, error) {
	rep := Report{Path: path}

	f, err := os.Open(path)
	if err != nil {
		return rep, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return rep, err
	}
	rep.Size = info.Size()

	rep.Header, err = wav.ReadHeader(f)
	if err != nil {
		return rep, err
	}
	if err := rep.Header.Consistent(rep.Size); err != nil {
		return rep, err
	}
	if rep.Header.ByteRate > 0 {
		rep.Duration = float64(rep.Header.DataSize) / float64(rep.Header.ByteRate)
	}

	if rep.Header.AudioFormat != wav.FormatPCM || rep.Header.DataSize == 0 {
		return rep, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return rep, err
	}
	dec := gowav.NewDecoder(f)
	if !dec.IsValidFile() {
		return rep, fmt.Errorf("%w: rejected by decoder", wav.ErrInvalidHeader)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return rep, fmt.Errorf("decode samples: %w", err)
	}
	rep.Peak = peak(buf)
	rep.HasPeak = true
	return rep, nil
}

// peak returns the largest absolute sample as a fraction of full scale
func peak(buf *goaudio.IntBuffer) float64 {
	bits := buf.SourceBitDepth
	if bits == 0 {
		return 0
	}
	full := math.Ldexp(1, bits-1)
	if bits == 8 {
		// 8-bit samples are unsigned around 128
		full = 128
	}

	var top float64
	for _, v := range buf.Data {
		s := float64(v)
		if bits == 8 {
			s -= 128
		}
		top = math.Max(top, math.Abs(s))
	}
	return math.Min(top/full, 1)
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Validate a WAV file and print its format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := Inspect(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			format, _ := rep.Header.Format()
			fmt.Fprintf(out, "File:     %s\n", rep.Path)
			fmt.Fprintf(out, "Format:   %s\n", format)
			fmt.Fprintf(out, "Size:     %d bytes (%d data)\n", rep.Size, rep.Header.DataSize)
			fmt.Fprintf(out, "Duration: %.3fs\n", rep.Duration)
			if rep.HasPeak {
				fmt.Fprintf(out, "Peak:     %.1f dBFS\n", dbfs(rep.Peak))
			}
			return nil
		},
	}
}

func dbfs(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}
