// ABOUTME: Tests for the WAVE writer
// ABOUTME: Checks header fields, padding, round-trips and failure cleanup
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	gowav "github.com/go-audio/wav"
)

var s16Mono44k = audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 16, Kind: audio.KindInt}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return data
}

func u32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }
func u16(b []byte, off int) uint16 { return binary.LittleEndian.Uint16(b[off:]) }

func assertOnlyFile(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if e.Name() != name {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestFinalizeZeroSamples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.wav")

	if err := Finalize(s16Mono44k, nil, path); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	data := readFile(t, path)
	if len(data) != 44 {
		t.Fatalf("file size = %d, want 44", len(data))
	}
	if u32(data, 40) != 0 {
		t.Errorf("data size = %d, want 0", u32(data, 40))
	}
	if u32(data, 4) != 36 {
		t.Errorf("RIFF size = %d, want 36", u32(data, 4))
	}
	assertOnlyFile(t, dir, "empty.wav")
}

func TestFinalizeThreeSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "three.wav")
	samples := []byte{0x64, 0x00, 0x38, 0xFF, 0x2C, 0x01} // 100, -200, 300

	if err := Finalize(s16Mono44k, samples, path); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	data := readFile(t, path)
	if len(data) != 50 {
		t.Fatalf("file size = %d, want 50", len(data))
	}
	if u32(data, 40) != 6 {
		t.Errorf("data size = %d, want 6", u32(data, 40))
	}
	if !bytes.Equal(data[44:50], samples) {
		t.Errorf("sample bytes = % x, want % x", data[44:50], samples)
	}
	for i, want := range []int16{100, -200, 300} {
		if got := int16(u16(data, 44+i*2)); got != want {
			t.Errorf("sample %d = %d, want %d", i, got, want)
		}
	}
}

func TestHeaderLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.wav")
	format := audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24}

	if err := Finalize(format, make([]byte, 12), path); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}
	data := readFile(t, path)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"magic", string(data[0:4]), "RIFF"},
		{"format tag", string(data[8:12]), "WAVE"},
		{"fmt id", string(data[12:16]), "fmt "},
		{"fmt size", u32(data, 16), uint32(16)},
		{"encoding", u16(data, 20), uint16(1)},
		{"channels", u16(data, 22), uint16(2)},
		{"sample rate", u32(data, 24), uint32(48000)},
		{"byte rate", u32(data, 28), uint32(288000)},
		{"block align", u16(data, 32), uint16(6)},
		{"bits", u16(data, 34), uint16(24)},
		{"data id", string(data[36:40]), "data"},
		{"data size", u32(data, 40), uint32(12)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestByteRateMatchesFormat(t *testing.T) {
	formats := []audio.Format{
		{SampleRate: 8000, Channels: 1, BitDepth: 8},
		{SampleRate: 22050, Channels: 2, BitDepth: 16},
		{SampleRate: 44100, Channels: 1, BitDepth: 16},
		{SampleRate: 48000, Channels: 6, BitDepth: 24},
		{SampleRate: 96000, Channels: 2, BitDepth: 32},
		{SampleRate: 192000, Channels: 8, BitDepth: 32, Kind: audio.KindFloat},
	}

	dir := t.TempDir()
	for i, f := range formats {
		path := filepath.Join(dir, f.String()+".wav")
		if err := Finalize(f, nil, path); err != nil {
			t.Fatalf("format %d: Finalize() failed: %v", i, err)
		}
		data := readFile(t, path)
		want := uint32(f.SampleRate * f.Channels * f.BitDepth / 8)
		if got := u32(data, 28); got != want {
			t.Errorf("%s: byte rate = %d, want %d", f, got, want)
		}
	}
}

func TestFloatEncodingCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "float.wav")
	format := audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 32, Kind: audio.KindFloat}

	if err := Finalize(format, make([]byte, 8), path); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}
	if code := u16(readFile(t, path), 20); code != FormatIEEEFloat {
		t.Errorf("encoding code = %d, want %d", code, FormatIEEEFloat)
	}
}

func TestOddPayloadIsPadded(t *testing.T) {
	format := audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 8}

	for _, n := range []int{1, 3, 7, 101} {
		path := filepath.Join(t.TempDir(), "odd.wav")
		samples := bytes.Repeat([]byte{0xAB}, n)

		if err := Finalize(format, samples, path); err != nil {
			t.Fatalf("n=%d: Finalize() failed: %v", n, err)
		}
		data := readFile(t, path)

		if len(data) != 44+n+1 {
			t.Errorf("n=%d: file size = %d, want %d", n, len(data), 44+n+1)
		}
		if got := u32(data, 40); got != uint32(n) {
			t.Errorf("n=%d: data size = %d, want %d", n, got, n)
		}
		if got := u32(data, 4); got != uint32(len(data)-8) {
			t.Errorf("n=%d: RIFF size = %d, want %d", n, got, len(data)-8)
		}
		if data[len(data)-1] != 0 {
			t.Errorf("n=%d: pad byte = %#x, want 0", n, data[len(data)-1])
		}
	}
}

func TestEvenPayloadIsNotPadded(t *testing.T) {
	for _, n := range []int{0, 2, 4, 1000} {
		path := filepath.Join(t.TempDir(), "even.wav")

		if err := Finalize(s16Mono44k, make([]byte, n), path); err != nil {
			t.Fatalf("n=%d: Finalize() failed: %v", n, err)
		}
		data := readFile(t, path)

		if len(data) != 44+n {
			t.Errorf("n=%d: file size = %d, want %d", n, len(data), 44+n)
		}
		if u32(data, 4) != u32(data, 40)+36 {
			t.Errorf("n=%d: RIFF size %d != data size %d + 36", n, u32(data, 4), u32(data, 40))
		}
	}
}

func TestRoundTripWithIndependentDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.wav")
	format := audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}

	want := make([]int16, 2000)
	samples := make([]byte, len(want)*2)
	for i := range want {
		want[i] = int16((i*37)%65536 - 32768)
		binary.LittleEndian.PutUint16(samples[i*2:], uint16(want[i]))
	}

	if err := Finalize(format, samples, path); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	d := gowav.NewDecoder(f)
	if !d.IsValidFile() {
		t.Fatal("decoder rejected the file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer() failed: %v", err)
	}
	if int(d.NumChans) != 2 || int(d.SampleRate) != 44100 || int(d.BitDepth) != 16 {
		t.Errorf("decoded format %dch/%dHz/%dbit", d.NumChans, d.SampleRate, d.BitDepth)
	}
	if len(buf.Data) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(want))
	}
	for i := range want {
		if buf.Data[i] != int(want[i]) {
			t.Fatalf("sample %d = %d, want %d", i, buf.Data[i], want[i])
		}
	}

	// raw bytes are also reproduced exactly
	if !bytes.Equal(readFile(t, path)[HeaderSize:], samples) {
		t.Error("data chunk differs from input")
	}
}

func TestFinalizeIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	samples := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	if err := Finalize(s16Mono44k, samples, a); err != nil {
		t.Fatalf("Finalize(a) failed: %v", err)
	}
	if err := Finalize(s16Mono44k, samples, b); err != nil {
		t.Fatalf("Finalize(b) failed: %v", err)
	}

	if !bytes.Equal(readFile(t, a), readFile(t, b)) {
		t.Error("finalizing the same samples twice produced different files")
	}
}

func TestWriterStreamsIncrementally(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.wav")

	w, err := Create(path, s16Mono44k)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	var all []byte
	for i := 0; i < 50; i++ {
		chunk := bytes.Repeat([]byte{byte(i), byte(i + 1)}, 100)
		all = append(all, chunk...)
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
	}

	// nothing is visible at the destination until Close
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("destination exists before Close: %v", err)
	}
	if w.DataSize() != int64(len(all)) {
		t.Errorf("DataSize() = %d, want %d", w.DataSize(), len(all))
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data := readFile(t, path)
	if !bytes.Equal(data[HeaderSize:], all) {
		t.Error("streamed data differs from input")
	}
	if u32(data, 40) != uint32(len(all)) {
		t.Errorf("data size = %d, want %d", u32(data, 40), len(all))
	}
	assertOnlyFile(t, dir, "stream.wav")

	if _, err := w.Write([]byte{0, 0}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close error = %v, want ErrClosed", err)
	}
	if err := w.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close error = %v, want ErrClosed", err)
	}
}

func TestAbortRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	w, err := Create(filepath.Join(dir, "aborted.wav"), s16Mono44k)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := w.Write([]byte{1, 2}); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	w.Abort()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty dir after Abort, found %d entries", len(entries))
	}
}

func TestFinalizeMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.wav")

	err := Finalize(s16Mono44k, []byte{1, 2}, path)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
	var werr *Error
	if !errors.As(err, &werr) || werr.Op != "create" {
		t.Errorf("expected create error, got %v", err)
	}
}

func TestFinalizeRenameFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	// destination is a non-empty directory, so the rename must fail
	dest := filepath.Join(dir, "taken.wav")
	if err := os.MkdirAll(filepath.Join(dest, "child"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := Finalize(s16Mono44k, []byte{1, 2, 3, 4}, dest)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	assertOnlyFile(t, dir, "taken.wav")
}

type failingSync struct {
	*os.File
}

func (f failingSync) Sync() error { return errors.New("disk on fire") }

func TestFinalizeSyncFailure(t *testing.T) {
	orig := createTemp
	defer func() { createTemp = orig }()
	createTemp = func(path string) (file, error) {
		f, err := orig(path)
		if err != nil {
			return nil, err
		}
		return failingSync{File: f.(*os.File)}, nil
	}

	dir := t.TempDir()
	err := Finalize(s16Mono44k, []byte{1, 2}, filepath.Join(dir, "out.wav"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	var werr *Error
	if !errors.As(err, &werr) || werr.Op != "sync" {
		t.Errorf("expected sync error, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files after failed sync, found %d", len(entries))
	}
}

func TestCreateRejectsInvalidFormat(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "x.wav"), audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 12})
	if !errors.Is(err, audio.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}
