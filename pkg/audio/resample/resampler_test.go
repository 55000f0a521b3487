// ABOUTME: Tests for audio resampler
// ABOUTME: Tests linear interpolation and continuity across block boundaries
package resample

import (
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	r := New(44100, 48000, 2)

	if r.inputRate != 44100 {
		t.Errorf("expected inputRate 44100, got %d", r.inputRate)
	}
	if r.outputRate != 48000 {
		t.Errorf("expected outputRate 48000, got %d", r.outputRate)
	}
	if r.channels != 2 {
		t.Errorf("expected channels 2, got %d", r.channels)
	}
}

func TestAppendUnityRatioIsContinuous(t *testing.T) {
	r := New(48000, 48000, 1)

	out := r.Append(nil, []int32{0, 1, 2, 3})
	out = r.Append(out, []int32{4, 5, 6, 7})

	// the newest frame is held back until the next block arrives
	want := []int32{0, 1, 2, 3, 4, 5, 6}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestAppendDownsampling(t *testing.T) {
	r := New(96000, 48000, 1)

	out := r.Append(nil, []int32{0, 10, 20, 30, 40, 50})
	out = r.Append(out, []int32{60, 70})

	want := []int32{0, 20, 40, 60}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestAppendUpsampling(t *testing.T) {
	r := New(24000, 48000, 1)

	out := r.Append(nil, []int32{0, 10})
	out = r.Append(out, []int32{20})

	want := []int32{0, 5, 10, 15}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestAppendStereoKeepsChannelsApart(t *testing.T) {
	r := New(24000, 48000, 2)

	out := r.Append(nil, []int32{0, 100, 10, 200})

	want := []int32{0, 100, 5, 150}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestOutputSamplesNeeded(t *testing.T) {
	r := New(44100, 48000, 2)
	needed := r.OutputSamplesNeeded(882) // 10ms of stereo at 44.1kHz
	if needed < 960 {
		t.Errorf("expected at least 960 output samples, got %d", needed)
	}
}
