// ABOUTME: Synthetic capture host that generates a sine tone
// ABOUTME: Delivers blocks from a ticker goroutine with the same callback semantics as a device
package input

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// ToneDeviceName is the name of the single device of a ToneHost
const ToneDeviceName = "tone"

// ToneHost generates a 440Hz test tone instead of recording.
// It accepts any integer or float format between 8kHz and 192kHz.
type ToneHost struct {
	// Frequency of the tone in Hz
	Frequency float64

	// Amplitude relative to full scale
	Amplitude float64

	// Period between callbacks
	Period time.Duration
}

// NewToneHost creates a tone host with a 440Hz tone at half scale
// delivered every 10ms
func NewToneHost() *ToneHost {
	return &ToneHost{
		Frequency: 440.0, // A4 note
		Amplitude: 0.5,
		Period:    10 * time.Millisecond,
	}
}

func (h *ToneHost) Name() string { return "tone" }

func (h *ToneHost) InputDevices() ([]Device, error) {
	d, _ := h.DefaultInput()
	return []Device{d}, nil
}

func (h *ToneHost) DefaultInput() (Device, error) {
	return Device{ID: ToneDeviceName, Name: ToneDeviceName, Default: true}, nil
}

func (h *ToneHost) SupportedConfigs(dev Device) ([]Config, error) {
	if dev.ID != ToneDeviceName {
		return nil, fmt.Errorf("%w: %q", ErrNoDevice, dev.Name)
	}
	var configs []Config
	for ch := 1; ch <= 8; ch++ {
		for _, depth := range []int{8, 16, 24, 32} {
			configs = append(configs, Config{Kind: audio.KindInt, BitDepth: depth, Channels: ch, MinRate: anyMinRate, MaxRate: anyMaxRate})
		}
		configs = append(configs, Config{Kind: audio.KindFloat, BitDepth: 32, Channels: ch, MinRate: anyMinRate, MaxRate: anyMaxRate})
	}
	return configs, nil
}

func (h *ToneHost) OpenInput(dev Device, format audio.Format, onData func(audio.Block), onError func(error)) (Stream, error) {
	if dev.ID != ToneDeviceName {
		return nil, fmt.Errorf("%w: %q", ErrNoDevice, dev.Name)
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	period := h.Period
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	return &toneStream{
		host:   h,
		format: format,
		period: period,
		onData: onData,
		done:   make(chan struct{}),
	}, nil
}

func (h *ToneHost) Close() error { return nil }

type toneStream struct {
	host   *ToneHost
	format audio.Format
	period time.Duration
	onData func(audio.Block)

	sampleIndex uint64
	carry       float64

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func (s *toneStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStreamClosed
	}
	if s.started {
		return ErrStarted
	}
	s.started = true

	s.wg.Add(1)
	go s.run()
	return nil
}

func (s *toneStream) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.onData(s.next())
		}
	}
}

// next generates one period of frames, carrying the fractional remainder
// so that the long-run rate is exact
func (s *toneStream) next() audio.Block {
	exact := float64(s.format.SampleRate)*s.period.Seconds() + s.carry
	frames := int(exact)
	s.carry = exact - float64(frames)

	ch := s.format.Channels
	values := make([]float64, frames)
	for i := range values {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.format.SampleRate)
		values[i] = math.Sin(2*math.Pi*s.host.Frequency*t) * s.host.Amplitude
	}
	s.sampleIndex += uint64(frames)

	return toneBlock(s.format, values, ch)
}

// toneBlock duplicates each value to all channels in the native variant
// of format
func toneBlock(format audio.Format, values []float64, ch int) audio.Block {
	n := len(values) * ch
	if format.Kind == audio.KindFloat {
		b := make(audio.F32Samples, n)
		for i, v := range values {
			for c := 0; c < ch; c++ {
				b[i*ch+c] = float32(v)
			}
		}
		return b
	}

	switch format.BitDepth {
	case 8:
		b := make(audio.U8Samples, n)
		for i, v := range values {
			for c := 0; c < ch; c++ {
				b[i*ch+c] = uint8(audio.FloatToPCM(float32(v), 8) + 128)
			}
		}
		return b
	case 16:
		b := make(audio.S16Samples, n)
		for i, v := range values {
			for c := 0; c < ch; c++ {
				b[i*ch+c] = int16(audio.FloatToPCM(float32(v), 16))
			}
		}
		return b
	case 24:
		b := make(audio.S24Samples, n)
		for i, v := range values {
			for c := 0; c < ch; c++ {
				b[i*ch+c] = audio.FloatToPCM(float32(v), 24)
			}
		}
		return b
	default:
		b := make(audio.S32Samples, n)
		for i, v := range values {
			for c := 0; c < ch; c++ {
				b[i*ch+c] = audio.FloatToPCM(float32(v), 32)
			}
		}
		return b
	}
}

func (s *toneStream) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *toneStream) Close() error {
	return s.Stop()
}
