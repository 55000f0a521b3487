// ABOUTME: Malgo-based audio capture implementation with 24-bit support
// ABOUTME: Uses miniaudio library via malgo to record from system input devices
package input

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/decode"
	"github.com/gen2brain/malgo"
)

// Rates probed when a backend reports a format without a fixed rate
const (
	anyMinRate = 8000
	anyMaxRate = 192000
)

// Malgo captures audio through the malgo/miniaudio library
type Malgo struct {
	malgoCtx *malgo.AllocatedContext
	mu       sync.Mutex

	// Debugf, when set, receives per-callback trace lines
	Debugf func(format string, args ...any)
}

// NewMalgo initializes a miniaudio context
func NewMalgo() (*Malgo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	return &Malgo{malgoCtx: ctx}, nil
}

// Name identifies the backend
func (m *Malgo) Name() string {
	return "miniaudio"
}

// InputDevices lists capture devices
func (m *Malgo) InputDevices() ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos, err := m.malgoCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for i := range infos {
		info := infos[i]
		devices = append(devices, Device{
			ID:      info.ID.String(),
			Name:    info.Name(),
			Default: info.IsDefault != 0,
			ref:     info.ID,
		})
	}
	return devices, nil
}

// DefaultInput returns the device flagged as default, or the first one
func (m *Malgo) DefaultInput() (Device, error) {
	devices, err := m.InputDevices()
	if err != nil {
		return Device{}, err
	}
	if len(devices) == 0 {
		return Device{}, ErrNoDevice
	}
	for _, d := range devices {
		if d.Default {
			return d, nil
		}
	}
	return devices[0], nil
}

// SupportedConfigs queries the native formats of dev. miniaudio converts
// between formats internally, so a device that reports nothing gets the
// common integer and float layouts.
func (m *Malgo) SupportedConfigs(dev Device) ([]Config, error) {
	id, ok := dev.ref.(malgo.DeviceID)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a miniaudio device", ErrNoDevice, dev.Name)
	}

	m.mu.Lock()
	info, err := m.malgoCtx.DeviceInfo(malgo.Capture, id, malgo.Shared)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to query device %q: %w", dev.Name, err)
	}

	var configs []Config
	for _, f := range info.Formats[:int(info.FormatCount)] {
		kind, depth, ok := fromMalgoFormat(f.Format)
		if !ok {
			continue
		}
		c := Config{
			Kind:     kind,
			BitDepth: depth,
			Channels: int(f.Channels),
			MinRate:  int(f.SampleRate),
			MaxRate:  int(f.SampleRate),
		}
		if c.Channels == 0 {
			c.Channels = 2
		}
		if f.SampleRate == 0 {
			c.MinRate, c.MaxRate = anyMinRate, anyMaxRate
		}
		configs = append(configs, c)
	}

	if len(configs) == 0 {
		for _, ch := range []int{1, 2} {
			for _, f := range []Config{
				{Kind: audio.KindInt, BitDepth: 16},
				{Kind: audio.KindInt, BitDepth: 24},
				{Kind: audio.KindInt, BitDepth: 32},
				{Kind: audio.KindFloat, BitDepth: 32},
			} {
				f.Channels = ch
				f.MinRate, f.MaxRate = anyMinRate, anyMaxRate
				configs = append(configs, f)
			}
		}
	}
	return configs, nil
}

// OpenInput initializes a capture device in format
func (m *Malgo) OpenInput(dev Device, format audio.Format, onData func(audio.Block), onError func(error)) (Stream, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	mf, err := toMalgoFormat(format)
	if err != nil {
		return nil, err
	}
	var dec decode.Decoder
	dec, err = decode.NewPCM(format)
	if err != nil {
		return nil, err
	}

	s := &malgoStream{onError: onError, dec: dec}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = mf
	deviceConfig.Capture.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if id, ok := dev.ref.(malgo.DeviceID); ok {
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		if m.Debugf != nil {
			m.Debugf("capture callback: %d frames at %s", frameCount, time.Now().Format(time.RFC3339Nano))
		}
		block, err := dec.Decode(pInputSamples)
		if err != nil {
			onError(fmt.Errorf("%w: %v", ErrMalformedBlock, err))
			return
		}
		onData(block)
	}

	onStop := func() {
		if !s.stopping.Load() {
			onError(fmt.Errorf("%s: device stopped unexpectedly", dev.Name))
		}
	}

	m.mu.Lock()
	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
		Stop: onStop,
	})
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}
	s.device = device

	log.Printf("Audio input initialized: %s on %s (malgo/%s)", format, dev.Name, formatName(mf))
	return s, nil
}

// Close releases the miniaudio context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx == nil {
		return nil
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
	return nil
}

type malgoStream struct {
	device   *malgo.Device
	dec      decode.Decoder
	onError  func(error)
	started  bool
	closed   bool
	stopping atomic.Bool
	mu       sync.Mutex
}

func (s *malgoStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if s.started {
		return ErrStarted
	}
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	s.started = true
	return nil
}

func (s *malgoStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.started {
		return nil
	}
	s.stopping.Store(true)
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	if err := s.Stop(); err != nil {
		log.Printf("Warning: device stop error: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.device.Uninit()
	return s.dec.Close()
}

func toMalgoFormat(f audio.Format) (malgo.FormatType, error) {
	if f.Kind == audio.KindFloat {
		return malgo.FormatF32, nil
	}
	switch f.BitDepth {
	case 8:
		return malgo.FormatU8, nil
	case 16:
		return malgo.FormatS16, nil
	case 24:
		return malgo.FormatS24, nil
	case 32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", f.BitDepth)
	}
}

func fromMalgoFormat(f malgo.FormatType) (audio.SampleKind, int, bool) {
	switch f {
	case malgo.FormatU8:
		return audio.KindInt, 8, true
	case malgo.FormatS16:
		return audio.KindInt, 16, true
	case malgo.FormatS24:
		return audio.KindInt, 24, true
	case malgo.FormatS32:
		return audio.KindInt, 32, true
	case malgo.FormatF32:
		return audio.KindFloat, 32, true
	default:
		return audio.KindInt, 0, false
	}
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatU8:
		return "U8"
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	case malgo.FormatF32:
		return "F32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
