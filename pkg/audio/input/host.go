// ABOUTME: Audio input interface definition
// ABOUTME: Common boundary for capture backends: hosts, devices, configs and streams
package input

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

var (
	// ErrNoDevice is returned when no input device is available or matches
	ErrNoDevice = errors.New("input: no input device")

	// ErrNoConfig is returned when a device reports no usable stream config
	ErrNoConfig = errors.New("input: no supported stream config")

	// ErrStarted is returned when a stream is started a second time
	ErrStarted = errors.New("input: stream already started")

	// ErrStreamClosed is returned when using a closed stream
	ErrStreamClosed = errors.New("input: stream closed")

	// ErrMalformedBlock is reported through onError when the host drops a
	// device buffer it could not decode
	ErrMalformedBlock = errors.New("input: malformed device block")
)

// Device identifies one capture endpoint of a host
type Device struct {
	ID      string
	Name    string
	Default bool

	// ref is the backend's native handle
	ref any
}

func (d Device) String() string {
	if d.Default {
		return d.Name + " (default)"
	}
	return d.Name
}

// Config is one supported stream configuration range of a device
type Config struct {
	Kind     audio.SampleKind
	BitDepth int
	Channels int
	MinRate  int
	MaxRate  int
}

// Contains reports whether rate is inside the config's range
func (c Config) Contains(rate int) bool {
	return rate >= c.MinRate && rate <= c.MaxRate
}

// Format returns the stream format of c at the given sample rate
func (c Config) Format(rate int) audio.Format {
	return audio.Format{
		SampleRate: rate,
		Channels:   c.Channels,
		BitDepth:   c.BitDepth,
		Kind:       c.Kind,
	}
}

func (c Config) String() string {
	label := fmt.Sprintf("s%d", c.BitDepth)
	switch {
	case c.Kind == audio.KindFloat:
		label = fmt.Sprintf("f%d", c.BitDepth)
	case c.BitDepth == 8:
		label = "u8"
	}
	return fmt.Sprintf("%s %dch %d-%dHz", label, c.Channels, c.MinRate, c.MaxRate)
}

// Host enumerates devices and opens capture streams
type Host interface {
	// Name identifies the backend
	Name() string

	// InputDevices lists capture devices
	InputDevices() ([]Device, error)

	// DefaultInput returns the system default capture device
	DefaultInput() (Device, error)

	// SupportedConfigs lists the stream configs a device accepts
	SupportedConfigs(dev Device) ([]Config, error)

	// OpenInput builds a stream in the given format. onData is invoked on
	// the backend's callback goroutine once per block; onError reports
	// asynchronous stream failures.
	OpenInput(dev Device, format audio.Format, onData func(audio.Block), onError func(error)) (Stream, error)

	// Close releases host resources
	Close() error
}

// Stream is an opened capture stream
type Stream interface {
	// Start begins delivering blocks. A stream can be started once.
	Start() error

	// Stop halts delivery. When Stop returns no further callbacks run.
	Stop() error

	// Close releases the stream; it stops the stream first if needed
	Close() error
}

// FindDevice returns the device whose ID or name equals name, or the
// default input when name is empty.
func FindDevice(h Host, name string) (Device, error) {
	if name == "" {
		return h.DefaultInput()
	}
	devices, err := h.InputDevices()
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.ID == name || d.Name == name {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %q", ErrNoDevice, name)
}
