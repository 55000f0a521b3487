// ABOUTME: Recorder configuration loaded from TOML, environment and CLI flags
// ABOUTME: Precedence is CLI flags > environment > config file > defaults
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/Resonate-Protocol/resonate-capture/pkg/capture"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

// DefaultPath is read when no config file is given; it may be absent
const DefaultPath = "resonate-capture.toml"

// EnvPrefix prefixes environment overrides, e.g. RESONATE_CAPTURE_DEVICE
const EnvPrefix = "RESONATE_CAPTURE_"

// Duration is a time.Duration written as a string like "90s" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full recorder configuration
type Config struct {
	Format  FormatConfig  `toml:"format"`
	Capture CaptureConfig `toml:"capture"`
	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
	UI      UIConfig      `toml:"ui"`
}

// FormatConfig is the file format
type FormatConfig struct {
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	BitDepth   int    `toml:"bit_depth"`
	Kind       string `toml:"kind"`
}

// CaptureConfig controls the recording session
type CaptureConfig struct {
	Device          string   `toml:"device"`
	Output          string   `toml:"output"`
	Mode            string   `toml:"mode"`
	Duration        Duration `toml:"duration"`
	MaxBytes        int64    `toml:"max_bytes"`
	MaxDuration     Duration `toml:"max_duration"`
	FlushInterval   Duration `toml:"flush_interval"`
	OnCallbackError string   `toml:"on_callback_error"`
	Salvage         bool     `toml:"salvage"`
}

// LoggingConfig controls the log file
type LoggingConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	Debug      bool   `toml:"debug"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// UIConfig controls the terminal UI
type UIConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the built-in configuration: 44.1kHz mono 16-bit into
// memory, written to capture.wav
func Default() Config {
	return Config{
		Format: FormatConfig{
			SampleRate: 44100,
			Channels:   1,
			BitDepth:   16,
			Kind:       "int",
		},
		Capture: CaptureConfig{
			Output:          "capture.wav",
			Mode:            "memory",
			FlushInterval:   Duration{500 * time.Millisecond},
			OnCallbackError: "continue",
		},
		Logging: LoggingConfig{
			File:       "resonate-capture.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		UI: UIConfig{Enabled: true},
	}
}

// Load reads path over the defaults. An empty path reads DefaultPath if
// it exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	if err := Decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r into cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	d := toml.NewDecoder(r)
	d.DisallowUnknownFields()
	if err := d.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from RESONATE_CAPTURE_* variables
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvPrefix + "DEVICE"); v != "" {
		c.Capture.Device = v
	}
	if v := getenv(EnvPrefix + "OUTPUT"); v != "" {
		c.Capture.Output = v
	}
	if v := getenv(EnvPrefix + "MODE"); v != "" {
		c.Capture.Mode = v
	}
	if v := getenv(EnvPrefix + "LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := getenv(EnvPrefix + "METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := getenv(EnvPrefix + "DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEBUG: %w", EnvPrefix, err)
		}
		c.Logging.Debug = b
	}
	return nil
}

// ApplyFlags copies every flag explicitly set on the command line
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = c.applyFlag(flags, f.Name)
	})
	return err
}

func (c *Config) applyFlag(flags *pflag.FlagSet, name string) error {
	var err error
	switch name {
	case "device":
		c.Capture.Device, err = flags.GetString(name)
	case "rate":
		c.Format.SampleRate, err = flags.GetInt(name)
	case "channels":
		c.Format.Channels, err = flags.GetInt(name)
	case "bit-depth":
		c.Format.BitDepth, err = flags.GetInt(name)
	case "kind":
		c.Format.Kind, err = flags.GetString(name)
	case "mode":
		c.Capture.Mode, err = flags.GetString(name)
	case "duration":
		c.Capture.Duration.Duration, err = flags.GetDuration(name)
	case "max-duration":
		c.Capture.MaxDuration.Duration, err = flags.GetDuration(name)
	case "max-bytes":
		c.Capture.MaxBytes, err = flags.GetInt64(name)
	case "flush-interval":
		c.Capture.FlushInterval.Duration, err = flags.GetDuration(name)
	case "on-callback-error":
		c.Capture.OnCallbackError, err = flags.GetString(name)
	case "salvage":
		c.Capture.Salvage, err = flags.GetBool(name)
	case "log-file":
		c.Logging.File, err = flags.GetString(name)
	case "debug":
		c.Logging.Debug, err = flags.GetBool(name)
	case "metrics-addr":
		c.Metrics.Addr, err = flags.GetString(name)
	case "no-tui":
		var off bool
		off, err = flags.GetBool(name)
		if off {
			c.UI.Enabled = false
		}
	}
	if err != nil {
		return fmt.Errorf("flag --%s: %w", name, err)
	}
	return nil
}

// AudioFormat returns the configured file format
func (c Config) AudioFormat() (audio.Format, error) {
	kind, err := audio.ParseKind(c.Format.Kind)
	if err != nil {
		return audio.Format{}, err
	}
	f := audio.Format{
		SampleRate: c.Format.SampleRate,
		Channels:   c.Format.Channels,
		BitDepth:   c.Format.BitDepth,
		Kind:       kind,
	}
	if err := f.Validate(); err != nil {
		return audio.Format{}, err
	}
	return f, nil
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if _, err := c.AudioFormat(); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	mode, err := capture.ParseMode(c.Capture.Mode)
	if err != nil {
		return fmt.Errorf("capture.mode: %w", err)
	}
	if _, err := capture.ParsePolicy(c.Capture.OnCallbackError); err != nil {
		return fmt.Errorf("capture.on_callback_error: %w", err)
	}
	if c.Capture.Output == "" {
		return errors.New("capture.output: no output path")
	}
	if c.Capture.MaxBytes < 0 {
		return errors.New("capture.max_bytes: must not be negative")
	}
	if c.Capture.Duration.Duration < 0 || c.Capture.MaxDuration.Duration < 0 {
		return errors.New("capture: durations must not be negative")
	}
	if mode == capture.ModeStream && c.Capture.FlushInterval.Duration <= 0 {
		return errors.New("capture.flush_interval: must be positive in stream mode")
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return errors.New("logging: sizes must not be negative")
	}
	return nil
}

// SessionConfig builds the capture session settings for host
func (c Config) SessionConfig() (capture.Config, error) {
	if err := c.Validate(); err != nil {
		return capture.Config{}, err
	}
	format, _ := c.AudioFormat()
	mode, _ := capture.ParseMode(c.Capture.Mode)
	policy, _ := capture.ParsePolicy(c.Capture.OnCallbackError)

	return capture.Config{
		Device:          c.Capture.Device,
		Format:          format,
		Path:            c.Capture.Output,
		Mode:            mode,
		MaxBytes:        c.Capture.MaxBytes,
		MaxDuration:     c.Capture.MaxDuration.Duration,
		FlushInterval:   c.Capture.FlushInterval.Duration,
		OnCallbackError: policy,
		Salvage:         c.Capture.Salvage,
	}, nil
}
