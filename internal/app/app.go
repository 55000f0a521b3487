// ABOUTME: Command tree for the capture CLI
// ABOUTME: Wires configuration, logging and the audio host into each subcommand
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/resonate-capture/internal/config"
	"github.com/Resonate-Protocol/resonate-capture/internal/logging"
	"github.com/Resonate-Protocol/resonate-capture/internal/version"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/input"
	"github.com/Resonate-Protocol/resonate-capture/pkg/capture"
	"github.com/spf13/cobra"
)

// Host names accepted by --host
const (
	HostMiniaudio = "miniaudio"
	HostTone      = "tone"
)

// newMalgo opens the system audio host; replaced in tests
var newMalgo = func() (input.Host, error) {
	m, err := input.NewMalgo()
	if err != nil {
		return nil, err
	}
	m.Debugf = logging.Debugf
	return m, nil
}

type rootOptions struct {
	configPath string
	host       string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "resonate-capture",
		Short:         "Record audio input devices to WAV files",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Configuration file")
	root.PersistentFlags().StringVar(&opts.host, "host", "", "Audio host (miniaudio or tone)")

	root.AddCommand(
		newRecordCmd(opts),
		newDevicesCmd(opts),
		newInspectCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig merges defaults, the config file, the environment and the
// flags that were set, in that order
func loadConfig(opts *rootOptions, cmd *cobra.Command) (config.Config, error) {
	path := opts.configPath
	if !cmd.Flags().Changed("config") {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openHost picks the audio host from --host, falling back to the tone
// host when the tone device is requested
func openHost(name, device string) (input.Host, error) {
	if name == "" && device == input.ToneDeviceName {
		name = HostTone
	}
	switch name {
	case HostTone:
		return input.NewToneHost(), nil
	case "", HostMiniaudio:
		h, err := newMalgo()
		if err != nil {
			return nil, &capture.Error{Kind: capture.KindDevice, Op: "open host", Err: err}
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unknown host %q", name)
	}
}

func newRecordCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record [path]",
		Short: "Capture audio from an input device into a WAV file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Capture.Output = args[0]
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logs := logging.Setup(logging.Options{
				File:       cfg.Logging.File,
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				Console:    !cfg.UI.Enabled,
				Debug:      cfg.Logging.Debug,
			})
			defer func() { _ = logs.Close() }()

			host, err := openHost(opts.host, cfg.Capture.Device)
			if err != nil {
				return err
			}
			defer func() { _ = host.Close() }()

			log.Printf("Starting %s", version.String())
			rec, err := NewRecorder(cfg, host)
			if err != nil {
				return err
			}
			log.Printf("Session %s recording to %s", rec.Session().ID(), cfg.Capture.Output)

			res, err := rec.Run(cmd.Context())
			if err != nil {
				if res.Salvaged {
					fmt.Fprintf(cmd.OutOrStdout(), "Salvaged %d bytes to %s\n", res.Bytes, res.Path)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %s, %d bytes, %s\n",
				res.Path, res.Format, res.Bytes, res.Duration)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("device", "d", "", "Input device name (default device when empty)")
	f.IntP("rate", "r", 44100, "Sample rate in Hz")
	f.Int("channels", 1, "Channel count")
	f.Int("bit-depth", 16, "Bits per sample")
	f.String("kind", "int", "Sample kind (int or float)")
	f.String("mode", "memory", "Capture mode (memory or stream)")
	f.Duration("duration", 0, "Stop after this long (0 records until interrupted)")
	f.Duration("max-duration", 0, "Capacity limit as a duration of audio")
	f.Int64("max-bytes", 0, "Capacity limit in sample bytes")
	f.Duration("flush-interval", 0, "How often stream mode flushes to disk")
	f.String("on-callback-error", "continue", "Callback failure policy (continue or abort)")
	f.Bool("salvage", false, "Write a .incomplete.wav file when recording fails")
	f.String("log-file", "", "Log file path")
	f.Bool("debug", false, "Enable debug logging")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	f.Bool("no-tui", false, "Disable the TUI and stream logs to stdout")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
