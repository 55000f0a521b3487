// ABOUTME: Recording session control loop
// ABOUTME: Opens the device, feeds the buffer from the callback and finalizes one file
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/input"
	"github.com/Resonate-Protocol/resonate-capture/pkg/wav"
	"github.com/google/uuid"
)

// fileWriter is the part of *wav.Writer that stream mode uses
type fileWriter interface {
	Write(p []byte) (int, error)
	SetPath(path string)
	Close() error
	Abort()
}

// createWriter opens the stream mode writer; replaced in tests
var createWriter = func(path string, format audio.Format) (fileWriter, error) {
	w, err := wav.Create(path, format)
	if err != nil {
		return nil, err
	}
	return w, nil
}

var (
	// ErrSessionUsed is returned when Run is called twice
	ErrSessionUsed = errors.New("capture: session already run")

	// ErrLimitTooSmall is returned when a capture limit is shorter than one frame
	ErrLimitTooSmall = errors.New("capture: limit shorter than one frame")
)

// Mode selects how captured data reaches the file
type Mode int

const (
	// ModeMemory holds everything in memory and writes the file on stop
	ModeMemory Mode = iota
	// ModeStream writes to the file periodically while recording
	ModeStream
)

func (m Mode) String() string {
	if m == ModeStream {
		return "stream"
	}
	return "memory"
}

// ParseMode parses "memory" or "stream"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "memory":
		return ModeMemory, nil
	case "stream":
		return ModeStream, nil
	default:
		return ModeMemory, fmt.Errorf("unknown capture mode %q", s)
	}
}

// CallbackPolicy decides what a stream error does to the session
type CallbackPolicy int

const (
	// PolicyContinue logs and counts the error and keeps recording
	PolicyContinue CallbackPolicy = iota
	// PolicyAbort ends the session with a KindCallback error
	PolicyAbort
)

func (p CallbackPolicy) String() string {
	if p == PolicyAbort {
		return "abort"
	}
	return "continue"
}

// ParsePolicy parses "continue" or "abort"
func ParsePolicy(s string) (CallbackPolicy, error) {
	switch strings.ToLower(s) {
	case "", "continue":
		return PolicyContinue, nil
	case "abort":
		return PolicyAbort, nil
	default:
		return PolicyContinue, fmt.Errorf("unknown callback error policy %q", s)
	}
}

// Phase is the externally visible progress of a session
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseOpening
	PhaseRecording
	PhaseStopping
	PhaseFinalizing
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOpening:
		return "opening"
	case PhaseRecording:
		return "recording"
	case PhaseStopping:
		return "stopping"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Observer receives session events, typically for metrics.
// Block and callback events arrive on the callback goroutine.
type Observer interface {
	BlockCaptured(bytes int)
	BlockDiscarded()
	CallbackError()
	Finalized(elapsed time.Duration)
	Ended(result string)
}

type nopObserver struct{}

func (nopObserver) BlockCaptured(int) {}
func (nopObserver) BlockDiscarded() {}
func (nopObserver) CallbackError() {}
func (nopObserver) Finalized(time.Duration) {}
func (nopObserver) Ended(string) {}

// Session results reported to Observer.Ended
const (
	ResultOK       = "ok"
	ResultSalvaged = "salvaged"
	ResultError    = "error"
)

// Config describes one recording
type Config struct {
	Host   input.Host
	Device string // empty selects the default input

	// Format is the file format; the device may run in another rate or
	// depth, in which case blocks are converted
	Format audio.Format
	Path   string
	Mode   Mode

	// MaxBytes and MaxDuration bound the capture; zero means only the
	// container limit applies
	MaxBytes    int64
	MaxDuration time.Duration

	// FlushInterval is how often stream mode writes to disk
	FlushInterval time.Duration

	OnCallbackError CallbackPolicy

	// Salvage writes captured data to <base>.incomplete.wav when the
	// session ends on a capacity or callback error
	Salvage bool

	Observer Observer
}

// Result describes the file a session produced
type Result struct {
	ID       string
	Path     string
	Format   audio.Format
	Bytes    int64
	Duration time.Duration
	Salvaged bool
}

// Status is a point-in-time view of a running session
type Status struct {
	ID             string
	Device         string
	DeviceFormat   audio.Format
	FileFormat     audio.Format
	Mode           Mode
	Phase          Phase
	Resampling     bool
	Elapsed        time.Duration
	Captured       time.Duration
	Bytes          int64
	Blocks         int64
	Discarded      int64
	CallbackErrors int64
}

// Session records from one device into one file
type Session struct {
	cfg      Config
	id       string
	observer Observer

	mu           sync.Mutex
	device       string
	deviceFormat audio.Format
	fileFormat   audio.Format
	resampling   bool
	buf          *Buffer

	ran            atomic.Bool
	phase          atomic.Int32
	startedAt      atomic.Int64
	callbackErrors atomic.Int64
	dropped        atomic.Int64

	fatal chan *Error
}

// NewSession validates cfg and prepares a session
func NewSession(cfg Config) (*Session, error) {
	if cfg.Host == nil {
		return nil, errors.New("capture: no host")
	}
	if cfg.Path == "" {
		return nil, errors.New("capture: no output path")
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxBytes < 0 || cfg.MaxDuration < 0 {
		return nil, errors.New("capture: negative capture limit")
	}
	if err := checkLimits(cfg); err != nil {
		return nil, err
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}

	s := &Session{
		cfg:        cfg,
		id:         uuid.NewString(),
		observer:   cfg.Observer,
		fileFormat: cfg.Format,
		fatal:      make(chan *Error, 1),
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Status returns a snapshot of the session counters
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		ID:           s.id,
		Device:       s.device,
		DeviceFormat: s.deviceFormat,
		FileFormat:   s.fileFormat,
		Mode:         s.cfg.Mode,
		Resampling:   s.resampling,
	}
	buf := s.buf
	s.mu.Unlock()

	st.Phase = Phase(s.phase.Load())
	st.CallbackErrors = s.callbackErrors.Load()
	st.Discarded = s.dropped.Load()
	if started := s.startedAt.Load(); started != 0 {
		st.Elapsed = time.Since(time.Unix(0, started))
	}
	if buf != nil {
		stats := buf.Stats()
		st.Bytes = stats.Bytes
		st.Blocks = stats.Blocks
		st.Discarded += stats.Discarded
		st.Captured = bytesToDuration(stats.Bytes, st.FileFormat)
	}
	return st
}

// Run records until ctx is done or the session fails, then writes the
// file. It can be called once.
func (s *Session) Run(ctx context.Context) (res Result, err error) {
	if s.ran.Swap(true) {
		return Result{}, ErrSessionUsed
	}
	res.ID = s.id

	defer func() {
		switch {
		case err == nil:
			s.setPhase(PhaseDone)
			s.observer.Ended(ResultOK)
		case res.Salvaged:
			s.setPhase(PhaseFailed)
			s.observer.Ended(ResultSalvaged)
		default:
			s.setPhase(PhaseFailed)
			s.observer.Ended(ResultError)
		}
	}()

	s.setPhase(PhaseOpening)

	dev, err := input.FindDevice(s.cfg.Host, s.cfg.Device)
	if err != nil {
		return res, newError(KindDevice, "find device", err)
	}
	configs, err := s.cfg.Host.SupportedConfigs(dev)
	if err != nil {
		return res, newError(KindDevice, "query configs", err)
	}
	devFormat, err := input.Choose(configs, s.cfg.Format)
	if err != nil {
		return res, newError(KindDevice, "choose config", err)
	}

	fileFormat := s.cfg.Format
	if devFormat.Channels != fileFormat.Channels {
		log.Printf("Device %s records %d channels, writing %d-channel file", dev.Name, devFormat.Channels, devFormat.Channels)
		fileFormat.Channels = devFormat.Channels
	}
	res.Format = fileFormat

	adapter, err := NewAdapter(devFormat, fileFormat)
	if err != nil {
		return res, newError(KindDevice, "build adapter", err)
	}

	limit := s.limit(fileFormat)
	opts := []Option{WithLimit(limit)}
	if s.cfg.Mode == ModeMemory {
		opts = append(opts, WithPrealloc(fileFormat.ByteRate()*10))
	}
	buf, err := NewBuffer(fileFormat, opts...)
	if err != nil {
		return res, newError(KindDevice, "allocate buffer", err)
	}

	s.mu.Lock()
	s.device = dev.Name
	s.deviceFormat = devFormat
	s.fileFormat = fileFormat
	s.resampling = adapter.Resampling()
	s.buf = buf
	s.mu.Unlock()

	onData := func(b audio.Block) {
		data, err := adapter.Convert(b)
		if err != nil {
			s.dropped.Add(1)
			s.observer.BlockDiscarded()
			log.Printf("Discarded malformed block: %v", err)
			return
		}
		if err := buf.Append(data); err != nil {
			s.observer.BlockDiscarded()
			if errors.Is(err, ErrCapacity) {
				s.fail(newError(KindCapacity, "append", err))
			}
			return
		}
		s.observer.BlockCaptured(len(data))
	}

	onError := func(err error) {
		if errors.Is(err, input.ErrMalformedBlock) {
			s.dropped.Add(1)
			s.observer.BlockDiscarded()
		}
		s.callbackErrors.Add(1)
		s.observer.CallbackError()
		log.Printf("Stream error: %v", err)
		if s.cfg.OnCallbackError == PolicyAbort {
			s.fail(newError(KindCallback, "stream", err))
		}
	}

	stream, err := s.cfg.Host.OpenInput(dev, devFormat, onData, onError)
	if err != nil {
		return res, newError(KindStream, "open stream", err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			log.Printf("Warning: stream close error: %v", cerr)
		}
	}()

	var w fileWriter
	if s.cfg.Mode == ModeStream {
		w, err = createWriter(s.cfg.Path, fileFormat)
		if err != nil {
			return res, newError(KindIO, "create file", err)
		}
	}

	if err := stream.Start(); err != nil {
		if w != nil {
			w.Abort()
		}
		return res, newError(KindStream, "start stream", err)
	}
	s.startedAt.Store(time.Now().UnixNano())
	s.setPhase(PhaseRecording)
	log.Printf("Recording %s from %s (device %s, %s mode) to %s", fileFormat, dev.Name, devFormat, s.cfg.Mode, s.cfg.Path)

	var stopFlush, flushDone chan struct{}
	if w != nil {
		stopFlush = make(chan struct{})
		flushDone = make(chan struct{})
		go s.flushLoop(w, buf, stopFlush, flushDone)
	}

	var cause *Error
	select {
	case <-ctx.Done():
	case cause = <-s.fatal:
	}

	s.setPhase(PhaseStopping)
	if err := stream.Stop(); err != nil {
		log.Printf("Warning: stream stop error: %v", err)
	}
	if stopFlush != nil {
		close(stopFlush)
		<-flushDone
	}
	if cause == nil {
		select {
		case cause = <-s.fatal:
		default:
		}
	}

	data, err := buf.Drain()
	if err != nil && cause == nil {
		cause = newError(KindIO, "drain buffer", err)
	}
	return s.finish(res, cause, w, data, buf.Stats())
}

// limit returns the byte cap for the buffer, rounded down to whole frames
// and never above what the container can describe
func (s *Session) limit(f audio.Format) int64 {
	limit := int64(wav.MaxDataSize)
	if s.cfg.MaxBytes > 0 && s.cfg.MaxBytes < limit {
		limit = s.cfg.MaxBytes
	}
	if s.cfg.MaxDuration > 0 {
		d := int64(s.cfg.MaxDuration.Seconds() * float64(f.ByteRate()))
		if d < limit {
			limit = d
		}
	}
	align := int64(f.BlockAlign())
	limit -= limit % align
	if limit < align {
		// the file may carry more channels than requested
		limit = align
	}
	return limit
}

// checkLimits rejects byte and duration caps that cannot hold one frame of
// the requested format
func checkLimits(cfg Config) error {
	align := int64(cfg.Format.BlockAlign())
	if cfg.MaxBytes > 0 && cfg.MaxBytes < align {
		return fmt.Errorf("%w: max bytes %d, frame is %d bytes", ErrLimitTooSmall, cfg.MaxBytes, align)
	}
	if cfg.MaxDuration > 0 {
		if d := int64(cfg.MaxDuration.Seconds() * float64(cfg.Format.ByteRate())); d < align {
			return fmt.Errorf("%w: max duration %s", ErrLimitTooSmall, cfg.MaxDuration)
		}
	}
	return nil
}

func (s *Session) flushLoop(w fileWriter, buf *Buffer, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			chunk := buf.Take()
			if len(chunk) == 0 {
				continue
			}
			if _, err := w.Write(chunk); err != nil {
				s.fail(newError(KindIO, "write file", err))
				return
			}
		}
	}
}

// finish writes the drained data to its destination. On a capacity or
// callback failure with salvage enabled the file goes to the incomplete
// path and the failure is still returned.
func (s *Session) finish(res Result, cause *Error, w fileWriter, data []byte, stats Stats) (Result, error) {
	s.setPhase(PhaseFinalizing)

	path := s.cfg.Path
	if cause != nil {
		if cause.Kind == KindIO || !s.cfg.Salvage {
			if w != nil {
				w.Abort()
			}
			return res, cause
		}
		path = SalvagePath(s.cfg.Path)
		res.Salvaged = true
		log.Printf("Session failed (%v), salvaging %d bytes to %s", cause, stats.Bytes, path)
	}

	start := time.Now()
	var err error
	if w != nil {
		w.SetPath(path)
		if len(data) > 0 {
			_, err = w.Write(data)
		}
		if err != nil {
			w.Abort()
		} else {
			err = w.Close()
		}
	} else {
		err = wav.Finalize(res.Format, data, path)
	}
	if err != nil {
		res.Salvaged = false
		return res, newError(KindIO, "finalize", err)
	}
	s.observer.Finalized(time.Since(start))

	res.Path = path
	res.Bytes = stats.Bytes
	res.Duration = bytesToDuration(stats.Bytes, res.Format)
	log.Printf("Wrote %s: %d bytes, %s", path, res.Bytes, res.Duration.Round(time.Millisecond))

	if cause != nil {
		return res, cause
	}
	return res, nil
}

func (s *Session) fail(err *Error) {
	select {
	case s.fatal <- err:
	default:
	}
}

func (s *Session) setPhase(p Phase) {
	s.phase.Store(int32(p))
}

// SalvagePath returns the path used for data of a failed session:
// "take.wav" becomes "take.incomplete.wav"
func SalvagePath(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".wav"
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".incomplete" + ext
}

func bytesToDuration(n int64, f audio.Format) time.Duration {
	rate := f.ByteRate()
	if rate == 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(rate) * float64(time.Second))
}
