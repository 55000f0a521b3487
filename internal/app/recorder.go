// ABOUTME: Main recorder application orchestration
// ABOUTME: Coordinates the capture session, TUI, status updates and metrics
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/internal/config"
	"github.com/Resonate-Protocol/resonate-capture/internal/metrics"
	"github.com/Resonate-Protocol/resonate-capture/internal/ui"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/input"
	"github.com/Resonate-Protocol/resonate-capture/pkg/capture"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// statusInterval is how often the TUI and gauges are refreshed
const statusInterval = 100 * time.Millisecond

// Recorder runs one capture session with its supporting goroutines
type Recorder struct {
	cfg     config.Config
	session *capture.Session
	metrics *metrics.Recorder
	control *ui.Control
	tuiProg *tea.Program
}

// NewRecorder builds a recorder for host from a validated config
func NewRecorder(cfg config.Config, host input.Host) (*Recorder, error) {
	sc, err := cfg.SessionConfig()
	if err != nil {
		return nil, err
	}

	rec := &Recorder{
		cfg:     cfg,
		metrics: metrics.New(),
		control: ui.NewControl(),
	}
	sc.Host = host
	sc.Observer = rec.metrics

	rec.session, err = capture.NewSession(sc)
	if err != nil {
		return nil, err
	}

	if cfg.UI.Enabled {
		rec.tuiProg = ui.Run(rec.control, sc.Path)
	}
	return rec, nil
}

// Session returns the underlying capture session
func (r *Recorder) Session() *capture.Session {
	return r.session
}

// Run records until ctx is done, the configured duration passes, or the
// TUI requests a stop
func (r *Recorder) Run(ctx context.Context) (capture.Result, error) {
	g, gctx := errgroup.WithContext(ctx)

	recCtx, stop := context.WithCancel(gctx)
	defer stop()
	if d := r.cfg.Capture.Duration.Duration; d > 0 {
		var cancel context.CancelFunc
		recCtx, cancel = context.WithTimeout(recCtx, d)
		defer cancel()
	}

	// auxCtx ends the helpers once the session has finished
	auxCtx, auxDone := context.WithCancel(gctx)
	defer auxDone()

	var res capture.Result
	var runErr error
	g.Go(func() error {
		defer auxDone()
		res, runErr = r.session.Run(recCtx)
		if r.tuiProg != nil {
			r.tuiProg.Send(ui.DoneMsg{Summary: summary(res, runErr)})
		}
		return nil
	})

	g.Go(func() error {
		r.statusLoop(auxCtx)
		return nil
	})

	g.Go(func() error {
		select {
		case <-r.control.Stop:
			log.Printf("Stop requested from TUI")
			stop()
		case <-auxCtx.Done():
		}
		return nil
	})

	if addr := r.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error {
			return r.metrics.Serve(auxCtx, addr)
		})
	}

	if r.tuiProg != nil {
		g.Go(func() error {
			if _, err := r.tuiProg.Run(); err != nil {
				stop()
				return fmt.Errorf("TUI failed: %w", err)
			}
			return nil
		})
	}

	gerr := g.Wait()
	if runErr != nil {
		return res, runErr
	}
	return res, gerr
}

// statusLoop pushes session snapshots to the TUI and the gauges
func (r *Recorder) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	msg := ui.StatusMsg{Path: r.cfg.Capture.Output, Limit: r.cfg.Capture.MaxDuration.Duration}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := r.session.Status()
			r.metrics.ObserveStatus(st)
			if r.tuiProg != nil {
				msg.Status = st
				r.tuiProg.Send(msg)
			}
		}
	}
}

func summary(res capture.Result, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf("saved %s (%s)", res.Path, res.Duration.Round(time.Millisecond))
	case res.Salvaged:
		return fmt.Sprintf("salvaged %s: %v", res.Path, err)
	default:
		return fmt.Sprintf("failed: %v", err)
	}
}
