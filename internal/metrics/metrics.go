// ABOUTME: Prometheus metrics for capture sessions
// ABOUTME: Observes session events and serves them on an optional HTTP endpoint
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/pkg/capture"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "capture"

// Recorder collects session metrics on its own registry.
// It implements capture.Observer.
type Recorder struct {
	registry *prometheus.Registry

	blocks         prometheus.Counter
	bytes          prometheus.Counter
	discarded      prometheus.Counter
	callbackErrors prometheus.Counter
	bufferBytes    prometheus.Gauge
	captured       prometheus.Gauge
	finalize       prometheus.Histogram
	sessions       *prometheus.CounterVec
}

var _ capture.Observer = (*Recorder)(nil)

// New creates a Recorder with the Go runtime and process collectors
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Blocks appended to the capture buffer",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Encoded sample bytes appended to the capture buffer",
		}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_blocks_total",
			Help:      "Blocks rejected as malformed or over capacity",
		}),
		callbackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_errors_total",
			Help:      "Errors reported by the input stream",
		}),
		bufferBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_bytes",
			Help:      "Bytes captured in the current session",
		}),
		captured: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "captured_seconds",
			Help:      "Audio duration captured in the current session",
		}),
		finalize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "finalize_seconds",
			Help:      "Time spent writing and publishing the output file",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished sessions by result",
		}, []string{"result"}),
	}

	reg.MustRegister(r.blocks, r.bytes, r.discarded, r.callbackErrors,
		r.bufferBytes, r.captured, r.finalize, r.sessions)
	return r
}

// Registry returns the registry holding the recorder's collectors
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) BlockCaptured(n int) {
	r.blocks.Inc()
	r.bytes.Add(float64(n))
}

func (r *Recorder) BlockDiscarded() {
	r.discarded.Inc()
}

func (r *Recorder) CallbackError() {
	r.callbackErrors.Inc()
}

func (r *Recorder) Finalized(elapsed time.Duration) {
	r.finalize.Observe(elapsed.Seconds())
}

func (r *Recorder) Ended(result string) {
	r.sessions.WithLabelValues(result).Inc()
}

// ObserveStatus updates the gauges from a session snapshot
func (r *Recorder) ObserveStatus(st capture.Status) {
	r.bufferBytes.Set(float64(st.Bytes))
	r.captured.Set(st.Captured.Seconds())
}

// Handler returns the HTTP handler for the recorder's registry
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is done
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Metrics available at http://%s/metrics", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
