package tsvlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/team4028/robot-telemetry/internal/telemetry"
)

// DefaultQueueSize is the number of frames the recorder buffers, about two
// seconds of a 50 Hz control loop
const DefaultQueueSize = 100

// ErrRecorderClosed is returned by Start after Close
var ErrRecorderClosed = errors.New("recorder is closed")

// Sink consumes frames handed off by a Recorder. Sinks are only ever called from
// the recorder's goroutine.
type Sink interface {
	Write(f *telemetry.Frame) error
	Close() error
}

// WithRecorderLogger sets the logger for the recorder
func WithRecorderLogger(logger *slog.Logger) func(r *Recorder) {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithQueueSize sets how many frames may wait for the sinks
func WithQueueSize(size int) func(r *Recorder) {
	return func(r *Recorder) {
		if size > 0 {
			r.queueSize = size
		}
	}
}

// Recorder moves frames from the control cycle to slower sinks (files,
// databases) on a separate goroutine. The control cycle keeps exclusive
// ownership of its frame: Record hands over a snapshot and never blocks.
type Recorder struct {
	sinks     []Sink
	sinkErrs  []error
	queueSize int
	queue     chan *telemetry.Frame

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup

	recorded atomic.Int64
	dropped  atomic.Int64

	logger *slog.Logger
}

// NewRecorder creates a recorder feeding the given sinks
func NewRecorder(sinks []Sink, options ...func(r *Recorder)) *Recorder {
	r := Recorder{
		sinks:     sinks,
		sinkErrs:  make([]error, len(sinks)),
		queueSize: DefaultQueueSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&r)
	}

	r.queue = make(chan *telemetry.Frame, r.queueSize)
	return &r
}

// Start launches the goroutine that drains the queue into the sinks. It stops
// when the recorder is closed or ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRecorderClosed
	}
	if r.started {
		return fmt.Errorf("recorder is already running")
	}
	r.started = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()

	return nil
}

// Record queues a snapshot of the frame. It returns false when the frame was
// dropped because the queue is full or the recorder is closed.
func (r *Recorder) Record(f *telemetry.Frame) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return false
	}

	select {
	case r.queue <- f.Snapshot():
		r.recorded.Add(1)
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Close stops accepting frames, waits for queued frames to reach the sinks and
// closes them. It is safe to call Close multiple times.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	// frames left behind by a cancelled or never started goroutine
	r.wg.Wait()
	r.drain()

	errs := make([]error, 0, len(r.sinks))
	for i, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing sink %d: %w", i, err))
		}
		if r.sinkErrs[i] != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, r.sinkErrs[i]))
		}
	}

	if n := r.dropped.Load(); n > 0 {
		r.logger.Warn("frames dropped", slog.Int64("dropped", n), slog.Int64("recorded", r.recorded.Load()))
	}

	return errors.Join(errs...)
}

// Dropped returns the number of frames that never reached the queue
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) run(ctx context.Context) {
	for {
		select {
		case f, ok := <-r.queue:
			if !ok {
				return
			}
			r.write(f)

		case <-ctx.Done():
			r.logger.Info("recorder stopped", slog.String("reason", ctx.Err().Error()))
			return
		}
	}
}

// drain writes whatever is still queued. The queue must be closed.
func (r *Recorder) drain() {
	for f := range r.queue {
		r.write(f)
	}
}

// write delivers the frame to every healthy sink. A sink that fails once is
// skipped from then on.
func (r *Recorder) write(f *telemetry.Frame) {
	for i, sink := range r.sinks {
		if r.sinkErrs[i] != nil {
			continue
		}
		if err := sink.Write(f); err != nil {
			r.sinkErrs[i] = err
			r.logger.Error(fmt.Sprintf("sink failed, disabling: %s", err.Error()), slog.Int("sink", i))
		}
	}
}
