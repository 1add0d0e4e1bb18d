package storage

import (
	"context"
	"fmt"

	"github.com/team4028/robot-telemetry/internal/telemetry"
)

const defaultMaxBatchSize = 100

// WithMaxBatchSize sets the number of frames stored within a single database
// transaction
func WithMaxBatchSize(size int) func(*FrameWriter) {
	return func(w *FrameWriter) {
		if size > 0 {
			w.maxBatchSize = size
		}
	}
}

// FrameWriter buffers frames of one session and stores them in batches. It
// satisfies tsvlog.Sink and, like every sink, is used from one goroutine only.
type FrameWriter struct {
	ctx       context.Context // bounds every batch insert
	store     Store
	sessionID int64

	seq          int64
	batch        []FrameRecord
	maxBatchSize int
}

// NewFrameWriter creates a writer appending to an existing session
func NewFrameWriter(ctx context.Context, store Store, sessionID int64, options ...func(*FrameWriter)) *FrameWriter {
	w := FrameWriter{
		ctx:          ctx,
		store:        store,
		sessionID:    sessionID,
		maxBatchSize: defaultMaxBatchSize,
	}

	for _, option := range options {
		option(&w)
	}

	w.batch = make([]FrameRecord, 0, w.maxBatchSize)
	return &w
}

// Write buffers the frame, storing the batch once it is full
func (w *FrameWriter) Write(f *telemetry.Frame) error {
	w.seq++
	w.batch = append(w.batch, NewFrameRecord(w.seq, f))

	if len(w.batch) >= w.maxBatchSize {
		return w.Flush()
	}
	return nil
}

// Flush stores buffered frames
func (w *FrameWriter) Flush() error {
	if len(w.batch) == 0 {
		return nil
	}

	if err := w.store.StoreFrames(w.ctx, w.sessionID, w.batch); err != nil {
		return fmt.Errorf("storing %d frames for session %d: %w", len(w.batch), w.sessionID, err)
	}

	w.batch = w.batch[:0]
	return nil
}

// Close stores any remaining frames. The store itself stays open.
func (w *FrameWriter) Close() error {
	return w.Flush()
}

// Frames returns the number of frames written so far
func (w *FrameWriter) Frames() int64 {
	return w.seq
}
