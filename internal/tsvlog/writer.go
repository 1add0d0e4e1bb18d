// Package tsvlog writes telemetry frames to tab separated log files, reads them
// back and hands frames off to sinks running on their own goroutine
package tsvlog

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/team4028/robot-telemetry/internal/telemetry"
)

const fileTimeFormat = "20060102_150405"

// FileName returns the log file path for a logging session started at t
func FileName(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("robot_log_%s.tsv", t.UTC().Format(fileTimeFormat)))
}

// WithLogger sets the logger for the writer
func WithLogger(logger *slog.Logger) func(w *Writer) {
	return func(w *Writer) {
		w.logger = logger
	}
}

// Writer appends frames to a TSV log. The header line is written before the first
// data line; afterwards every Write appends exactly one line.
type Writer struct {
	path   string
	buf    *bufio.Writer
	closer io.Closer

	headerWritten bool
	rows          int64
	bytes         uint64

	logger *slog.Logger
}

// NewWriter creates a writer on top of w. Close does not close w.
func NewWriter(w io.Writer, options ...func(w *Writer)) *Writer {
	tw := Writer{
		buf:    bufio.NewWriter(w),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&tw)
	}

	return &tw
}

// Create creates a new log file, including missing parent directories. An
// existing file is never overwritten.
func Create(path string, options ...func(w *Writer)) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}

	w := NewWriter(file, options...)
	w.path = path
	w.closer = file
	w.logger = w.logger.With(slog.String("path", path))

	return w, nil
}

// Write appends the frame's data line, preceded by the header on first use
func (w *Writer) Write(f *telemetry.Frame) error {
	if !w.headerWritten {
		n, err := w.buf.WriteString(f.Header())
		w.bytes += uint64(n)
		if err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		w.headerWritten = true
	}

	n, err := w.buf.WriteString(f.Data())
	w.bytes += uint64(n)
	if err != nil {
		return fmt.Errorf("writing data line: %w", err)
	}

	w.rows++
	return nil
}

// Flush writes buffered lines to the underlying writer
func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flushing log: %w", err)
	}
	return nil
}

// Close flushes the log and closes the file if the writer owns one
func (w *Writer) Close() (err error) {
	err = w.Flush()

	if w.closer != nil {
		if cErr := w.closer.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing log file: %w", cErr)
		}
		w.closer = nil
	}

	w.logger.Info("log closed",
		slog.String("rows", humanize.Comma(w.rows)),
		slog.String("size", humanize.Bytes(w.bytes)))

	return err
}

// Path returns the file path, empty for writers created with NewWriter
func (w *Writer) Path() string {
	return w.path
}

// Rows returns the number of data lines written
func (w *Writer) Rows() int64 {
	return w.rows
}
