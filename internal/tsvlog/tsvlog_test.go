package tsvlog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/team4028/robot-telemetry/internal/robotmap"
	"github.com/team4028/robot-telemetry/internal/telemetry"
)

func newFrame(t *testing.T) *telemetry.Frame {
	t.Helper()

	m, err := robotmap.Default()
	if err != nil {
		t.Fatalf("Failed to build robot map: %v", err)
	}
	return telemetry.New(m)
}

func TestFileName(t *testing.T) {
	ts := time.Date(2015, 8, 23, 10, 4, 5, 0, time.UTC)
	if got, want := FileName("/media/sda1/logging", ts), "/media/sda1/logging/robot_log_20150823_100405.tsv"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestWriterHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	f := newFrame(t)

	for i := 0; i < 3; i++ {
		f.Input.FPGATimeMicroSecs = int64(i * 20_000)
		if err := w.Write(f); err != nil {
			t.Fatalf("Failed to write frame %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d", len(lines))
	}
	if lines[0]+"\n" != telemetry.Header() {
		t.Error("First line is not the header")
	}
	if strings.Count(buf.String(), "Input:FPGATimeMicroSecs") != 1 {
		t.Error("Header written more than once")
	}
	if w.Rows() != 3 {
		t.Errorf("Expected 3 rows, got %d", w.Rows())
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	f := newFrame(t)

	for i := 1; i <= 5; i++ {
		f.Input.FPGATimeMicroSecs = int64(i * 20_000)
		f.Input.LeftDriveEncoderCurrentCount = float64(i * 100)
		f.Input.NavxIsMoving = i%2 == 0
		f.Output.DriversStationMsg = "cycle\t" + strings.Repeat("x", i)
		if err := w.Write(f); err != nil {
			t.Fatalf("Failed to write frame: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	if got, want := len(r.Columns()), len(telemetry.Columns()); got != want {
		t.Fatalf("Expected %d columns, got %d", want, got)
	}

	i := 0
	for r.Next() {
		i++
		rec := r.Record()

		us, err := rec.Int("Input:FPGATimeMicroSecs")
		if err != nil || us != int64(i*20_000) {
			t.Errorf("Row %d: unexpected time %d (%v)", i, us, err)
		}
		count, err := rec.Float("Input:LeftDriveEncoderCurrentCount")
		if err != nil || count != float64(i*100) {
			t.Errorf("Row %d: unexpected count %g (%v)", i, count, err)
		}
		moving, err := rec.Bool("Input:NavxIsMoving")
		if err != nil || moving != (i%2 == 0) {
			t.Errorf("Row %d: unexpected moving %v (%v)", i, moving, err)
		}
		msg, _ := rec.String("Output:DriversStationMsg")
		if msg != "cycle "+strings.Repeat("x", i) {
			t.Errorf("Row %d: unexpected message %q", i, msg)
		}
		if rec.Line() != i+1 {
			t.Errorf("Row %d: expected line %d, got %d", i, i+1, rec.Line())
		}
	}
	if err = r.Err(); err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	if i != 5 {
		t.Errorf("Expected 5 rows, got %d", i)
	}
}

func TestWriterReaderLongText(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	f := newFrame(t)
	f.Working.LogFilePathName = strings.Repeat("/logs", 1<<19)
	f.Output.DriversStationMsg = strings.Repeat("x", 2<<20)
	if err := w.Write(f); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	if !r.Next() {
		t.Fatalf("Expected a data line, reader stopped with %v", r.Err())
	}
	msg, err := r.Record().String("Output:DriversStationMsg")
	if err != nil || msg != strings.Repeat("x", telemetry.MaxTextLength) {
		t.Errorf("Expected message cut to %d bytes, got %d (%v)", telemetry.MaxTextLength, len(msg), err)
	}
	if r.Next() {
		t.Error("Expected a single data line")
	}
	if err = r.Err(); err != nil {
		t.Errorf("Reader failed: %v", err)
	}
}

func TestReaderErrors(t *testing.T) {
	if _, err := NewReader(strings.NewReader("")); !errors.Is(err, ErrNoHeader) {
		t.Errorf("Expected ErrNoHeader, got %v", err)
	}

	r, err := NewReader(strings.NewReader("Input:A\tInput:B\n1\t2\n\n3\n"))
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	if !r.Next() {
		t.Fatalf("Expected first row: %v", r.Err())
	}
	if _, err = r.Record().Float("Input:C"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Expected ErrUnknownColumn, got %v", err)
	}
	if r.Next() {
		t.Fatal("Expected short row to stop iteration")
	}
	if !errors.Is(r.Err(), ErrColumnMismatch) {
		t.Errorf("Expected ErrColumnMismatch, got %v", r.Err())
	}
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	path := FileName(filepath.Join(dir, "logging"), time.Now())

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Failed to create log: %v", err)
	}
	if err = w.Write(newFrame(t)); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("Failed to close log: %v", err)
	}

	p, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if !strings.HasPrefix(string(p), telemetry.Header()) {
		t.Error("Log does not start with the header")
	}

	if _, err = Create(path); err == nil {
		t.Error("Expected error when the log already exists")
	}
}

type memorySink struct {
	mu     sync.Mutex
	frames []*telemetry.Frame
	fail   error
	closed bool
}

func (s *memorySink) Write(f *telemetry.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestRecorderDeliversInOrder(t *testing.T) {
	sink := &memorySink{}
	rec := NewRecorder([]Sink{sink}, WithQueueSize(1000))
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start recorder: %v", err)
	}

	f := newFrame(t)
	for i := 0; i < 200; i++ {
		f.Input.FPGATimeMicroSecs = int64(i)
		if !rec.Record(f) {
			t.Fatalf("Frame %d dropped", i)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Failed to close recorder: %v", err)
	}

	if len(sink.frames) != 200 {
		t.Fatalf("Expected 200 frames, got %d", len(sink.frames))
	}
	for i, got := range sink.frames {
		if got.Input.FPGATimeMicroSecs != int64(i) {
			t.Fatalf("Frame %d: expected time %d, got %d", i, i, got.Input.FPGATimeMicroSecs)
		}
		if got == f {
			t.Fatal("Recorder handed the live frame to the sink")
		}
	}
	if !sink.closed {
		t.Error("Sink not closed")
	}
}

func TestRecorderDropsWhenFull(t *testing.T) {
	sink := &memorySink{}
	rec := NewRecorder([]Sink{sink}, WithQueueSize(2))

	f := newFrame(t)
	results := []bool{rec.Record(f), rec.Record(f), rec.Record(f)}
	if !results[0] || !results[1] || results[2] {
		t.Errorf("Unexpected record results %v", results)
	}
	if rec.Dropped() != 1 {
		t.Errorf("Expected 1 dropped frame, got %d", rec.Dropped())
	}

	// queued frames still reach the sink without a running goroutine
	if err := rec.Close(); err != nil {
		t.Fatalf("Failed to close recorder: %v", err)
	}
	if len(sink.frames) != 2 {
		t.Errorf("Expected 2 frames, got %d", len(sink.frames))
	}

	if rec.Record(f) {
		t.Error("Record succeeded after Close")
	}
	if err := rec.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if err := rec.Start(context.Background()); !errors.Is(err, ErrRecorderClosed) {
		t.Errorf("Expected ErrRecorderClosed, got %v", err)
	}
}

func TestRecorderSinkFailure(t *testing.T) {
	boom := errors.New("disk full")
	bad := &memorySink{fail: boom}
	good := &memorySink{}

	rec := NewRecorder([]Sink{bad, good})
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start recorder: %v", err)
	}

	f := newFrame(t)
	for i := 0; i < 5; i++ {
		rec.Record(f)
	}

	err := rec.Close()
	if !errors.Is(err, boom) {
		t.Errorf("Expected sink error, got %v", err)
	}
	if len(good.frames) != 5 {
		t.Errorf("Expected healthy sink to get 5 frames, got %d", len(good.frames))
	}
}
