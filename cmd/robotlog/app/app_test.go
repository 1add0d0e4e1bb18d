package app

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/team4028/robot-telemetry/internal/robotmap"
	"github.com/team4028/robot-telemetry/internal/telemetry"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer
	app := New(context.Background(), &stdout, io.Discard)
	err := app.Run(append([]string{"robotlog"}, args...))
	return stdout.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("robotlog %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestHeaderCommand(t *testing.T) {
	if out := mustRun(t, "header"); out != telemetry.Header() {
		t.Errorf("Unexpected header output %q", out)
	}

	out := mustRun(t, "header", "--columns")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != len(telemetry.Columns()) {
		t.Errorf("Expected %d columns, got %d", len(telemetry.Columns()), len(lines))
	}
}

func TestConstantsCommand(t *testing.T) {
	out := mustRun(t, "constants")
	for _, want := range []string{"recycle-rush", "Left drive inches per count", "Turret degrees per count", "LEFT_Y"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	out = mustRun(t, "constants", "--yaml")
	m, err := robotmap.Parse([]byte(out))
	if err != nil {
		t.Fatalf("Failed to parse printed robot map: %v", err)
	}
	if m.Robot() != "recycle-rush" {
		t.Errorf("Unexpected robot %q", m.Robot())
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := run(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "header"); err == nil {
		t.Error("Expected an error for a missing configuration file")
	}
	if _, err := run(t, "--log-level", "chatty", "header"); err == nil {
		t.Error("Expected an error for an invalid log level")
	}
}

func TestSimulateAndStore(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "robotlog.yaml")
	writeFile(t, config, `
settings:
  logLevel: warn
logging:
  enabled: true
  directory: logs
storage:
  enabled: true
  dataDirectory: data
  maxBatchSize: 8
`)

	const cycles = 20
	mustRun(t, "-c", config, "simulate", "--cycles", "20", "--interval", "1ms")

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "robot_log_*.tsv"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("Expected one telemetry log, got %v (%v)", logs, err)
	}

	p, err := os.ReadFile(logs[0])
	if err != nil {
		t.Fatalf("Failed to read telemetry log: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(p), "\n"), "\n")
	if len(lines) != cycles+1 {
		t.Fatalf("Expected header and %d data lines, got %d lines", cycles, len(lines))
	}
	if lines[0]+"\n" != telemetry.Header() {
		t.Error("Expected the log to start with the header line")
	}
	columns := len(telemetry.Columns())
	for i, line := range lines[1:] {
		if n := len(strings.Split(line, telemetry.Separator)); n != columns {
			t.Errorf("Line %d: expected %d columns, got %d", i+2, columns, n)
		}
	}

	out := mustRun(t, "-c", config, "sessions")
	if !strings.Contains(out, "recycle-rush") || !strings.Contains(out, logs[0]) {
		t.Errorf("Expected the simulated session in:\n%s", out)
	}

	// the same log imported as a second session
	if out = mustRun(t, "-c", config, "import", logs[0]); strings.TrimSpace(out) != "2" {
		t.Errorf("Expected session 2, got %q", out)
	}

	out = mustRun(t, "-c", config, "sessions")
	lines = strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and two sessions, got:\n%s", out)
	}
	for _, line := range lines[1:] {
		if fields := strings.Fields(line); len(fields) < 2 || !strings.Contains(line, " 20 ") {
			t.Errorf("Expected 20 frames in %q", line)
		}
	}

	chart := filepath.Join(dir, "chart")
	mustRun(t, "-c", config, "plot",
		"--column", "Input:LeftDriveEncoderCurrentCount",
		"--column", "Working:LeftDriveWheelsTotalTravelInches",
		"--output", chart,
		"--width", "300", "--height", "150",
		logs[0])
	decodeImage(t, chart+".png", png.Decode)

	mustRun(t, "-c", config, "plot",
		"--session", "1",
		"--column", "Output:ArcadeDriveThrottleAdjCmd",
		"--format", "jpeg",
		"--output", chart)
	decodeImage(t, chart+".jpeg", jpeg.Decode)
}

func TestPlotErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"plot", "--column", "Input:NavxYaw"}},
		{"no column", []string{"plot", "some.tsv"}},
		{"bad format", []string{"plot", "--format", "gif", "--column", "Input:NavxYaw", "some.tsv"}},
		{"missing log", []string{"plot", "--column", "Input:NavxYaw", filepath.Join(t.TempDir(), "missing.tsv")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestSimulateRequiresSink(t *testing.T) {
	config := filepath.Join(t.TempDir(), "robotlog.yaml")
	writeFile(t, config, "logging:\n  enabled: false\n")

	if _, err := run(t, "-c", config, "simulate", "--cycles", "1", "--interval", "1ms"); err == nil {
		t.Error("Expected an error without logging or storage")
	}
}

func TestSimulateCancelled(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "robotlog.yaml")
	writeFile(t, config, "settings:\n  logLevel: warn\nlogging:\n  enabled: true\n  directory: logs\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- New(ctx, io.Discard, io.Discard).Run([]string{"robotlog", "-c", config, "simulate", "--cycles", "1000", "--interval", "1h"})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Expected simulate to stop once the context is cancelled")
	}

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "robot_log_*.tsv"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("Expected one telemetry log, got %v (%v)", logs, err)
	}
	p, err := os.ReadFile(logs[0])
	if err != nil {
		t.Fatalf("Failed to read telemetry log: %v", err)
	}
	if len(p) != 0 {
		t.Errorf("Expected no frames after cancellation, got %d bytes", len(p))
	}
}

func decodeImage(t *testing.T, path string, decode func(io.Reader) (image.Image, error)) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open image: %v", err)
	}
	defer f.Close()

	img, err := decode(f)
	if err != nil {
		t.Fatalf("Failed to decode %s: %v", path, err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Errorf("Expected a non-empty image, got %v", img.Bounds())
	}
}
