package odometry

import (
	"math"
	"testing"
	"time"

	"github.com/team4028/robot-telemetry/internal/robotmap"
	"github.com/team4028/robot-telemetry/internal/telemetry"
)

const eps = 1e-9

func setup(t *testing.T) (*Odometer, *telemetry.Frame) {
	t.Helper()

	m, err := robotmap.Default()
	if err != nil {
		t.Fatalf("Failed to build robot map: %v", err)
	}
	return New(m), telemetry.New(m)
}

func TestOneRevolution(t *testing.T) {
	o, f := setup(t)
	start := time.Date(2015, 8, 23, 10, 0, 0, 0, time.UTC)

	o.Start(f, start)

	f.Input.LeftDriveEncoderCurrentCount = 1000
	f.Input.RightDriveEncoderCurrentCount = 1000
	o.Update(f, start.Add(time.Second))

	left := f.Working.LeftDrive
	if left.EncoderTotalDeltaCount != 1000 {
		t.Errorf("Expected 1000 counts, got %g", left.EncoderTotalDeltaCount)
	}
	if math.Abs(left.WheelsTotalTravelInches-18.85) > eps {
		t.Errorf("Expected 18.85 in, got %g", left.WheelsTotalTravelInches)
	}
	if math.Abs(left.EncoderCurrentCPS-1000) > eps {
		t.Errorf("Expected 1000 CPS, got %g", left.EncoderCurrentCPS)
	}
	if math.Abs(left.GearBoxCurrentRPM-60) > eps {
		t.Errorf("Expected 60 gearbox RPM, got %g", left.GearBoxCurrentRPM)
	}
	if math.Abs(left.MotorCurrentRPM-60*14.88) > eps {
		t.Errorf("Expected %g motor RPM, got %g", 60*14.88, left.MotorCurrentRPM)
	}
	if math.Abs(left.WheelsCurrentSpeedIPS-18.85) > eps {
		t.Errorf("Expected 18.85 IPS, got %g", left.WheelsCurrentSpeedIPS)
	}
	if f.Working.RightDrive != left {
		t.Error("Expected symmetric drive sides")
	}
}

func TestIncrementalUpdates(t *testing.T) {
	o, f := setup(t)
	start := time.Date(2015, 8, 23, 10, 0, 0, 0, time.UTC)

	f.Input.LeftDriveEncoderCurrentCount = 500
	o.Start(f, start)

	now := start
	for i := 1; i <= 10; i++ {
		now = now.Add(20 * time.Millisecond)
		f.Input.LeftDriveEncoderCurrentCount = 500 + float64(i*10)
		o.Update(f, now)

		left := f.Working.LeftDrive
		if left.EncoderLastDeltaCount != 10 {
			t.Fatalf("Cycle %d: expected delta 10, got %g", i, left.EncoderLastDeltaCount)
		}
		if math.Abs(left.EncoderCurrentCPS-500) > eps {
			t.Fatalf("Cycle %d: expected 500 CPS, got %g", i, left.EncoderCurrentCPS)
		}
	}

	left := f.Working.LeftDrive
	if left.EncoderInitialCount != 500 || left.EncoderLastCount != 600 || left.EncoderTotalDeltaCount != 100 {
		t.Errorf("Unexpected counts: %+v", left)
	}
	if !f.Working.LastScanDT.Equal(now) {
		t.Errorf("Expected last scan %s, got %s", now, f.Working.LastScanDT)
	}
}

func TestNoElapsedTime(t *testing.T) {
	o, f := setup(t)
	now := time.Now()

	o.Start(f, now)
	f.Input.LeftDriveEncoderCurrentCount = 42
	o.Update(f, now)

	if f.Working.LeftDrive.EncoderCurrentCPS != 0 {
		t.Errorf("Expected zero rate, got %g", f.Working.LeftDrive.EncoderCurrentCPS)
	}
	if f.Working.LeftDrive.EncoderTotalDeltaCount != 42 {
		t.Errorf("Expected total 42, got %g", f.Working.LeftDrive.EncoderTotalDeltaCount)
	}
}

func TestTurretDegrees(t *testing.T) {
	o, f := setup(t)
	now := time.Now()

	f.Input.TurretEncoderCurrentCount = 100
	o.Start(f, now)

	f.Input.TurretEncoderCurrentCount = 100 + 4*497
	o.Update(f, now.Add(time.Second))

	if math.Abs(f.Working.Turret.EncoderDegreesCount-60) > eps {
		t.Errorf("Expected 60 degrees for one revolution, got %g", f.Working.Turret.EncoderDegreesCount)
	}
}

func TestDistance(t *testing.T) {
	o, _ := setup(t)

	left, right := o.Distance(1000, -2000)
	if math.Abs(left-18.85) > eps || math.Abs(right+37.7) > eps {
		t.Errorf("Unexpected distances %g, %g", left, right)
	}
}
