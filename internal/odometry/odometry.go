// Package odometry derives drive and turret motion from raw encoder counts using
// the robot map's conversion factors
package odometry

import (
	"time"

	"github.com/team4028/robot-telemetry/internal/robotmap"
	"github.com/team4028/robot-telemetry/internal/telemetry"
)

const secondsPerMinute = 60

// Odometer fills the odometry part of a frame's Working section
type Odometer struct {
	left   side
	right  side
	turret float64 // degrees per count
}

type side struct {
	countsPerRev     float64
	gearBoxRatio     float64
	distancePerCount float64
}

// New creates an odometer for the given robot
func New(m *robotmap.Map) *Odometer {
	return &Odometer{
		left: side{
			countsPerRev:     float64(m.LeftDrive().EncoderCountsPerRev),
			gearBoxRatio:     m.LeftDrive().GearBoxRatio,
			distancePerCount: m.LeftDriveDistancePerCount(),
		},
		right: side{
			countsPerRev:     float64(m.RightDrive().EncoderCountsPerRev),
			gearBoxRatio:     m.RightDrive().GearBoxRatio,
			distancePerCount: m.RightDriveDistancePerCount(),
		},
		turret: m.TurretDegreesPerCount(),
	}
}

// Start latches the current encoder counts as the zero point
func (o *Odometer) Start(f *telemetry.Frame, now time.Time) {
	start := func(d *telemetry.DriveOdometry, count float64) {
		*d = telemetry.DriveOdometry{
			EncoderInitialCount: count,
			EncoderLastCount:    count,
		}
	}

	start(&f.Working.LeftDrive, f.Input.LeftDriveEncoderCurrentCount)
	start(&f.Working.RightDrive, f.Input.RightDriveEncoderCurrentCount)

	f.Working.Turret = telemetry.TurretOdometry{EncoderInitialCount: f.Input.TurretEncoderCurrentCount}
	f.Working.LastScanDT = now
}

// Update derives deltas, rates and travel from the counts read this cycle.
// Rates are zero when no time has elapsed since the previous scan.
func (o *Odometer) Update(f *telemetry.Frame, now time.Time) {
	var elapsed float64
	if !f.Working.LastScanDT.IsZero() {
		elapsed = now.Sub(f.Working.LastScanDT).Seconds()
	}

	o.left.update(&f.Working.LeftDrive, f.Input.LeftDriveEncoderCurrentCount, elapsed)
	o.right.update(&f.Working.RightDrive, f.Input.RightDriveEncoderCurrentCount, elapsed)

	t := &f.Working.Turret
	t.EncoderTotalDeltaCount = f.Input.TurretEncoderCurrentCount - t.EncoderInitialCount
	t.EncoderDegreesCount = t.EncoderTotalDeltaCount * o.turret

	f.Working.LastScanDT = now
}

func (s side) update(d *telemetry.DriveOdometry, count, elapsed float64) {
	d.EncoderLastDeltaCount = count - d.EncoderLastCount
	d.EncoderTotalDeltaCount = count - d.EncoderInitialCount
	d.EncoderLastCount = count

	d.EncoderCurrentCPS = 0
	if elapsed > 0 {
		d.EncoderCurrentCPS = d.EncoderLastDeltaCount / elapsed
	}

	d.GearBoxCurrentRPM = d.EncoderCurrentCPS * secondsPerMinute / s.countsPerRev
	d.MotorCurrentRPM = d.GearBoxCurrentRPM * s.gearBoxRatio
	d.WheelsCurrentSpeedIPS = d.EncoderCurrentCPS * s.distancePerCount
	d.WheelsTotalTravelInches = d.EncoderTotalDeltaCount * s.distancePerCount
}

// Distance converts a count delta to inches for the left and right drive
func (o *Odometer) Distance(leftCounts, rightCounts float64) (left, right float64) {
	return leftCounts * o.left.distancePerCount, rightCounts * o.right.distancePerCount
}
