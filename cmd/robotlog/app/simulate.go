package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"

	"github.com/team4028/robot-telemetry/internal/odometry"
	"github.com/team4028/robot-telemetry/internal/robotmap"
	"github.com/team4028/robot-telemetry/internal/storage"
	"github.com/team4028/robot-telemetry/internal/telemetry"
	"github.com/team4028/robot-telemetry/internal/tsvlog"
)

const (
	defaultCycles   = 250
	defaultInterval = 20 * time.Millisecond

	maxWheelRevsPerSec  = 3.0
	maxTurretRevsPerSec = 0.5

	speedScalingStep = 0.1
	minSpeedScaling  = 0.1
	maxSpeedScaling  = 1.0
)

// simulator stands in for the robot hardware: it replays a scripted drive and
// integrates encoder counts from the commanded speeds
type simulator struct {
	rng      *rand.Rand
	interval time.Duration
	cycle    int64

	leftCPS, rightCPS, turretCPS float64 // counts per second at full command
	left, right, turret          float64 // encoder counts
	yaw                          float64 // accumulated degrees
}

var _ telemetry.Provider = (*simulator)(nil)

func newSimulator(m *robotmap.Map, interval time.Duration, seed int64) *simulator {
	return &simulator{
		rng:       rand.New(rand.NewSource(seed)),
		interval:  interval,
		leftCPS:   float64(m.LeftDrive().EncoderCountsPerRev) * maxWheelRevsPerSec,
		rightCPS:  float64(m.RightDrive().EncoderCountsPerRev) * maxWheelRevsPerSec,
		turretCPS: float64(m.Turret().EncoderCountsPerRev*robotmap.QuadratureEdges) * maxTurretRevsPerSec,
	}
}

func (s *simulator) Read(ctx context.Context, in *telemetry.Input) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dt := s.interval.Seconds()
	t := float64(s.cycle) * dt
	in.FPGATimeMicroSecs = s.cycle * s.interval.Microseconds()

	// Joysticks: a slow forward/back sweep with gentle turns
	in.ArcadeDriveThrottleRawCmd = math.Sin(t * 0.8)
	in.ArcadeDriveTurnRawCmd = 0.3 * math.Sin(t*0.3)
	in.TurretRawVelocityCmd = 0.5 * math.Sin(t*0.5)
	in.ShooterRawVelocityCmd = math.Max(0, math.Sin(t*0.25))

	// Buttons are pressed for a single cycle now and then
	in.IsScaleDriveSpeedDownBtnPressed = s.cycle%100 == 50
	in.IsScaleDriveSpeedUpBtnPressed = s.cycle%100 == 99
	in.IsAlphaSolenoidOpenBtnPressed = s.cycle%80 == 10
	in.IsAlphaSolenoidClosedBtnPressed = s.cycle%80 == 50
	in.IsBetaSolenoidOpenBtnPressed = s.cycle%120 == 30
	in.IsBetaSolenoidClosedBtnPressed = s.cycle%120 == 90

	left := clamp(in.ArcadeDriveThrottleRawCmd+in.ArcadeDriveTurnRawCmd, -1, 1)
	right := clamp(in.ArcadeDriveThrottleRawCmd-in.ArcadeDriveTurnRawCmd, -1, 1)

	s.left += left*s.leftCPS*dt + s.noise()
	s.right += right*s.rightCPS*dt + s.noise()
	s.turret += in.TurretRawVelocityCmd * s.turretCPS * dt

	in.LeftDriveEncoderCurrentCount = math.Round(s.left)
	in.RightDriveEncoderCurrentCount = math.Round(s.right)
	in.TurretEncoderCurrentCount = math.Round(s.turret)

	// Navx: yaw follows the wheel speed difference
	rate := (left - right) * 90
	s.yaw += rate * dt

	in.NavxIsConnected = true
	in.NavxIsCalibrating = false
	in.NavxTotalYaw = s.yaw
	in.NavxYawRateDPS = rate
	in.NavxYaw = float32(wrapDegrees(s.yaw, -180))
	in.NavxCompassHeading = float32(wrapDegrees(s.yaw, 0))
	in.NavxFusedHeading = in.NavxCompassHeading
	in.NavxPitch = float32(s.noise() * 0.1)
	in.NavxRoll = float32(s.noise() * 0.1)
	in.NavxAccelX = float32(s.noise() * 0.01)
	in.NavxAccelY = float32((left + right) / 2 * 0.2)
	in.NavxIsMoving = math.Abs(left)+math.Abs(right) > 0.05
	in.NavxIsRotating = math.Abs(rate) > 1

	s.cycle++
	return nil
}

func (s *simulator) noise() float64 {
	return s.rng.NormFloat64() * 0.5
}

// controller is the teleop cycle: operator inputs to output commands
type controller struct {
	robotMap *robotmap.Map
	odometer *odometry.Odometer
}

func (c *controller) start(f *telemetry.Frame, now time.Time) {
	f.Working.DriveSpeedScalingFactor = maxSpeedScaling
	f.Output.AlphaSolenoidPosition = c.robotMap.AlphaSolenoid().Position(robotmap.ActuatorClosed)
	f.Output.BetaSolenoidPosition = c.robotMap.BetaSolenoid().Position(robotmap.ActuatorClosed)
	c.odometer.Start(f, now)
}

func (c *controller) step(f *telemetry.Frame, now time.Time) {
	in, w, out := &f.Input, &f.Working, &f.Output

	// Speed scaling buttons act on the press, not while held
	pressed := in.IsScaleDriveSpeedUpBtnPressed || in.IsScaleDriveSpeedDownBtnPressed
	if pressed && !w.IsDriveSpeedScalingButtonPressedLastScan {
		factor := w.DriveSpeedScalingFactor
		if in.IsScaleDriveSpeedUpBtnPressed {
			factor += speedScalingStep
		} else {
			factor -= speedScalingStep
		}
		w.DriveSpeedScalingFactor = clamp(math.Round(factor*10)/10, minSpeedScaling, maxSpeedScaling)
		out.DriversStationMsg = fmt.Sprintf("Drive speed scaled to %d%%", int(math.Round(w.DriveSpeedScalingFactor*100)))
	}
	w.IsDriveSpeedScalingButtonPressedLastScan = pressed

	out.ArcadeDriveThrottleAdjCmd = in.ArcadeDriveThrottleRawCmd * w.DriveSpeedScalingFactor
	out.ArcadeDriveTurnAdjCmd = in.ArcadeDriveTurnRawCmd * w.DriveSpeedScalingFactor
	out.TurretAdjVelocityCmd = in.TurretRawVelocityCmd
	out.GammaMtrVelocityCmd = in.ShooterRawVelocityCmd
	out.DeltaMtrVelocityCmd = -in.ShooterRawVelocityCmd

	alpha, beta := c.robotMap.AlphaSolenoid(), c.robotMap.BetaSolenoid()
	switch {
	case in.IsAlphaSolenoidOpenBtnPressed:
		out.AlphaSolenoidPosition = alpha.Position(robotmap.ActuatorOpen)
	case in.IsAlphaSolenoidClosedBtnPressed:
		out.AlphaSolenoidPosition = alpha.Position(robotmap.ActuatorClosed)
	}
	switch {
	case in.IsBetaSolenoidOpenBtnPressed:
		out.BetaSolenoidPosition = beta.Position(robotmap.ActuatorOpen)
	case in.IsBetaSolenoidClosedBtnPressed:
		out.BetaSolenoidPosition = beta.Position(robotmap.ActuatorClosed)
	}

	c.odometer.Update(f, now)
}

func (r *runner) simulate(c *cli.Context) (err error) {
	cycles := c.Int("cycles")
	interval := c.Duration("interval")
	if cycles <= 0 {
		return fmt.Errorf("invalid number of cycles: %d", cycles)
	}
	if interval <= 0 {
		return fmt.Errorf("invalid cycle interval: %s", interval)
	}

	ctx := r.ctx
	m := r.robotMap
	started := time.Now().UTC()

	dir := r.config.LogDirectory(m)
	if o := c.String("output"); o != "" {
		dir = o
	}

	var sinks []tsvlog.Sink
	var logPath string
	if r.config.Logging.Enabled {
		logPath = tsvlog.FileName(dir, started)
		w, err := tsvlog.Create(logPath, tsvlog.WithLogger(r.logger))
		if err != nil {
			return fmt.Errorf("creating telemetry log: %w", err)
		}
		sinks = append(sinks, w)
	}

	if r.config.Storage.Enabled || c.Bool("store") {
		var store *storage.SqliteStore
		if store, err = r.openStore(); err != nil {
			return errors.Join(err, closeSinks(sinks))
		}
		defer closeWithError(store, &err)

		var sessionID int64
		if sessionID, err = store.CreateSession(ctx, m.Robot(), logPath, telemetry.Header(), m.Layout()); err != nil {
			return errors.Join(fmt.Errorf("creating session: %w", err), closeSinks(sinks))
		}
		sinks = append(sinks, storage.NewFrameWriter(ctx, store, sessionID, storage.WithMaxBatchSize(r.config.Storage.batchSize())))

		r.logger.Info("storing frames", slog.Int64("session", sessionID), slog.String("database", r.config.Storage.DBPath()))
	}

	if len(sinks) == 0 {
		return errors.New("neither telemetry logging nor storage is enabled")
	}

	recorder := tsvlog.NewRecorder(sinks,
		tsvlog.WithRecorderLogger(r.logger),
		tsvlog.WithQueueSize(r.config.Logging.QueueSize))
	if err = recorder.Start(ctx); err != nil {
		return errors.Join(err, recorder.Close())
	}

	err = r.runCycles(ctx, m, recorder, cycles, interval, started, logPath, c.Int64("seed"))

	if cErr := recorder.Close(); cErr != nil {
		err = errors.Join(err, fmt.Errorf("closing recorder: %w", cErr))
	}
	if dropped := recorder.Dropped(); dropped > 0 {
		r.logger.Warn("frames dropped", slog.String("count", humanize.Comma(dropped)))
	}
	return err
}

func (r *runner) runCycles(ctx context.Context, m *robotmap.Map, recorder *tsvlog.Recorder, cycles int, interval time.Duration, started time.Time, logPath string, seed int64) error {
	provider := newSimulator(m, interval, seed)
	ctrl := controller{robotMap: m, odometer: odometry.New(m)}

	f := telemetry.New(m)
	f.Working.IsLoggingEnabled = logPath != ""
	f.Working.LogFilePathName = logPath
	f.Working.LoggingStartedDT = started

	if err := provider.Read(ctx, &f.Input); err != nil {
		if ctx.Err() != nil {
			r.logger.Info("simulation interrupted", slog.Int("cycle", 0))
			return nil
		}
		return fmt.Errorf("reading inputs: %w", err)
	}
	ctrl.start(f, started)

	r.logger.Info("simulation started",
		slog.String("robot", m.Robot()),
		slog.Int("cycles", cycles),
		slog.Duration("interval", interval),
		slog.String("log", logPath))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for cycle := 1; cycle <= cycles; cycle++ {
		select {
		case <-ctx.Done():
			r.logger.Info("simulation interrupted", slog.Int("cycle", cycle))
			return nil
		case <-ticker.C:
		}

		if err := provider.Read(ctx, &f.Input); err != nil {
			return fmt.Errorf("reading inputs: %w", err)
		}
		ctrl.step(f, started.Add(time.Duration(cycle)*interval))
		recorder.Record(f)
	}

	left, right := f.Working.LeftDrive.WheelsTotalTravelInches, f.Working.RightDrive.WheelsTotalTravelInches
	r.logger.Info("simulation finished",
		slog.Int("cycles", cycles),
		slog.String("leftTravel", humanize.FtoaWithDigits(left, 2)+" in"),
		slog.String("rightTravel", humanize.FtoaWithDigits(right, 2)+" in"),
		slog.String("turret", humanize.FtoaWithDigits(f.Working.Turret.EncoderDegreesCount, 1)+" deg"))
	return nil
}

func closeSinks(sinks []tsvlog.Sink) error {
	var errs []error
	for _, s := range sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// wrapDegrees wraps an angle into [from, from+360)
func wrapDegrees(deg, from float64) float64 {
	return math.Mod(math.Mod(deg-from, 360)+360, 360) + from
}
