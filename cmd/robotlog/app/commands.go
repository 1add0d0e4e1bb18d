package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"

	"github.com/team4028/robot-telemetry/internal/robotmap"
	"github.com/team4028/robot-telemetry/internal/storage"
	"github.com/team4028/robot-telemetry/internal/telemetry"
	"github.com/team4028/robot-telemetry/internal/tsvlog"
)

func (r *runner) constants(c *cli.Context) error {
	m := r.robotMap

	if c.Bool("yaml") {
		enc := yaml.NewEncoder(r.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(m.Layout()); err != nil {
			return fmt.Errorf("encoding robot map: %w", err)
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(r.stdout, 0, 4, 2, ' ', 0)
	row := func(name string, value any) {
		_, _ = fmt.Fprintf(tw, "%s\t%v\n", name, value)
	}

	can, pwm := m.CAN(), m.PWM()
	row("Robot", m.Robot())
	row("CAN PCM", can.PCM)
	row("CAN left drive master/slave/slave2", fmt.Sprintf("%d/%d/%d", can.LeftDriveMasterMotor, can.LeftDriveSlaveMotor, can.LeftDriveSlave2Motor))
	row("CAN right drive master/slave/slave2", fmt.Sprintf("%d/%d/%d", can.RightDriveMasterMotor, can.RightDriveSlaveMotor, can.RightDriveSlave2Motor))
	row("CAN turret", can.Turret)
	row("PWM gamma/delta motor", fmt.Sprintf("%d/%d", pwm.GammaMotor, pwm.DeltaMotor))

	for _, s := range []struct {
		name     string
		solenoid robotmap.Solenoid
	}{
		{"Alpha", m.AlphaSolenoid()},
		{"Beta", m.BetaSolenoid()},
	} {
		sol := s.solenoid
		row(s.name+" solenoid ports (retract/extend)", fmt.Sprintf("%d/%d", sol.RetractPort, sol.ExtendPort))
		row(s.name+" solenoid open", fmt.Sprintf("%s (%s)", sol.OpenPosition, sol.OpenLabel))
		row(s.name+" solenoid closed", fmt.Sprintf("%s (%s)", sol.ClosedPosition, sol.ClosedLabel))
	}

	for _, d := range []struct {
		name    string
		gearing robotmap.DriveGearing
		perCnt  float64
	}{
		{"Left", m.LeftDrive(), m.LeftDriveDistancePerCount()},
		{"Right", m.RightDrive(), m.RightDriveDistancePerCount()},
	} {
		row(d.name+" drive gearbox ratio", humanize.Ftoa(d.gearing.GearBoxRatio))
		row(d.name+" drive counts per rev", humanize.Comma(int64(d.gearing.EncoderCountsPerRev)))
		row(d.name+" drive inches per rev", humanize.FtoaWithDigits(d.gearing.DistancePerRev, 4))
		row(d.name+" drive inches per count", humanize.FtoaWithDigits(d.perCnt, 6))
	}

	turret := m.Turret()
	row("Turret gear ratio", humanize.Ftoa(turret.GearRatio))
	row("Turret counts per rev", humanize.Comma(int64(turret.EncoderCountsPerRev)))
	row("Turret degrees per count", humanize.FtoaWithDigits(m.TurretDegreesPerCount(), 6))

	driver, operator := m.DriverGamepad(), m.OperatorGamepad()
	row("Driver gamepad USB port", driver.USBPort)
	row("Driver throttle/turn axis", fmt.Sprintf("%s/%s", driver.ThrottleAxis, driver.TurnAxis))
	row("Driver speed up/down button", fmt.Sprintf("%s/%s", driver.ScaleSpeedUpBtn, driver.ScaleSpeedDownBtn))
	row("Driver alpha open/closed button", fmt.Sprintf("%s/%s", driver.AlphaSolenoidOpen, driver.AlphaSolenoidClosed))
	row("Driver beta open/closed button", fmt.Sprintf("%s/%s", driver.BetaSolenoidOpen, driver.BetaSolenoidClosed))
	row("Driver shooter axis", driver.ShooterAxis)
	row("Operator gamepad USB port", operator.USBPort)
	row("Operator turret axis", operator.TurretAxis)
	row("Log directory", r.config.LogDirectory(m))

	return tw.Flush()
}

func (r *runner) header(c *cli.Context) error {
	if c.Bool("columns") {
		for _, name := range telemetry.Columns() {
			if _, err := fmt.Fprintln(r.stdout, name); err != nil {
				return err
			}
		}
		return nil
	}

	_, err := io.WriteString(r.stdout, telemetry.Header())
	return err
}

func (r *runner) openStore() (*storage.SqliteStore, error) {
	dir := r.config.Storage.DataDirectory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory '%s': %w", dir, err)
	}
	return storage.NewSqliteStore(r.config.Storage.DBPath()), nil
}

func (r *runner) importLog(c *cli.Context) (err error) {
	path := c.Args().First()
	if path == "" {
		return errors.New("log file is required")
	}
	if path, err = filepath.Abs(path); err != nil {
		return err
	}

	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer closeWithError(in, &err)

	reader, err := tsvlog.NewReader(in)
	if err != nil {
		return fmt.Errorf("reading log '%s': %w", path, err)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}
	defer closeWithError(store, &err)

	ctx := r.ctx
	header := strings.Join(reader.Columns(), telemetry.Separator)
	sessionID, err := store.CreateSession(ctx, r.robotMap.Robot(), path, header, r.robotMap.Layout())
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	hasTime := reader.HasColumn(telemetry.TimeColumn)
	batch := make([]storage.FrameRecord, 0, r.config.Storage.batchSize())
	var seq int64

	flush := func() error {
		if err := store.StoreFrames(ctx, sessionID, batch); err != nil {
			return fmt.Errorf("storing frames: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for reader.Next() {
		rec := reader.Record()
		seq++

		frame := storage.FrameRecord{
			Seq:  seq,
			Data: strings.Join(rec.Values(), telemetry.Separator),
		}
		if hasTime {
			if frame.FPGATimeMicroSecs, err = rec.Int(telemetry.TimeColumn); err != nil {
				return err
			}
		}

		batch = append(batch, frame)
		if len(batch) >= cap(batch) {
			if err = flush(); err != nil {
				return err
			}
		}
	}
	if err = reader.Err(); err != nil {
		return fmt.Errorf("reading log '%s': %w", path, err)
	}
	if err = flush(); err != nil {
		return err
	}

	r.logger.Info("log imported",
		slog.Int64("session", sessionID),
		slog.String("log", path),
		slog.String("frames", humanize.Comma(seq)),
		slog.String("database", r.config.Storage.DBPath()))

	_, err = fmt.Fprintln(r.stdout, strconv.FormatInt(sessionID, 10))
	return err
}

func (r *runner) sessions(c *cli.Context) (err error) {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	defer closeWithError(store, &err)

	sessions, err := store.Sessions(r.ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	tw := tabwriter.NewWriter(r.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tROBOT\tFRAMES\tLOG")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			s.ID,
			humanize.Time(s.StartTime),
			s.Robot,
			humanize.Comma(s.Frames),
			s.LogPath)
	}
	return tw.Flush()
}

func closeWithError(cl io.Closer, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
