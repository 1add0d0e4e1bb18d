package telemetry

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/team4028/robot-telemetry/internal/robotmap"
)

// Section names, in serialization order
const (
	SectionInput   = "Input"
	SectionWorking = "Working"
	SectionOutput  = "Output"
)

// TimeColumn is the qualified name of the roboRIO clock column
const TimeColumn = SectionInput + ":FPGATimeMicroSecs"

const (
	// Separator delimits columns in the header and data lines
	Separator = "\t"

	// LineEnd terminates the header and data lines
	LineEnd = "\n"
)

// column is a single field of the frame: its qualified name and how to render it.
// Header and data rows are both produced from the same list, so they cannot drift.
type column struct {
	name  string
	value func(f *Frame) string
}

var columns = joinSections(
	section(SectionInput, []column{
		{"FPGATimeMicroSecs", func(f *Frame) string { return formatInt(f.Input.FPGATimeMicroSecs) }},
		{"IsScaleDriveSpeedUpBtnPressed", func(f *Frame) string { return formatBool(f.Input.IsScaleDriveSpeedUpBtnPressed) }},
		{"IsScaleDriveSpeedDownBtnPressed", func(f *Frame) string { return formatBool(f.Input.IsScaleDriveSpeedDownBtnPressed) }},
		{"IsAlphaSolenoidOpenBtnPressed", func(f *Frame) string { return formatBool(f.Input.IsAlphaSolenoidOpenBtnPressed) }},
		{"IsAlphaSolenoidClosedBtnPressed", func(f *Frame) string { return formatBool(f.Input.IsAlphaSolenoidClosedBtnPressed) }},
		{"IsBetaSolenoidOpenBtnPressed", func(f *Frame) string { return formatBool(f.Input.IsBetaSolenoidOpenBtnPressed) }},
		{"IsBetaSolenoidClosedBtnPressed", func(f *Frame) string { return formatBool(f.Input.IsBetaSolenoidClosedBtnPressed) }},
		{"ArcadeDriveThrottleRawCmd", func(f *Frame) string { return formatFloat64(f.Input.ArcadeDriveThrottleRawCmd) }},
		{"ArcadeDriveTurnRawCmd", func(f *Frame) string { return formatFloat64(f.Input.ArcadeDriveTurnRawCmd) }},
		{"ShooterRawVelocityCmd", func(f *Frame) string { return formatFloat64(f.Input.ShooterRawVelocityCmd) }},
		{"TurretRawVelocityCmd", func(f *Frame) string { return formatFloat64(f.Input.TurretRawVelocityCmd) }},
		{"LeftDriveEncoderCurrentCount", func(f *Frame) string { return formatFloat64(f.Input.LeftDriveEncoderCurrentCount) }},
		{"RightDriveEncoderCurrentCount", func(f *Frame) string { return formatFloat64(f.Input.RightDriveEncoderCurrentCount) }},
		{"TurretEncoderCurrentCount", func(f *Frame) string { return formatFloat64(f.Input.TurretEncoderCurrentCount) }},
		{"NavxIsConnected", func(f *Frame) string { return formatBool(f.Input.NavxIsConnected) }},
		{"NavxIsCalibrating", func(f *Frame) string { return formatBool(f.Input.NavxIsCalibrating) }},
		{"NavxYaw", func(f *Frame) string { return formatFloat32(f.Input.NavxYaw) }},
		{"NavxPitch", func(f *Frame) string { return formatFloat32(f.Input.NavxPitch) }},
		{"NavxRoll", func(f *Frame) string { return formatFloat32(f.Input.NavxRoll) }},
		{"NavxCompassHeading", func(f *Frame) string { return formatFloat32(f.Input.NavxCompassHeading) }},
		{"NavxFusedHeading", func(f *Frame) string { return formatFloat32(f.Input.NavxFusedHeading) }},
		{"NavxTotalYaw", func(f *Frame) string { return formatFloat64(f.Input.NavxTotalYaw) }},
		{"NavxYawRateDPS", func(f *Frame) string { return formatFloat64(f.Input.NavxYawRateDPS) }},
		{"NavxAccelX", func(f *Frame) string { return formatFloat32(f.Input.NavxAccelX) }},
		{"NavxAccelY", func(f *Frame) string { return formatFloat32(f.Input.NavxAccelY) }},
		{"NavxIsMoving", func(f *Frame) string { return formatBool(f.Input.NavxIsMoving) }},
		{"NavxIsRotating", func(f *Frame) string { return formatBool(f.Input.NavxIsRotating) }},
	}),
	section(SectionWorking, joinSections(
		[]column{
			{"IsLoggingEnabled", func(f *Frame) string { return formatBool(f.Working.IsLoggingEnabled) }},
			{"LogFilePathName", func(f *Frame) string { return formatText(f.Working.LogFilePathName) }},
			{"LoggingStartedDT", func(f *Frame) string { return formatTime(f.Working.LoggingStartedDT) }},
			{"LastScanDT", func(f *Frame) string { return formatTime(f.Working.LastScanDT) }},
			{"IsDriveSpeedScalingButtonPressedLastScan", func(f *Frame) string {
				return formatBool(f.Working.IsDriveSpeedScalingButtonPressedLastScan)
			}},
			{"DriveSpeedScalingFactor", func(f *Frame) string { return formatFloat64(f.Working.DriveSpeedScalingFactor) }},
		},
		driveColumns("LeftDrive", func(f *Frame) *DriveOdometry { return &f.Working.LeftDrive }),
		driveColumns("RightDrive", func(f *Frame) *DriveOdometry { return &f.Working.RightDrive }),
		[]column{
			{"TurretEncoderInitialCount", func(f *Frame) string { return formatFloat64(f.Working.Turret.EncoderInitialCount) }},
			{"TurretEncoderTotalDeltaCount", func(f *Frame) string { return formatFloat64(f.Working.Turret.EncoderTotalDeltaCount) }},
			{"TurretEncoderDegreesCount", func(f *Frame) string { return formatFloat64(f.Working.Turret.EncoderDegreesCount) }},
		},
	)),
	section(SectionOutput, []column{
		{"ArcadeDriveThrottleAdjCmd", func(f *Frame) string { return formatFloat64(f.Output.ArcadeDriveThrottleAdjCmd) }},
		{"ArcadeDriveTurnAdjCmd", func(f *Frame) string { return formatFloat64(f.Output.ArcadeDriveTurnAdjCmd) }},
		{"TurretAdjVelocityCmd", func(f *Frame) string { return formatFloat64(f.Output.TurretAdjVelocityCmd) }},
		{"GammaMtrVelocityCmd", func(f *Frame) string { return formatFloat64(f.Output.GammaMtrVelocityCmd) }},
		{"DeltaMtrVelocityCmd", func(f *Frame) string { return formatFloat64(f.Output.DeltaMtrVelocityCmd) }},
		{"AlphaSolenoidPosition", func(f *Frame) string {
			return solenoidLabel(f, (*robotmap.Map).AlphaSolenoid, f.Output.AlphaSolenoidPosition)
		}},
		{"BetaSolenoidPosition", func(f *Frame) string {
			return solenoidLabel(f, (*robotmap.Map).BetaSolenoid, f.Output.BetaSolenoidPosition)
		}},
		{"DriversStationMsg", func(f *Frame) string { return formatText(f.Output.DriversStationMsg) }},
	}),
)

var header = buildHeader()

func driveColumns(prefix string, side func(f *Frame) *DriveOdometry) []column {
	fields := []struct {
		name  string
		value func(d *DriveOdometry) float64
	}{
		{"EncoderInitialCount", func(d *DriveOdometry) float64 { return d.EncoderInitialCount }},
		{"EncoderLastCount", func(d *DriveOdometry) float64 { return d.EncoderLastCount }},
		{"EncoderLastDeltaCount", func(d *DriveOdometry) float64 { return d.EncoderLastDeltaCount }},
		{"EncoderTotalDeltaCount", func(d *DriveOdometry) float64 { return d.EncoderTotalDeltaCount }},
		{"MotorCurrentRPM", func(d *DriveOdometry) float64 { return d.MotorCurrentRPM }},
		{"EncoderCurrentCPS", func(d *DriveOdometry) float64 { return d.EncoderCurrentCPS }},
		{"GearBoxCurrentRPM", func(d *DriveOdometry) float64 { return d.GearBoxCurrentRPM }},
		{"WheelsCurrentSpeedIPS", func(d *DriveOdometry) float64 { return d.WheelsCurrentSpeedIPS }},
		{"WheelsTotalTravelInches", func(d *DriveOdometry) float64 { return d.WheelsTotalTravelInches }},
	}

	cols := make([]column, 0, len(fields))
	for _, fld := range fields {
		fld := fld
		cols = append(cols, column{
			name:  prefix + fld.name,
			value: func(f *Frame) string { return formatFloat64(fld.value(side(f))) },
		})
	}
	return cols
}

func section(name string, cols []column) []column {
	out := make([]column, len(cols))
	for i, c := range cols {
		out[i] = column{name: name + ":" + c.name, value: c.value}
	}
	return out
}

func joinSections(sections ...[]column) []column {
	var out []column
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func buildHeader() string {
	var sb strings.Builder
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(Separator)
		}
		sb.WriteString(c.name)
	}
	sb.WriteString(LineEnd)
	return sb.String()
}

// Columns returns the qualified column names ("Input:NavxYaw", ...) in
// serialization order. The list does not depend on any frame's values.
func Columns() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}

// Header returns the tab separated header line, newline terminated
func Header() string {
	return header
}

// Header returns the same line as the package level Header. The column set is
// fixed, so the frame's values play no part.
func (f *Frame) Header() string {
	return header
}

// Values renders the frame's fields in the same order as Columns
func (f *Frame) Values() []string {
	values := make([]string, len(columns))
	for i, c := range columns {
		values[i] = c.value(f)
	}
	return values
}

// Data returns the tab separated data line for the frame's current values,
// newline terminated. It never fails.
func (f *Frame) Data() string {
	var sb strings.Builder
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(Separator)
		}
		sb.WriteString(c.value(f))
	}
	sb.WriteString(LineEnd)
	return sb.String()
}

func solenoidLabel(f *Frame, solenoid func(*robotmap.Map) robotmap.Solenoid, v robotmap.SolenoidValue) string {
	if f.robotMap == nil {
		return robotmap.UnknownLabel
	}
	return solenoid(f.robotMap).Label(v)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// Floats are rendered in the shortest form that round trips, without exponent
func formatFloat64(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloat32(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

// formatTime renders UTC RFC 3339 with nanoseconds; the zero time is an empty column
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

var textReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// MaxTextLength is the longest free text value, in bytes, a data line carries.
// Longer text is cut at the last whole UTF-8 character that fits.
const MaxTextLength = 4096

// formatText keeps free text on one line and inside one column
func formatText(s string) string {
	s = textReplacer.Replace(s)
	if len(s) <= MaxTextLength {
		return s
	}

	n := MaxTextLength
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
