// Package telemetry holds the per control cycle data of the robot: raw inputs,
// values derived from them and the commands pushed back to the hardware. A Frame
// serializes itself as tab separated values for log files and the dashboard.
package telemetry

import (
	"time"

	"github.com/team4028/robot-telemetry/internal/robotmap"
)

// Input is everything read from the robot and the driver station in one cycle
type Input struct {
	FPGATimeMicroSecs int64 // roboRIO FPGA clock in µs

	IsScaleDriveSpeedUpBtnPressed   bool // latched by the control routine, acts as a single shot
	IsScaleDriveSpeedDownBtnPressed bool // latched by the control routine, acts as a single shot

	IsAlphaSolenoidOpenBtnPressed   bool
	IsAlphaSolenoidClosedBtnPressed bool
	IsBetaSolenoidOpenBtnPressed    bool
	IsBetaSolenoidClosedBtnPressed  bool

	ArcadeDriveThrottleRawCmd float64 // joystick, -1..1
	ArcadeDriveTurnRawCmd     float64 // joystick, -1..1
	ShooterRawVelocityCmd     float64
	TurretRawVelocityCmd      float64

	LeftDriveEncoderCurrentCount  float64
	RightDriveEncoderCurrentCount float64
	TurretEncoderCurrentCount     float64

	NavxIsConnected    bool
	NavxIsCalibrating  bool
	NavxYaw            float32 // degrees, -180..180
	NavxPitch          float32 // degrees
	NavxRoll           float32 // degrees
	NavxCompassHeading float32 // degrees, 0..360
	NavxFusedHeading   float32 // degrees, 0..360
	NavxTotalYaw       float64 // degrees, accumulated
	NavxYawRateDPS     float64 // degrees per second
	NavxAccelX         float32 // G
	NavxAccelY         float32 // G
	NavxIsMoving       bool
	NavxIsRotating     bool
}

// DriveOdometry is the working data derived for one drive side
type DriveOdometry struct {
	EncoderInitialCount    float64
	EncoderLastCount       float64
	EncoderLastDeltaCount  float64
	EncoderTotalDeltaCount float64

	MotorCurrentRPM         float64
	EncoderCurrentCPS       float64 // counts per second
	GearBoxCurrentRPM       float64
	WheelsCurrentSpeedIPS   float64 // inches per second
	WheelsTotalTravelInches float64
}

// TurretOdometry is the working data derived for the turret
type TurretOdometry struct {
	EncoderInitialCount    float64
	EncoderTotalDeltaCount float64
	EncoderDegreesCount    float64
}

// Working holds values calculated by the control routine from Input
type Working struct {
	IsLoggingEnabled bool
	LogFilePathName  string
	LoggingStartedDT time.Time

	LastScanDT time.Time

	IsDriveSpeedScalingButtonPressedLastScan bool
	DriveSpeedScalingFactor                  float64 // 0.0..1.0, 1.0 = 100%; not enforced here

	LeftDrive  DriveOdometry
	RightDrive DriveOdometry
	Turret     TurretOdometry
}

// Output holds the commands pushed back to motors and solenoids
type Output struct {
	ArcadeDriveThrottleAdjCmd float64
	ArcadeDriveTurnAdjCmd     float64
	TurretAdjVelocityCmd      float64
	GammaMtrVelocityCmd       float64
	DeltaMtrVelocityCmd       float64

	AlphaSolenoidPosition robotmap.SolenoidValue
	BetaSolenoidPosition  robotmap.SolenoidValue

	DriversStationMsg string
}

// Frame is one control cycle's data. It is owned by a single control cycle and
// is not safe for concurrent mutation; hand a Snapshot to other goroutines.
type Frame struct {
	Input   Input
	Working Working
	Output  Output

	robotMap *robotmap.Map
}

// New creates a zero frame. The map supplies the solenoid labels used when the
// frame is serialized.
func New(m *robotmap.Map) *Frame {
	return &Frame{robotMap: m}
}

// Reset zeroes all three sections so the frame can be reused for the next cycle
func (f *Frame) Reset() {
	f.Input = Input{}
	f.Working = Working{}
	f.Output = Output{}
}

// Snapshot returns an independent copy of the frame
func (f *Frame) Snapshot() *Frame {
	c := *f
	return &c
}

// RobotMap returns the configuration the frame renders against
func (f *Frame) RobotMap() *robotmap.Map {
	return f.robotMap
}
