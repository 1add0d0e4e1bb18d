// Package robotmap holds the robot's hardware layout: CAN bus and PWM addresses,
// pneumatic ports, drive and turret gearing and gamepad mappings. A Map is built
// once at start-up, is never mutated afterwards and is safe to share between
// goroutines.
package robotmap

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	maxCANAddress = 62
	maxPWMPort    = 9
	maxPCMPort    = 7

	// QuadratureEdges is the number of countable edges per encoder cycle
	QuadratureEdges = 4
)

//go:embed robotmap.yaml
var defaultLayout []byte

// CANAddresses are the CAN bus device ids of the pneumatic control module and the
// Talon SRX motor controllers
type CANAddresses struct {
	PCM                   int `yaml:"pcm"`
	LeftDriveMasterMotor  int `yaml:"leftDriveMaster"`
	LeftDriveSlaveMotor   int `yaml:"leftDriveSlave"`
	LeftDriveSlave2Motor  int `yaml:"leftDriveSlave2"`
	RightDriveMasterMotor int `yaml:"rightDriveMaster"`
	RightDriveSlaveMotor  int `yaml:"rightDriveSlave"`
	RightDriveSlave2Motor int `yaml:"rightDriveSlave2"`
	Turret                int `yaml:"turret"`
}

// PWMPorts are the roboRIO PWM outputs
type PWMPorts struct {
	GammaMotor int `yaml:"gammaMotor"`
	DeltaMotor int `yaml:"deltaMotor"`
}

// DriveGearing describes one independently geared drive side
type DriveGearing struct {
	GearBoxRatio        float64 `yaml:"gearBoxRatio"`   // motor revolutions per wheel revolution
	EncoderCountsPerRev int     `yaml:"countsPerRev"`   // encoder counts per wheel revolution, quadrature edges included
	DistancePerRev      float64 `yaml:"distancePerRev"` // wheel travel per revolution in inches
}

// TurretGearing describes the quadrature encoded turret
type TurretGearing struct {
	GearRatio           float64 `yaml:"gearRatio"`     // motor revolutions per turret revolution
	EncoderCountsPerRev int     `yaml:"countsPerRev"`  // encoder cycles per revolution, before quadrature
	DegreesPerRev       float64 `yaml:"degreesPerRev"` // turret travel per revolution in degrees
}

// Layout is the set of base constants for one physical robot revision, as
// found in robotmap.yaml
type Layout struct {
	Robot    string       `yaml:"robot"`
	CAN      CANAddresses `yaml:"can"`
	PWM      PWMPorts     `yaml:"pwm"`
	Solenoid struct {
		Alpha Solenoid `yaml:"alpha"`
		Beta  Solenoid `yaml:"beta"`
	} `yaml:"solenoid"`
	Drive struct {
		Left  DriveGearing `yaml:"left"`
		Right DriveGearing `yaml:"right"`
	} `yaml:"drive"`
	Turret  TurretGearing `yaml:"turret"`
	Gamepad struct {
		Driver   DriverGamepad   `yaml:"driver"`
		Operator OperatorGamepad `yaml:"operator"`
	} `yaml:"gamepad"`
	Logging struct {
		Directory string `yaml:"directory"`
	} `yaml:"logging"`
}

// Map is the immutable configuration table. Conversion factors are derived from
// the layout once in New and cannot be set independently.
type Map struct {
	layout Layout

	leftDistancePerCount  float64
	rightDistancePerCount float64
	turretDegreesPerCount float64
}

// New validates the layout and derives the per-count conversion factors
func New(l Layout) (*Map, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	return &Map{
		layout:                l,
		leftDistancePerCount:  l.Drive.Left.DistancePerRev / float64(l.Drive.Left.EncoderCountsPerRev),
		rightDistancePerCount: l.Drive.Right.DistancePerRev / float64(l.Drive.Right.EncoderCountsPerRev),
		turretDegreesPerCount: l.Turret.DegreesPerRev / float64(QuadratureEdges*l.Turret.EncoderCountsPerRev),
	}, nil
}

// Default returns the map of the competition robot, built from the embedded layout
func Default() (*Map, error) {
	return Parse(defaultLayout)
}

// DefaultLayout returns the embedded layout as raw YAML
func DefaultLayout() []byte {
	return bytes.Clone(defaultLayout)
}

// Load reads a YAML layout file
func Load(path string) (*Map, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading robot map: %w", err)
	}
	return Parse(p)
}

// Parse decodes a YAML layout. Unknown keys are rejected so that a misspelt
// constant does not silently fall back to zero.
func Parse(p []byte) (*Map, error) {
	var l Layout

	dec := yaml.NewDecoder(bytes.NewReader(p))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("decoding robot map: %w", err)
	}
	return New(l)
}

// Validate checks the base constants
func (l *Layout) Validate() error {
	can := []struct {
		field string
		id    int
	}{
		{"can.pcm", l.CAN.PCM},
		{"can.leftDriveMaster", l.CAN.LeftDriveMasterMotor},
		{"can.leftDriveSlave", l.CAN.LeftDriveSlaveMotor},
		{"can.leftDriveSlave2", l.CAN.LeftDriveSlave2Motor},
		{"can.rightDriveMaster", l.CAN.RightDriveMasterMotor},
		{"can.rightDriveSlave", l.CAN.RightDriveSlaveMotor},
		{"can.rightDriveSlave2", l.CAN.RightDriveSlave2Motor},
		{"can.turret", l.CAN.Turret},
	}
	seen := make(map[int]string, len(can))
	for _, c := range can {
		if c.id < 0 || c.id > maxCANAddress {
			return newConfigError(c.field, "CAN address must be between 0 and %d: %d given", maxCANAddress, c.id)
		}
		if other, ok := seen[c.id]; ok {
			return newConfigError(c.field, "CAN address %d already used by %s", c.id, other)
		}
		seen[c.id] = c.field
	}

	for _, p := range []struct {
		field string
		port  int
	}{{"pwm.gammaMotor", l.PWM.GammaMotor}, {"pwm.deltaMotor", l.PWM.DeltaMotor}} {
		if p.port < 0 || p.port > maxPWMPort {
			return newConfigError(p.field, "PWM port must be between 0 and %d: %d given", maxPWMPort, p.port)
		}
	}
	if l.PWM.GammaMotor == l.PWM.DeltaMotor {
		return newConfigError("pwm", "gamma and delta motors share port %d", l.PWM.GammaMotor)
	}

	if err := l.Solenoid.Alpha.validate("solenoid.alpha"); err != nil {
		return err
	}
	if err := l.Solenoid.Beta.validate("solenoid.beta"); err != nil {
		return err
	}

	if err := l.Drive.Left.validate("drive.left"); err != nil {
		return err
	}
	if err := l.Drive.Right.validate("drive.right"); err != nil {
		return err
	}

	if l.Turret.GearRatio <= 0 {
		return newConfigError("turret.gearRatio", "must be positive: %g given", l.Turret.GearRatio)
	}
	if l.Turret.EncoderCountsPerRev <= 0 {
		return newConfigError("turret.countsPerRev", "must be positive: %d given", l.Turret.EncoderCountsPerRev)
	}
	if l.Turret.DegreesPerRev <= 0 {
		return newConfigError("turret.degreesPerRev", "must be positive: %g given", l.Turret.DegreesPerRev)
	}

	if l.Gamepad.Driver.USBPort == l.Gamepad.Operator.USBPort {
		return newConfigError("gamepad", "driver and operator share USB port %d", l.Gamepad.Driver.USBPort)
	}

	return nil
}

func (g DriveGearing) validate(field string) error {
	if g.GearBoxRatio <= 0 {
		return newConfigError(field+".gearBoxRatio", "must be positive: %g given", g.GearBoxRatio)
	}
	if g.EncoderCountsPerRev <= 0 {
		return newConfigError(field+".countsPerRev", "must be positive: %d given", g.EncoderCountsPerRev)
	}
	if g.DistancePerRev <= 0 {
		return newConfigError(field+".distancePerRev", "must be positive: %g given", g.DistancePerRev)
	}
	return nil
}

// Layout returns a copy of the base constants
func (m *Map) Layout() Layout { return m.layout }

func (m *Map) Robot() string { return m.layout.Robot }

func (m *Map) CAN() CANAddresses { return m.layout.CAN }

func (m *Map) PWM() PWMPorts { return m.layout.PWM }

func (m *Map) AlphaSolenoid() Solenoid { return m.layout.Solenoid.Alpha }

func (m *Map) BetaSolenoid() Solenoid { return m.layout.Solenoid.Beta }

func (m *Map) LeftDrive() DriveGearing { return m.layout.Drive.Left }

func (m *Map) RightDrive() DriveGearing { return m.layout.Drive.Right }

func (m *Map) Turret() TurretGearing { return m.layout.Turret }

func (m *Map) DriverGamepad() DriverGamepad { return m.layout.Gamepad.Driver }

func (m *Map) OperatorGamepad() OperatorGamepad { return m.layout.Gamepad.Operator }

// LogDirectory is where TSV logs are written on the robot
func (m *Map) LogDirectory() string { return m.layout.Logging.Directory }

// LeftDriveDistancePerCount is the left wheel travel in inches per encoder count
func (m *Map) LeftDriveDistancePerCount() float64 { return m.leftDistancePerCount }

// RightDriveDistancePerCount is the right wheel travel in inches per encoder count
func (m *Map) RightDriveDistancePerCount() float64 { return m.rightDistancePerCount }

// TurretDegreesPerCount is the turret rotation per quadrature edge
func (m *Map) TurretDegreesPerCount() float64 { return m.turretDegreesPerCount }
