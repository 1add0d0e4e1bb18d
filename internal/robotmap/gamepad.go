package robotmap

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Logitech F310 button indices as reported by the driver station (1-based).
const (
	F310ButtonA          Button = 1
	F310ButtonB          Button = 2
	F310ButtonX          Button = 3
	F310ButtonY          Button = 4
	F310LeftBumper       Button = 5
	F310RightBumper      Button = 6
	F310ButtonBack       Button = 7
	F310ButtonStart      Button = 8
	F310LeftStickButton  Button = 9
	F310RightStickButton Button = 10
)

// Logitech F310 axis indices (0-based).
const (
	F310LeftXAxis       Axis = 0
	F310LeftYAxis       Axis = 1
	F310LeftTriggerAxis Axis = 2
	F310RightTrigger    Axis = 3
	F310RightXAxis      Axis = 4
	F310RightYAxis      Axis = 5
)

// Button is a gamepad button index
type Button int

// Axis is a gamepad analog axis index
type Axis int

var buttonNames = map[string]Button{
	"A":            F310ButtonA,
	"B":            F310ButtonB,
	"X":            F310ButtonX,
	"Y":            F310ButtonY,
	"LEFT_BUMPER":  F310LeftBumper,
	"RIGHT_BUMPER": F310RightBumper,
	"BACK":         F310ButtonBack,
	"START":        F310ButtonStart,
	"LEFT_STICK":   F310LeftStickButton,
	"RIGHT_STICK":  F310RightStickButton,
}

var axisNames = map[string]Axis{
	"LEFT_X":        F310LeftXAxis,
	"LEFT_Y":        F310LeftYAxis,
	"LEFT_TRIGGER":  F310LeftTriggerAxis,
	"RIGHT_TRIGGER": F310RightTrigger,
	"RIGHT_X":       F310RightXAxis,
	"RIGHT_Y":       F310RightYAxis,
}

func (b Button) String() string {
	for name, v := range buttonNames {
		if v == b {
			return name
		}
	}
	return strconv.Itoa(int(b))
}

// UnmarshalYAML accepts either an F310 button name ("START") or a raw index
func (b *Button) UnmarshalYAML(value *yaml.Node) error {
	if v, ok := buttonNames[strings.ToUpper(value.Value)]; ok {
		*b = v
		return nil
	}
	n, err := strconv.Atoi(value.Value)
	if err != nil {
		return fmt.Errorf("unknown gamepad button %q", value.Value)
	}
	*b = Button(n)
	return nil
}

func (b Button) MarshalYAML() (any, error) {
	return b.String(), nil
}

func (a Axis) String() string {
	for name, v := range axisNames {
		if v == a {
			return name
		}
	}
	return strconv.Itoa(int(a))
}

// UnmarshalYAML accepts either an F310 axis name ("LEFT_Y") or a raw index
func (a *Axis) UnmarshalYAML(value *yaml.Node) error {
	if v, ok := axisNames[strings.ToUpper(value.Value)]; ok {
		*a = v
		return nil
	}
	n, err := strconv.Atoi(value.Value)
	if err != nil {
		return fmt.Errorf("unknown gamepad axis %q", value.Value)
	}
	*a = Axis(n)
	return nil
}

func (a Axis) MarshalYAML() (any, error) {
	return a.String(), nil
}

// DriverGamepad maps driver controls onto the driver's gamepad
type DriverGamepad struct {
	USBPort             int    `yaml:"usbPort"`
	ScaleSpeedUpBtn     Button `yaml:"scaleSpeedUpBtn"`
	ScaleSpeedDownBtn   Button `yaml:"scaleSpeedDownBtn"`
	ThrottleAxis        Axis   `yaml:"throttleAxis"`
	TurnAxis            Axis   `yaml:"turnAxis"`
	AlphaSolenoidOpen   Button `yaml:"alphaSolenoidOpenBtn"`
	AlphaSolenoidClosed Button `yaml:"alphaSolenoidClosedBtn"`
	BetaSolenoidOpen    Button `yaml:"betaSolenoidOpenBtn"`
	BetaSolenoidClosed  Button `yaml:"betaSolenoidClosedBtn"`
	ShooterAxis         Axis   `yaml:"shooterAxis"`
}

// OperatorGamepad maps operator controls onto the operator's gamepad
type OperatorGamepad struct {
	USBPort    int  `yaml:"usbPort"`
	TurretAxis Axis `yaml:"turretAxis"`
}
