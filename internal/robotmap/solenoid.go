package robotmap

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownLabel is rendered for a solenoid position that matches neither the open
// nor the closed mapping. Positions are sampled asynchronously to the command, so
// transient unmapped values are expected.
const UnknownLabel = "UNKNOWN"

// Physical positions of a double-acting solenoid valve
const (
	SolenoidOff SolenoidValue = iota
	SolenoidForward
	SolenoidReverse
)

// Logical actuator states
const (
	ActuatorUnknown ActuatorState = iota
	ActuatorOpen
	ActuatorClosed
)

// SolenoidValue is the physical position of a two-position double solenoid
type SolenoidValue uint8

// ActuatorState is the logical state of a pneumatic actuator
type ActuatorState uint8

var solenoidValueNames = [...]string{
	SolenoidOff:     "off",
	SolenoidForward: "forward",
	SolenoidReverse: "reverse",
}

func (v SolenoidValue) String() string {
	if int(v) < len(solenoidValueNames) {
		return solenoidValueNames[v]
	}
	return fmt.Sprintf("SolenoidValue(%d)", uint8(v))
}

// UnmarshalYAML decodes "off", "forward" or "reverse"
func (v *SolenoidValue) UnmarshalYAML(value *yaml.Node) error {
	name := strings.ToLower(strings.TrimSpace(value.Value))
	for i, n := range solenoidValueNames {
		if n == name {
			*v = SolenoidValue(i)
			return nil
		}
	}
	return fmt.Errorf("unknown solenoid position %q", value.Value)
}

// MarshalYAML encodes the position by name
func (v SolenoidValue) MarshalYAML() (any, error) {
	return v.String(), nil
}

func (s ActuatorState) String() string {
	switch s {
	case ActuatorOpen:
		return "open"
	case ActuatorClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Solenoid describes one double solenoid on the pneumatic control module and how
// its physical positions map onto logical open/closed states.
type Solenoid struct {
	RetractPort    int           `yaml:"retractPort"`
	ExtendPort     int           `yaml:"extendPort"`
	OpenPosition   SolenoidValue `yaml:"openPosition"`
	ClosedPosition SolenoidValue `yaml:"closedPosition"`
	OpenLabel      string        `yaml:"openLabel"`
	ClosedLabel    string        `yaml:"closedLabel"`
}

// State maps a physical position onto the logical state
func (s Solenoid) State(v SolenoidValue) ActuatorState {
	switch v {
	case s.OpenPosition:
		return ActuatorOpen
	case s.ClosedPosition:
		return ActuatorClosed
	default:
		return ActuatorUnknown
	}
}

// Position returns the physical position that realises a logical state.
// ActuatorUnknown has no physical position and yields SolenoidOff.
func (s Solenoid) Position(state ActuatorState) SolenoidValue {
	switch state {
	case ActuatorOpen:
		return s.OpenPosition
	case ActuatorClosed:
		return s.ClosedPosition
	default:
		return SolenoidOff
	}
}

// Label renders a physical position as the configured open/closed label, or
// UnknownLabel.
func (s Solenoid) Label(v SolenoidValue) string {
	switch s.State(v) {
	case ActuatorOpen:
		return s.OpenLabel
	case ActuatorClosed:
		return s.ClosedLabel
	default:
		return UnknownLabel
	}
}

func (s Solenoid) validate(field string) error {
	for _, p := range []struct {
		name string
		port int
	}{{"retractPort", s.RetractPort}, {"extendPort", s.ExtendPort}} {
		if p.port < 0 || p.port > maxPCMPort {
			return newConfigError(field+"."+p.name, "PCM port must be between 0 and %d: %d given", maxPCMPort, p.port)
		}
	}
	if s.RetractPort == s.ExtendPort {
		return newConfigError(field, "retract and extend ports must differ: both are %d", s.RetractPort)
	}
	if s.OpenPosition == SolenoidOff || s.ClosedPosition == SolenoidOff {
		return newConfigError(field, "open and closed positions must be forward or reverse")
	}
	if s.OpenPosition == s.ClosedPosition {
		return newConfigError(field, "open and closed positions must differ: both are %s", s.OpenPosition)
	}
	if s.OpenLabel == "" || s.ClosedLabel == "" {
		return newConfigError(field, "open and closed labels are required")
	}
	if s.OpenLabel == UnknownLabel || s.ClosedLabel == UnknownLabel {
		return newConfigError(field, "label %q is reserved", UnknownLabel)
	}
	return nil
}
