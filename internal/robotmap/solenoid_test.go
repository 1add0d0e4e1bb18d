package robotmap

import "testing"

func TestSolenoidMapping(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("Failed to build default map: %v", err)
	}

	testCases := []struct {
		name     string
		solenoid Solenoid
		value    SolenoidValue
		state    ActuatorState
		label    string
	}{
		{"alpha open", m.AlphaSolenoid(), SolenoidReverse, ActuatorOpen, "ALPHA_SOLENOID_OPEN"},
		{"alpha closed", m.AlphaSolenoid(), SolenoidForward, ActuatorClosed, "ALPHA_SOLENOID_CLOSED"},
		{"alpha off", m.AlphaSolenoid(), SolenoidOff, ActuatorUnknown, UnknownLabel},
		{"beta open", m.BetaSolenoid(), SolenoidForward, ActuatorOpen, "FRONT_CLIPS_OPEN"},
		{"beta closed", m.BetaSolenoid(), SolenoidReverse, ActuatorClosed, "FRONT_CLIPS_CLOSED"},
		{"beta off", m.BetaSolenoid(), SolenoidOff, ActuatorUnknown, UnknownLabel},
		{"out of range", m.BetaSolenoid(), SolenoidValue(9), ActuatorUnknown, UnknownLabel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.solenoid.State(tc.value); got != tc.state {
				t.Errorf("Expected state %s, got %s", tc.state, got)
			}
			if got := tc.solenoid.Label(tc.value); got != tc.label {
				t.Errorf("Expected label %q, got %q", tc.label, got)
			}
		})
	}
}

func TestSolenoidPositionRoundTrip(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("Failed to build default map: %v", err)
	}

	for _, s := range []Solenoid{m.AlphaSolenoid(), m.BetaSolenoid()} {
		for _, state := range []ActuatorState{ActuatorOpen, ActuatorClosed} {
			if got := s.State(s.Position(state)); got != state {
				t.Errorf("Expected %s after round trip, got %s", state, got)
			}
		}
		if got := s.Position(ActuatorUnknown); got != SolenoidOff {
			t.Errorf("Expected off for unknown state, got %s", got)
		}
	}
}
