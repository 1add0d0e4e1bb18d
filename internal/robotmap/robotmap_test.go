package robotmap

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("Failed to build default map: %v", err)
	}

	if got := m.CAN().LeftDriveMasterMotor; got != 14 {
		t.Errorf("Expected left drive master on CAN 14, got %d", got)
	}
	if got := m.CAN().Turret; got != 16 {
		t.Errorf("Expected turret on CAN 16, got %d", got)
	}
	if got := m.PWM().DeltaMotor; got != 1 {
		t.Errorf("Expected delta motor on PWM 1, got %d", got)
	}
	if got := m.DriverGamepad().ScaleSpeedUpBtn; got != F310ButtonStart {
		t.Errorf("Expected scale up on START, got %s", got)
	}
	if got := m.DriverGamepad().ShooterAxis; got != F310LeftTriggerAxis {
		t.Errorf("Expected shooter on LEFT_TRIGGER, got %s", got)
	}
	if got := m.OperatorGamepad().USBPort; got != 1 {
		t.Errorf("Expected operator on USB 1, got %d", got)
	}
	if got := m.LogDirectory(); got != "/media/sda1/logging" {
		t.Errorf("Unexpected log directory %q", got)
	}
}

func TestDerivedFactors(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("Failed to build default map: %v", err)
	}

	const eps = 1e-12

	left := m.LeftDrive()
	if want := left.DistancePerRev / float64(left.EncoderCountsPerRev); math.Abs(m.LeftDriveDistancePerCount()-want) > eps {
		t.Errorf("Expected left distance per count %g, got %g", want, m.LeftDriveDistancePerCount())
	}
	if math.Abs(m.LeftDriveDistancePerCount()-0.01885) > eps {
		t.Errorf("Expected left distance per count 0.01885, got %g", m.LeftDriveDistancePerCount())
	}

	right := m.RightDrive()
	if want := right.DistancePerRev / float64(right.EncoderCountsPerRev); math.Abs(m.RightDriveDistancePerCount()-want) > eps {
		t.Errorf("Expected right distance per count %g, got %g", want, m.RightDriveDistancePerCount())
	}

	turret := m.Turret()
	if want := turret.DegreesPerRev / (4 * float64(turret.EncoderCountsPerRev)); math.Abs(m.TurretDegreesPerCount()-want) > eps {
		t.Errorf("Expected turret degrees per count %g, got %g", want, m.TurretDegreesPerCount())
	}
}

func TestDerivedFactorsFollowLayout(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("Failed to build default map: %v", err)
	}

	l := m.Layout()
	l.Drive.Left.DistancePerRev = 25.133
	l.Drive.Left.EncoderCountsPerRev = 2048
	l.Turret.EncoderCountsPerRev = 100
	l.Turret.DegreesPerRev = 360

	m2, err := New(l)
	if err != nil {
		t.Fatalf("Failed to build map: %v", err)
	}
	if got, want := m2.LeftDriveDistancePerCount(), 25.133/2048; got != want {
		t.Errorf("Expected %g, got %g", want, got)
	}
	if got, want := m2.TurretDegreesPerCount(), 0.9; math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected %g, got %g", want, got)
	}

	// the original map is untouched
	if got := m.LeftDriveDistancePerCount(); math.Abs(got-0.01885) > 1e-12 {
		t.Errorf("Original map changed: %g", got)
	}
}

func TestLayoutCopyIsIsolated(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("Failed to build default map: %v", err)
	}

	l := m.Layout()
	l.CAN.Turret = 42
	l.Solenoid.Alpha.OpenLabel = "changed"

	if m.CAN().Turret != 16 {
		t.Error("Mutating a layout copy changed the map")
	}
	if m.AlphaSolenoid().OpenLabel != "ALPHA_SOLENOID_OPEN" {
		t.Error("Mutating a solenoid copy changed the map")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(l *Layout)
		field  string
	}{
		{"zero left counts", func(l *Layout) { l.Drive.Left.EncoderCountsPerRev = 0 }, "drive.left.countsPerRev"},
		{"negative right distance", func(l *Layout) { l.Drive.Right.DistancePerRev = -1 }, "drive.right.distancePerRev"},
		{"zero gearbox", func(l *Layout) { l.Drive.Left.GearBoxRatio = 0 }, "drive.left.gearBoxRatio"},
		{"zero turret counts", func(l *Layout) { l.Turret.EncoderCountsPerRev = 0 }, "turret.countsPerRev"},
		{"CAN out of range", func(l *Layout) { l.CAN.Turret = 63 }, "can.turret"},
		{"CAN duplicate", func(l *Layout) { l.CAN.Turret = 14 }, "can.turret"},
		{"PWM out of range", func(l *Layout) { l.PWM.GammaMotor = 10 }, "pwm.gammaMotor"},
		{"PCM port out of range", func(l *Layout) { l.Solenoid.Beta.ExtendPort = 8 }, "solenoid.beta.extendPort"},
		{"same solenoid ports", func(l *Layout) { l.Solenoid.Alpha.ExtendPort = 0 }, "solenoid.alpha"},
		{"same solenoid positions", func(l *Layout) { l.Solenoid.Beta.ClosedPosition = SolenoidForward }, "solenoid.beta"},
		{"off solenoid position", func(l *Layout) { l.Solenoid.Alpha.OpenPosition = SolenoidOff }, "solenoid.alpha"},
		{"reserved label", func(l *Layout) { l.Solenoid.Alpha.OpenLabel = UnknownLabel }, "solenoid.alpha"},
		{"shared gamepad", func(l *Layout) { l.Gamepad.Operator.USBPort = 0 }, "gamepad"},
	}

	base, err := Default()
	if err != nil {
		t.Fatalf("Failed to build default map: %v", err)
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := base.Layout()
			tc.mutate(&l)

			_, err := New(l)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tc.field {
				t.Errorf("Expected field %q, got %q", tc.field, cfgErr.Field)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	layout := strings.Replace(string(DefaultLayout()), "countsPerRev: 497", "countsPerRev: 250", 1)
	path := filepath.Join(dir, "robotmap.yaml")
	if err := os.WriteFile(path, []byte(layout), 0o644); err != nil {
		t.Fatalf("Failed to write layout: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load layout: %v", err)
	}
	if got, want := m.TurretDegreesPerCount(), 60.0/1000; math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected %g, got %g", want, got)
	}

	if _, err = Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	layout := string(DefaultLayout()) + "\nextra: 1\n"
	if _, err := Parse([]byte(layout)); err == nil {
		t.Error("Expected error for unknown key")
	}

	bad := strings.Replace(string(DefaultLayout()), "openPosition: reverse", "openPosition: sideways", 1)
	if _, err := Parse([]byte(bad)); err == nil {
		t.Error("Expected error for unknown solenoid position")
	}

	badBtn := strings.Replace(string(DefaultLayout()), "scaleSpeedUpBtn: START", "scaleSpeedUpBtn: TURBO", 1)
	if _, err := Parse([]byte(badBtn)); err == nil {
		t.Error("Expected error for unknown button")
	}
}

func TestMarshaledLayoutLoadsBack(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("Failed to load default map: %v", err)
	}

	p, err := yaml.Marshal(m.Layout())
	if err != nil {
		t.Fatalf("Failed to marshal layout: %v", err)
	}
	if !strings.Contains(string(p), "throttleAxis: LEFT_Y") {
		t.Errorf("Expected gamepad axes by name, got:\n%s", p)
	}

	parsed, err := Parse(p)
	if err != nil {
		t.Fatalf("Failed to parse marshaled layout: %v", err)
	}
	if parsed.Layout() != m.Layout() {
		t.Errorf("Expected identical layout after reload")
	}
}
