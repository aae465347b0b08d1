package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/open-teleop/joyteleop/pkg/teleop"
)

const validProfile = `
version: "1.0"
profile_id: "f710"
controller: "Logitech F710"
teleop:
  linear_gain: {initial: 0.5, min: 0.1, max: 2.0}
  angular_gain: {initial: 0.3, min: 0.1, max: 1.0}
  gain_step: 0.1
  tick_hz: 20
  axes: {linear: 1, angular: 2}
  remote_trigger: press
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "teleop.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write profile: %v", err)
	}
	return path
}

func TestNewTeleopConfigServiceLoadsProfile(t *testing.T) {
	svc, err := NewTeleopConfigService(writeProfile(t, validProfile), nil)
	if err != nil {
		t.Fatalf("NewTeleopConfigService failed: %v", err)
	}

	cfg := svc.GetCurrentConfig()
	if cfg.ProfileID != "f710" {
		t.Errorf("Expected profile 'f710', got '%s'", cfg.ProfileID)
	}
	if cfg.Teleop.TickHz != 20 {
		t.Errorf("Expected tick_hz 20, got %v", cfg.Teleop.TickHz)
	}
}

func TestNewTeleopConfigServiceFailsWithoutProfile(t *testing.T) {
	if _, err := NewTeleopConfigService(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("Expected error for missing profile")
	}
	if _, err := NewTeleopConfigService("", nil); err == nil {
		t.Fatal("Expected error for empty path")
	}
}

func TestGetCurrentConfigYAMLIncludesDefaults(t *testing.T) {
	svc, err := NewTeleopConfigService(writeProfile(t, validProfile), nil)
	if err != nil {
		t.Fatalf("NewTeleopConfigService failed: %v", err)
	}

	data, err := svc.GetCurrentConfigYAML()
	if err != nil {
		t.Fatalf("GetCurrentConfigYAML failed: %v", err)
	}
	// Button mapping is not in the file; the defaults must show up.
	if !strings.Contains(string(data), "increase_linear: 4") {
		t.Errorf("Expected default button mapping in YAML, got:\n%s", data)
	}
}

func TestUpdateConfigPersists(t *testing.T) {
	path := writeProfile(t, validProfile)
	svc, err := NewTeleopConfigService(path, nil)
	if err != nil {
		t.Fatalf("NewTeleopConfigService failed: %v", err)
	}

	updated := strings.Replace(validProfile, `profile_id: "f710"`, `profile_id: "ps3"`, 1)
	updated = strings.Replace(updated, "angular: 2", "angular: 3", 1)
	if err := svc.UpdateConfig([]byte(updated)); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	if got := svc.GetCurrentConfig().ProfileID; got != "ps3" {
		t.Errorf("Expected in-memory profile 'ps3', got '%s'", got)
	}
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read persisted profile: %v", err)
	}
	if string(onDisk) != updated {
		t.Errorf("Persisted profile does not match update")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected only the profile in the directory, found %d entries", len(entries))
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	path := writeProfile(t, validProfile)
	svc, err := NewTeleopConfigService(path, nil)
	if err != nil {
		t.Fatalf("NewTeleopConfigService failed: %v", err)
	}

	invalid := strings.Replace(validProfile, "axes: {linear: 1, angular: 2}", "axes: {linear: 1}", 1)
	err = svc.UpdateConfig([]byte(invalid))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "teleop.axes.angular") {
		t.Errorf("Expected error to name the missing field, got %v", err)
	}

	onDisk, _ := os.ReadFile(path)
	if string(onDisk) != validProfile {
		t.Errorf("Invalid update must not touch the file")
	}
	if svc.GetCurrentConfig().ProfileID != "f710" {
		t.Errorf("Invalid update must not replace the current profile")
	}
}

func TestTranslatorOptions(t *testing.T) {
	svc, err := NewTeleopConfigService(writeProfile(t, validProfile), nil)
	if err != nil {
		t.Fatalf("NewTeleopConfigService failed: %v", err)
	}

	opts := TranslatorOptions(svc.GetCurrentConfig())
	if opts.LinearGain != (teleop.Gain{Value: 0.5, Min: 0.1, Max: 2.0}) {
		t.Errorf("Unexpected linear gain %+v", opts.LinearGain)
	}
	if opts.Axes != (teleop.AxisMap{Linear: 1, Angular: 2}) {
		t.Errorf("Unexpected axes %+v", opts.Axes)
	}
	if opts.Buttons != teleop.DefaultButtonMap() {
		t.Errorf("Unexpected buttons %+v", opts.Buttons)
	}
	if opts.Trigger != teleop.TriggerPress {
		t.Errorf("Expected press trigger")
	}

	if _, err := teleop.NewTranslator(opts, nil, nil); err != nil {
		t.Errorf("Options from a valid profile must build a translator: %v", err)
	}
}
