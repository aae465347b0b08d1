package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()

	configContent := `
# PS3 pad profile
version: "1.0"
profile_id: "ps3-external"
lastUpdated: "2024-01-01T00:00:00Z"
controller: "Sony PS3"

teleop:
  linear_gain:
    initial: 0.2
    min: 0.1
    max: 2.0
  angular_gain:
    initial: 0.2
    min: 0.1
    max: 1.0
  axes:
    angular: 3
  gain_adjust_when_stationary: true
  remote_trigger: "press"
`

	configPath := filepath.Join(tempDir, "teleop_profile.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.ProfileID != "ps3-external" {
		t.Errorf("Expected profile_id ps3-external, got %s", config.ProfileID)
	}
	if config.Teleop.LinearGain.Initial != 0.2 {
		t.Errorf("Expected linear initial 0.2, got %v", config.Teleop.LinearGain.Initial)
	}
	if *config.Teleop.Axes.Angular != 3 {
		t.Errorf("Expected angular axis 3, got %d", *config.Teleop.Axes.Angular)
	}
	// Defaults survive for keys the file leaves out
	if *config.Teleop.Axes.Linear != 1 {
		t.Errorf("Expected default linear axis 1, got %d", *config.Teleop.Axes.Linear)
	}
	if config.Teleop.GainStep != 0.1 {
		t.Errorf("Expected default gain_step 0.1, got %v", config.Teleop.GainStep)
	}
	if config.Teleop.TickHz != 50 {
		t.Errorf("Expected default tick_hz 50, got %v", config.Teleop.TickHz)
	}
	if config.Teleop.Buttons.DecreaseAngular != 7 {
		t.Errorf("Expected default decrease_angular button 7, got %d", config.Teleop.Buttons.DecreaseAngular)
	}
	if !config.Teleop.GainAdjustWhenStationary {
		t.Errorf("Expected gain_adjust_when_stationary true")
	}
	if config.Teleop.RemoteTrigger != TriggerPress {
		t.Errorf("Expected remote_trigger press, got %s", config.Teleop.RemoteTrigger)
	}
}

func TestParseConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing angular axis",
			content: "teleop:\n  axes:\n    linear: 1\n",
			wantErr: "missing required field in config: teleop.axes.angular",
		},
		{
			name:    "initial outside bounds",
			content: "teleop:\n  axes: {angular: 2}\n  linear_gain: {initial: 3.0, min: 0.1, max: 2.0}\n",
			wantErr: "teleop.linear_gain.initial",
		},
		{
			name:    "min above max",
			content: "teleop:\n  axes: {angular: 2}\n  angular_gain: {initial: 0.5, min: 1.0, max: 0.5}\n",
			wantErr: "teleop.angular_gain.min",
		},
		{
			name:    "zero step",
			content: "teleop:\n  axes: {angular: 2}\n  gain_step: 0\n",
			wantErr: "teleop.gain_step",
		},
		{
			name:    "unknown trigger",
			content: "teleop:\n  axes: {angular: 2}\n  remote_trigger: sometimes\n",
			wantErr: "teleop.remote_trigger",
		},
		{
			name:    "negative button",
			content: "teleop:\n  axes: {angular: 2}\n  buttons: {get_mode: -1}\n",
			wantErr: "button indices",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.content))
			if err == nil {
				t.Fatalf("Expected error containing '%s', got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error containing '%s', got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestConfigToYAMLRoundTrip(t *testing.T) {
	config, err := ParseConfig([]byte("teleop:\n  axes: {angular: 2}\n"))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	data, err := config.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML failed: %v", err)
	}
	if !strings.Contains(string(data), "angular: 2") {
		t.Errorf("Expected rendered YAML to contain the angular axis, got:\n%s", data)
	}
	again, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig of rendered YAML failed: %v", err)
	}
	if *again.Teleop.Axes.Angular != 2 {
		t.Errorf("Expected angular axis 2 after round trip, got %d", *again.Teleop.Axes.Angular)
	}
}

func TestLoadBootstrapConfig(t *testing.T) {
	tempDir := t.TempDir()

	bootstrapContent := `
logging:
  level: "debug"
  log_path: "/var/log/joyteleop"
server:
  http_port: 9090
zeromq:
  velocity_publish_address: "tcp://*:6666"
  joy_subscribe_address: "tcp://*:7777"
input:
  type: "zeromq"
sink:
  type: "zeromq"
remote:
  enabled: true
  host: "193.2.178.59"
  username: "distributor"
  password: "secret"
  timeout_ms: 500
  async: false
data:
  directory: "/data/joyteleop"
  teleop_config_file: "f710.yaml"
`
	configPath := filepath.Join(tempDir, BootstrapFileName)
	if err := os.WriteFile(configPath, []byte(bootstrapContent), 0644); err != nil {
		t.Fatalf("Failed to write test bootstrap config: %v", err)
	}

	bootstrapCfg, err := LoadBootstrapConfig(tempDir)
	if err != nil {
		t.Fatalf("LoadBootstrapConfig failed: %v", err)
	}

	if bootstrapCfg.Logging.Level != "debug" {
		t.Errorf("Expected logging level 'debug', got '%s'", bootstrapCfg.Logging.Level)
	}
	if bootstrapCfg.Server.HTTPPort != 9090 {
		t.Errorf("Expected server http_port 9090, got %d", bootstrapCfg.Server.HTTPPort)
	}
	if bootstrapCfg.ZeroMQ.JoySubscribeAddress != "tcp://*:7777" {
		t.Errorf("Expected joy_subscribe_address 'tcp://*:7777', got '%s'", bootstrapCfg.ZeroMQ.JoySubscribeAddress)
	}
	if bootstrapCfg.Input.Type != InputZeroMQ {
		t.Errorf("Expected input type zeromq, got '%s'", bootstrapCfg.Input.Type)
	}
	if bootstrapCfg.Remote.Host != "193.2.178.59" {
		t.Errorf("Expected remote host '193.2.178.59', got '%s'", bootstrapCfg.Remote.Host)
	}
	if bootstrapCfg.Remote.Async {
		t.Errorf("Expected remote async false")
	}
	// Untouched defaults
	if bootstrapCfg.Remote.HistorySize != 32 {
		t.Errorf("Expected default history_size 32, got %d", bootstrapCfg.Remote.HistorySize)
	}
	if bootstrapCfg.Input.Deadzone != 0.05 {
		t.Errorf("Expected default deadzone 0.05, got %v", bootstrapCfg.Input.Deadzone)
	}
	if got := bootstrapCfg.TeleopConfigPath(); got != filepath.Join("/data/joyteleop", "f710.yaml") {
		t.Errorf("Unexpected teleop config path %s", got)
	}
}

func TestLoadBootstrapConfigMissingRequired(t *testing.T) {
	tempDir := t.TempDir()

	bootstrapContentMissing := `
logging:
  level: "info"
data:
  directory: "/data"
  teleop_config_file: "f710.yaml"
remote:
  enabled: true
  host: "mir.com"
  # username missing
`
	configPath := filepath.Join(tempDir, BootstrapFileName)
	if err := os.WriteFile(configPath, []byte(bootstrapContentMissing), 0644); err != nil {
		t.Fatalf("Failed to write test bootstrap config: %v", err)
	}

	_, err := LoadBootstrapConfig(tempDir)
	if err == nil {
		t.Fatalf("Expected error when loading bootstrap config with missing required fields, but got nil")
	}

	expectedErrorSubstr := "missing required field in bootstrap config: remote.username"
	if !strings.Contains(err.Error(), expectedErrorSubstr) {
		t.Errorf("Expected error message to contain '%s', but got: %v", expectedErrorSubstr, err)
	}
}

func TestLoadBootstrapConfigUnknownInput(t *testing.T) {
	tempDir := t.TempDir()
	content := "input:\n  type: carrier-pigeon\ndata:\n  directory: /d\n  teleop_config_file: p.yaml\n"
	if err := os.WriteFile(filepath.Join(tempDir, BootstrapFileName), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test bootstrap config: %v", err)
	}
	_, err := LoadBootstrapConfig(tempDir)
	if err == nil || !strings.Contains(err.Error(), "unknown input.type") {
		t.Errorf("Expected unknown input.type error, got %v", err)
	}
}
