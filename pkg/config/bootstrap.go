package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapFileName is the process-level configuration read from the config directory.
const BootstrapFileName = "joyteleop_config.yaml"

// Input source types
const (
	InputJoystick  = "joystick"
	InputWebSocket = "websocket"
	InputZeroMQ    = "zeromq"
)

// Sink types
const (
	SinkZeroMQ = "zeromq"
	SinkLog    = "log"
)

// BootstrapConfig holds the process configuration loaded from joyteleop_config.yaml
type BootstrapConfig struct {
	Logging LoggingConfig         `yaml:"logging"`
	Server  BootstrapServerConfig `yaml:"server"`
	ZeroMQ  ZeroMQBootstrap       `yaml:"zeromq"`
	Input   InputConfig           `yaml:"input"`
	Sink    SinkConfig            `yaml:"sink"`
	Remote  RemoteConfig          `yaml:"remote"`
	Data    DataConfig            `yaml:"data"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// BootstrapServerConfig holds HTTP server settings
type BootstrapServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// ZeroMQBootstrap holds the gateway socket addresses
type ZeroMQBootstrap struct {
	VelocityPublishAddress string `yaml:"velocity_publish_address"`
	JoySubscribeAddress    string `yaml:"joy_subscribe_address"`
}

// InputConfig selects and tunes the controller input source
type InputConfig struct {
	Type         string  `yaml:"type"`
	Device       int     `yaml:"device"`
	PollHz       float64 `yaml:"poll_hz"`
	AutorepeatHz float64 `yaml:"autorepeat_hz"`
	Deadzone     float64 `yaml:"deadzone"`
	// ReconnectMs paces reopening a missing joystick.
	ReconnectMs  int     `yaml:"reconnect_ms"`
}

// SinkConfig selects where velocity commands go
type SinkConfig struct {
	Type string `yaml:"type"`
}

// RemoteConfig holds the robot REST API endpoint and dispatch policy
type RemoteConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	// Raw keeps robot responses as returned instead of decoding them.
	Raw         bool   `yaml:"raw"`
	Async       bool   `yaml:"async"`
	Workers     int    `yaml:"workers"`
	QueueSize   int    `yaml:"queue_size"`
	HistorySize int    `yaml:"history_size"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory            string `yaml:"directory"`
	TeleopConfigFilename string `yaml:"teleop_config_file"`
}

// TeleopConfigPath returns the full path of the operational teleop profile.
func (c *BootstrapConfig) TeleopConfigPath() string {
	return filepath.Join(c.Data.Directory, c.Data.TeleopConfigFilename)
}

// DefaultBootstrapConfig returns the values used for keys absent from the file.
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		Logging: LoggingConfig{Level: "info"},
		Server:  BootstrapServerConfig{HTTPPort: 8080},
		ZeroMQ: ZeroMQBootstrap{
			VelocityPublishAddress: "tcp://*:5556",
			JoySubscribeAddress:    "tcp://*:5557",
		},
		Input: InputConfig{
			Type:        InputJoystick,
			PollHz:      100,
			Deadzone:    0.05,
			ReconnectMs: 1000,
		},
		Sink: SinkConfig{Type: SinkZeroMQ},
		Remote: RemoteConfig{
			Host:        "mir.com",
			TimeoutMs:   2000,
			Async:       true,
			Workers:     1,
			QueueSize:   16,
			HistorySize: 32,
		},
	}
}

// LoadBootstrapConfig loads the bootstrap configuration from joyteleop_config.yaml
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFileName)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	bootstrapCfg := DefaultBootstrapConfig()
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if err := bootstrapCfg.Validate(); err != nil {
		return nil, err
	}
	return &bootstrapCfg, nil
}

// Validate checks required fields and enumerations.
func (c *BootstrapConfig) Validate() error {
	if c.Data.Directory == "" {
		return missingField("data.directory")
	}
	if c.Data.TeleopConfigFilename == "" {
		return missingField("data.teleop_config_file")
	}

	switch c.Input.Type {
	case InputJoystick:
		if c.Input.PollHz <= 0 {
			return fmt.Errorf("invalid bootstrap config: input.poll_hz must be positive, got %v", c.Input.PollHz)
		}
		if c.Input.AutorepeatHz < 0 {
			return fmt.Errorf("invalid bootstrap config: input.autorepeat_hz must not be negative, got %v", c.Input.AutorepeatHz)
		}
	case InputWebSocket:
	case InputZeroMQ:
		if c.ZeroMQ.JoySubscribeAddress == "" {
			return missingField("zeromq.joy_subscribe_address")
		}
	default:
		return fmt.Errorf("invalid bootstrap config: unknown input.type '%s'", c.Input.Type)
	}
	if c.Input.Deadzone < 0 || c.Input.Deadzone >= 1 {
		return fmt.Errorf("invalid bootstrap config: input.deadzone must be in [0, 1), got %v", c.Input.Deadzone)
	}

	switch c.Sink.Type {
	case SinkZeroMQ:
		if c.ZeroMQ.VelocityPublishAddress == "" {
			return missingField("zeromq.velocity_publish_address")
		}
	case SinkLog:
	default:
		return fmt.Errorf("invalid bootstrap config: unknown sink.type '%s'", c.Sink.Type)
	}

	if c.Remote.Enabled {
		if c.Remote.Host == "" {
			return missingField("remote.host")
		}
		if c.Remote.Username == "" {
			return missingField("remote.username")
		}
		if c.Remote.Async && (c.Remote.Workers <= 0 || c.Remote.QueueSize <= 0) {
			return fmt.Errorf("invalid bootstrap config: remote.workers and remote.queue_size must be positive in async mode")
		}
	}
	return nil
}

func missingField(path string) error {
	return fmt.Errorf("missing required field in bootstrap config: %s", path)
}
