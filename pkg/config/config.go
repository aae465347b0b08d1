package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Remote trigger policies
const (
	TriggerLevel = "level"
	TriggerPress = "press"
)

// Config represents the operational teleop profile for one controller model.
type Config struct {
	Version     string       `yaml:"version" json:"version"`
	ProfileID   string       `yaml:"profile_id" json:"profile_id"`
	LastUpdated string       `yaml:"lastUpdated" json:"lastUpdated"`
	Controller  string       `yaml:"controller" json:"controller"`
	Teleop      TeleopConfig `yaml:"teleop" json:"teleop"`
}

// TeleopConfig holds gains, tick rate and the input index mapping.
type TeleopConfig struct {
	LinearGain               GainConfig   `yaml:"linear_gain" json:"linear_gain"`
	AngularGain              GainConfig   `yaml:"angular_gain" json:"angular_gain"`
	GainStep                 float64      `yaml:"gain_step" json:"gain_step"`
	TickHz                   float64      `yaml:"tick_hz" json:"tick_hz"`
	Axes                     AxisConfig   `yaml:"axes" json:"axes"`
	Buttons                  ButtonConfig `yaml:"buttons" json:"buttons"`
	GainAdjustWhenStationary bool         `yaml:"gain_adjust_when_stationary" json:"gain_adjust_when_stationary"`
	RemoteTrigger            string       `yaml:"remote_trigger" json:"remote_trigger"`
}

// GainConfig bounds one gain scalar.
type GainConfig struct {
	Initial float64 `yaml:"initial" json:"initial"`
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
}

// AxisConfig maps the velocity components to axis indices.
// Angular has no default: pads disagree (F710 uses 2, PS3 uses 3).
type AxisConfig struct {
	Linear  *int `yaml:"linear" json:"linear"`
	Angular *int `yaml:"angular" json:"angular"`
}

// ButtonConfig maps actions to button indices.
type ButtonConfig struct {
	ToggleRunState    int `yaml:"toggle_run_state" json:"toggle_run_state"`
	GetMode           int `yaml:"get_mode" json:"get_mode"`
	ClearMissionQueue int `yaml:"clear_mission_queue" json:"clear_mission_queue"`
	GetStatus         int `yaml:"get_status" json:"get_status"`
	IncreaseLinear    int `yaml:"increase_linear" json:"increase_linear"`
	IncreaseAngular   int `yaml:"increase_angular" json:"increase_angular"`
	DecreaseLinear    int `yaml:"decrease_linear" json:"decrease_linear"`
	DecreaseAngular   int `yaml:"decrease_angular" json:"decrease_angular"`
}

// Indices returns the mapped button indices in declaration order.
func (b ButtonConfig) Indices() []int {
	return []int{
		b.ToggleRunState, b.GetMode, b.ClearMissionQueue, b.GetStatus,
		b.IncreaseLinear, b.IncreaseAngular, b.DecreaseLinear, b.DecreaseAngular,
	}
}

// DefaultConfig returns the Logitech F710 defaults, minus the angular axis.
func DefaultConfig() Config {
	linear := 1
	return Config{
		Version: "1.0",
		Teleop: TeleopConfig{
			LinearGain:  GainConfig{Initial: 0.4, Min: 0.1, Max: 2.0},
			AngularGain: GainConfig{Initial: 0.3, Min: 0.1, Max: 1.0},
			GainStep:    0.1,
			TickHz:      50,
			Axes:        AxisConfig{Linear: &linear},
			Buttons: ButtonConfig{
				ToggleRunState:    0,
				GetMode:           1,
				ClearMissionQueue: 2,
				GetStatus:         3,
				IncreaseLinear:    4,
				IncreaseAngular:   5,
				DecreaseLinear:    6,
				DecreaseAngular:   7,
			},
			RemoteTrigger: TriggerLevel,
		},
	}
}

// LoadConfig loads the teleop profile from the specified file path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates a teleop profile.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks gain bounds, rates and index mapping.
func (c *Config) Validate() error {
	t := c.Teleop
	if err := t.LinearGain.validate("teleop.linear_gain"); err != nil {
		return err
	}
	if err := t.AngularGain.validate("teleop.angular_gain"); err != nil {
		return err
	}
	if t.GainStep <= 0 {
		return fmt.Errorf("invalid config: teleop.gain_step must be positive, got %v", t.GainStep)
	}
	if t.TickHz <= 0 {
		return fmt.Errorf("invalid config: teleop.tick_hz must be positive, got %v", t.TickHz)
	}
	if t.Axes.Linear == nil {
		return fmt.Errorf("missing required field in config: teleop.axes.linear")
	}
	if t.Axes.Angular == nil {
		return fmt.Errorf("missing required field in config: teleop.axes.angular")
	}
	if *t.Axes.Linear < 0 || *t.Axes.Angular < 0 {
		return fmt.Errorf("invalid config: axis indices must not be negative")
	}
	for _, idx := range t.Buttons.Indices() {
		if idx < 0 {
			return fmt.Errorf("invalid config: button indices must not be negative, got %d", idx)
		}
	}
	switch t.RemoteTrigger {
	case TriggerLevel, TriggerPress:
	default:
		return fmt.Errorf("invalid config: unknown teleop.remote_trigger '%s'", t.RemoteTrigger)
	}
	return nil
}

func (g GainConfig) validate(path string) error {
	if g.Min > g.Max {
		return fmt.Errorf("invalid config: %s.min %v exceeds max %v", path, g.Min, g.Max)
	}
	if g.Initial < g.Min || g.Initial > g.Max {
		return fmt.Errorf("invalid config: %s.initial %v outside [%v, %v]", path, g.Initial, g.Min, g.Max)
	}
	return nil
}

// ToYAML renders the effective profile, defaults included.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
