package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/open-teleop/joyteleop/pkg/config"
	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/pkg/teleop"
)

// ErrInvalidConfig marks updates rejected by parsing or validation.
var ErrInvalidConfig = errors.New("invalid teleop configuration")

// TeleopConfigService manages the operational teleop profile.
type TeleopConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.Config
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	PersistConfig(yamlData []byte) error
}

// teleopConfigService implements the TeleopConfigService interface.
type teleopConfigService struct {
	operationalConfigPath string
	logger                customlog.Logger
	currentConfig         *config.Config
	mu                    sync.RWMutex
}

// NewTeleopConfigService creates the service and loads the profile. Unlike
// bootstrap settings the profile has no usable defaults, so a failed load is
// returned.
func NewTeleopConfigService(operationalConfigPath string, logger customlog.Logger) (TeleopConfigService, error) {
	if operationalConfigPath == "" {
		return nil, fmt.Errorf("operational configuration path cannot be empty")
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}

	service := &teleopConfigService{
		operationalConfigPath: operationalConfigPath,
		logger:                logger,
	}

	if err := service.LoadConfig(); err != nil {
		return nil, err
	}

	logger.Infof("TeleopConfigService initialized successfully for path: %s", operationalConfigPath)
	return service, nil
}

// LoadConfig reads the operational config file from disk and updates the currentConfig.
func (s *teleopConfigService) LoadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading operational configuration from: %s", s.operationalConfigPath)
	cfg, err := config.LoadConfig(s.operationalConfigPath)
	if err != nil {
		s.logger.Errorf("Error loading operational config file '%s': %v", s.operationalConfigPath, err)
		return fmt.Errorf("error loading operational config file '%s': %w", s.operationalConfigPath, err)
	}

	s.currentConfig = cfg
	s.logger.Infof("Successfully loaded operational configuration profile: %s, Version: %s", cfg.ProfileID, cfg.Version)
	return nil
}

// GetCurrentConfig returns the loaded profile. Treat it as read-only.
func (s *teleopConfigService) GetCurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML renders the effective profile, defaults filled in.
func (s *teleopConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentConfig == nil {
		return nil, nil
	}
	data, err := s.currentConfig.ToYAML()
	if err != nil {
		return nil, fmt.Errorf("failed to render teleop config: %w", err)
	}
	return data, nil
}

// UpdateConfig validates and persists a new profile. The running translator
// keeps its settings; the new profile applies from the next start.
func (s *teleopConfigService) UpdateConfig(newConfigYAML []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Attempting to update operational configuration from provided YAML")

	newCfg, err := config.ParseConfig(newConfigYAML)
	if err != nil {
		s.logger.Errorf("Rejected teleop configuration update: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := s.persistConfigUnlocked(newConfigYAML); err != nil {
		return err
	}

	oldID := "N/A"
	if s.currentConfig != nil {
		oldID = s.currentConfig.ProfileID
	}
	s.currentConfig = newCfg
	s.logger.Infof("Updated operational configuration. Profile %s -> %s, Version: %s. Restart to apply.", oldID, newCfg.ProfileID, newCfg.Version)
	return nil
}

// PersistConfig writes the given YAML data to the operational config file path.
func (s *teleopConfigService) PersistConfig(yamlData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistConfigUnlocked(yamlData)
}

// persistConfigUnlocked replaces the file through a rename so readers never
// see a partial write. The caller holds mu.
func (s *teleopConfigService) persistConfigUnlocked(yamlData []byte) error {
	s.logger.Infof("Persisting operational configuration to: %s", s.operationalConfigPath)

	dir := filepath.Dir(s.operationalConfigPath)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.operationalConfigPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file in '%s': %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(yamlData); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	if err := os.Rename(tmpName, s.operationalConfigPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error replacing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	return nil
}

// TranslatorOptions maps a validated profile onto translator options.
func TranslatorOptions(cfg *config.Config) teleop.Options {
	t := cfg.Teleop
	trigger := teleop.TriggerLevel
	if t.RemoteTrigger == config.TriggerPress {
		trigger = teleop.TriggerPress
	}
	return teleop.Options{
		LinearGain:  teleop.Gain{Value: t.LinearGain.Initial, Min: t.LinearGain.Min, Max: t.LinearGain.Max},
		AngularGain: teleop.Gain{Value: t.AngularGain.Initial, Min: t.AngularGain.Min, Max: t.AngularGain.Max},
		Step:        t.GainStep,
		Axes:        teleop.AxisMap{Linear: *t.Axes.Linear, Angular: *t.Axes.Angular},
		Buttons: teleop.ButtonMap{
			ToggleRunState:    t.Buttons.ToggleRunState,
			GetMode:           t.Buttons.GetMode,
			ClearMissionQueue: t.Buttons.ClearMissionQueue,
			GetStatus:         t.Buttons.GetStatus,
			IncreaseLinear:    t.Buttons.IncreaseLinear,
			IncreaseAngular:   t.Buttons.IncreaseAngular,
			DecreaseLinear:    t.Buttons.DecreaseLinear,
			DecreaseAngular:   t.Buttons.DecreaseAngular,
		},
		GainAdjustWhenStationary: t.GainAdjustWhenStationary,
		Trigger:                  trigger,
	}
}
