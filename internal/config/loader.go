package config

import (
	"fmt"
	"os"
	"path/filepath"

	"lifectl/pkg/logging"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/lifectl"
	projectConfigDir = ".lifectl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the lifectl configuration by layering default, user, and project settings.
func LoadConfig() (LifectlConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// user config is optional
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else if config, err = overlayIfExists(config, userConfigPath); err != nil {
		return LifectlConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine project config path: %v", err)
	} else if config, err = overlayIfExists(config, projectConfigPath); err != nil {
		return LifectlConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	if err := config.Validate(); err != nil {
		return LifectlConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// LoadConfigFromPath layers a single explicit file over the defaults. User
// and project files are not consulted.
func LoadConfigFromPath(path string) (LifectlConfig, error) {
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return LifectlConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}

	config := mergeConfigs(GetDefaultConfig(), overlay)
	if err := config.Validate(); err != nil {
		return LifectlConfig{}, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return config, nil
}

func overlayIfExists(base LifectlConfig, path string) (LifectlConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return base, err
	}
	logging.Debug("Config", "Loaded configuration layer %s", path)
	return mergeConfigs(base, overlay), nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a LifectlConfig from a YAML file.
func loadConfigFromFile(filePath string) (LifectlConfig, error) {
	var config LifectlConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return LifectlConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return LifectlConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Scalars override
// when set; services and controllers are replaced or added by name.
func mergeConfigs(base, overlay LifectlConfig) LifectlConfig {
	merged := base

	if overlay.GlobalSettings.LogLevel != "" {
		merged.GlobalSettings.LogLevel = overlay.GlobalSettings.LogLevel
	}

	if overlay.Readiness.Backend != "" {
		merged.Readiness.Backend = overlay.Readiness.Backend
	}
	if overlay.Readiness.Dir != "" {
		merged.Readiness.Dir = overlay.Readiness.Dir
	}
	if overlay.Readiness.Namespace != "" {
		merged.Readiness.Namespace = overlay.Readiness.Namespace
	}
	if overlay.Readiness.Kubeconfig != "" {
		merged.Readiness.Kubeconfig = overlay.Readiness.Kubeconfig
	}
	if overlay.Readiness.Context != "" {
		merged.Readiness.Context = overlay.Readiness.Context
	}

	if overlay.Transport.Mode != "" {
		merged.Transport.Mode = overlay.Transport.Mode
	}
	if overlay.Transport.Host != "" {
		merged.Transport.Host = overlay.Transport.Host
	}
	if overlay.Transport.Port != 0 {
		merged.Transport.Port = overlay.Transport.Port
	}
	if overlay.Transport.DiscoveryTimeout != 0 {
		merged.Transport.DiscoveryTimeout = overlay.Transport.DiscoveryTimeout
	}

	merged.Services = mergeByName(base.Services, overlay.Services, func(s ServiceDefinition) string { return s.Name })
	merged.Controllers = mergeByName(base.Controllers, overlay.Controllers, func(c ControllerDefinition) string { return c.Name })

	return merged
}

// mergeByName keeps base order, replaces same-named entries in place and
// appends new ones in overlay order.
func mergeByName[T any](base, overlay []T, name func(T) string) []T {
	out := make([]T, 0, len(base)+len(overlay))
	index := make(map[string]int, len(base))
	for _, item := range base {
		index[name(item)] = len(out)
		out = append(out, item)
	}
	for _, item := range overlay {
		if i, ok := index[name(item)]; ok {
			out[i] = item
			continue
		}
		index[name(item)] = len(out)
		out = append(out, item)
	}
	return out
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
