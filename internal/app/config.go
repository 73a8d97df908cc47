package app

import (
	"fmt"
	"io"
	"os"

	"lifectl/internal/config"
)

// Role selects which side of the boundary the application runs.
type Role string

const (
	RoleAuthority Role = "authority"
	RoleDependent Role = "dependent"
	// RoleBoth runs both sides in one process.
	RoleBoth Role = "both"
)

// Config holds the application configuration
type Config struct {
	Role Role

	// Debug settings
	Debug bool

	// TUI replaces the console status lines with the interactive status view.
	TUI bool
	// TUIInput replaces stdin as the status view's key input.
	TUIInput io.Reader

	// ConfigPath is an explicit config file. Empty means layered loading.
	ConfigPath string

	// Out receives the console status lines. Default: os.Stdout.
	Out io.Writer
	// LogOutput receives log records. Default: os.Stderr.
	LogOutput io.Writer

	// OnCallResult observes every remote call a controller makes.
	OnCallResult func(CallResult)

	// Lifectl configuration, filled in by NewApplication unless preset.
	LifectlConfig *config.LifectlConfig
}

// NewConfig creates a new application configuration
func NewConfig(role Role, debug bool, configPath string) *Config {
	return &Config{
		Role:       role,
		Debug:      debug,
		ConfigPath: configPath,
		Out:        os.Stdout,
		LogOutput:  os.Stderr,
	}
}

func (c *Config) validate() error {
	switch c.Role {
	case RoleAuthority, RoleDependent, RoleBoth:
	default:
		return fmt.Errorf("unknown role %q", c.Role)
	}

	if c.Role != RoleBoth && c.LifectlConfig != nil {
		if c.LifectlConfig.Readiness.Backend == config.ReadinessBackendMemory {
			return fmt.Errorf("the %s role runs in its own process; the memory readiness backend cannot span processes", c.Role)
		}
		if c.LifectlConfig.Transport.Mode == config.TransportModeInProcess {
			return fmt.Errorf("the %s role runs in its own process; the inprocess transport cannot span processes", c.Role)
		}
	}
	return nil
}
