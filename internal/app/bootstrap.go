package app

import (
	"context"
	"fmt"
	"os"

	"lifectl/internal/config"
	"lifectl/internal/reporting"
	"lifectl/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// Application is the main application structure that bootstraps and runs lifectl
type Application struct {
	config   *Config
	logLevel logging.LogLevel
	reporter reporting.StatefulReporter

	// Set in TUI mode only.
	tuiMsgs chan tea.Msg
	logs    <-chan logging.LogEntry
}

// NewApplication creates and initializes a new application instance
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.LogOutput == nil {
		cfg.LogOutput = os.Stderr
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}

	if cfg.LifectlConfig == nil {
		lifectlCfg, err := loadConfig(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg.LifectlConfig = &lifectlCfg
	}

	level := initLogging(cfg)

	if err := cfg.validate(); err != nil {
		logging.Error("Bootstrap", err, "Invalid application configuration")
		return nil, err
	}

	a := &Application{config: cfg, logLevel: level}
	if cfg.TUI {
		// Buffered channel to avoid blocking the orchestrators.
		a.tuiMsgs = make(chan tea.Msg, 100)
		a.reporter = reporting.NewTUIReporter(a.tuiMsgs)
		a.logs = logging.InitForChannel(level, 0)
	} else {
		a.reporter = reporting.NewConsoleReporter(cfg.Out)
	}
	return a, nil
}

func loadConfig(path string) (config.LifectlConfig, error) {
	if path != "" {
		cfg, err := config.LoadConfigFromPath(path)
		if err != nil {
			return config.LifectlConfig{}, fmt.Errorf("failed to load lifectl configuration from path %s: %w", path, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return config.LifectlConfig{}, fmt.Errorf("failed to load lifectl configuration: %w", err)
	}
	return cfg, nil
}

func initLogging(cfg *Config) logging.LogLevel {
	level, ok := logging.ParseLevel(cfg.LifectlConfig.GlobalSettings.LogLevel)
	if cfg.Debug {
		level = logging.LevelDebug
	}

	logging.InitForCLI(level, cfg.LogOutput)
	if !ok {
		logging.Warn("Bootstrap", "Unknown log level %q, using %s", cfg.LifectlConfig.GlobalSettings.LogLevel, level)
	}
	logging.Debug("Bootstrap", "Running as %s with %s readiness over %s transport",
		cfg.Role, cfg.LifectlConfig.Readiness.Backend, cfg.LifectlConfig.Transport.Mode)
	return level
}

// Run executes the application in the configured role until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if a.config.TUI {
		return a.runWithTUI(ctx)
	}
	return a.runRole(ctx)
}

func (a *Application) runRole(ctx context.Context) error {
	switch a.config.Role {
	case RoleAuthority:
		return runAuthorityMode(ctx, a.config, a.reporter)
	case RoleDependent:
		return runDependentMode(ctx, a.config, a.reporter)
	default:
		return runBothMode(ctx, a.config, a.reporter)
	}
}

// Reporter returns the reporter the application reports module updates to.
func (a *Application) Reporter() reporting.StatefulReporter {
	return a.reporter
}
