package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lifectl/internal/app"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lifectl",
	Short: "Bring up modules on both sides of a network boundary in order",
	Long: `lifectl initializes named modules on an authority and a dependent side.

The authority initializes its services, publishes their remote surfaces and
sets its readiness flag. The dependent waits for that flag, discovers the
published services and only then initializes its own controllers.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid configuration, authority never ready)
	SilenceUsage: true,
}

// Flags shared by every command that runs a side.
var (
	debug      bool
	configPath string
	tuiMode    bool
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "lifectl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

// runRole loads the configuration and runs role until SIGINT or SIGTERM.
func runRole(cmd *cobra.Command, role app.Role) error {
	cfg := app.NewConfig(role, debug, configPath)
	cfg.Out = cmd.OutOrStdout()
	cfg.TUI = tuiMode

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: layered ~/.config/lifectl and .lifectl)")
	rootCmd.PersistentFlags().BoolVar(&tuiMode, "tui", false, "Show an interactive status view instead of status lines")
}
