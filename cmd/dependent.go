package cmd

import (
	"lifectl/internal/app"

	"github.com/spf13/cobra"
)

// dependentCmd runs the dependent side on its own.
var dependentCmd = &cobra.Command{
	Use:   "dependent",
	Short: "Wait for the authority, then start the controllers",
	Long: `Waits until the authority readiness flag is set, discovers the
services the authority published and initializes every configured
controller. Controllers call their configured remote members when they
start.

The wait is bounded by transport.discoveryTimeout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRole(cmd, app.RoleDependent)
	},
}

func init() {
	rootCmd.AddCommand(dependentCmd)
}
