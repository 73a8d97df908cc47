package cmd

import (
	"lifectl/internal/app"

	"github.com/spf13/cobra"
)

// authorityCmd runs the authority side on its own.
var authorityCmd = &cobra.Command{
	Use:   "authority",
	Short: "Run the authority side and serve its services over SSE",
	Long: `Initializes every configured service, publishes their remote members
over MCP/SSE and sets the authority readiness flag.

The readiness backend must be shared with the dependent process, so it
has to be 'file' (one host) or 'configmap' (a Kubernetes namespace), and
the transport mode must be 'sse'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRole(cmd, app.RoleAuthority)
	},
}

func init() {
	rootCmd.AddCommand(authorityCmd)
}
