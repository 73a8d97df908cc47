package cmd

import (
	"lifectl/internal/app"

	"github.com/spf13/cobra"
)

// runCmd runs both sides in one process.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the authority and the dependent in one process",
	Long: `Runs both sides in one process. The dependent still reaches the
services through the MCP bridge: in-process by default, or over SSE when
transport.mode is 'sse'.

Useful for trying a configuration before splitting it across processes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRole(cmd, app.RoleBoth)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
