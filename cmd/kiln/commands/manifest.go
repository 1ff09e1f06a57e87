package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest [target]",
		Short: "Print the ordered object manifest of one or all targets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			var target string
			if len(args) == 1 {
				target = args[0]
			}
			return c.app.Manifest(cmd.Context(), target, configPath, cmd.OutOrStdout())
		},
	}
}
