package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Configure, compile, link, verify, install and smoke test the targets",
		Long: "Runs the whole pipeline. Without arguments the targets listed in kiln.yaml are built.\n" +
			"Compile, verification, installation and smoke test problems are reported as warnings;\n" +
			"configuration, prerequisite and link errors fail the run.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			jobs, _ := cmd.Flags().GetInt("jobs")
			noInstall, _ := cmd.Flags().GetBool("no-install")
			noSmoke, _ := cmd.Flags().GetBool("no-smoke")

			return c.app.Run(cmd.Context(), args, app.RunOptions{
				ConfigPath: configPath,
				Jobs:       jobs,
				NoInstall:  noInstall,
				NoSmoke:    noSmoke,
			})
		},
	}
	cmd.Flags().IntP("jobs", "j", 0, "Maximum parallel compile jobs (default: number of CPUs)")
	cmd.Flags().Bool("no-install", false, "Skip installation and smoke tests")
	cmd.Flags().Bool("no-smoke", false, "Skip smoke tests")
	return cmd
}
