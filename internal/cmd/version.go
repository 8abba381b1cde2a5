package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fastattackv/apy-launcher/internal/changelog"
	"github.com/fastattackv/apy-launcher/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display the updater version and, inside an installation, the installed launcher version and the last update result.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		runVersion(a)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(a *app) {
	a.printf("apyl %s\n", Version)

	local, err := version.LoadLocal(a.baseDir, version.DefaultFile)
	if err != nil {
		return
	}
	a.printf("  launcher: %s\n", local.Launcher)
	if local.Branch != "" {
		a.printf("  branch:   %s\n", local.Branch)
	}
	if local.UpdatedAt != "" {
		a.printf("  updated:  %s\n", local.UpdatedAt)
	}
	if r, err := changelog.ReadResult(a.baseDir); err == nil {
		a.printf("  last update: %s", r.Result)
		if r.Message != "" {
			a.printf(" (%s)", r.Message)
		}
		a.printf("\n")
	}
}
