package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fastattackv/apy-launcher/internal/selfupdate"
)

type selfUpdateOptions struct {
	branch string
	target string
}

var selfUpdateOpts selfUpdateOptions

var selfUpdateCmd = &cobra.Command{
	Use:   "self-update",
	Short: "Replace the updater with the published version",
	Long: `Replace the updater executable with the version published on the branch.

The previous executable is kept next to the new one with an .old suffix and
removed the next time the updater starts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return runSelfUpdate(cmd.Context(), a, selfUpdateOpts)
	},
}

func init() {
	selfUpdateCmd.Flags().StringVarP(&selfUpdateOpts.branch, "branch", "b", "", "branch to update from (main or Development)")
	selfUpdateCmd.Flags().StringVar(&selfUpdateOpts.target, "target", "", "executable to replace (default: the running one)")
	rootCmd.AddCommand(selfUpdateCmd)
}

func runSelfUpdate(ctx context.Context, a *app, opts selfUpdateOptions) error {
	if err := a.requireInstalled(); err != nil {
		return err
	}
	branch, err := a.branch(opts.branch)
	if err != nil {
		return err
	}

	a.printf("Checking for updater updates...\n")
	result, err := selfupdate.Run(ctx, selfupdate.Config{
		Client:         a.client,
		BaseDir:        a.baseDir,
		Branch:         branch,
		CurrentVersion: Version,
		TargetPath:     opts.target,
		Logger:         a.logger,
	})
	if err != nil {
		return err
	}
	a.printf("Updater %s.\n", result)
	return nil
}
