package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastattackv/apy-launcher/internal/selfupdate"
	"github.com/fastattackv/apy-launcher/internal/update"
)

var checkBranch string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show whether launcher or updater updates are available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return runCheck(cmd.Context(), a, checkBranch)
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkBranch, "branch", "b", "", "branch to check (main or Development)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(ctx context.Context, a *app, branchFlag string) error {
	if err := a.requireInstalled(); err != nil {
		return err
	}
	branch, err := a.branch(branchFlag)
	if err != nil {
		return err
	}

	status, err := a.updater().Check(ctx, update.Request{BaseDir: a.baseDir, Branch: branch, UpdaterVersion: Version})
	if err != nil {
		return err
	}

	a.printf("Branch:    %s\n", branch)
	a.printf("Installed: %s\n", status.Installed)
	a.printf("Published: %s\n", status.Target)
	if status.Available() {
		a.printf("A launcher update is available.\n")
	} else {
		a.printf("The launcher is up to date.\n")
	}

	published, newer, err := selfupdate.Check(ctx, selfupdate.Config{
		Client:         a.client,
		Branch:         branch,
		CurrentVersion: Version,
		Logger:         a.logger,
	})
	switch {
	case errors.Is(err, selfupdate.ErrUnknownVersion):
		a.printf("Updater:   %s (no published version)\n", Version)
	case err != nil:
		return err
	case newer:
		a.printf("Updater:   %s, %s is available (apyl self-update)\n", Version, published)
	default:
		a.printf("Updater:   %s\n", Version)
	}

	if status.UpdaterOutdated {
		return fmt.Errorf("%w: %s required", update.ErrUpdaterOutdated, status.MinUpdater)
	}
	return nil
}
