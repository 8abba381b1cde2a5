package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastattackv/apy-launcher/internal/prompt"
	"github.com/fastattackv/apy-launcher/internal/settings"
)

var branchCmd = &cobra.Command{
	Use:   "branch [main|Development]",
	Short: "Show or change the branch the launcher follows",
	Long: `Show or change the update branch saved in the launcher settings.

Without an argument an interactive menu is shown, or the current branch is
printed in non-interactive mode.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{settings.BranchMain, settings.BranchDevelopment},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return runBranch(a, name)
	},
}

func init() {
	rootCmd.AddCommand(branchCmd)
}

func runBranch(a *app, name string) error {
	if err := a.requireInstalled(); err != nil {
		return err
	}
	s, err := settings.LoadOrCreate(a.baseDir, a.logger)
	if err != nil {
		return err
	}

	if name == "" {
		if a.nonInteractive {
			a.printf("%s\n", s.Branch)
			return nil
		}
		if name, err = prompt.BranchMenu(a.prompt, s.Branch); err != nil {
			return err
		}
	}
	if !settings.ValidBranch(name) {
		return fmt.Errorf("%w: %q", settings.ErrInvalidBranch, name)
	}
	if name == s.Branch {
		a.printf("Already following %s.\n", name)
		return nil
	}

	s.Branch = name
	if err := settings.Save(a.baseDir, s); err != nil {
		return err
	}
	a.printf("Now following %s.\n", name)
	return nil
}
