package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastattackv/apy-launcher/internal/changelog"
	"github.com/fastattackv/apy-launcher/internal/install"
	"github.com/fastattackv/apy-launcher/internal/process"
	"github.com/fastattackv/apy-launcher/internal/update"
)

// launcherExitTimeout is how long the update waits for a running launcher
const launcherExitTimeout = 30 * time.Second

type updateOptions struct {
	branch string
	target string
	start  bool
}

var updateOpts updateOptions

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the launcher to the latest version of its branch",
	Long: `Update the launcher to the latest version of its branch.

The branch comes from --branch, the configuration, or the launcher settings.
The release package, language files and AUL scripts are downloaded, then the
scripts of every version after the installed one are applied in order.`,
	Example: `  # Update to the latest version
  apyl update

  # Update without prompts and start the launcher afterwards
  apyl update -y --start

  # Follow the development branch up to a given version
  apyl update --branch Development --to 2.3.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return runUpdate(cmd.Context(), a, updateOpts)
	},
}

func init() {
	updateCmd.Flags().StringVarP(&updateOpts.branch, "branch", "b", "", "branch to update from (main or Development)")
	updateCmd.Flags().StringVar(&updateOpts.target, "to", "", "version to update to (default: the published launcher version)")
	updateCmd.Flags().BoolVar(&updateOpts.start, "start", false, "start the launcher when done")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(ctx context.Context, a *app, opts updateOptions) error {
	if err := a.requireInstalled(); err != nil {
		return err
	}
	branch, err := a.branch(opts.branch)
	if err != nil {
		return err
	}

	if process.IsRunningInDir(a.baseDir, install.Executable) {
		a.printf("Waiting for %s to close...\n", install.Executable)
		if !process.WaitForTermination(install.Executable, launcherExitTimeout) {
			return fmt.Errorf("%s is still running, close it and try again", install.Executable)
		}
	}

	u := a.updater()
	req := update.Request{BaseDir: a.baseDir, Branch: branch, Target: opts.target, UpdaterVersion: Version}

	if !a.nonInteractive {
		status, err := u.Check(ctx, req)
		if err == nil && status.Available() && !status.UpdaterOutdated {
			ok, err := a.prompt.Confirm(
				fmt.Sprintf("Update APY! Launcher from %s to %s?", status.Installed, status.Target),
				fmt.Sprintf("Branch: %s", branch))
			if err != nil {
				return err
			}
			if !ok {
				a.printf("Update cancelled.\n")
				return nil
			}
		}
	}

	out, err := u.Run(ctx, req, progressPrinter(a))
	if err != nil {
		return err
	}

	if err := changelog.WriteResult(a.baseDir, out.Result()); err != nil {
		a.logger.Warn("failed to write update result", zap.Error(err))
	}

	switch {
	case out.State == update.UpToDate:
		a.printf("APY! Launcher is up to date (%s).\n", out.From)
	case out.State == update.Done:
		a.printf("\nAPY! Launcher was updated from %s to %s (%d commands).\n", out.From, out.To, out.Applied)
		showChangelog(ctx, a, out)
	default:
		a.printf("\nUpdate failed: %s.\n", out.State)
	}

	if opts.start && !out.State.Failed() {
		var args []string
		if out.State == update.Done {
			args = append(args, process.UpdatedFromArg(out.From))
		}
		if err := process.Start(filepath.Join(a.baseDir, install.Executable), args...); err != nil {
			a.logger.Warn("failed to start the launcher", zap.Error(err))
		}
	}

	a.prompt.WaitForKey("\nPress Enter to exit...")

	if out.State.Failed() {
		if errors.Is(out.Err, update.ErrUpdaterOutdated) {
			return fmt.Errorf("%w, run apyl self-update first", out.Err)
		}
		return fmt.Errorf("update failed (%s): %w", out.State, out.Err)
	}
	return nil
}

// progressPrinter prints state changes and download progress in steps of ten
func progressPrinter(a *app) func(update.Event) {
	last := update.Idle
	lastStep := -1
	return func(e update.Event) {
		if e.State != last {
			last = e.State
			lastStep = -1
			a.printf("%s...\n", e.Message)
		}
		if e.Percent < 0 {
			return
		}
		if step := e.Percent / 10; step > lastStep {
			lastStep = step
			a.printf("  %d%%\n", step*10)
		}
	}
}

// showChangelog offers the detailed changelog of a finished update
func showChangelog(ctx context.Context, a *app, out update.Outcome) {
	if a.nonInteractive {
		return
	}
	ok, err := a.prompt.Confirm("Would you like to view the detailed changelog?", "")
	if err != nil || !ok {
		return
	}
	report := out.Report()
	a.printf("\n%s", changelog.Build(report, changelog.BuildConfig{
		Messages: func() (string, error) {
			return a.client.VersionMessages(ctx, out.From, out.To, out.Branch)
		},
	}))
}
