// Package cmd implements the apyl command line: launcher updates, updater
// self-update, launcher messages and catalog editing.
package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/fastattackv/apy-launcher/internal/remote"
	"github.com/fastattackv/apy-launcher/internal/selfupdate"
)

// Version is the updater version, set at build time with
// -ldflags "-X github.com/fastattackv/apy-launcher/internal/cmd.Version=..."
var Version = "2.0.0"

var rootOpts options

// active is the app of the running command, closed by Execute
var active *app

var rootCmd = &cobra.Command{
	Use:   "apyl",
	Short: "Update and manage an APY! Launcher installation",
	Long: `apyl keeps an APY! Launcher installation up to date.

It downloads the release package of the installation's branch, applies the
AUL scripts of every version between the installed and the published one,
and can edit the launcher's catalog of games from the command line.

Run without a command, apyl updates the installation and starts the
launcher, the way the launcher itself invokes it. A branch may be given as
the only argument.`,
	Args:         cobra.MaximumNArgs(1),
	ValidArgs:    []string{remote.BranchMain, remote.BranchDevelopment},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if exe, err := os.Executable(); err == nil {
			selfupdate.CleanupOld(exe)
		}

		a, err := newApp(rootOpts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		active = a
		cmd.SetContext(withApp(cmd.Context(), a))
		return nil
	},
}

func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		opts := updateOptions{start: true}
		if len(args) == 1 {
			opts.branch = args[0]
		}
		return runUpdate(cmd.Context(), a, opts)
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&rootOpts.dir, "dir", "d", "", "launcher installation folder (default: search from the working directory)")
	f.StringVar(&rootOpts.configFile, "config", "", "configuration file (default: apyl.yaml in the installation folder)")
	f.BoolVarP(&rootOpts.quiet, "quiet", "q", false, "suppress console logging and sounds")
	f.BoolVarP(&rootOpts.verbose, "verbose", "v", false, "log every step")
	f.BoolVarP(&rootOpts.nonInteractive, "non-interactive", "y", false, "never prompt, answer yes")
	f.StringVar(&rootOpts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
}

// Execute runs the command line until it finishes or is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if active != nil {
		if cerr := active.close(); cerr != nil && err == nil {
			err = cerr
		}
		active = nil
	}
	return err
}
