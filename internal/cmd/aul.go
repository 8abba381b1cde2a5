package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fastattackv/apy-launcher/internal/aul"
	"github.com/fastattackv/apy-launcher/internal/install"
)

var aulStaging string

var aulCmd = &cobra.Command{
	Use:   "aul",
	Short: "Run AUL update commands against the installation",
	Long: `Run AUL update commands against the installation.

replacefile and replacedir copy from the staging folder, which defaults to
the extracted package in the cache.`,
}

var aulExecCmd = &cobra.Command{
	Use:   "exec <command>...",
	Short: "Run one AUL command",
	Example: `  apyl aul exec createfile notes.txt
  apyl aul exec 'update apps.csv rewriteline index end "hello"'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		line := strings.Join(args, " ")
		if len(args) > 1 {
			line = quoteArgs(args)
		}
		return runAUL(cmd.Context(), a, []string{line})
	},
}

var aulRunCmd = &cobra.Command{
	Use:   "run <script|->",
	Short: "Run every command of an AUL script, stopping at the first failure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		var data []byte
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		return runAUL(cmd.Context(), a, aul.ParseScript(string(data)))
	},
}

func init() {
	aulCmd.PersistentFlags().StringVar(&aulStaging, "staging", "", "folder replacefile and replacedir copy from")
	aulCmd.AddCommand(aulExecCmd, aulRunCmd)
	rootCmd.AddCommand(aulCmd)
}

// quoteArgs rebuilds a command line from shell arguments, quoting the ones
// holding spaces
func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		if strings.ContainsAny(arg, " \t") && !strings.HasPrefix(arg, `"`) {
			arg = `"` + arg + `"`
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}

func runAUL(ctx context.Context, a *app, lines []string) error {
	if err := a.requireInstalled(); err != nil {
		return err
	}
	staging := aulStaging
	if staging == "" {
		staging = filepath.Join(a.baseDir, install.StagingDir)
	}

	in := &aul.Interpreter{
		Root:    a.baseDir,
		Staging: staging,
		Logger:  a.logger,
		Observe: a.metrics.CommandApplied,
	}
	n, err := in.Run(ctx, lines)
	a.printf("Applied %d of %d command(s).\n", n, len(lines))
	return err
}
