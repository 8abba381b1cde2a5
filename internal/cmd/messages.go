package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fastattackv/apy-launcher/internal/manifest"
	"github.com/fastattackv/apy-launcher/internal/settings"
	"github.com/fastattackv/apy-launcher/internal/version"
)

type messagesOptions struct {
	branch string
	all    bool
	ignore []int
	from   string
	to     string
}

var messagesOpts messagesOptions

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Show launcher messages and release notes",
	Long: `Show the messages published for launcher users.

Messages dismissed in the launcher settings are hidden unless --all is given.
With --from, the release notes of every version after it are shown instead.`,
	Example: `  # Show new messages
  apyl messages

  # Dismiss message 3
  apyl messages --ignore 3

  # Release notes since 2.0.0
  apyl messages --from 2.0.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return runMessages(cmd.Context(), a, messagesOpts)
	},
}

func init() {
	f := messagesCmd.Flags()
	f.StringVarP(&messagesOpts.branch, "branch", "b", "", "branch to read messages from")
	f.BoolVar(&messagesOpts.all, "all", false, "include dismissed messages")
	f.IntSliceVar(&messagesOpts.ignore, "ignore", nil, "dismiss messages by id")
	f.StringVar(&messagesOpts.from, "from", "", "show release notes of versions after this one")
	f.StringVar(&messagesOpts.to, "to", "", "last version for --from (default: the published launcher version)")
	rootCmd.AddCommand(messagesCmd)
}

func runMessages(ctx context.Context, a *app, opts messagesOptions) error {
	branch, err := a.branch(opts.branch)
	if err != nil {
		return err
	}

	if len(opts.ignore) > 0 {
		if err := a.requireInstalled(); err != nil {
			return err
		}
		s, err := settings.Load(a.baseDir, a.logger)
		if err != nil {
			return err
		}
		for _, id := range opts.ignore {
			s.Ignore(id)
		}
		if err := settings.Save(a.baseDir, s); err != nil {
			return err
		}
		a.printf("Dismissed %d message(s).\n", len(opts.ignore))
		return nil
	}

	if opts.from != "" {
		return printReleaseNotes(ctx, a, branch, opts.from, opts.to)
	}

	messages, err := a.client.Messages(ctx, branch)
	if err != nil {
		return err
	}

	var ignored func(int) bool
	if !opts.all {
		if s, err := settings.Load(a.baseDir, a.logger); err == nil {
			ignored = s.Ignored
		}
	}

	ids := make([]int, 0, len(messages))
	for id := range messages {
		if ignored == nil || !ignored(id) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	if len(ids) == 0 {
		a.printf("No new messages.\n")
		return nil
	}
	for _, id := range ids {
		a.printf("[%d]\n%s\n\n", id, strings.TrimSpace(messages[id]))
	}
	return nil
}

func printReleaseNotes(ctx context.Context, a *app, branch, from, to string) error {
	if to == "" {
		published, err := a.client.CurrentRemoteVersion(ctx, manifest.Launcher, branch)
		if err != nil {
			return err
		}
		if published == manifest.Unknown {
			return fmt.Errorf("no launcher version published on %s", branch)
		}
		to = published
	}
	if !version.Newer(to, from) {
		a.printf("No release notes after %s.\n", from)
		return nil
	}

	notes, err := a.client.VersionMessages(ctx, from, to, branch)
	if err != nil {
		return err
	}
	if strings.TrimSpace(notes) == "" {
		a.printf("No release notes between %s and %s.\n", from, to)
		return nil
	}
	a.printf("%s", notes)
	return nil
}
