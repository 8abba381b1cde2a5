package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastattackv/apy-launcher/internal/catalog"
	"github.com/fastattackv/apy-launcher/internal/detect"
	"github.com/fastattackv/apy-launcher/internal/shortcut"
)

var catalogCmd = &cobra.Command{
	Use:     "catalog",
	Aliases: []string{"apps"},
	Short:   "List and edit the launcher's games, configs and folders",
}

// catalogRunE adapts a catalog operation to cobra, recording its outcome
func catalogRunE(op string, fn func(a *app, m *catalog.Manager, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		m, err := a.catalog()
		if err != nil {
			return err
		}
		err = fn(a, m, args)
		if op != "" {
			a.metrics.CatalogOp(op, err)
		}
		return err
	}
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries in order",
	Args:  cobra.NoArgs,
	RunE:  catalogRunE("", runCatalogList),
}

var catalogTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the folder hierarchy",
	Args:  cobra.NoArgs,
	RunE:  catalogRunE("", runCatalogTree),
}

type catalogAddOptions struct {
	kind   string
	icon   string
	folder string
}

var catalogAddOpts catalogAddOptions

var catalogAddCmd = &cobra.Command{
	Use:   "add <name> <target>",
	Short: "Add a game or bonus",
	Long: `Add a game or bonus at the end of the catalog.

The target can be an executable, a .lnk shortcut (stored as the program it
points to) or a .url internet shortcut (copied into the url shortcuts folder).`,
	Args: cobra.ExactArgs(2),
	RunE: catalogRunE("add", func(a *app, m *catalog.Manager, args []string) error {
		return runCatalogAdd(a, m, args[0], args[1], catalogAddOpts)
	}),
}

var catalogAddConfigIcon string

var catalogAddConfigCmd = &cobra.Command{
	Use:   "add-config <name> <member>...",
	Short: "Add a config launching several apps",
	Args:  cobra.MinimumNArgs(2),
	RunE: catalogRunE("add-config", func(a *app, m *catalog.Manager, args []string) error {
		e, err := m.AddConfig(args[0], args[1:], catalogAddConfigIcon)
		if err != nil {
			return err
		}
		a.printf("Added config %s (%s).\n", e.Name, strings.Join(e.Members, ", "))
		return nil
	}),
}

var catalogAddFolderParent string

var catalogAddFolderCmd = &cobra.Command{
	Use:   "add-folder <name>",
	Short: "Add a folder",
	Args:  cobra.ExactArgs(1),
	RunE: catalogRunE("add-folder", func(a *app, m *catalog.Manager, args []string) error {
		e, err := m.AddFolder(args[0], parentOrRoot(catalogAddFolderParent))
		if err != nil {
			return err
		}
		a.printf("Added folder %s.\n", e.Name)
		return nil
	}),
}

var catalogRmDeleteChildren bool

var catalogRmCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"delete"},
	Short:   "Delete an entry",
	Long: `Delete an entry. Configs using a deleted app lose it as a member and are
deleted with it when no member is left.

Deleting a folder moves its content to the root, or deletes it with
--delete-children.`,
	Args: cobra.ExactArgs(1),
	RunE: catalogRunE("delete", func(a *app, m *catalog.Manager, args []string) error {
		return runCatalogRemove(a, m, args[0], catalogRmDeleteChildren)
	}),
}

var catalogRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename an entry",
	Args:  cobra.ExactArgs(2),
	RunE: catalogRunE("rename", func(a *app, m *catalog.Manager, args []string) error {
		if err := m.Rename(args[0], args[1]); err != nil {
			return err
		}
		a.printf("Renamed %s to %s.\n", args[0], args[1])
		return nil
	}),
}

var catalogMvCmd = &cobra.Command{
	Use:   "mv <name> <folder>",
	Short: "Move an entry into a folder (. for the root)",
	Args:  cobra.ExactArgs(2),
	RunE: catalogRunE("move", func(a *app, m *catalog.Manager, args []string) error {
		if err := m.MoveTo(args[0], parentOrRoot(args[1])); err != nil {
			return err
		}
		a.printf("Moved %s to %s.\n", args[0], args[1])
		return nil
	}),
}

var catalogReorderCmd = &cobra.Command{
	Use:   "reorder <name> <index>",
	Short: "Move an entry to a position in the catalog order",
	Args:  cobra.ExactArgs(2),
	RunE: catalogRunE("reorder", func(a *app, m *catalog.Manager, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", args[1], err)
		}
		return runCatalogReorder(a, m, args[0], index)
	}),
}

func stateCmd(use, short string, state catalog.State) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: catalogRunE(use, func(a *app, m *catalog.Manager, args []string) error {
			if err := m.SetState(args[0], state); err != nil {
				return err
			}
			a.printf("%s is now %s.\n", args[0], state)
			return nil
		}),
	}
}

type catalogDetectOptions struct {
	recursive bool
	add       bool
	kind      string
}

var catalogDetectOpts catalogDetectOptions

var catalogDetectCmd = &cobra.Command{
	Use:   "detect <folder>",
	Short: "Find games in a folder",
	Long: `Find launchable games in a folder: Steam, Epic and Ubisoft internet
shortcuts, shortcuts to executables, and executables.

With --add every detected game whose name is free is added to the catalog.`,
	Args: cobra.ExactArgs(1),
	RunE: catalogRunE("detect", func(a *app, m *catalog.Manager, args []string) error {
		return runCatalogDetect(a, m, args[0], catalogDetectOpts)
	}),
}

var catalogWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Validate the catalog each time it changes on disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		m, err := a.catalog()
		if err != nil {
			return err
		}
		return runCatalogWatch(cmd.Context(), a, m)
	},
}

func init() {
	catalogAddCmd.Flags().StringVarP(&catalogAddOpts.kind, "kind", "k", string(catalog.KindGame), "game or bonus")
	catalogAddCmd.Flags().StringVar(&catalogAddOpts.icon, "icon", "", "icon path")
	catalogAddCmd.Flags().StringVarP(&catalogAddOpts.folder, "folder", "f", "", "folder to add the app to")
	catalogAddConfigCmd.Flags().StringVar(&catalogAddConfigIcon, "icon", "", "icon path")
	catalogAddFolderCmd.Flags().StringVarP(&catalogAddFolderParent, "parent", "p", "", "parent folder")
	catalogRmCmd.Flags().BoolVar(&catalogRmDeleteChildren, "delete-children", false, "delete a folder's content instead of moving it to the root")
	catalogDetectCmd.Flags().BoolVarP(&catalogDetectOpts.recursive, "recursive", "r", false, "search subfolders")
	catalogDetectCmd.Flags().BoolVar(&catalogDetectOpts.add, "add", false, "add detected games to the catalog")
	catalogDetectCmd.Flags().StringVarP(&catalogDetectOpts.kind, "kind", "k", string(catalog.KindGame), "kind of added entries, game or bonus")

	catalogCmd.AddCommand(
		catalogListCmd,
		catalogTreeCmd,
		catalogAddCmd,
		catalogAddConfigCmd,
		catalogAddFolderCmd,
		catalogRmCmd,
		catalogRenameCmd,
		catalogMvCmd,
		catalogReorderCmd,
		stateCmd("favorite", "Mark an entry as favorite", catalog.StateFavorite),
		stateCmd("hide", "Hide an entry", catalog.StateHidden),
		stateCmd("unhide", "Clear the favorite or hidden mark", catalog.StateNotFavorite),
		catalogDetectCmd,
		catalogWatchCmd,
	)
	rootCmd.AddCommand(catalogCmd)
}

func parentOrRoot(name string) string {
	if name == "" {
		return catalog.Root
	}
	return name
}

func runCatalogList(a *app, m *catalog.Manager, _ []string) error {
	store := m.Store()
	if store.Len() == 0 {
		a.printf("The catalog is empty.\n")
		return nil
	}
	for i, e := range store.Entries() {
		detail := e.Target
		if e.Kind == catalog.KindConfig {
			detail = strings.Join(e.Members, ", ")
		}
		a.printf("%3d  %-7s %-12s %-20s in %s", i, e.Kind, e.State, e.Name, e.Parent)
		if detail != "" {
			a.printf("  %s", detail)
		}
		a.printf("\n")
	}
	return nil
}

func runCatalogTree(a *app, m *catalog.Manager, _ []string) error {
	tree, err := m.Tree()
	var unresolved *catalog.UnresolvedError
	if err != nil && !errors.As(err, &unresolved) {
		return err
	}

	var walk func(n *catalog.Node, depth int)
	walk = func(n *catalog.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		for _, f := range n.Folders {
			a.printf("%s%s/\n", indent, f.Name)
			walk(f, depth+1)
		}
		for _, name := range n.Entries {
			a.printf("%s%s\n", indent, name)
		}
	}
	walk(tree.Root, 0)

	if unresolved != nil {
		a.printf("\nUnreachable: %s\n", strings.Join(unresolved.Names, ", "))
	}
	return nil
}

func runCatalogAdd(a *app, m *catalog.Manager, name, target string, opts catalogAddOptions) error {
	kind, ok := catalog.ParseKind(opts.kind)
	if !ok || !kind.IsApp() {
		return fmt.Errorf("%w: kind must be game or bonus, got %q", catalog.ErrInvalidEntry, opts.kind)
	}
	e, err := m.AddApp(name, kind, target, opts.icon, opts.folder)
	if err != nil {
		return err
	}
	a.printf("Added %s %s.\n", e.Kind, e.Name)
	return nil
}

func runCatalogRemove(a *app, m *catalog.Manager, name string, deleteChildren bool) error {
	e, ok := m.Store().Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrKeyNotFound, name)
	}

	if users := m.Store().UsedBy(name); len(users) > 0 && !a.nonInteractive {
		ok, err := a.prompt.Confirm(
			fmt.Sprintf("%s is part of %s. Delete it anyway?", name, strings.Join(users, ", ")),
			"Configs left without members are deleted too.")
		if err != nil {
			return err
		}
		if !ok {
			a.printf("Nothing deleted.\n")
			return nil
		}
	}

	var deleted catalog.Deleted
	var err error
	if e.Kind == catalog.KindFolder {
		deleted, err = m.DeleteFolder(name, !deleteChildren)
	} else {
		deleted, err = m.Delete(name)
	}
	if err != nil {
		return err
	}
	a.printf("Deleted %s.\n", strings.Join(deleted.Names(), ", "))
	return nil
}

func runCatalogReorder(a *app, m *catalog.Manager, name string, index int) error {
	from := m.Store().IndexOf(name)
	if err := m.Reorder(name, index); err != nil {
		return err
	}
	a.printf("Moved %s from %d to %d (undo: apyl catalog reorder %q %d).\n",
		name, from, m.Store().IndexOf(name), name, from)
	return nil
}

func runCatalogDetect(a *app, m *catalog.Manager, folder string, opts catalogDetectOptions) error {
	games, err := detect.InFolder(folder, detect.Options{Recursive: opts.recursive, Resolve: shortcut.Target})
	if err != nil {
		return err
	}
	if len(games) == 0 {
		a.printf("No games found in %s.\n", folder)
		return nil
	}

	kind, ok := catalog.ParseKind(opts.kind)
	if opts.add && (!ok || !kind.IsApp()) {
		return fmt.Errorf("%w: kind must be game or bonus, got %q", catalog.ErrInvalidEntry, opts.kind)
	}

	added := 0
	for _, g := range games {
		name := detect.Name(g.Path)
		a.printf("%-8s %-24s %s\n", g.Source, name, g.Path)
		if !opts.add {
			continue
		}
		_, err := m.AddApp(name, kind, filepath.Join(folder, g.Path), "", "")
		switch {
		case errors.Is(err, catalog.ErrKeyConflict), errors.Is(err, catalog.ErrInvalidName):
			a.logger.Info("skipping detected game", zap.String("name", name), zap.Error(err))
		case err != nil:
			return err
		default:
			added++
		}
	}
	if opts.add {
		a.printf("Added %d of %d games.\n", added, len(games))
	}
	return nil
}

func runCatalogWatch(ctx context.Context, a *app, m *catalog.Manager) error {
	a.printf("Watching %s (Ctrl+C to stop)\n", m.Path())
	return catalog.Watch(ctx, m.Path(), a.logger, func() {
		warnings, err := m.Reload()
		a.metrics.CatalogOp("reload", err)
		switch {
		case err != nil:
			a.printf("Catalog is invalid: %v\n", err)
		case len(warnings) > 0:
			a.printf("Catalog reloaded with %d warning(s):\n", len(warnings))
			for _, w := range warnings {
				a.printf("  %v\n", w)
			}
		default:
			a.printf("Catalog reloaded: %d entries.\n", m.Store().Len())
		}
	})
}
