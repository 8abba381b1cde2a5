package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fastattackv/apy-launcher/internal/install"
	"github.com/fastattackv/apy-launcher/internal/shortcut"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Prepare an installation folder",
}

var installScaffoldCmd = &cobra.Command{
	Use:   "scaffold [dir]",
	Short: "Create the folders a launcher installation needs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		dir := a.baseDir
		if len(args) == 1 {
			dir = args[0]
		}
		if err := install.Scaffold(dir); err != nil {
			return err
		}
		a.printf("Prepared %s\n", dir)
		return nil
	},
}

var installShortcutCmd = &cobra.Command{
	Use:   "desktop-shortcut",
	Short: "Create a desktop shortcut to the launcher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return runDesktopShortcut(a)
	},
}

func init() {
	installCmd.AddCommand(installScaffoldCmd, installShortcutCmd)
	rootCmd.AddCommand(installCmd)
}

func runDesktopShortcut(a *app) error {
	if err := a.requireInstalled(); err != nil {
		return err
	}
	desktop, err := shortcut.Desktop()
	if err != nil {
		return err
	}

	link := filepath.Join(desktop, "APY! Launcher.lnk")
	if _, err := os.Stat(link); err == nil {
		ok, err := a.prompt.Confirm("A desktop shortcut already exists. Replace it?", link)
		if err != nil || !ok {
			return err
		}
	}

	err = shortcut.Create(shortcut.Link{
		Path:        link,
		Target:      filepath.Join(a.baseDir, install.Executable),
		WorkingDir:  a.baseDir,
		Description: "APY! Launcher",
	})
	if err != nil {
		return fmt.Errorf("failed to create desktop shortcut: %w", err)
	}
	a.printf("Created %s\n", link)
	return nil
}
