package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fastattackv/apy-launcher/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "View and modify configuration",
	Long: `View and modify the updater configuration (apyl.yaml).

With no arguments, displays all configuration.
With one argument, displays the value for the specified key.
With two arguments, sets the value for the specified key.

Every key can also be set through the environment, e.g. APYL_LOG_LEVEL.`,
	Example: `  # Show all config
  apyl config

  # Show value for a specific key
  apyl config log.level

  # Set a value
  apyl config branch Development`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromContext(cmd.Context())
		if err != nil {
			return err
		}
		switch len(args) {
		case 0:
			return runConfigShow(a)
		case 1:
			return runConfigGet(a, args[0])
		}
		return runConfigSet(a, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(a *app) error {
	out, err := a.cfg.YAML()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	a.printf("# %s\n%s", a.loader.Path(), out)
	return nil
}

func runConfigGet(a *app, key string) error {
	value, err := a.loader.Get(key)
	if err != nil {
		return fmt.Errorf("%w (valid: %s)", err, strings.Join(config.Keys(), ", "))
	}
	if _, nested := value.(map[string]any); nested {
		out, err := yaml.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}
		a.printf("%s", out)
		return nil
	}
	a.printf("%v\n", value)
	return nil
}

func runConfigSet(a *app, key, value string) error {
	if err := a.loader.Set(key, value); err != nil {
		return err
	}
	a.printf("Set %s = %s in %s\n", key, value, a.loader.Path())
	return nil
}
