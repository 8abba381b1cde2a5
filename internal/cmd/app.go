package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fastattackv/apy-launcher/internal/catalog"
	"github.com/fastattackv/apy-launcher/internal/config"
	"github.com/fastattackv/apy-launcher/internal/install"
	"github.com/fastattackv/apy-launcher/internal/logging"
	"github.com/fastattackv/apy-launcher/internal/metrics"
	"github.com/fastattackv/apy-launcher/internal/prompt"
	"github.com/fastattackv/apy-launcher/internal/remote"
	"github.com/fastattackv/apy-launcher/internal/settings"
	"github.com/fastattackv/apy-launcher/internal/shortcut"
	"github.com/fastattackv/apy-launcher/internal/sound"
	"github.com/fastattackv/apy-launcher/internal/update"
)

// app holds what every command needs, built once by the root command
type app struct {
	cfg      *config.Config
	loader   *config.Loader
	logger   *zap.Logger
	closeLog func() error

	baseDir string
	client  *remote.Client
	metrics *metrics.Metrics
	player  *sound.Player
	prompt  prompt.Prompter
	out     io.Writer

	nonInteractive bool
	metricsFile    string
}

// options are the persistent root flags
type options struct {
	dir            string
	configFile     string
	quiet          bool
	verbose        bool
	nonInteractive bool
	metricsFile    string
}

// newApp loads the configuration and builds the shared dependencies
func newApp(opts options, out io.Writer) (*app, error) {
	baseDir, err := resolveBaseDir(opts.dir)
	if err != nil {
		return nil, err
	}

	configFile := opts.configFile
	if configFile == "" {
		configFile = filepath.Join(baseDir, config.DefaultFile)
	}
	loader := config.NewLoader(configFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if opts.dir == "" && cfg.InstallDir != "" {
		baseDir = cfg.InstallDir
	}

	logCfg := logging.Config{
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Quiet:      opts.quiet,
		Verbose:    opts.verbose,
	}
	if install.IsInstalled(baseDir) {
		logCfg.File = cfg.LogFile(baseDir)
	}
	logger, closeLog, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	player := sound.NewPlayer(opts.quiet || !cfg.Sound, logger)
	metricsFile := opts.metricsFile
	if metricsFile == "" {
		metricsFile = cfg.MetricsFile
	}

	return &app{
		cfg:      cfg,
		loader:   loader,
		logger:   logger,
		closeLog: closeLog,
		baseDir:  baseDir,
		client: remote.NewClient(remote.Config{
			BaseURL: cfg.BaseURL,
			Fetcher: remote.NewHTTPFetcher(&http.Client{Timeout: cfg.Timeout}, "apyl/"+Version),
			Logger:  logger,
		}),
		metrics: metrics.New(),
		player:  player,
		prompt: prompt.New(prompt.Config{
			NonInteractive: opts.nonInteractive,
			Sound:          player,
			Out:            out,
		}),
		out:            out,
		nonInteractive: opts.nonInteractive,
		metricsFile:    metricsFile,
	}, nil
}

// resolveBaseDir picks the installation folder: the flag, then the nearest
// installation above the working directory, then the executable's folder.
// The working directory is used when none is found.
func resolveBaseDir(flagDir string) (string, error) {
	if flagDir != "" {
		return filepath.Abs(flagDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	if dir, err := install.Find(wd); err == nil {
		return dir, nil
	}
	if exe, err := os.Executable(); err == nil && install.IsInstalled(filepath.Dir(exe)) {
		return filepath.Dir(exe), nil
	}
	return wd, nil
}

// close flushes the log and writes the metrics textfile
func (a *app) close() error {
	var errs []error
	if a.metricsFile != "" {
		path := a.metricsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.baseDir, path)
		}
		if err := a.metrics.WriteTextfile(path); err != nil {
			errs = append(errs, err)
		}
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
	}
	return errors.Join(errs...)
}

func (a *app) requireInstalled() error {
	if !install.IsInstalled(a.baseDir) {
		return fmt.Errorf("%w at %s (use --dir)", update.ErrNotInstalled, a.baseDir)
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// branch returns the update branch: the flag, the configuration, then the
// launcher settings. A missing settings file means main.
func (a *app) branch(flag string) (string, error) {
	for _, b := range []string{flag, a.cfg.Branch} {
		if b == "" {
			continue
		}
		if !remote.ValidBranch(b) {
			return "", fmt.Errorf("%w: %q", update.ErrInvalidBranch, b)
		}
		return b, nil
	}

	b, err := settings.ReadBranch(a.baseDir)
	if errors.Is(err, os.ErrNotExist) {
		a.logger.Warn("settings file not found, using the main branch")
		return remote.BranchMain, nil
	}
	return b, err
}

// editSettings applies fn to the launcher settings and saves them when fn
// reports a change. Installations without settings are left alone.
func (a *app) editSettings(fn func(s *settings.Settings) bool) error {
	s, err := settings.Load(a.baseDir, a.logger)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !fn(s) {
		return nil
	}
	return settings.Save(a.baseDir, s)
}

// catalog opens the catalog of the installation
func (a *app) catalog() (*catalog.Manager, error) {
	if err := a.requireInstalled(); err != nil {
		return nil, err
	}
	m := catalog.NewManager(catalog.Config{
		BaseDir:         a.baseDir,
		IconsDir:        install.IconsDir,
		ShortcutsDir:    install.ShortcutsDir,
		Logger:          a.logger,
		ResolveShortcut: shortcut.Target,
		OnRemoved: func(names []string) {
			if err := a.editSettings(func(s *settings.Settings) bool { return s.ForgetGames(names) }); err != nil {
				a.logger.Warn("failed to update last game", zap.Error(err))
			}
		},
		OnRenamed: func(oldName, newName string) {
			if err := a.editSettings(func(s *settings.Settings) bool { return s.RenameGame(oldName, newName) }); err != nil {
				a.logger.Warn("failed to update last game", zap.Error(err))
			}
		},
	})
	warnings, err := m.Open()
	for _, w := range warnings {
		a.logger.Warn("catalog warning", zap.Error(w))
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// updater builds an orchestrator reporting to metrics and sound
func (a *app) updater() *update.Updater {
	return update.New(update.Config{
		Client:   a.client,
		Logger:   a.logger,
		Observer: update.Observers{a.metrics, a.player},
	})
}
