package selfupdate

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inconshreveable/go-update"
	"go.uber.org/zap"

	"github.com/fastattackv/apy-launcher/internal/install"
	"github.com/fastattackv/apy-launcher/internal/manifest"
	"github.com/fastattackv/apy-launcher/internal/remote"
	"github.com/fastattackv/apy-launcher/internal/version"
)

// Executable is the updater binary shipped in the updater package
const Executable = "APY! Launcher Updater.exe"

// CleanupEnv asks a restarted updater to remove the previous binary
const CleanupEnv = "UPDATER_CLEANUP_OLD"

var (
	// ErrNoUpdater is returned when the binary to replace does not exist
	ErrNoUpdater = errors.New("updater executable not found")

	// ErrUnknownVersion is returned when the manifest does not list the updater
	ErrUnknownVersion = errors.New("updater version not published")

	// ErrNotInPackage is returned when the package lacks the updater binary
	ErrNotInPackage = errors.New("updater executable missing from package")
)

// Result of a self-update
type Result int

const (
	UpToDate Result = iota
	Updated
)

func (r Result) String() string {
	if r == Updated {
		return "updated"
	}
	return "up to date"
}

// Config holds the configuration for self-update
type Config struct {
	Client         *remote.Client
	BaseDir        string
	Branch         string
	CurrentVersion string
	// TargetPath is the binary to replace; the running executable when empty
	TargetPath string
	Logger     *zap.Logger
}

func (cfg *Config) defaults() error {
	if cfg.Client == nil {
		cfg.Client = remote.NewClient(remote.Config{Logger: cfg.Logger})
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TargetPath == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
		cfg.TargetPath = exe
	}
	return nil
}

// Check returns the published updater version and whether it is newer
func Check(ctx context.Context, cfg Config) (string, bool, error) {
	if cfg.Client == nil {
		cfg.Client = remote.NewClient(remote.Config{Logger: cfg.Logger})
	}
	published, err := cfg.Client.CurrentRemoteVersion(ctx, manifest.Updater, cfg.Branch)
	if err != nil {
		return "", false, err
	}
	if published == manifest.Unknown {
		return "", false, ErrUnknownVersion
	}
	return published, version.Newer(published, cfg.CurrentVersion), nil
}

// Run replaces the updater binary with the published one when it is newer.
// The package is downloaded into the installation's cache and removed after.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.defaults(); err != nil {
		return UpToDate, err
	}
	if info, err := os.Stat(cfg.TargetPath); err != nil || info.IsDir() {
		return UpToDate, fmt.Errorf("%w: %s", ErrNoUpdater, cfg.TargetPath)
	}

	published, newer, err := Check(ctx, cfg)
	if err != nil {
		return UpToDate, err
	}
	if !newer {
		cfg.Logger.Info("updater is up to date", zap.String("version", cfg.CurrentVersion))
		return UpToDate, nil
	}

	zipPath := filepath.Join(cfg.BaseDir, install.CacheDir, strings.TrimSuffix(Executable, ".exe")+".zip")
	defer os.Remove(zipPath)
	if err := cfg.Client.DownloadUpdaterPackage(ctx, cfg.Branch, zipPath, nil); err != nil {
		return UpToDate, err
	}

	if err := apply(zipPath, cfg.TargetPath); err != nil {
		return UpToDate, err
	}
	cfg.Logger.Info("updater replaced", zap.String("from", cfg.CurrentVersion), zap.String("to", published))

	if err := recordVersion(cfg.BaseDir, published); err != nil {
		cfg.Logger.Warn("failed to record updater version", zap.Error(err))
	}
	return Updated, nil
}

// apply swaps target with the updater binary found in the package
func apply(zipPath, target string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open updater package: %w", err)
	}
	defer reader.Close()

	var entry *zip.File
	for _, f := range reader.File {
		if !f.FileInfo().IsDir() && strings.EqualFold(filepath.Base(filepath.FromSlash(f.Name)), Executable) {
			entry = f
			break
		}
	}
	if entry == nil {
		return ErrNotInPackage
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", entry.Name, err)
	}
	defer rc.Close()

	err = update.Apply(rc, update.Options{TargetPath: target, OldSavePath: target + ".old"})
	if err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			return fmt.Errorf("failed to roll back updater (%v): %w", rerr, err)
		}
		return fmt.Errorf("failed to replace updater: %w", err)
	}
	return nil
}

func recordVersion(baseDir, published string) error {
	local, err := version.LoadLocal(baseDir, version.DefaultFile)
	if err != nil {
		local = &version.Installed{}
	}
	local.Updater = published
	local.UpdatedAt = ""
	return version.Save(baseDir, version.DefaultFile, local)
}

// CleanupOld removes the .old backup next to target if CleanupEnv is set
func CleanupOld(target string) {
	if os.Getenv(CleanupEnv) != "1" {
		return
	}
	if target == "" {
		exe, err := os.Executable()
		if err != nil {
			return
		}
		target = exe
	}
	_ = os.Remove(target + ".old")
}
