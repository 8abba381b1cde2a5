package install

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Files and folders of a launcher installation
const (
	Executable   = "APY! Launcher.exe"
	FolderName   = "APY! Launcher"
	CacheDir     = "cache"
	IconsDir     = "icons"
	LanguagesDir = "lng files"
	ShortcutsDir = "url shortcuts"
	LanguageExt  = ".lng"
)

// StagingDir is where the extracted package lands inside the cache
var StagingDir = filepath.Join(CacheDir, FolderName)

// PackagePath is where the downloaded package is written inside the cache
var PackagePath = filepath.Join(CacheDir, FolderName+".zip")

// IsInstalled checks if baseDir holds a launcher installation: the launcher
// executable next to a cache folder
func IsInstalled(baseDir string) bool {
	if info, err := os.Stat(filepath.Join(baseDir, Executable)); err != nil || info.IsDir() {
		return false
	}
	info, err := os.Stat(filepath.Join(baseDir, CacheDir))
	return err == nil && info.IsDir()
}

// IsLauncherFolder reports whether baseDir is an installation placed in a
// folder named like the launcher
func IsLauncherFolder(baseDir string) bool {
	return filepath.Base(filepath.Clean(baseDir)) == FolderName && IsInstalled(baseDir)
}

// Find walks up from start until an installation is found
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if IsInstalled(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no launcher installation found from %s", start)
		}
		dir = parent
	}
}

// Scaffold creates the folders every installation needs
func Scaffold(baseDir string) error {
	for _, dir := range []string{CacheDir, IconsDir, LanguagesDir, ShortcutsDir} {
		if err := os.MkdirAll(filepath.Join(baseDir, dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// LanguageFiles lists the language file names installed in baseDir
func LanguageFiles(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(baseDir, LanguagesDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list language files: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), LanguageExt) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// CacheEmpty reports whether the cache folder holds nothing
func CacheEmpty(baseDir string) bool {
	entries, err := os.ReadDir(filepath.Join(baseDir, CacheDir))
	return err == nil && len(entries) == 0
}
