// Package detect finds launchable games in a folder and derives app names
// from their paths.
package detect

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned when the folder to scan does not exist
var ErrInvalidPath = errors.New("invalid path")

// Source tells how a detected game is launched
type Source string

const (
	Steam    Source = "steam"
	Epic     Source = "epic"
	Uplay    Source = "uplay"
	Shortcut Source = "shortcut"
	Exe      Source = "exe"
)

// storeURLs maps internet shortcut prefixes to their store
var storeURLs = []struct {
	prefix string
	source Source
}{
	{"URL=steam://rungameid/", Steam},
	{"URL=com.epicgames.launcher://apps/", Epic},
	{"URL=uplay://launch/", Uplay},
}

// Game is a launchable file found in a folder
type Game struct {
	// Path is relative to the scanned folder
	Path   string
	Source Source
}

// Name returns the app name of a path: its base name without the last
// extension. Both slash styles are separators.
func Name(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `\/`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[:i]
	}
	return ""
}

// Resolver returns the target of a .lnk file
type Resolver func(linkPath string) (string, error)

// Options controls a folder scan
type Options struct {
	Recursive bool
	// Resolve reads .lnk targets; links are skipped when nil
	Resolve Resolver
}

// InFolder lists the games in root: store .url shortcuts, .lnk files pointing
// to an .exe, and .exe files
func InFolder(root string, opts Options) ([]Game, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, root)
	}
	return scan(root, "", opts)
}

func scan(root, rel string, opts Options) ([]Game, error) {
	entries, err := os.ReadDir(filepath.Join(root, rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Join(root, rel), err)
	}

	var games []Game
	for _, entry := range entries {
		itemRel := filepath.Join(rel, entry.Name())
		full := filepath.Join(root, itemRel)

		if entry.IsDir() {
			if !opts.Recursive {
				continue
			}
			sub, err := scan(root, itemRel, opts)
			if err != nil {
				return nil, err
			}
			games = append(games, sub...)
			continue
		}

		var source Source
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".url":
			source = storeOf(full)
		case ".lnk":
			if opts.Resolve != nil {
				if target, err := opts.Resolve(full); err == nil && strings.EqualFold(filepath.Ext(target), ".exe") {
					source = Shortcut
				}
			}
		case ".exe":
			source = Exe
		}
		if source != "" {
			games = append(games, Game{Path: itemRel, Source: source})
		}
	}
	return games, nil
}

// storeOf returns the store an internet shortcut launches through, or ""
func storeOf(path string) Source {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		for _, s := range storeURLs {
			if strings.HasPrefix(line, s.prefix) {
				return s.source
			}
		}
	}
	return ""
}
