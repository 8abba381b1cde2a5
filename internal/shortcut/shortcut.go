// Package shortcut reads and writes Windows shell links through the
// WScript.Shell automation object. Outside Windows every call fails.
package shortcut

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// ErrNoTarget is returned for links that do not point anywhere
var ErrNoTarget = errors.New("shortcut has no target")

// Link describes a shell link to create
type Link struct {
	Path        string
	Target      string
	WorkingDir  string
	Description string
}

// withShell runs fn against an initialized WScript.Shell dispatch
func withShell(fn func(shell *ole.IDispatch) error) error {
	if err := ole.CoInitialize(0); err != nil {
		return fmt.Errorf("failed to initialize COM: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return fmt.Errorf("failed to create WScript.Shell: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("failed to query shell interface: %w", err)
	}
	defer shell.Release()

	return fn(shell)
}

// Target reads the target path of the .lnk file at linkPath
func Target(linkPath string) (string, error) {
	if _, err := os.Stat(linkPath); err != nil {
		return "", err
	}

	var target string
	err := withShell(func(shell *ole.IDispatch) error {
		link, err := oleutil.CallMethod(shell, "CreateShortcut", linkPath)
		if err != nil {
			return fmt.Errorf("failed to open shortcut: %w", err)
		}
		linkDisp := link.ToIDispatch()
		defer linkDisp.Release()

		prop, err := oleutil.GetProperty(linkDisp, "TargetPath")
		if err != nil {
			return fmt.Errorf("failed to read shortcut target: %w", err)
		}
		target = prop.ToString()
		return nil
	})
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", fmt.Errorf("%w: %s", ErrNoTarget, filepath.Base(linkPath))
	}
	return target, nil
}

// Create writes the shell link l
func Create(l Link) error {
	return withShell(func(shell *ole.IDispatch) error {
		link, err := oleutil.CallMethod(shell, "CreateShortcut", l.Path)
		if err != nil {
			return fmt.Errorf("failed to create shortcut: %w", err)
		}
		// Don't call link.Clear() - it causes crashes
		linkDisp := link.ToIDispatch()
		defer linkDisp.Release()

		props := []struct {
			name  string
			value any
		}{
			{"TargetPath", l.Target},
			{"WorkingDirectory", l.WorkingDir},
			{"Description", l.Description},
			{"WindowStyle", 1},
		}
		for _, p := range props {
			if _, err := oleutil.PutProperty(linkDisp, p.name, p.value); err != nil {
				return fmt.Errorf("failed to set shortcut %s: %w", p.name, err)
			}
		}
		if _, err := oleutil.CallMethod(linkDisp, "Save"); err != nil {
			return fmt.Errorf("failed to save shortcut: %w", err)
		}
		return nil
	})
}

// Desktop returns the user's desktop folder, preferring a OneDrive desktop
// only when the plain one is missing
func Desktop() (string, error) {
	profile := os.Getenv("USERPROFILE")
	if profile == "" {
		return "", errors.New("failed to get user profile directory")
	}
	for _, dir := range []string{
		filepath.Join(profile, "Desktop"),
		filepath.Join(profile, "OneDrive", "Desktop"),
	} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", errors.New("desktop directory not found")
}
