// Package archive unpacks downloaded release packages into a staging area.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fastattackv/apy-launcher/internal/paths"
)

// ProgressFunc is called during extraction with current file index and total files.
type ProgressFunc func(current, total int, filename string)

// Stage unpacks the package at src into targetDir and returns the folder
// holding its files: the package's single top-level folder when it has one,
// targetDir otherwise.
func Stage(src, targetDir string, progress ProgressFunc) (string, error) {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return "", fmt.Errorf("failed to open zip: %w", err)
	}
	defer reader.Close()

	if err := ExtractReader(&reader.Reader, targetDir, progress); err != nil {
		return "", err
	}
	if root := RootDir(&reader.Reader); root != "" {
		return filepath.Join(targetDir, paths.Denormalize(root)), nil
	}
	return targetDir, nil
}

// ExtractReader unpacks every entry of reader into targetDir. Entries that
// would land outside targetDir abort the extraction.
func ExtractReader(reader *zip.Reader, targetDir string, progress ProgressFunc) error {
	total := len(reader.File)

	for i, f := range reader.File {
		relPath := strings.TrimPrefix(paths.Normalize(f.Name), "./")
		if relPath == "." || relPath == "" {
			continue
		}

		if progress != nil {
			progress(i+1, total, relPath)
		}

		absTarget, err := paths.Within(targetDir, filepath.Join(targetDir, paths.Denormalize(relPath)))
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(absTarget, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", relPath, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(absTarget), 0755); err != nil {
			return fmt.Errorf("failed to create parent dir for %s: %w", relPath, err)
		}

		if err := extractFile(f, absTarget); err != nil {
			return fmt.Errorf("failed to extract %s: %w", relPath, err)
		}
	}

	return nil
}

// RootDir returns the single top-level directory shared by every entry, or ""
func RootDir(reader *zip.Reader) string {
	if len(reader.File) == 0 {
		return ""
	}

	first := paths.Normalize(reader.File[0].Name)
	idx := strings.Index(first, "/")
	if idx == -1 {
		if reader.File[0].FileInfo().IsDir() {
			return first
		}
		return ""
	}
	prefix := first[:idx]

	for _, f := range reader.File {
		name := paths.Normalize(f.Name)
		if name != prefix && !strings.HasPrefix(name, prefix+"/") {
			return ""
		}
	}
	return prefix
}

func extractFile(f *zip.File, targetPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
