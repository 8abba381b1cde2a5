package paths

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Normalize converts a path to use forward slashes (for scripts and catalog storage)
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean(strings.ReplaceAll(p, string(filepath.Separator), "/"))
}

// Denormalize converts a path from forward slashes to platform-specific separators
func Denormalize(p string) string {
	return strings.ReplaceAll(p, "/", string(filepath.Separator))
}

// CleanLower returns a cleaned, lowercase path for case-insensitive comparison
func CleanLower(p string) string {
	return strings.ToLower(filepath.Clean(p))
}

// MatchCase returns p with its last element spelled as it is on disk when
// the two differ only by case. p is returned as is when it exists or when
// no entry of its folder matches.
func MatchCase(p string) string {
	if _, err := os.Lstat(p); err == nil {
		return p
	}
	dir, base := filepath.Split(p)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return p
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), base) {
			return filepath.Join(dir, e.Name())
		}
	}
	return p
}

// Within ensures targetPath doesn't escape basePath (path traversal protection)
// and returns the absolute target.
func Within(basePath, targetPath string) (string, error) {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve target path: %w", err)
	}

	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt detected: %s", targetPath)
	}

	return absTarget, nil
}

// Resolve joins a forward-slash relative path onto base and checks that the
// result stays inside base.
func Resolve(base, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(Denormalize(rel)) || strings.HasPrefix(Normalize(rel), "/") {
		return "", fmt.Errorf("absolute path not allowed: %s", rel)
	}
	return Within(base, filepath.Join(base, Denormalize(Normalize(rel))))
}

// IsInDir reports whether p lives directly inside dir.
func IsInDir(p, dir string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absParent, err := filepath.Abs(filepath.Dir(p))
	if err != nil {
		return false
	}
	return CleanLower(absDir) == CleanLower(absParent)
}

// CopyFile copies src to dst, creating dst's parent directories and keeping
// the source permissions.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyDir recursively copies the contents of src into dst
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return CopyFile(p, target)
	})
}

// ClearDir removes every child of dir, leaving dir itself in place
func ClearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
