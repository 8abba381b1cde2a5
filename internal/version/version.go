package version

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// DefaultFile is the name of the local version record in an installation
const DefaultFile = "version.json"

// Installed records the component versions present in an installation
type Installed struct {
	Launcher  string `json:"launcher"`
	Updater   string `json:"updater,omitempty"`
	Branch    string `json:"branch,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Compare compares two version strings and returns:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
//
// Both sides are compared as semantic versions when they parse; otherwise the
// raw strings are compared lexicographically.
func Compare(a, b string) int {
	ta := strings.TrimPrefix(strings.TrimSpace(a), "v")
	tb := strings.TrimPrefix(strings.TrimSpace(b), "v")

	sa, errA := semver.NewVersion(ta)
	sb, errB := semver.NewVersion(tb)
	if errA == nil && errB == nil {
		return sa.Compare(sb)
	}

	return strings.Compare(ta, tb)
}

// InRange reports whether installed < v <= target
func InRange(v, installed, target string) bool {
	return Compare(installed, v) < 0 && Compare(v, target) <= 0
}

// Filter keeps the versions in (installed, target], preserving their order.
// An installed version equal to or ahead of target yields nothing.
func Filter(versions []string, installed, target string) []string {
	if Compare(installed, target) >= 0 {
		return nil
	}

	var out []string
	for _, v := range versions {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if InRange(v, installed, target) {
			out = append(out, v)
		}
	}
	return out
}

// Newer reports whether remote is strictly newer than local
func Newer(remote, local string) bool {
	return Compare(remote, local) > 0
}

// LoadLocal reads version information from a local version.json file
func LoadLocal(baseDir, versionFile string) (*Installed, error) {
	path := filepath.Join(baseDir, versionFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read local version: %w", err)
	}

	var v Installed
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse local version: %w", err)
	}

	return &v, nil
}

// Save writes version information to a version.json file
func Save(baseDir, versionFile string, v *Installed) error {
	if v.UpdatedAt == "" {
		v.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	path := filepath.Join(baseDir, versionFile)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal version: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write version file: %w", err)
	}

	return nil
}
