package changelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ResultFile records the outcome of the last update next to the launcher
const ResultFile = ".update-result"

// Patch lists the commands applied for one version
type Patch struct {
	Version  string
	Commands []string
}

// Report describes a finished update
type Report struct {
	Branch    string
	From      string
	To        string
	Patches   []Patch
	Languages []string
}

// Commands counts every command in the report
func (r Report) Commands() int {
	n := 0
	for _, p := range r.Patches {
		n += len(p.Commands)
	}
	return n
}

// BuildConfig holds configuration for building a changelog
type BuildConfig struct {
	// Messages returns the release notes of the applied versions
	Messages func() (string, error)
	// Now stamps the report; time.Now when nil
	Now func() time.Time
}

// Build creates a formatted changelog string
func Build(r Report, cfg BuildConfig) string {
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	var changelog strings.Builder
	changelog.WriteString("APY! Launcher Update Changelog\n\n")
	changelog.WriteString(fmt.Sprintf("Branch: %s\n", r.Branch))
	changelog.WriteString(fmt.Sprintf("Updated from %s to %s\n", r.From, r.To))
	changelog.WriteString(fmt.Sprintf("Update completed: %s\n", now().Format("2006-01-02 15:04:05")))
	changelog.WriteString(fmt.Sprintf("Total changes: %d commands over %d versions\n", r.Commands(), len(r.Patches)))

	if cfg.Messages != nil {
		if notes, err := cfg.Messages(); err == nil && strings.TrimSpace(notes) != "" {
			changelog.WriteString("\n")
			changelog.WriteString(strings.Repeat("=", 60))
			changelog.WriteString("\nRELEASE NOTES\n")
			changelog.WriteString(strings.Repeat("=", 60))
			changelog.WriteString("\n\n")
			changelog.WriteString(strings.TrimRight(notes, "\n"))
			changelog.WriteString("\n")
		}
	}

	changelog.WriteString("\n")
	changelog.WriteString(strings.Repeat("-", 60))
	changelog.WriteString("\nDetailed changes:\n")
	changelog.WriteString(strings.Repeat("-", 60))
	changelog.WriteString("\n\n")

	for _, p := range r.Patches {
		changelog.WriteString(fmt.Sprintf("%s (%d commands):\n", p.Version, len(p.Commands)))
		for _, c := range p.Commands {
			changelog.WriteString(fmt.Sprintf("  > %s\n", c))
		}
		changelog.WriteString("\n")
	}

	if len(r.Languages) > 0 {
		changelog.WriteString(fmt.Sprintf("Language files (%d):\n", len(r.Languages)))
		for _, l := range r.Languages {
			changelog.WriteString(fmt.Sprintf("  + %s\n", l))
		}
		changelog.WriteString("\n")
	}

	return changelog.String()
}

// Result is the machine-readable outcome of an update
type Result struct {
	Result   string `json:"result"`            // "success", "up to date" or the failure state
	Message  string `json:"message,omitempty"` // Error message if failure
	From     string `json:"from,omitempty"`
	Version  string `json:"version,omitempty"`
	Commands int    `json:"commands"`
}

// WriteResult stores r in the installation at baseDir
func WriteResult(baseDir string, r Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal update result: %w", err)
	}
	return os.WriteFile(filepath.Join(baseDir, ResultFile), append(data, '\n'), 0644)
}

// ReadResult loads the last update result
func ReadResult(baseDir string) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, ResultFile))
	if err != nil {
		return nil, err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse update result: %w", err)
	}
	return &r, nil
}
