package process

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// IsRunningInDir checks if exeName is running from the specified directory
func IsRunningInDir(targetDir, exeName string) bool {
	// Use WMIC to get all running processes of that name with their full paths
	cmd := exec.Command("wmic", "process", "where", fmt.Sprintf("name='%s'", exeName), "get", "ExecutablePath", "/format:list")
	output, err := cmd.Output()
	if err != nil {
		return false
	}

	expected := filepath.Join(targetDir, exeName)
	for _, p := range ExecutablePaths(string(output)) {
		if samePath(p, expected) {
			return true
		}
	}
	return false
}

// ExecutablePaths parses WMIC list output of the form
// "ExecutablePath=C:\path\to\app.exe"
func ExecutablePaths(output string) []string {
	var paths []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if p, ok := strings.CutPrefix(line, "ExecutablePath="); ok && p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func samePath(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}

// WaitForTermination polls until the specified process is no longer running
// Returns true if process terminated, false if timeout occurred
func WaitForTermination(processName string, timeout time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		cmd := exec.Command("tasklist", "/FI", fmt.Sprintf("IMAGENAME eq %s", processName), "/NH")
		output, err := cmd.Output()
		if err != nil {
			// If tasklist fails, assume process is not running
			return true
		}

		if !strings.Contains(strings.ToLower(string(output)), strings.ToLower(processName)) {
			return true
		}

		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// Start launches path detached with args and its folder as working directory
func Start(path string, args ...string) error {
	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", filepath.Base(path), err)
	}
	return cmd.Process.Release()
}

// UpdatedFromArg is the argument telling a freshly updated launcher which
// version it was updated from
func UpdatedFromArg(previous string) string {
	return "updatedfrom=" + previous
}
