package changelog

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBuild(t *testing.T) {
	fixed := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	report := Report{
		Branch: "main",
		From:   "2.0.0",
		To:     "2.1.0",
		Patches: []Patch{
			{Version: "2.0.1", Commands: []string{"createdir icons", "replacefile \"APY! Launcher.exe\""}},
			{Version: "2.1.0", Commands: []string{"deletefile old.txt"}},
		},
		Languages: []string{"english.lng"},
	}

	t.Run("full report", func(t *testing.T) {
		got := Build(report, BuildConfig{
			Now:      fixed,
			Messages: func() (string, error) { return "New icons\n\n", nil },
		})

		for _, want := range []string{
			"APY! Launcher Update Changelog",
			"Branch: main",
			"Updated from 2.0.0 to 2.1.0",
			"Update completed: 2024-05-01 12:00:00",
			"Total changes: 3 commands over 2 versions",
			"RELEASE NOTES",
			"New icons",
			"2.0.1 (2 commands):",
			`  > replacefile "APY! Launcher.exe"`,
			"Language files (1):",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("Build() missing %q", want)
			}
		}
		if strings.Index(got, "2.0.1 (") > strings.Index(got, "2.1.0 (") {
			t.Error("Build() should list versions oldest first")
		}
	})

	t.Run("messages unavailable", func(t *testing.T) {
		got := Build(report, BuildConfig{
			Now:      fixed,
			Messages: func() (string, error) { return "", errors.New("offline") },
		})
		if strings.Contains(got, "RELEASE NOTES") {
			t.Error("Build() should skip release notes when they cannot be fetched")
		}
	})

	t.Run("no patches", func(t *testing.T) {
		got := Build(Report{Branch: "Development", From: "2.0.0", To: "2.0.0"}, BuildConfig{Now: fixed})
		if !strings.Contains(got, "Total changes: 0 commands over 0 versions") {
			t.Error("Build() incorrect count for empty report")
		}
		if strings.Contains(got, "Language files") {
			t.Error("Build() should not list languages when none were replaced")
		}
	})
}

func TestWriteAndReadResult(t *testing.T) {
	dir := t.TempDir()
	want := Result{Result: "success", From: "2.0.0", Version: "2.1.0", Commands: 3}
	if err := WriteResult(dir, want); err != nil {
		t.Fatalf("WriteResult() error = %v", err)
	}

	got, err := ReadResult(dir)
	if err != nil {
		t.Fatalf("ReadResult() error = %v", err)
	}
	if *got != want {
		t.Errorf("ReadResult() = %+v, want %+v", *got, want)
	}
}
