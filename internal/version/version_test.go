package version

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "equal", a: "2.1.0", b: "2.1.0", want: 0},
		{name: "patch lower", a: "2.0.1", b: "2.1.0", want: -1},
		{name: "minor higher", a: "2.2.0", b: "2.1.0", want: 1},
		{name: "numeric not lexical", a: "2.10.0", b: "2.9.0", want: 1},
		{name: "v prefix ignored", a: "v2.0.0", b: "2.0.0", want: 0},
		{name: "non-semver falls back to string order", a: "beta-a", b: "beta-b", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	published := []string{"2.0.1", "2.1.0", "2.2.0"}

	tests := []struct {
		name      string
		installed string
		target    string
		want      []string
	}{
		{name: "oldest first up to target", installed: "2.0.0", target: "2.1.0", want: []string{"2.0.1", "2.1.0"}},
		{name: "installed equals target", installed: "2.1.0", target: "2.1.0", want: nil},
		{name: "installed ahead of target", installed: "2.1.0", target: "2.0.0", want: nil},
		{name: "whole range", installed: "1.0.0", target: "2.2.0", want: []string{"2.0.1", "2.1.0", "2.2.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(published, tt.installed, tt.target)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_SkipsBlankLines(t *testing.T) {
	got := Filter([]string{"", "2.0.1", "  ", "2.1.0", ""}, "2.0.0", "2.1.0")
	want := []string{"2.0.1", "2.1.0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter() = %v, want %v", got, want)
	}
}

func TestNewer(t *testing.T) {
	if !Newer("2.1.0", "2.0.0") {
		t.Error("Newer(2.1.0, 2.0.0) = false")
	}
	if Newer("2.0.0", "2.0.0") {
		t.Error("Newer(2.0.0, 2.0.0) = true")
	}
}

func TestSaveAndLoadLocal(t *testing.T) {
	dir := t.TempDir()
	in := &Installed{Launcher: "2.1.0", Updater: "2.0.0", Branch: "main"}

	if err := Save(dir, DefaultFile, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if in.UpdatedAt == "" {
		t.Error("Save() did not stamp UpdatedAt")
	}

	out, err := LoadLocal(dir, DefaultFile)
	if err != nil {
		t.Fatalf("LoadLocal() error = %v", err)
	}
	if *out != *in {
		t.Errorf("LoadLocal() = %+v, want %+v", out, in)
	}
}

func TestLoadLocal_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadLocal(dir, DefaultFile); err == nil {
		t.Error("LoadLocal() expected error for missing file")
	}

	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := LoadLocal(dir, DefaultFile); err == nil {
		t.Error("LoadLocal() expected error for invalid JSON")
	}
}
