package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNormalize tests path normalization (backslash to forward slash)
func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Windows backslash to forward slash",
			input: "lng files\\english.lng",
			want:  "lng files/english.lng",
		},
		{
			name:  "already normalized",
			input: "launcher data/star.png",
			want:  "launcher data/star.png",
		},
		{
			name:  "mixed separators",
			input: "a\\b/c\\d.txt",
			want:  "a/b/c/d.txt",
		},
		{
			name:  "relative path",
			input: "..\\sub\\file.txt",
			want:  "../sub/file.txt",
		},
		{
			name:  "empty string becomes dot",
			input: "",
			want:  ".",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDenormalize(t *testing.T) {
	sep := string(filepath.Separator)
	got := Denormalize("cache/APY! Launcher/file.txt")
	want := "cache" + sep + "APY! Launcher" + sep + "file.txt"
	if got != want {
		t.Errorf("Denormalize() = %q, want %q", got, want)
	}
}

// TestWithin_PreventTraversal tests path traversal protection
func TestWithin_PreventTraversal(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{name: "file in base", target: filepath.Join(base, "file.txt")},
		{name: "nested file", target: filepath.Join(base, "a", "b", "file.txt")},
		{name: "base itself", target: base},
		{name: "escape via ..", target: filepath.Join(base, "..", "outside.txt"), wantErr: true},
		{name: "sibling with shared prefix", target: base + "-evil", wantErr: true},
		{name: "temp root", target: filepath.Join(os.TempDir(), "outside.txt"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Within(base, tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Within() expected error, got nil")
				}
				if !strings.Contains(err.Error(), "traversal") {
					t.Errorf("Within() error = %v, want traversal error", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Within() unexpected error: %v", err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	base := t.TempDir()

	got, err := Resolve(base, "lng files/english.lng")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := filepath.Join(base, "lng files", "english.lng")
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}

	for _, bad := range []string{"", "../x", "a/../../x", "/etc/passwd"} {
		if _, err := Resolve(base, bad); err == nil {
			t.Errorf("Resolve(%q) expected error", bad)
		}
	}
}

func TestMatchCase(t *testing.T) {
	dir := t.TempDir()
	actual := filepath.Join(dir, "Apps.CSV")
	if err := os.WriteFile(actual, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	got := MatchCase(filepath.Join(dir, "apps.csv"))
	if !strings.EqualFold(got, actual) {
		t.Errorf("MatchCase() = %q, want %q", got, actual)
	}
	if _, err := os.Stat(got); err != nil {
		t.Errorf("MatchCase() = %q, which does not exist: %v", got, err)
	}
	if got := MatchCase(actual); got != actual {
		t.Errorf("MatchCase() = %q, want unchanged %q", got, actual)
	}

	missing := filepath.Join(dir, "nothing.txt")
	if got := MatchCase(missing); got != missing {
		t.Errorf("MatchCase() = %q, want unchanged %q", got, missing)
	}
}

func TestIsInDir(t *testing.T) {
	dir := t.TempDir()
	icons := filepath.Join(dir, "icons")

	if !IsInDir(filepath.Join(icons, "game.png"), icons) {
		t.Error("IsInDir() = false for direct child")
	}
	if IsInDir(filepath.Join(icons, "sub", "game.png"), icons) {
		t.Error("IsInDir() = true for nested child")
	}
	if IsInDir(filepath.Join(dir, "game.png"), icons) {
		t.Error("IsInDir() = true for file outside dir")
	}
}
