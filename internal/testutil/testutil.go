// Package testutil holds fixtures shared by package tests: zip builders,
// installation trees and a fake release server.
package testutil

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
)

// WriteFile creates a test file with content
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

// ReadFile returns a file's content or fails the test
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// BuildZip creates an in-memory zip. Keys ending in "/" become directories.
func BuildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s to zip: %v", name, err)
		}
		if _, err := f.Write([]byte(files[name])); err != nil {
			t.Fatalf("failed to write %s to zip: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// NewInstallation creates a launcher installation with its standard folders
// plus the given files, and returns its root
func NewInstallation(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "APY! Launcher")
	for _, dir := range []string{"cache", "icons", "lng files", "url shortcuts"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	WriteFile(t, filepath.Join(root, "APY! Launcher.exe"), "binary")
	for rel, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
	return root
}

// ReleaseServer serves a fake release layout keyed by decoded URL path, such
// as "/main/Downloads/Versions.txt". Unknown paths answer 404.
type ReleaseServer struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string][]byte
	failing  map[string]int
	requests []string
}

// NewReleaseServer starts a release server closed at test cleanup
func NewReleaseServer(t *testing.T) *ReleaseServer {
	t.Helper()
	rs := &ReleaseServer{files: make(map[string][]byte), failing: make(map[string]int)}
	rs.Server = httptest.NewServer(http.HandlerFunc(rs.serve))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *ReleaseServer) serve(w http.ResponseWriter, r *http.Request) {
	rs.mu.Lock()
	rs.requests = append(rs.requests, r.URL.Path)
	status, failing := rs.failing[r.URL.Path]
	body, ok := rs.files[r.URL.Path]
	rs.mu.Unlock()

	if failing {
		w.WriteHeader(status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write(body)
}

// Set publishes content at path
func (rs *ReleaseServer) Set(path string, content []byte) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.files[path] = content
}

// SetString publishes text content at path
func (rs *ReleaseServer) SetString(path, content string) {
	rs.Set(path, []byte(content))
}

// Fail makes path answer with status
func (rs *ReleaseServer) Fail(path string, status int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.failing[path] = status
}

// Requests returns the paths requested so far
func (rs *ReleaseServer) Requests() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.requests...)
}
