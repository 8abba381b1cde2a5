package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFile_WritesTarget(t *testing.T) {
	payload := strings.Repeat("zip bytes ", 1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "cache", "APY! Launcher.zip")
	if err := File(context.Background(), server.URL+"/package.zip", target); err != nil {
		t.Fatalf("File() error = %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("failed to read download: %v", err)
	}
	if string(data) != payload {
		t.Errorf("downloaded %d bytes, want %d", len(data), len(payload))
	}
}

func TestFileWithProgress_ReportsCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	var last int
	target := filepath.Join(t.TempDir(), "file.bin")
	err := FileWithProgress(context.Background(), server.URL+"/file.bin", target, func(done, total int64, pct int) {
		last = pct
	})
	if err != nil {
		t.Fatalf("FileWithProgress() error = %v", err)
	}
	if last != 100 {
		t.Errorf("last progress = %d, want 100", last)
	}
}

func TestFile_StatusErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantNotFound bool
	}{
		{name: "not found", status: http.StatusNotFound, wantNotFound: true},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			target := filepath.Join(t.TempDir(), "missing.zip")
			err := File(context.Background(), server.URL+"/missing.zip", target)

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("File() error = %v, want *StatusError", err)
			}
			if statusErr.Code != tt.status {
				t.Errorf("Code = %d, want %d", statusErr.Code, tt.status)
			}
			if statusErr.NotFound() != tt.wantNotFound {
				t.Errorf("NotFound() = %v, want %v", statusErr.NotFound(), tt.wantNotFound)
			}
		})
	}
}

func TestFile_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := File(ctx, server.URL+"/file", filepath.Join(t.TempDir(), "file")); err == nil {
		t.Fatal("File() with cancelled context succeeded")
	}
}
