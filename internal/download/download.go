package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/grab/v3"
)

var client = grab.NewClient()

// ProgressCallback is called during download with progress info
type ProgressCallback func(bytesComplete, totalBytes int64, percentage int)

// StatusError reports a download answered with a non-2xx status
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: HTTP %d", e.URL, e.Code)
}

// NotFound reports whether the server answered 404
func (e *StatusError) NotFound() bool {
	return e.Code == http.StatusNotFound
}

// File downloads a file from URL to the target path
func File(ctx context.Context, url, targetPath string) error {
	return FileWithProgress(ctx, url, targetPath, nil)
}

// FileWithProgress downloads a file with progress callback
func FileWithProgress(ctx context.Context, url, targetPath string, callback ProgressCallback) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("failed to create download dir: %w", err)
	}

	req, err := grab.NewRequest(targetPath, url)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true // Always overwrite, never resume

	resp := client.Do(req)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	lastPercentage := -1
	for done := false; !done; {
		select {
		case <-ticker.C:
			if callback != nil {
				var percentage int
				if resp.Size() > 0 {
					percentage = int(resp.Progress() * 100)
				}
				if percentage != lastPercentage {
					callback(resp.BytesComplete(), resp.Size(), percentage)
					lastPercentage = percentage
				}
			}
		case <-resp.Done:
			if callback != nil && resp.Size() > 0 {
				callback(resp.BytesComplete(), resp.Size(), 100)
			}
			done = true
		}
	}

	if err := resp.Err(); err != nil {
		var code grab.StatusCodeError
		if errors.As(err, &code) {
			_ = os.Remove(targetPath)
			return &StatusError{URL: url, Code: int(code)}
		}
		return fmt.Errorf("download failed: %w", err)
	}

	return nil
}
