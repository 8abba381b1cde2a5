package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fastattackv/apy-launcher/internal/aul"
	"github.com/fastattackv/apy-launcher/internal/download"
	"github.com/fastattackv/apy-launcher/internal/manifest"
	"github.com/fastattackv/apy-launcher/internal/version"
)

// DefaultBaseURL serves raw files of the launcher repository per branch
const DefaultBaseURL = "https://github.com/fastattackv/APY-launcher/raw"

// Release branches
const (
	BranchMain        = "main"
	BranchDevelopment = "Development"
)

// Files published under {base}/{branch}/Downloads
const (
	ManifestFile       = "Versions.txt"
	VersionsListFile   = "Versions list.txt"
	ScriptsDir         = "AUL commands"
	PackageFile        = "APY! Launcher.zip"
	UpdaterPackageFile = "APY! Launcher Updater.zip"
	LanguagesDir       = "Languages"
	MessagesDir        = "Messages"
	MessagesFile       = "Message.txt"
)

const messageSeparator = "&&"

// ValidBranch reports whether branch is a published release branch
func ValidBranch(branch string) bool {
	return branch == BranchMain || branch == BranchDevelopment
}

// PatchPackage is everything needed to move an installation to Version:
// its AUL command lines and the package the commands copy files from.
type PatchPackage struct {
	Version    string
	Commands   []string
	PackageURL string
}

// Config holds configuration for the release client
type Config struct {
	BaseURL string
	Fetcher Fetcher
	Logger  *zap.Logger
}

// Client reads one launcher release layout
type Client struct {
	baseURL string
	fetcher Fetcher
	logger  *zap.Logger
}

// NewClient creates a release client. Zero fields get the public repository,
// an HTTP fetcher and a no-op logger.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = NewHTTPFetcher(nil, "")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		fetcher: cfg.Fetcher,
		logger:  cfg.Logger,
	}
}

// URL builds {base}/{branch}/Downloads/{parts...} with each segment escaped
func (c *Client) URL(branch string, parts ...string) string {
	segments := []string{c.baseURL, url.PathEscape(branch), "Downloads"}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(p))
	}
	return strings.Join(segments, "/")
}

func (c *Client) fetch(ctx context.Context, branch string, parts ...string) ([]byte, error) {
	u := c.URL(branch, parts...)
	c.logger.Debug("fetching", zap.String("url", u))
	data, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Manifest fetches Versions.txt
func (c *Client) Manifest(ctx context.Context, branch string) (manifest.Manifest, error) {
	data, err := c.fetch(ctx, branch, ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch versions manifest: %w", err)
	}
	return manifest.Parse(data), nil
}

// CurrentRemoteVersion returns the published version of component, or
// manifest.Unknown when the manifest does not list it
func (c *Client) CurrentRemoteVersion(ctx context.Context, component, branch string) (string, error) {
	m, err := c.Manifest(ctx, branch)
	if err != nil {
		return "", err
	}
	return m.Lookup(component), nil
}

// CurrentRemoteVersions resolves several components from one manifest fetch
func (c *Client) CurrentRemoteVersions(ctx context.Context, components []string, branch string) (map[string]string, error) {
	m, err := c.Manifest(ctx, branch)
	if err != nil {
		return nil, err
	}
	return m.Versions(components), nil
}

// ListPublishedVersions returns the published versions in published order
func (c *Client) ListPublishedVersions(ctx context.Context, branch string) ([]string, error) {
	data, err := c.fetch(ctx, branch, VersionsListFile)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch versions list: %w", err)
	}

	var versions []string
	for _, line := range strings.Split(string(data), "\n") {
		if v := strings.TrimSpace(line); v != "" {
			versions = append(versions, v)
		}
	}
	return versions, nil
}

// VersionsInRange returns the published versions v with installed < v <= target,
// oldest first. Nothing is fetched when installed is not behind target.
func (c *Client) VersionsInRange(ctx context.Context, installed, target, branch string) ([]string, error) {
	if version.Compare(installed, target) >= 0 {
		return nil, nil
	}
	published, err := c.ListPublishedVersions(ctx, branch)
	if err != nil {
		return nil, err
	}
	return version.Filter(published, installed, target), nil
}

// FetchScript returns the AUL command lines published for v
func (c *Client) FetchScript(ctx context.Context, v, branch string) ([]string, error) {
	data, err := c.fetch(ctx, branch, ScriptsDir, v+".AUL")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch commands for %s: %w", v, err)
	}
	return aul.ParseScript(string(data)), nil
}

// FetchPatch returns the patch definition for one version
func (c *Client) FetchPatch(ctx context.Context, v, branch string) (*PatchPackage, error) {
	commands, err := c.FetchScript(ctx, v, branch)
	if err != nil {
		return nil, err
	}
	return &PatchPackage{
		Version:    v,
		Commands:   commands,
		PackageURL: c.URL(branch, PackageFile),
	}, nil
}

// FetchPatches resolves the range and fetches every patch, oldest first
func (c *Client) FetchPatches(ctx context.Context, installed, target, branch string) ([]PatchPackage, error) {
	versions, err := c.VersionsInRange(ctx, installed, target, branch)
	if err != nil {
		return nil, err
	}

	patches := make([]PatchPackage, 0, len(versions))
	for _, v := range versions {
		p, err := c.FetchPatch(ctx, v, branch)
		if err != nil {
			return nil, err
		}
		patches = append(patches, *p)
	}
	return patches, nil
}

// FetchLanguageFile returns one language file of the branch
func (c *Client) FetchLanguageFile(ctx context.Context, name, branch string) ([]byte, error) {
	data, err := c.fetch(ctx, branch, LanguagesDir, name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch language file %s: %w", name, err)
	}
	return data, nil
}

// Messages returns the launcher messages keyed by id. The file holds
// messages separated by "&&", each starting with its numeric id on a line.
func (c *Client) Messages(ctx context.Context, branch string) (map[int]string, error) {
	data, err := c.fetch(ctx, branch, MessagesDir, MessagesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	messages := make(map[int]string)
	for _, chunk := range strings.Split(string(data), messageSeparator) {
		chunk = strings.TrimLeft(strings.ReplaceAll(chunk, "\r\n", "\n"), "\n")
		if chunk == "" {
			continue
		}
		head, body, _ := strings.Cut(chunk, "\n")
		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			c.logger.Warn("skipping message with invalid id", zap.String("id", head))
			continue
		}
		messages[id] = strings.TrimSuffix(body, "\n")
	}
	return messages, nil
}

// VersionMessages concatenates the messages of every version in
// (from, to], newest first. Versions without a message are skipped.
func (c *Client) VersionMessages(ctx context.Context, from, to, branch string) (string, error) {
	versions, err := c.VersionsInRange(ctx, from, to, branch)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, v := range slices.Backward(versions) {
		data, err := c.fetch(ctx, branch, MessagesDir, v+".txt")
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to fetch message for %s: %w", v, err)
		}
		b.Write(data)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// DownloadPackage downloads the launcher package of branch to dest
func (c *Client) DownloadPackage(ctx context.Context, branch, dest string, progress download.ProgressCallback) error {
	return c.downloadFile(ctx, c.URL(branch, PackageFile), dest, progress)
}

// DownloadUpdaterPackage downloads the updater package of branch to dest
func (c *Client) DownloadUpdaterPackage(ctx context.Context, branch, dest string, progress download.ProgressCallback) error {
	return c.downloadFile(ctx, c.URL(branch, UpdaterPackageFile), dest, progress)
}

func (c *Client) downloadFile(ctx context.Context, u, dest string, progress download.ProgressCallback) error {
	c.logger.Debug("downloading", zap.String("url", u), zap.String("dest", dest))
	err := download.FileWithProgress(ctx, u, dest, progress)
	if err == nil {
		return nil
	}

	var statusErr *download.StatusError
	if errors.As(err, &statusErr) && statusErr.NotFound() {
		return &NotFoundError{URL: u, Status: statusErr.Code}
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}
