// Package update moves a launcher installation to a newer version: it
// downloads the release package, language files and AUL scripts, stages the
// package in the cache, applies every script in version order, then cleans up.
package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastattackv/apy-launcher/internal/archive"
	"github.com/fastattackv/apy-launcher/internal/aul"
	"github.com/fastattackv/apy-launcher/internal/install"
	"github.com/fastattackv/apy-launcher/internal/manifest"
	"github.com/fastattackv/apy-launcher/internal/paths"
	"github.com/fastattackv/apy-launcher/internal/remote"
	"github.com/fastattackv/apy-launcher/internal/version"
)

// LockFile guards an installation against concurrent updaters
const LockFile = ".apyl-update.lock"

const eventBuffer = 64

var (
	// ErrInProgress is returned when an update is already running
	ErrInProgress = errors.New("an update is already in progress")

	// ErrNotInstalled is returned when the base directory holds no launcher
	ErrNotInstalled = errors.New("no launcher installation")

	// ErrUpdaterOutdated is returned when the release requires a newer updater
	ErrUpdaterOutdated = errors.New("updater is older than the minimum required version")

	// ErrUnknownVersion is returned when the manifest does not publish a version
	ErrUnknownVersion = errors.New("version not published")

	// ErrInvalidBranch is returned for branches other than main and Development
	ErrInvalidBranch = errors.New("invalid branch")
)

// Request describes one update
type Request struct {
	BaseDir string
	Branch  string
	// Installed is the launcher version present; version.json when empty
	Installed string
	// Target is the version to reach; the manifest's launcher version when empty
	Target string
	// UpdaterVersion is checked against the manifest's minimum when set
	UpdaterVersion string
}

// Status compares an installation with its branch
type Status struct {
	Installed       string
	Target          string
	MinUpdater      string
	UpdaterOutdated bool
}

// Available reports whether Target is ahead of Installed
func (s *Status) Available() bool {
	return version.Newer(s.Target, s.Installed)
}

// Observer is told about state changes, commands and finished updates
type Observer interface {
	StateChanged(State)
	CommandApplied(op aul.Op, err error)
	Finished(o Outcome, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State)              {}
func (nopObserver) CommandApplied(aul.Op, error)    {}
func (nopObserver) Finished(Outcome, time.Duration) {}

// Observers fans every notification out in order
type Observers []Observer

func (obs Observers) StateChanged(s State) {
	for _, o := range obs {
		o.StateChanged(s)
	}
}

func (obs Observers) CommandApplied(op aul.Op, err error) {
	for _, o := range obs {
		o.CommandApplied(op, err)
	}
}

func (obs Observers) Finished(out Outcome, elapsed time.Duration) {
	for _, o := range obs {
		o.Finished(out, elapsed)
	}
}

// Config holds configuration for the updater
type Config struct {
	Client   *remote.Client
	Logger   *zap.Logger
	Observer Observer
}

// Updater runs at most one update at a time
type Updater struct {
	client   *remote.Client
	logger   *zap.Logger
	observer Observer
	busy     atomic.Bool
}

// New creates an updater
func New(cfg Config) *Updater {
	if cfg.Client == nil {
		cfg.Client = remote.NewClient(remote.Config{Logger: cfg.Logger})
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Updater{client: cfg.Client, logger: cfg.Logger, observer: cfg.Observer}
}

// Busy reports whether an update is running. Hosts must not exit while it is.
func (u *Updater) Busy() bool {
	return u.busy.Load()
}

// Check resolves the installed and published versions for req
func (u *Updater) Check(ctx context.Context, req Request) (*Status, error) {
	if !remote.ValidBranch(req.Branch) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBranch, req.Branch)
	}

	installed := req.Installed
	if installed == "" {
		local, err := version.LoadLocal(req.BaseDir, version.DefaultFile)
		if err != nil {
			return nil, err
		}
		installed = local.Launcher
	}

	m, err := u.client.Manifest(ctx, req.Branch)
	if err != nil {
		return nil, err
	}

	status := &Status{Installed: installed, Target: req.Target, MinUpdater: m.Lookup(manifest.MinVersionUpdater)}
	if status.Target == "" {
		status.Target = m.Lookup(manifest.Launcher)
	}
	if status.Target == manifest.Unknown {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, manifest.Launcher)
	}
	if req.UpdaterVersion != "" {
		if status.MinUpdater == manifest.Unknown {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, manifest.MinVersionUpdater)
		}
		status.UpdaterOutdated = version.Newer(status.MinUpdater, req.UpdaterVersion)
	}
	return status, nil
}

// Handle follows a running update
type Handle struct {
	events chan Event
	done   chan Outcome
	state  atomic.Int32
}

// Events streams progress. Events are dropped when the reader lags; the
// channel closes before the outcome is delivered.
func (h *Handle) Events() <-chan Event {
	return h.events
}

// Done delivers the outcome once
func (h *Handle) Done() <-chan Outcome {
	return h.done
}

// State returns the current phase
func (h *Handle) State() State {
	return State(h.state.Load())
}

func (h *Handle) emit(e Event) {
	h.state.Store(int32(e.State))
	select {
	case h.events <- e:
	default:
	}
}

// Begin starts an update in the background. It fails with ErrInProgress when
// this updater or another process is already updating the installation.
// ctx cancels downloads only; once files are being applied it is ignored.
func (u *Updater) Begin(ctx context.Context, req Request) (*Handle, error) {
	if !u.busy.CompareAndSwap(false, true) {
		return nil, ErrInProgress
	}
	if !install.IsInstalled(req.BaseDir) {
		u.busy.Store(false)
		return nil, fmt.Errorf("%w at %s", ErrNotInstalled, req.BaseDir)
	}

	lock := flock.New(filepath.Join(req.BaseDir, LockFile))
	locked, err := lock.TryLock()
	if err != nil {
		u.busy.Store(false)
		return nil, fmt.Errorf("failed to lock installation: %w", err)
	}
	if !locked {
		u.busy.Store(false)
		return nil, ErrInProgress
	}

	h := &Handle{events: make(chan Event, eventBuffer), done: make(chan Outcome, 1)}
	go func() {
		start := time.Now()
		out := u.run(ctx, req, h)
		elapsed := time.Since(start)

		if err := lock.Unlock(); err != nil {
			u.logger.Warn("failed to release update lock", zap.Error(err))
		}
		u.busy.Store(false)

		u.logger.Info("update finished",
			zap.Stringer("state", out.State),
			zap.String("from", out.From),
			zap.String("to", out.To),
			zap.Int("applied", out.Applied),
			zap.Duration("elapsed", elapsed),
			zap.Error(out.Err))
		u.observer.Finished(out, elapsed)

		h.state.Store(int32(out.State))
		close(h.events)
		h.done <- out
		close(h.done)
	}()
	return h, nil
}

// Run performs an update and waits for its outcome, passing events to
// onEvent when set
func (u *Updater) Run(ctx context.Context, req Request, onEvent func(Event)) (Outcome, error) {
	h, err := u.Begin(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	for e := range h.Events() {
		if onEvent != nil {
			onEvent(e)
		}
	}
	return <-h.Done(), nil
}

func (u *Updater) enter(h *Handle, s State, msg string) {
	u.logger.Debug("update state", zap.Stringer("state", s))
	u.observer.StateChanged(s)
	h.emit(Event{State: s, Message: msg, Percent: -1})
}

func (u *Updater) run(ctx context.Context, req Request, h *Handle) Outcome {
	out := Outcome{Branch: req.Branch}
	cacheDir := filepath.Join(req.BaseDir, install.CacheDir)

	fail := func(err error) Outcome {
		out.State = classify(err)
		out.Err = err
		if cerr := paths.ClearDir(cacheDir); cerr != nil {
			u.logger.Warn("failed to clear cache", zap.Error(cerr))
		}
		return out
	}

	u.enter(h, Downloading, "Downloading files")
	status, err := u.Check(ctx, req)
	if err != nil {
		return fail(err)
	}
	out.From, out.To = status.Installed, status.Target
	if status.UpdaterOutdated {
		return fail(fmt.Errorf("%w: %s required", ErrUpdaterOutdated, status.MinUpdater))
	}
	if !status.Available() {
		out.State = UpToDate
		return out
	}

	languages, err := install.LanguageFiles(req.BaseDir)
	if err != nil {
		return fail(err)
	}

	packagePath := filepath.Join(req.BaseDir, install.PackagePath)
	var patches []remote.PatchPackage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return u.client.DownloadPackage(gctx, req.Branch, packagePath, func(_, _ int64, pct int) {
			h.emit(Event{State: Downloading, Message: "Downloading files", Percent: pct})
		})
	})
	g.Go(func() error {
		for _, name := range languages {
			data, err := u.client.FetchLanguageFile(gctx, name, req.Branch)
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(cacheDir, name), data, 0644); err != nil {
				return fmt.Errorf("failed to store language file %s: %w", name, err)
			}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		patches, err = u.client.FetchPatches(gctx, out.From, out.To, req.Branch)
		return err
	})
	if err := g.Wait(); err != nil {
		return fail(err)
	}
	out.Patches = patches

	u.enter(h, Staging, "Preparing files")
	staging, err := archive.Stage(packagePath, cacheDir, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to stage package: %w", err))
	}

	u.enter(h, Applying, "Updating launcher files")
	applyCtx := context.WithoutCancel(ctx)
	in := &aul.Interpreter{
		Root:    req.BaseDir,
		Staging: staging,
		Logger:  u.logger,
		Observe: u.observer.CommandApplied,
	}
	for _, p := range patches {
		n, err := in.Run(applyCtx, p.Commands)
		out.Applied += n
		if err != nil {
			return fail(fmt.Errorf("failed to apply %s: %w", p.Version, err))
		}
		u.logger.Info("version applied", zap.String("version", p.Version), zap.Int("commands", n))
	}

	for _, name := range languages {
		src := filepath.Join(cacheDir, name)
		dst := filepath.Join(req.BaseDir, install.LanguagesDir, name)
		if err := paths.CopyFile(src, dst); err != nil {
			return fail(fmt.Errorf("failed to replace language file %s: %w", name, err))
		}
	}
	out.Languages = languages

	u.enter(h, CleaningUp, "Deleting temporary files")
	if err := paths.ClearDir(cacheDir); err != nil {
		out.State = ApplyError
		out.Err = fmt.Errorf("failed to clear cache: %w", err)
		return out
	}

	if err := u.record(req, out.To); err != nil {
		out.State = ApplyError
		out.Err = err
		return out
	}

	out.State = Done
	return out
}

// record stores the new launcher version, keeping the other fields
func (u *Updater) record(req Request, to string) error {
	local, err := version.LoadLocal(req.BaseDir, version.DefaultFile)
	if err != nil {
		local = &version.Installed{}
	}
	local.Launcher = to
	local.Branch = req.Branch
	local.UpdatedAt = ""
	return version.Save(req.BaseDir, version.DefaultFile, local)
}
