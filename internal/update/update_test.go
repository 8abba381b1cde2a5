package update

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastattackv/apy-launcher/internal/aul"
	"github.com/fastattackv/apy-launcher/internal/remote"
	"github.com/fastattackv/apy-launcher/internal/testutil"
	"github.com/fastattackv/apy-launcher/internal/version"
)

const (
	pathManifest = "/main/Downloads/Versions.txt"
	pathList     = "/main/Downloads/Versions list.txt"
	pathPackage  = "/main/Downloads/APY! Launcher.zip"
	pathEnglish  = "/main/Downloads/Languages/english.lng"
)

func scriptPath(v string) string {
	return "/main/Downloads/AUL commands/" + v + ".AUL"
}

type recorder struct {
	mu       sync.Mutex
	states   []State
	commands int
	failed   int
	finished []Outcome
}

func (r *recorder) StateChanged(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) CommandApplied(_ aul.Op, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands++
	if err != nil {
		r.failed++
	}
}

func (r *recorder) Finished(o Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, o)
}

// release publishes launcher 2.1.0 with two patches over 2.0.0
func release(t *testing.T) *testutil.ReleaseServer {
	t.Helper()
	rs := testutil.NewReleaseServer(t)
	rs.SetString(pathManifest, "launcher=2.1.0\nupdater=2.0.0\nminversionupdater=2.0.0\n")
	rs.SetString(pathList, "1.9.0\n2.0.0\n2.0.1\n2.1.0\n2.2.0\n")
	rs.SetString(scriptPath("2.0.1"), "createfile notes.txt\nupdate notes.txt rewriteline index end \"from 2.0.1\"\nreplacefile \"APY! Launcher.exe\"\n")
	rs.SetString(scriptPath("2.1.0"), "update notes.txt rewriteline index end \"from 2.1.0\"\r\nreplacedir \"launcher data\"\r\n")
	rs.Set(pathPackage, testutil.BuildZip(t, map[string]string{
		"APY! Launcher/APY! Launcher.exe":        "new binary",
		"APY! Launcher/launcher data/icon.png":   "icon",
		"APY! Launcher/launcher data/sub/a.json": "{}",
	}))
	rs.SetString(pathEnglish, "new english")
	return rs
}

func installation(t *testing.T) string {
	t.Helper()
	return testutil.NewInstallation(t, map[string]string{
		"version.json":            `{"launcher":"2.0.0","updater":"2.0.0"}`,
		"lng files/english.lng":   "old english",
		"launcher data/stale.png": "stale",
		"apps.csv":                "Halo,game,favorite,.,C:/halo.exe,\r\n",
	})
}

func newUpdater(rs *testutil.ReleaseServer, obs Observer) *Updater {
	return New(Config{
		Client:   remote.NewClient(remote.Config{BaseURL: rs.URL}),
		Observer: obs,
	})
}

func TestRun_Success(t *testing.T) {
	rs := release(t)
	root := installation(t)
	rec := &recorder{}
	u := newUpdater(rs, rec)

	var events []Event
	out, err := u.Run(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain, UpdaterVersion: "2.0.0"}, func(e Event) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.NoError(t, out.Err)

	assert.Equal(t, Done, out.State)
	assert.Equal(t, "2.0.0", out.From)
	assert.Equal(t, "2.1.0", out.To)
	assert.Equal(t, 5, out.Applied)
	assert.Equal(t, []string{"english.lng"}, out.Languages)
	require.Len(t, out.Patches, 2)
	assert.Equal(t, "2.0.1", out.Patches[0].Version)

	// patches applied oldest first
	assert.Equal(t, "from 2.0.1\nfrom 2.1.0\n", testutil.ReadFile(t, filepath.Join(root, "notes.txt")))
	assert.Equal(t, "new binary", testutil.ReadFile(t, filepath.Join(root, "APY! Launcher.exe")))
	assert.Equal(t, "icon", testutil.ReadFile(t, filepath.Join(root, "launcher data", "icon.png")))
	assert.NoFileExists(t, filepath.Join(root, "launcher data", "stale.png"))
	assert.Equal(t, "new english", testutil.ReadFile(t, filepath.Join(root, "lng files", "english.lng")))

	// untouched user data
	assert.Equal(t, "Halo,game,favorite,.,C:/halo.exe,\r\n", testutil.ReadFile(t, filepath.Join(root, "apps.csv")))

	entries, err := os.ReadDir(filepath.Join(root, "cache"))
	require.NoError(t, err)
	assert.Empty(t, entries, "cache should be cleared")

	local, err := version.LoadLocal(root, version.DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", local.Launcher)
	assert.Equal(t, "2.0.0", local.Updater)
	assert.Equal(t, remote.BranchMain, local.Branch)

	assert.Equal(t, []State{Downloading, Staging, Applying, CleaningUp}, rec.states)
	assert.Equal(t, 5, rec.commands)
	assert.Zero(t, rec.failed)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, Done, rec.finished[0].State)

	require.NotEmpty(t, events)
	assert.Equal(t, Downloading, events[0].State)
	assert.False(t, u.Busy())

	report := out.Report()
	assert.Equal(t, 5, report.Commands())
	assert.Equal(t, "success", out.Result().Result)
}

func TestRun_UpToDate(t *testing.T) {
	rs := release(t)
	root := installation(t)
	u := newUpdater(rs, nil)

	out, err := u.Run(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain, Installed: "2.1.0"}, nil)
	require.NoError(t, err)
	assert.Equal(t, UpToDate, out.State)
	assert.NoError(t, out.Err)

	for _, p := range rs.Requests() {
		assert.NotEqual(t, pathPackage, p, "nothing should be downloaded")
		assert.NotEqual(t, pathList, p, "no versions list needed")
	}
}

func TestRun_ExplicitTarget(t *testing.T) {
	rs := release(t)
	root := installation(t)
	u := newUpdater(rs, nil)

	out, err := u.Run(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain, Target: "2.0.1"}, nil)
	require.NoError(t, err)
	require.Equal(t, Done, out.State, "err: %v", out.Err)
	require.Len(t, out.Patches, 1)
	assert.Equal(t, "from 2.0.1\n", testutil.ReadFile(t, filepath.Join(root, "notes.txt")))
}

// TestRun_ApplyError stops at the failing command and keeps earlier changes
func TestRun_ApplyError(t *testing.T) {
	rs := release(t)
	rs.SetString(scriptPath("2.1.0"), "createdir fresh\nreplacefile missing.dll\ncreatedir never\n")
	root := installation(t)
	rec := &recorder{}
	u := newUpdater(rs, rec)

	out, err := u.Run(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain}, nil)
	require.NoError(t, err)

	assert.Equal(t, ApplyError, out.State)
	var cmdErr *aul.CommandError
	require.ErrorAs(t, out.Err, &cmdErr)
	assert.ErrorIs(t, out.Err, aul.ErrMissing)
	assert.Equal(t, 4, out.Applied)

	// no rollback
	assert.Equal(t, "new binary", testutil.ReadFile(t, filepath.Join(root, "APY! Launcher.exe")))
	assert.DirExists(t, filepath.Join(root, "fresh"))
	assert.NoDirExists(t, filepath.Join(root, "never"))

	// language files and version stay as they were
	assert.Equal(t, "old english", testutil.ReadFile(t, filepath.Join(root, "lng files", "english.lng")))
	local, err := version.LoadLocal(root, version.DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", local.Launcher)
	assert.Equal(t, 1, rec.failed)
}

// TestRun_ConnectionError leaves the live tree untouched
func TestRun_ConnectionError(t *testing.T) {
	rs := release(t)
	rs.Fail(pathPackage, http.StatusBadGateway)
	root := installation(t)
	u := newUpdater(rs, nil)

	out, err := u.Run(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain}, nil)
	require.NoError(t, err)

	assert.Equal(t, ConnectionError, out.State)
	assert.ErrorIs(t, out.Err, remote.ErrConnection)
	assert.Zero(t, out.Applied)
	assert.Equal(t, "binary", testutil.ReadFile(t, filepath.Join(root, "APY! Launcher.exe")))
	assert.NoFileExists(t, filepath.Join(root, "notes.txt"))
	assert.Equal(t, "old english", testutil.ReadFile(t, filepath.Join(root, "lng files", "english.lng")))

	entries, err := os.ReadDir(filepath.Join(root, "cache"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, u.Busy(), "updater returns to idle")
}

func TestRun_MissingScriptIsApplyError(t *testing.T) {
	rs := release(t)
	rs.Fail(scriptPath("2.0.1"), http.StatusNotFound)
	root := installation(t)
	u := newUpdater(rs, nil)

	out, err := u.Run(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain}, nil)
	require.NoError(t, err)
	assert.Equal(t, ApplyError, out.State)
	assert.ErrorIs(t, out.Err, remote.ErrNotFound)
	assert.Equal(t, "binary", testutil.ReadFile(t, filepath.Join(root, "APY! Launcher.exe")))
}

func TestRun_UpdaterOutdated(t *testing.T) {
	rs := release(t)
	rs.SetString(pathManifest, "launcher=2.1.0\nminversionupdater=3.0.0\n")
	root := installation(t)
	u := newUpdater(rs, nil)

	out, err := u.Run(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain, UpdaterVersion: "2.0.0"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ApplyError, out.State)
	assert.ErrorIs(t, out.Err, ErrUpdaterOutdated)
}

func TestRun_CancelledWhileDownloading(t *testing.T) {
	rs := release(t)
	root := installation(t)
	u := newUpdater(rs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := u.Run(ctx, Request{BaseDir: root, Branch: remote.BranchMain}, nil)
	require.NoError(t, err)
	assert.Equal(t, ConnectionError, out.State)
	assert.Equal(t, "binary", testutil.ReadFile(t, filepath.Join(root, "APY! Launcher.exe")))
}

func TestBegin_InProgress(t *testing.T) {
	rs := release(t)
	root := installation(t)
	u := newUpdater(rs, nil)

	// another process holds the installation
	other := flock.New(filepath.Join(root, LockFile))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	_, err = u.Begin(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain})
	assert.ErrorIs(t, err, ErrInProgress)
	assert.False(t, u.Busy())
	require.NoError(t, other.Unlock())

	// same updater, second request while the first is held on its first fetch
	gate := make(chan struct{})
	httpFetcher := remote.NewHTTPFetcher(nil, "")
	u = New(Config{Client: remote.NewClient(remote.Config{
		BaseURL: rs.URL,
		Fetcher: remote.FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
			<-gate
			return httpFetcher.Fetch(ctx, url)
		}),
	})})

	h, err := u.Begin(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain})
	require.NoError(t, err)
	assert.True(t, u.Busy())
	_, err = u.Begin(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain})
	assert.ErrorIs(t, err, ErrInProgress)
	close(gate)

	out := <-h.Done()
	assert.Equal(t, Done, out.State, "err: %v", out.Err)
	assert.Equal(t, Done, h.State())

	// idle again once the outcome is delivered
	h, err = u.Begin(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain})
	require.NoError(t, err)
	assert.Equal(t, UpToDate, (<-h.Done()).State)
}

func TestBegin_Rejects(t *testing.T) {
	rs := release(t)
	u := newUpdater(rs, nil)

	_, err := u.Begin(context.Background(), Request{BaseDir: t.TempDir(), Branch: remote.BranchMain})
	assert.ErrorIs(t, err, ErrNotInstalled)

	root := installation(t)
	out, err := u.Run(context.Background(), Request{BaseDir: root, Branch: "beta"}, nil)
	require.NoError(t, err)
	assert.True(t, errors.Is(out.Err, ErrInvalidBranch))
	assert.Equal(t, ApplyError, out.State)
}

func TestCheck(t *testing.T) {
	rs := release(t)
	root := installation(t)
	u := newUpdater(rs, nil)

	status, err := u.Check(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain, UpdaterVersion: "1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", status.Installed)
	assert.Equal(t, "2.1.0", status.Target)
	assert.True(t, status.Available())
	assert.True(t, status.UpdaterOutdated)

	rs.SetString(pathManifest, "updater=2.0.0\n")
	_, err = u.Check(context.Background(), Request{BaseDir: root, Branch: remote.BranchMain})
	assert.ErrorIs(t, err, ErrUnknownVersion)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "cleaning up", CleaningUp.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, ConnectionError.Failed())
	assert.False(t, Done.Failed())
}

func TestObservers(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	obs := Observers{a, b}

	obs.StateChanged(Downloading)
	obs.CommandApplied(aul.OpCreateFile, nil)
	obs.CommandApplied(aul.OpDeleteFile, errors.New("boom"))
	obs.Finished(Outcome{State: Done}, time.Second)

	for _, r := range []*recorder{a, b} {
		assert.Equal(t, []State{Downloading}, r.states)
		assert.Equal(t, 2, r.commands)
		assert.Equal(t, 1, r.failed)
		assert.Len(t, r.finished, 1)
	}
}
