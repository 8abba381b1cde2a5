package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.BaseDir == "" {
		cfg.BaseDir = t.TempDir()
	}
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.BaseDir, DefaultIconsDir), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.BaseDir, DefaultShortcutsDir), 0755))

	m := NewManager(cfg)
	_, err := m.Open()
	require.NoError(t, err)
	return m
}

func readCatalog(t *testing.T, m *Manager) Store {
	t.Helper()
	data, err := os.ReadFile(m.Path())
	require.NoError(t, err)
	s, warnings, err := Load(data, nil)
	require.NoError(t, err)
	require.Empty(t, warnings)
	return s
}

func TestManager_OpenCreatesFile(t *testing.T) {
	m := newTestManager(t, Config{})

	info, err := os.Stat(m.Path())
	require.NoError(t, err)
	assert.Zero(t, info.Size())
	assert.Zero(t, m.Store().Len())
}

func TestManager_PersistsEveryMutation(t *testing.T) {
	m := newTestManager(t, Config{})

	_, err := m.AddFolder("Games", "")
	require.NoError(t, err)
	_, err = m.AddApp("Alpha", KindGame, "C:/games/alpha.exe", "", "Games")
	require.NoError(t, err)
	_, err = m.AddApp("Beta", KindBonus, "C:/games/beta.exe", "", "")
	require.NoError(t, err)
	_, err = m.AddConfig("Duo", []string{"Alpha", "Beta"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Games", "Alpha", "Beta", "Duo"}, readCatalog(t, m).Keys())

	require.NoError(t, m.SetState("Beta", StateFavorite))
	beta, _ := readCatalog(t, m).Get("Beta")
	assert.Equal(t, StateFavorite, beta.State)

	require.NoError(t, m.MoveTo("Beta", "Games"))
	beta, _ = readCatalog(t, m).Get("Beta")
	assert.Equal(t, "Games", beta.Parent)

	require.NoError(t, m.Reorder("Duo", 0))
	assert.Equal(t, []string{"Duo", "Games", "Alpha", "Beta"}, readCatalog(t, m).Keys())
	require.NoError(t, m.UndoReorder())
	assert.Equal(t, []string{"Games", "Alpha", "Beta", "Duo"}, readCatalog(t, m).Keys())
	assert.ErrorIs(t, m.UndoReorder(), ErrNothingToUndo)

	tree, err := m.Tree()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, tree.Find("Games").Entries)
}

func TestManager_AddAppRejectsNonApps(t *testing.T) {
	m := newTestManager(t, Config{})

	_, err := m.AddApp("Folder", KindFolder, "", "", "")
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = m.AddApp("Alpha", KindGame, "alpha.exe", "", "")
	require.NoError(t, err)
	_, err = m.AddApp("Alpha", KindGame, "alpha.exe", "", "")
	assert.ErrorIs(t, err, ErrKeyConflict)
}

func TestManager_ResolvesShortcutTargets(t *testing.T) {
	m := newTestManager(t, Config{
		ResolveShortcut: func(path string) (string, error) {
			return strings.TrimSuffix(path, ".lnk") + ".exe", nil
		},
	})

	e, err := m.AddApp("Alpha", KindGame, "C:/Desktop/Alpha.lnk", "", "")
	require.NoError(t, err)
	assert.Equal(t, "C:/Desktop/Alpha.exe", e.Target)
}

func TestManager_ImportsURLShortcuts(t *testing.T) {
	m := newTestManager(t, Config{})

	src := filepath.Join(t.TempDir(), "store link.url")
	require.NoError(t, os.WriteFile(src, []byte("[InternetShortcut]\nURL=steam://rungameid/10\n"), 0644))

	e, err := m.AddApp("Alpha", KindGame, src, "", "")
	require.NoError(t, err)
	assert.Equal(t, "url shortcuts/Alpha.url", e.Target)
	assert.FileExists(t, filepath.Join(m.config.BaseDir, "url shortcuts", "Alpha.url"))
}

func TestManager_DeleteCleansOwnedFiles(t *testing.T) {
	var removed []string
	m := newTestManager(t, Config{OnRemoved: func(names []string) { removed = append(removed, names...) }})
	base := m.config.BaseDir

	icon := filepath.Join(base, "icons", "Alpha.png")
	shortcut := filepath.Join(base, "url shortcuts", "Alpha.url")
	require.NoError(t, os.WriteFile(icon, []byte("png"), 0644))
	require.NoError(t, os.WriteFile(shortcut, []byte("url"), 0644))
	external := filepath.Join(t.TempDir(), "external.png")
	require.NoError(t, os.WriteFile(external, []byte("png"), 0644))

	_, err := m.AddApp("Alpha", KindGame, "url shortcuts/Alpha.url", "icons/Alpha.png", "")
	require.NoError(t, err)
	_, err = m.AddApp("Beta", KindGame, "beta.exe", external, "")
	require.NoError(t, err)
	_, err = m.AddConfig("Solo", []string{"Alpha"}, "")
	require.NoError(t, err)

	deleted, err := m.Delete("Alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Solo"}, deleted.Names())
	assert.Equal(t, []string{"Alpha", "Solo"}, removed)
	assert.NoFileExists(t, icon)
	assert.NoFileExists(t, shortcut)
	assert.Equal(t, []string{"Beta"}, readCatalog(t, m).Keys())

	_, err = m.Delete("Beta")
	require.NoError(t, err)
	assert.FileExists(t, external, "icons outside the launcher folder are left alone")
}

func TestManager_DeleteFolder(t *testing.T) {
	m := newTestManager(t, Config{})
	_, err := m.AddFolder("Games", "")
	require.NoError(t, err)
	_, err = m.AddApp("Alpha", KindGame, "alpha.exe", "", "Games")
	require.NoError(t, err)

	_, err = m.DeleteFolder("Games", true)
	require.NoError(t, err)
	alpha, ok := readCatalog(t, m).Get("Alpha")
	require.True(t, ok)
	assert.Equal(t, Root, alpha.Parent)
}

func TestManager_RenameMovesOwnedFiles(t *testing.T) {
	var renamed [2]string
	m := newTestManager(t, Config{OnRenamed: func(o, n string) { renamed = [2]string{o, n} }})
	base := m.config.BaseDir

	require.NoError(t, os.WriteFile(filepath.Join(base, "icons", "Alpha.png"), []byte("png"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "url shortcuts", "Alpha.url"), []byte("url"), 0644))
	_, err := m.AddApp("Alpha", KindGame, "url shortcuts/Alpha.url", "icons/Alpha.png", "")
	require.NoError(t, err)
	_, err = m.AddConfig("Solo", []string{"Alpha"}, "")
	require.NoError(t, err)

	require.NoError(t, m.Rename("Alpha", "Omega"))
	assert.Equal(t, [2]string{"Alpha", "Omega"}, renamed)

	s := readCatalog(t, m)
	omega, ok := s.Get("Omega")
	require.True(t, ok)
	assert.Equal(t, "icons/Omega.png", omega.Icon)
	assert.Equal(t, "url shortcuts/Omega.url", omega.Target)
	assert.FileExists(t, filepath.Join(base, "icons", "Omega.png"))
	assert.FileExists(t, filepath.Join(base, "url shortcuts", "Omega.url"))

	solo, _ := s.Get("Solo")
	assert.Equal(t, []string{"Omega"}, solo.Members)
}

func TestManager_ReloadPicksUpExternalEdits(t *testing.T) {
	m := newTestManager(t, Config{})
	_, err := m.AddApp("Alpha", KindGame, "alpha.exe", "", "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(m.Path(), []byte("Beta,game,not favorite,.,beta.exe,\r\n"), 0644))
	_, err = m.Reload()
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta"}, m.Store().Keys())
}

func TestWatch_NotifiesOnWrite(t *testing.T) {
	m := newTestManager(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, m.Path(), nil, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(m.Path(), []byte("Beta,game,not favorite,.,beta.exe,\r\n"), 0644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	require.NoError(t, <-done)
}
