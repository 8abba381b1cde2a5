package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fastattackv/apy-launcher/internal/paths"
)

// Default file and folder names inside a launcher installation
const (
	DefaultFile         = "apps.csv"
	DefaultIconsDir     = "icons"
	DefaultShortcutsDir = "url shortcuts"
)

// Config holds configuration for catalog operations
type Config struct {
	BaseDir      string
	File         string
	IconsDir     string
	ShortcutsDir string
	Logger       *zap.Logger

	// ResolveShortcut turns a .lnk target into the program it points to.
	// When nil, .lnk targets are stored as given.
	ResolveShortcut func(path string) (string, error)
	// OnRemoved is called with every entry a delete removed, cascades included
	OnRemoved func(names []string)
	// OnRenamed is called after an entry changed its name
	OnRenamed func(oldName, newName string)
}

// Manager owns the catalog of one installation and rewrites apps.csv after
// every mutation. It is not safe for concurrent writers; callers serialize.
type Manager struct {
	config Config
	store  Store
	undo   *UndoToken
}

// NewManager creates a catalog manager. Call Open before using it.
func NewManager(config Config) *Manager {
	if config.File == "" {
		config.File = DefaultFile
	}
	if config.IconsDir == "" {
		config.IconsDir = DefaultIconsDir
	}
	if config.ShortcutsDir == "" {
		config.ShortcutsDir = DefaultShortcutsDir
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Manager{config: config}
}

// Path returns the absolute location of apps.csv
func (m *Manager) Path() string {
	return m.abs(m.config.File)
}

func (m *Manager) abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(m.config.BaseDir, rel)
}

// Open loads apps.csv, creating an empty catalog when the file does not exist
func (m *Manager) Open() ([]ParseWarning, error) {
	data, err := os.ReadFile(m.Path())
	if errors.Is(err, os.ErrNotExist) {
		m.store = Store{}
		m.undo = nil
		if err := m.save(m.store); err != nil {
			return nil, err
		}
		m.config.Logger.Info("created empty catalog", zap.String("path", m.Path()))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	store, warnings, err := Load(data, m.config.Logger)
	if err != nil {
		return warnings, err
	}
	m.store = store
	m.undo = nil
	return warnings, nil
}

// Reload re-reads apps.csv after an external change
func (m *Manager) Reload() ([]ParseWarning, error) {
	return m.Open()
}

// Store returns the current catalog value
func (m *Manager) Store() Store {
	return m.store
}

// Tree builds the folder hierarchy of the current catalog
func (m *Manager) Tree() (*Tree, error) {
	return m.store.BuildTree()
}

// save writes the whole catalog to a temporary file and renames it over apps.csv
func (m *Manager) save(s Store) error {
	data, err := s.Serialize()
	if err != nil {
		return err
	}

	path := m.Path()
	tmp, err := os.CreateTemp(filepath.Dir(path), ".apps-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp catalog: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	return nil
}

// commit persists next and makes it current
func (m *Manager) commit(next Store) error {
	if err := m.save(next); err != nil {
		return err
	}
	m.store = next
	return nil
}

// AddApp registers a game or bonus at the end of the catalog. Shortcut
// targets are resolved and .url files are copied into the shortcuts folder.
func (m *Manager) AddApp(name string, kind Kind, target, icon, parent string) (Entry, error) {
	if !kind.IsApp() {
		return Entry{}, fmt.Errorf("%w: %s is not a game or bonus kind", ErrInvalidEntry, kind)
	}
	if m.store.Has(name) {
		return Entry{}, fmt.Errorf("%w: %s", ErrKeyConflict, name)
	}
	if !ValidName(name) {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	switch strings.ToLower(filepath.Ext(target)) {
	case ".lnk":
		if m.config.ResolveShortcut != nil {
			resolved, err := m.config.ResolveShortcut(target)
			if err != nil {
				return Entry{}, fmt.Errorf("failed to resolve shortcut %s: %w", target, err)
			}
			target = resolved
		}
	case ".url":
		copied, err := m.importURLShortcut(name, target)
		if err != nil {
			return Entry{}, err
		}
		target = copied
	}

	e := NewApp(name, kind, target, icon)
	if parent != "" {
		e.Parent = parent
	}
	next, err := m.store.Append(e)
	if err != nil {
		return Entry{}, err
	}
	if err := m.commit(next); err != nil {
		return Entry{}, err
	}
	m.config.Logger.Info("added app", zap.String("name", name), zap.String("kind", string(kind)), zap.String("target", target))
	return e, nil
}

// importURLShortcut copies a .url file into the shortcuts folder as name.url
// and returns the catalog-relative path
func (m *Manager) importURLShortcut(name, src string) (string, error) {
	dir := m.abs(m.config.ShortcutsDir)
	if m.inDir(src, m.config.ShortcutsDir) {
		return src, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create shortcuts folder: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join(m.config.ShortcutsDir, name+".url"))
	if err := paths.CopyFile(src, m.abs(rel)); err != nil {
		return "", fmt.Errorf("failed to copy url shortcut: %w", err)
	}
	return rel, nil
}

// AddConfig registers a config grouping existing games and bonuses
func (m *Manager) AddConfig(name string, members []string, icon string) (Entry, error) {
	e := NewConfig(name, members)
	e.Icon = icon
	next, err := m.store.Append(e)
	if err != nil {
		return Entry{}, err
	}
	if err := m.commit(next); err != nil {
		return Entry{}, err
	}
	m.config.Logger.Info("added config", zap.String("name", name), zap.Strings("members", members))
	return e, nil
}

// AddFolder registers a folder under parent (Root when empty)
func (m *Manager) AddFolder(name, parent string) (Entry, error) {
	if parent == "" {
		parent = Root
	}
	e := NewFolder(name, parent)
	next, err := m.store.Append(e)
	if err != nil {
		return Entry{}, err
	}
	if err := m.commit(next); err != nil {
		return Entry{}, err
	}
	m.config.Logger.Info("added folder", zap.String("name", name), zap.String("parent", parent))
	return e, nil
}

// Delete removes an entry with its cascade: configs left empty go too, and
// icons or url shortcuts owned by the launcher are removed from disk.
// Folders keep their children, which move to the root.
func (m *Manager) Delete(name string) (Deleted, error) {
	next, deleted, err := m.store.Delete(name)
	if err != nil {
		return Deleted{}, err
	}
	return deleted, m.finishDelete(next, deleted)
}

// DeleteFolder removes a folder, either moving its children to the root or
// deleting its whole subtree
func (m *Manager) DeleteFolder(name string, keepChildren bool) (Deleted, error) {
	next, deleted, err := m.store.DeleteFolder(name, keepChildren)
	if err != nil {
		return Deleted{}, err
	}
	return deleted, m.finishDelete(next, deleted)
}

func (m *Manager) finishDelete(next Store, deleted Deleted) error {
	if err := m.commit(next); err != nil {
		return err
	}
	m.undo = nil

	for _, e := range deleted.Entries {
		m.removeOwnedFile(e.Icon, m.config.IconsDir)
		if e.Kind.IsApp() {
			m.removeOwnedFile(e.Target, m.config.ShortcutsDir)
		}
	}
	m.config.Logger.Info("deleted entries", zap.Strings("names", deleted.Names()))
	if m.config.OnRemoved != nil {
		m.config.OnRemoved(deleted.Names())
	}
	return nil
}

// removeOwnedFile deletes path when it lives directly in the launcher folder dir
func (m *Manager) removeOwnedFile(path, dir string) {
	if path == "" || !m.inDir(path, dir) {
		return
	}
	if err := os.Remove(m.abs(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.config.Logger.Warn("failed to remove file", zap.String("path", path), zap.Error(err))
	}
}

// inDir reports whether path sits directly inside the launcher folder dir
func (m *Manager) inDir(path, dir string) bool {
	return paths.IsInDir(m.abs(filepath.FromSlash(path)), m.abs(dir))
}

// Rename changes an entry's name. Icons and url shortcuts kept in the
// launcher's folders are renamed along with it.
func (m *Manager) Rename(oldName, newName string) error {
	next, err := m.store.Rename(oldName, newName)
	if err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}

	e, _ := next.Get(newName)
	if m.inDir(e.Icon, m.config.IconsDir) && e.Icon != "" {
		rel := filepath.ToSlash(filepath.Join(m.config.IconsDir, newName+filepath.Ext(e.Icon)))
		if err := os.Rename(m.abs(e.Icon), m.abs(rel)); err != nil {
			m.config.Logger.Warn("failed to rename icon", zap.String("icon", e.Icon), zap.Error(err))
		} else if next, err = next.SetIcon(newName, rel); err != nil {
			return err
		}
	}
	if e.Kind.IsApp() && e.Target != "" && m.inDir(e.Target, m.config.ShortcutsDir) {
		rel := filepath.ToSlash(filepath.Join(m.config.ShortcutsDir, newName+".url"))
		if err := os.Rename(m.abs(e.Target), m.abs(rel)); err != nil {
			m.config.Logger.Warn("failed to rename url shortcut", zap.String("target", e.Target), zap.Error(err))
		} else if next, err = next.SetTarget(newName, rel); err != nil {
			return err
		}
	}

	if err := m.commit(next); err != nil {
		return err
	}
	m.undo = nil
	m.config.Logger.Info("renamed entry", zap.String("from", oldName), zap.String("to", newName))
	if m.config.OnRenamed != nil {
		m.config.OnRenamed(oldName, newName)
	}
	return nil
}

// SetState marks an entry favorite, hidden or neither
func (m *Manager) SetState(name string, state State) error {
	next, err := m.store.SetState(name, state)
	if err != nil {
		return err
	}
	return m.commit(next)
}

// MoveTo places an entry into folder (Root for the top level)
func (m *Manager) MoveTo(name, folder string) error {
	next, err := m.store.SetParent(name, folder)
	if err != nil {
		return err
	}
	return m.commit(next)
}

// Reorder moves an entry to index and remembers how to undo it
func (m *Manager) Reorder(name string, index int) error {
	next, tok, err := m.store.Move(name, index)
	if err != nil {
		return err
	}
	if err := m.commit(next); err != nil {
		return err
	}
	m.undo = &tok
	return nil
}

// UndoReorder reverses the most recent Reorder
func (m *Manager) UndoReorder() error {
	if m.undo == nil {
		return ErrNothingToUndo
	}
	next, err := m.store.Undo(*m.undo)
	if err != nil {
		m.undo = nil
		return err
	}
	if err := m.commit(next); err != nil {
		return err
	}
	m.undo = nil
	return nil
}
