package catalog

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// moveIDs numbers every Move and Undo across all stores, so a token only
// matches the store its own Move produced
var moveIDs atomic.Uint64

// Store is the insertion-ordered catalog. The zero value is an empty store.
type Store struct {
	entries []Entry
	index   map[string]int
	moveID  uint64
}

// UndoToken reverses exactly one Move on the store that Move returned
type UndoToken struct {
	Key  string
	From int
	to   int
	id   uint64
}

// Deleted lists every entry removed by a cascading delete, in removal order
type Deleted struct {
	Entries []Entry
}

// Names returns the names of the removed entries
func (d Deleted) Names() []string {
	names := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		names[i] = e.Name
	}
	return names
}

// New builds a store from entries, enforcing every catalog rule
func New(entries ...Entry) (Store, error) {
	var s Store
	for _, e := range entries {
		next, err := s.InsertAt(s.Len(), e)
		if err != nil {
			return Store{}, err
		}
		s = next
	}
	return s, nil
}

func fromEntries(entries []Entry) Store {
	s := Store{entries: entries}
	s.reindex()
	return s
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.entries))
	for i, e := range s.entries {
		s.index[e.Name] = i
	}
}

func (s Store) clone() Store {
	entries := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		entries[i] = e.clone()
	}
	c := fromEntries(entries)
	c.moveID = s.moveID
	return c
}

// Len returns the number of entries
func (s Store) Len() int {
	return len(s.entries)
}

// Keys returns entry names in order
func (s Store) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Name
	}
	return keys
}

// Entries returns a copy of all entries in order
func (s Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}

// Get returns the entry stored under key
func (s Store) Get(key string) (Entry, bool) {
	i, ok := s.index[key]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i].clone(), true
}

// Has reports whether key exists
func (s Store) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// IndexOf returns the position of key, or -1
func (s Store) IndexOf(key string) int {
	if i, ok := s.index[key]; ok {
		return i
	}
	return -1
}

// isFolder reports whether name is the root or an existing folder
func (s Store) isFolder(name string) bool {
	if name == Root {
		return true
	}
	i, ok := s.index[name]
	return ok && s.entries[i].Kind == KindFolder
}

func (s Store) checkRefs(e Entry) error {
	if !s.isFolder(e.Parent) {
		return fmt.Errorf("%w: %s", ErrDanglingParent, e.Parent)
	}
	if e.Kind == KindConfig {
		for _, m := range e.Members {
			i, ok := s.index[m]
			if !ok || !s.entries[i].Kind.IsApp() {
				return fmt.Errorf("%w: %s is not a game or bonus", ErrInvalidMembers, m)
			}
		}
	}
	return nil
}

// InsertAt returns a store with e placed at index, clamped to [0, Len].
// Appending is InsertAt(s.Len(), e).
func (s Store) InsertAt(index int, e Entry) (Store, error) {
	if err := e.Validate(); err != nil {
		return s, err
	}
	if s.Has(e.Name) {
		return s, fmt.Errorf("%w: %s", ErrKeyConflict, e.Name)
	}
	if err := s.checkRefs(e); err != nil {
		return s, err
	}

	next := s.clone()
	index = clamp(index, 0, len(next.entries))
	next.entries = slices.Insert(next.entries, index, e.clone())
	next.reindex()
	return next, nil
}

// Append adds e at the end of the store
func (s Store) Append(e Entry) (Store, error) {
	return s.InsertAt(s.Len(), e)
}

// Remove takes key out of the store without touching references to it
func (s Store) Remove(key string) (Store, Entry, error) {
	i, ok := s.index[key]
	if !ok {
		return s, Entry{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	next := s.clone()
	removed := next.entries[i]
	next.entries = slices.Delete(next.entries, i, i+1)
	next.reindex()
	return next, removed, nil
}

// Rename changes an entry's key in place, keeping its position. Configs listing
// the old name and entries parented to it follow the rename.
func (s Store) Rename(oldKey, newKey string) (Store, error) {
	i, ok := s.index[oldKey]
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrKeyNotFound, oldKey)
	}
	if !ValidName(newKey) {
		return s, fmt.Errorf("%w: %q", ErrInvalidName, newKey)
	}
	if oldKey == newKey {
		return s, nil
	}
	if s.Has(newKey) {
		return s, fmt.Errorf("%w: %s", ErrKeyConflict, newKey)
	}

	next := s.clone()
	next.entries[i].Name = newKey
	for j := range next.entries {
		e := &next.entries[j]
		if e.Parent == oldKey {
			e.Parent = newKey
		}
		if e.Kind == KindConfig {
			if k := slices.Index(e.Members, oldKey); k >= 0 {
				e.Members[k] = newKey
			}
		}
	}
	next.reindex()
	return next, nil
}

// Move reinserts key at newIndex and returns a token that reverses this move.
// Only the most recent move on a store lineage can be undone.
func (s Store) Move(key string, newIndex int) (Store, UndoToken, error) {
	from, ok := s.index[key]
	if !ok {
		return s, UndoToken{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	next := s.clone()
	e := next.entries[from]
	next.entries = slices.Delete(next.entries, from, from+1)
	newIndex = clamp(newIndex, 0, len(next.entries))
	next.entries = slices.Insert(next.entries, newIndex, e)
	next.reindex()
	next.moveID = moveIDs.Add(1)

	return next, UndoToken{Key: key, From: from, to: newIndex, id: next.moveID}, nil
}

// Undo puts the entry moved by tok back at its original position
func (s Store) Undo(tok UndoToken) (Store, error) {
	if tok.id == 0 || tok.id != s.moveID {
		return s, ErrStaleUndo
	}
	cur, ok := s.index[tok.Key]
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrKeyNotFound, tok.Key)
	}
	if cur != tok.to {
		return s, ErrStaleUndo
	}

	next := s.clone()
	e := next.entries[cur]
	next.entries = slices.Delete(next.entries, cur, cur+1)
	next.entries = slices.Insert(next.entries, clamp(tok.From, 0, len(next.entries)), e)
	next.reindex()
	next.moveID = moveIDs.Add(1)
	return next, nil
}

// ChildrenOf returns the direct children of folder (or of Root), in order
func (s Store) ChildrenOf(folder string) []string {
	if !s.isFolder(folder) {
		return nil
	}
	var out []string
	for _, e := range s.entries {
		if e.Parent == folder {
			out = append(out, e.Name)
		}
	}
	return out
}

// UsedBy returns the configs listing key as a member
func (s Store) UsedBy(key string) []string {
	var out []string
	for _, e := range s.entries {
		if e.Kind == KindConfig && slices.Contains(e.Members, key) {
			out = append(out, e.Name)
		}
	}
	return out
}

// PruneReferences drops key from every config; configs left empty are deleted
// and their names returned.
func (s Store) PruneReferences(key string) (Store, []string) {
	next := s.clone()
	var dropped []string
	kept := next.entries[:0]
	for _, e := range next.entries {
		if e.Kind == KindConfig {
			if k := slices.Index(e.Members, key); k >= 0 {
				e.Members = slices.Delete(e.Members, k, k+1)
				if len(e.Members) == 0 {
					dropped = append(dropped, e.Name)
					continue
				}
			}
		}
		kept = append(kept, e)
	}
	next.entries = kept
	next.reindex()
	return next, dropped
}

// Delete removes key and cascades: the key is pruned from configs and configs
// left empty are removed too. Folders are reparented per DeleteFolder with
// keepChildren set.
func (s Store) Delete(key string) (Store, Deleted, error) {
	e, ok := s.Get(key)
	if !ok {
		return s, Deleted{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if e.Kind == KindFolder {
		return s.DeleteFolder(key, true)
	}
	return s.deleteOne(key, Deleted{})
}

func (s Store) deleteOne(key string, acc Deleted) (Store, Deleted, error) {
	next, removed, err := s.Remove(key)
	if err != nil {
		return s, acc, err
	}
	acc.Entries = append(acc.Entries, removed)

	next, dropped := next.PruneReferences(key)
	for _, name := range dropped {
		acc.Entries = append(acc.Entries, s.entries[s.index[name]].clone())
	}
	return next, acc, nil
}

// DeleteFolder removes a folder. With keepChildren its direct children move to
// the root; otherwise its whole subtree is deleted with the usual cascade.
func (s Store) DeleteFolder(name string, keepChildren bool) (Store, Deleted, error) {
	e, ok := s.Get(name)
	if !ok {
		return s, Deleted{}, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	if e.Kind != KindFolder {
		return s, Deleted{}, fmt.Errorf("%w: %s", ErrNotFolder, name)
	}

	next := s
	var acc Deleted
	var err error
	for _, child := range s.ChildrenOf(name) {
		if !next.Has(child) {
			continue
		}
		if keepChildren {
			next = next.withParent(child, Root)
			continue
		}
		if c, _ := next.Get(child); c.Kind == KindFolder {
			var sub Deleted
			next, sub, err = next.DeleteFolder(child, false)
			acc.Entries = append(acc.Entries, sub.Entries...)
		} else {
			next, acc, err = next.deleteOne(child, acc)
		}
		if err != nil {
			return s, Deleted{}, err
		}
	}

	next, acc, err = next.deleteOne(name, acc)
	if err != nil {
		return s, Deleted{}, err
	}
	return next, acc, nil
}

func (s Store) withParent(key, parent string) Store {
	next := s.clone()
	next.entries[next.index[key]].Parent = parent
	return next
}

// SetState changes the favorite/hidden state of an entry
func (s Store) SetState(key string, state State) (Store, error) {
	if _, ok := ParseState(string(state)); !ok {
		return s, fmt.Errorf("%w: unknown state %q", ErrInvalidEntry, state)
	}
	return s.update(key, func(e *Entry) { e.State = state })
}

// SetIcon changes the icon path of a game, bonus or config
func (s Store) SetIcon(key, icon string) (Store, error) {
	return s.update(key, func(e *Entry) { e.Icon = icon })
}

// SetTarget changes the launch target of a game or bonus
func (s Store) SetTarget(key, target string) (Store, error) {
	return s.update(key, func(e *Entry) { e.Target = target })
}

// SetParent moves an entry into another folder (or Root). A folder cannot be
// moved into its own subtree.
func (s Store) SetParent(key, parent string) (Store, error) {
	e, ok := s.Get(key)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if !s.isFolder(parent) {
		return s, fmt.Errorf("%w: %s", ErrDanglingParent, parent)
	}
	if e.Kind == KindFolder && s.isDescendant(parent, key) {
		return s, fmt.Errorf("%w: %s into %s", ErrCycle, key, parent)
	}
	return s.withParent(key, parent), nil
}

// isDescendant reports whether name sits somewhere below folder. The walk is
// bounded by the store size so corrupt parent chains terminate.
func (s Store) isDescendant(name, folder string) bool {
	cur := name
	for steps := 0; steps <= len(s.entries); steps++ {
		if cur == folder {
			return true
		}
		if cur == Root {
			return false
		}
		i, ok := s.index[cur]
		if !ok {
			return false
		}
		cur = s.entries[i].Parent
	}
	return true
}

func (s Store) update(key string, fn func(*Entry)) (Store, error) {
	i, ok := s.index[key]
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	next := s.clone()
	fn(&next.entries[i])
	if err := next.entries[i].Validate(); err != nil {
		return s, err
	}
	return next, nil
}

// integrityWarnings reports cross-entry problems in a loaded catalog
func (s Store) integrityWarnings() []ParseWarning {
	var out []ParseWarning
	for i, e := range s.entries {
		if !s.isFolder(e.Parent) {
			out = append(out, ParseWarning{Line: i + 1, Name: e.Name, Reason: fmt.Sprintf("parent %q is not a folder", e.Parent)})
		}
		if e.Kind != KindConfig {
			continue
		}
		for _, m := range e.Members {
			j, ok := s.index[m]
			if !ok || !s.entries[j].Kind.IsApp() {
				out = append(out, ParseWarning{Line: i + 1, Name: e.Name, Reason: fmt.Sprintf("member %q is not a game or bonus", m)})
			}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
