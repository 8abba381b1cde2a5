// Package catalog holds the launcher's ordered catalog of games, bonuses,
// configs and folders, and its apps.csv serialized form.
//
// Store is an immutable value: every mutation returns a new Store, and the
// single owner (usually a Manager) decides when to persist it.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Root is the parent sentinel for top-level entries
const Root = "."

// Kind discriminates catalog rows
type Kind string

const (
	KindGame   Kind = "game"
	KindBonus  Kind = "bonus"
	KindConfig Kind = "config"
	KindFolder Kind = "folder"
)

// ParseKind validates a kind discriminator
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindGame, KindBonus, KindConfig, KindFolder:
		return k, true
	}
	return "", false
}

// IsApp reports whether entries of this kind are launchable (game or bonus)
func (k Kind) IsApp() bool {
	return k == KindGame || k == KindBonus
}

// State is the favorite/hidden flag of an entry
type State string

const (
	StateNotFavorite State = "not favorite"
	StateFavorite    State = "favorite"
	StateHidden      State = "hidden"
)

// ParseState validates a state value
func ParseState(s string) (State, bool) {
	switch st := State(s); st {
	case StateNotFavorite, StateFavorite, StateHidden:
		return st, true
	}
	return "", false
}

// Sentinel errors for catalog operations.
var (
	ErrKeyNotFound      = errors.New("entry not found")
	ErrKeyConflict      = errors.New("entry already exists")
	ErrInvalidName      = errors.New("invalid entry name")
	ErrInvalidEntry     = errors.New("invalid entry")
	ErrDanglingParent   = errors.New("parent is not an existing folder")
	ErrInvalidMembers   = errors.New("invalid config members")
	ErrCycle            = errors.New("folder cannot be moved into itself")
	ErrStaleUndo        = errors.New("undo token is no longer valid")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrUnresolvedParent = errors.New("parent chain does not reach the root")
	ErrNotFolder        = errors.New("entry is not a folder")
)

const forbiddenNameChars = `\/:*?"<>|`

// ValidName reports whether name can be used as a catalog key. Names double as
// file names for icons and shortcuts, so path-hostile characters are rejected.
func ValidName(name string) bool {
	if name == "" || name == Root {
		return false
	}
	return !strings.ContainsAny(name, forbiddenNameChars)
}

// Entry is one catalog record. Target applies to games and bonuses, Members to
// configs; folders carry neither an icon nor a target.
type Entry struct {
	Name    string
	Kind    Kind
	State   State
	Parent  string
	Target  string
	Icon    string
	Members []string
}

// NewApp builds a game or bonus entry at the root
func NewApp(name string, kind Kind, target, icon string) Entry {
	return Entry{Name: name, Kind: kind, State: StateNotFavorite, Parent: Root, Target: target, Icon: icon}
}

// NewConfig builds a config entry at the root
func NewConfig(name string, members []string) Entry {
	return Entry{Name: name, Kind: KindConfig, State: StateNotFavorite, Parent: Root, Members: slices.Clone(members)}
}

// NewFolder builds a folder entry under parent
func NewFolder(name, parent string) Entry {
	return Entry{Name: name, Kind: KindFolder, State: StateNotFavorite, Parent: parent}
}

// Validate checks the entry in isolation (no cross-entry rules)
func (e Entry) Validate() error {
	if !ValidName(e.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, e.Name)
	}
	if _, ok := ParseKind(string(e.Kind)); !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}
	if _, ok := ParseState(string(e.State)); !ok {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidEntry, e.State)
	}
	if e.Parent == "" {
		return fmt.Errorf("%w: %s has no parent", ErrInvalidEntry, e.Name)
	}
	if e.Parent == e.Name {
		return fmt.Errorf("%w: %s", ErrCycle, e.Name)
	}

	switch e.Kind {
	case KindGame, KindBonus:
		if len(e.Members) > 0 {
			return fmt.Errorf("%w: %s %s cannot have members", ErrInvalidEntry, e.Kind, e.Name)
		}
	case KindConfig:
		if e.Target != "" {
			return fmt.Errorf("%w: config %s cannot have a target", ErrInvalidEntry, e.Name)
		}
		if len(e.Members) == 0 {
			return fmt.Errorf("%w: config %s has no members", ErrInvalidMembers, e.Name)
		}
		seen := make(map[string]bool, len(e.Members))
		for _, m := range e.Members {
			if m == e.Name {
				return fmt.Errorf("%w: config %s references itself", ErrInvalidMembers, e.Name)
			}
			if seen[m] {
				return fmt.Errorf("%w: config %s lists %s twice", ErrInvalidMembers, e.Name, m)
			}
			seen[m] = true
		}
	case KindFolder:
		if e.Target != "" || e.Icon != "" || len(e.Members) > 0 {
			return fmt.Errorf("%w: folder %s only has a state and a parent", ErrInvalidEntry, e.Name)
		}
	}
	return nil
}

func (e Entry) clone() Entry {
	e.Members = slices.Clone(e.Members)
	return e
}

// row renders the entry in its apps.csv field layout
func (e Entry) row() []string {
	switch e.Kind {
	case KindConfig:
		return append([]string{e.Name, string(e.Kind), string(e.State), e.Parent, e.Icon}, e.Members...)
	case KindFolder:
		return []string{e.Name, string(e.Kind), string(e.State), e.Parent}
	default:
		return []string{e.Name, string(e.Kind), string(e.State), e.Parent, e.Target, e.Icon}
	}
}

// parseRow decodes one apps.csv row according to its kind discriminator
func parseRow(row []string) (Entry, error) {
	if len(row) < 2 {
		return Entry{}, fmt.Errorf("row has %d fields", len(row))
	}
	kind, ok := ParseKind(row[1])
	if !ok {
		return Entry{}, fmt.Errorf("the type of the app is unknown: %s", row[1])
	}

	e := Entry{Name: row[0], Kind: kind}
	switch kind {
	case KindGame, KindBonus:
		if len(row) != 6 {
			return Entry{}, fmt.Errorf("%s row has %d fields, want 6", kind, len(row))
		}
		e.State, e.Parent, e.Target, e.Icon = State(row[2]), row[3], row[4], row[5]
	case KindConfig:
		if len(row) < 5 {
			return Entry{}, fmt.Errorf("config row has %d fields, want at least 5", len(row))
		}
		e.State, e.Parent, e.Icon = State(row[2]), row[3], row[4]
		e.Members = slices.Clone(row[5:])
	case KindFolder:
		if len(row) != 4 {
			return Entry{}, fmt.Errorf("folder row has %d fields, want 4", len(row))
		}
		e.State, e.Parent = State(row[2]), row[3]
	}

	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}
