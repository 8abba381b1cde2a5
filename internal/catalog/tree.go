package catalog

import (
	"fmt"
	"strings"
)

// Node is a folder in the directory tree. Entries lists the non-folder
// children in catalog order.
type Node struct {
	Name    string
	Folders []*Node
	Entries []string
}

// Tree is the resolved folder hierarchy of a catalog
type Tree struct {
	Root *Node
}

// Find returns the folder node called name, or nil
func (t *Tree) Find(name string) *Node {
	var walk func(n *Node) *Node
	walk = func(n *Node) *Node {
		if n.Name == name {
			return n
		}
		for _, f := range n.Folders {
			if found := walk(f); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(t.Root)
}

// UnresolvedError lists entries whose parent chain never reaches the root
type UnresolvedError struct {
	Names []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnresolvedParent, strings.Join(e.Names, ", "))
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolvedParent
}

// BuildTree resolves the parent links into a nested tree. Entries whose chain
// does not reach the root within as many steps as there are folders are
// reported through *UnresolvedError; the returned tree still holds every
// entry that did resolve.
func (s Store) BuildTree() (*Tree, error) {
	folders := 0
	for _, e := range s.entries {
		if e.Kind == KindFolder {
			folders++
		}
	}

	resolves := func(e Entry) bool {
		cur := e.Parent
		for steps := 0; steps <= folders; steps++ {
			if cur == Root {
				return true
			}
			i, ok := s.index[cur]
			if !ok || s.entries[i].Kind != KindFolder {
				return false
			}
			cur = s.entries[i].Parent
		}
		return false
	}

	root := &Node{Name: Root}
	nodes := map[string]*Node{Root: root}
	var unresolved []string
	ok := make(map[string]bool, len(s.entries))
	for _, e := range s.entries {
		if !resolves(e) {
			unresolved = append(unresolved, e.Name)
			continue
		}
		ok[e.Name] = true
		if e.Kind == KindFolder {
			nodes[e.Name] = &Node{Name: e.Name}
		}
	}

	for _, e := range s.entries {
		if !ok[e.Name] {
			continue
		}
		parent := nodes[e.Parent]
		if e.Kind == KindFolder {
			parent.Folders = append(parent.Folders, nodes[e.Name])
		} else {
			parent.Entries = append(parent.Entries, e.Name)
		}
	}

	t := &Tree{Root: root}
	if len(unresolved) > 0 {
		return t, &UnresolvedError{Names: unresolved}
	}
	return t, nil
}
