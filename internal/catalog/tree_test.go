package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTree(t *testing.T) {
	s := sample(t)
	s, err := s.Append(NewFolder("Nested", "Games"))
	require.NoError(t, err)

	tree, err := s.BuildTree()
	require.NoError(t, err)

	root := tree.Root
	assert.Equal(t, Root, root.Name)
	assert.Equal(t, []string{"Beta", "Extras", "Duo"}, root.Entries)
	require.Len(t, root.Folders, 1)

	games := root.Folders[0]
	assert.Equal(t, "Games", games.Name)
	assert.Equal(t, []string{"Alpha"}, games.Entries)
	require.Len(t, games.Folders, 1)
	assert.Equal(t, "Nested", games.Folders[0].Name)

	assert.Same(t, games.Folders[0], tree.Find("Nested"))
	assert.Nil(t, tree.Find("Beta"))
}

func TestBuildTree_ReportsUnresolvedChains(t *testing.T) {
	data := "A,folder,not favorite,B\r\n" +
		"B,folder,not favorite,A\r\n" +
		"Inside,game,not favorite,A,inside.exe,\r\n" +
		"Fine,game,not favorite,.,fine.exe,\r\n"

	s, _, err := Load([]byte(data), nil)
	require.NoError(t, err)

	tree, err := s.BuildTree()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedParent))

	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, []string{"A", "B", "Inside"}, unresolved.Names)

	require.NotNil(t, tree)
	assert.Equal(t, []string{"Fine"}, tree.Root.Entries)
	assert.Empty(t, tree.Root.Folders)
}

func TestBuildTree_DanglingParent(t *testing.T) {
	s, _, err := Load([]byte("Lost,game,not favorite,Gone,lost.exe,\n"), nil)
	require.NoError(t, err)

	_, err = s.BuildTree()
	assert.ErrorIs(t, err, ErrUnresolvedParent)
}
