package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RowLayouts(t *testing.T) {
	data := strings.Join([]string{
		"Games,folder,favorite,.",
		"Alpha,game,not favorite,Games,C:/games/alpha.exe,icons/Alpha.png",
		"Beta,bonus,hidden,.,url shortcuts/Beta.url,",
		"Duo,config,not favorite,.,icons/Duo.png,Alpha,Beta",
	}, "\r\n") + "\r\n"

	s, warnings, err := Load([]byte(data), nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"Games", "Alpha", "Beta", "Duo"}, s.Keys())

	games, _ := s.Get("Games")
	assert.Equal(t, Entry{Name: "Games", Kind: KindFolder, State: StateFavorite, Parent: Root}, games)

	alpha, _ := s.Get("Alpha")
	assert.Equal(t, "Games", alpha.Parent)
	assert.Equal(t, "C:/games/alpha.exe", alpha.Target)
	assert.Equal(t, "icons/Alpha.png", alpha.Icon)

	beta, _ := s.Get("Beta")
	assert.Equal(t, KindBonus, beta.Kind)
	assert.Equal(t, StateHidden, beta.State)
	assert.Empty(t, beta.Icon)

	duo, _ := s.Get("Duo")
	assert.Equal(t, []string{"Alpha", "Beta"}, duo.Members)
	assert.Equal(t, "icons/Duo.png", duo.Icon)
}

func TestLoad_SkipsMalformedRows(t *testing.T) {
	data := strings.Join([]string{
		"Alpha,game,not favorite,.,alpha.exe,",
		"Weird,spaceship,not favorite,.,x,",
		"Short,game,not favorite",
		"Alpha,game,favorite,.,other.exe,",
		"Bad|Name,game,not favorite,.,x.exe,",
		"Beta,game,sleepy,.,beta.exe,",
		"Gamma,game,not favorite,.,gamma.exe,",
	}, "\n")

	s, warnings, err := Load([]byte(data), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Gamma"}, s.Keys())
	require.Len(t, warnings, 5)
	assert.Equal(t, 2, warnings[0].Line)
	assert.Equal(t, "Weird", warnings[0].Name)
	assert.Contains(t, warnings[2].Reason, "duplicate")

	alpha, _ := s.Get("Alpha")
	assert.Equal(t, "alpha.exe", alpha.Target, "first row wins on duplicates")
}

func TestLoad_KeepsDanglingReferencesWithWarning(t *testing.T) {
	data := "Alpha,game,not favorite,Missing,alpha.exe,\nDuo,config,not favorite,.,,Alpha,Ghost\n"

	s, warnings, err := Load([]byte(data), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Duo"}, s.Keys())
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Error(), "Missing")
	assert.Contains(t, warnings[1].Error(), "Ghost")
}

func TestSerialize_RoundTrip(t *testing.T) {
	s := sample(t)
	s, err := s.Append(NewApp("Halo, Reach", KindGame, `C:/Program Files/"Halo"/halo.exe`, ""))
	require.NoError(t, err)

	data, err := s.Serialize()
	require.NoError(t, err)

	loaded, warnings, err := Load(data, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, s.Keys(), loaded.Keys())
	assert.Equal(t, s.Entries(), loaded.Entries())
}

func TestSerialize_ByteForByte(t *testing.T) {
	data := "Games,folder,not favorite,.\r\n" +
		"Alpha,game,favorite,Games,C:/games/alpha.exe,icons/Alpha.png\r\n" +
		" Spaced,game,not favorite,., C:/games/spaced.exe,\r\n" +
		"Duo,config,not favorite,.,,Alpha\r\n"

	s, warnings, err := Load([]byte(data), nil)
	require.NoError(t, err)
	require.Empty(t, warnings)

	out, err := s.Serialize()
	require.NoError(t, err)
	assert.Equal(t, data, string(out))
}

func TestReadWriteRows(t *testing.T) {
	rows := [][]string{{"a", "b,c", `say "hi"`}, {"d"}, {" lead", "two\nlines"}}

	data, err := WriteRows(rows)
	require.NoError(t, err)
	assert.Equal(t, "a,\"b,c\",\"say \"\"hi\"\"\"\r\nd\r\n lead,\"two\nlines\"\r\n", string(data))

	got, err := ReadRows(data)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}
