// Package settings reads and writes the launcher's params.APYL file: one
// key=value line per setting.
package settings

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fastattackv/apy-launcher/internal/install"
)

// File is the settings file name inside an installation
const File = "params.APYL"

// Setting keys in the order they are written
const (
	KeyLanguage             = "language"
	KeyAppearance           = "appearance"
	KeySize                 = "size"
	KeyDefaultFilter        = "defaultfilter"
	KeyStopLauncherWhenGame = "stoplauncherwhengame"
	KeyLastGame             = "lastgame"
	KeyIgnoredMessages      = "ignoredmessages"
	KeyBranch               = "branch"
)

var keys = []string{
	KeyLanguage, KeyAppearance, KeySize, KeyDefaultFilter,
	KeyStopLauncherWhenGame, KeyLastGame, KeyIgnoredMessages, KeyBranch,
}

// Release branches accepted in the branch setting
const (
	BranchMain        = "main"
	BranchDevelopment = "Development"
)

const maxFilter = 6

var (
	// ErrMissing is returned when a setting is absent from the file
	ErrMissing = errors.New("setting missing")

	// ErrInvalidBranch is returned for a branch other than main or Development
	ErrInvalidBranch = errors.New("invalid branch")

	// ErrNoLanguage is returned when no language file can back the defaults
	ErrNoLanguage = errors.New("no language file found")
)

// Settings mirrors params.APYL
type Settings struct {
	Language             string
	Appearance           string
	Size                 string
	DefaultFilter        int
	StopLauncherWhenGame bool
	LastGame             string
	IgnoredMessages      []int
	Branch               string
}

// Defaults returns the settings written for a fresh installation
func Defaults(language string) *Settings {
	return &Settings{
		Language:   language,
		Appearance: "dark",
		Size:       "1280x720",
		Branch:     BranchMain,
	}
}

// ValidBranch reports whether branch can be updated from
func ValidBranch(branch string) bool {
	return branch == BranchMain || branch == BranchDevelopment
}

// Parse reads settings. Invalid values fall back to their default with a
// warning; unknown lines are logged and skipped. Every key must be present.
func Parse(data []byte, logger *zap.Logger) (*Settings, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Settings{}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, "=")
		if !slices.Contains(keys, key) {
			logger.Warn("unknown settings line", zap.String("line", line))
			continue
		}
		if err := s.set(key, value); err != nil {
			logger.Warn("invalid setting value", zap.String("key", key), zap.String("value", value), zap.Error(err))
			if key == KeyBranch {
				continue
			}
		}
		seen[key] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	for _, key := range keys {
		if !seen[key] {
			return nil, fmt.Errorf("%w: %s", ErrMissing, key)
		}
	}
	return s, nil
}

func (s *Settings) set(key, value string) error {
	switch key {
	case KeyLanguage:
		s.Language = value
	case KeyAppearance:
		s.Appearance = value
	case KeySize:
		s.Size = value
	case KeyDefaultFilter:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > maxFilter {
			s.DefaultFilter = 0
			return fmt.Errorf("filter must be between 0 and %d", maxFilter)
		}
		s.DefaultFilter = n
	case KeyStopLauncherWhenGame:
		s.StopLauncherWhenGame = value == "1"
		if value != "0" && value != "1" {
			return errors.New("expected 0 or 1")
		}
	case KeyLastGame:
		s.LastGame = value
	case KeyIgnoredMessages:
		s.IgnoredMessages = nil
		var bad []string
		for _, part := range strings.Split(value, ",") {
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id < 0 {
				bad = append(bad, part)
				continue
			}
			s.IgnoredMessages = append(s.IgnoredMessages, id)
		}
		if len(bad) > 0 {
			return fmt.Errorf("non-numeric message ids %q", bad)
		}
	case KeyBranch:
		if !ValidBranch(value) {
			return fmt.Errorf("%w: %q", ErrInvalidBranch, value)
		}
		s.Branch = value
	}
	return nil
}

// Bytes serializes the settings in key order
func (s *Settings) Bytes() []byte {
	ids := make([]string, len(s.IgnoredMessages))
	for i, id := range s.IgnoredMessages {
		ids[i] = strconv.Itoa(id)
	}
	stop := "0"
	if s.StopLauncherWhenGame {
		stop = "1"
	}
	values := map[string]string{
		KeyLanguage:             s.Language,
		KeyAppearance:           s.Appearance,
		KeySize:                 s.Size,
		KeyDefaultFilter:        strconv.Itoa(s.DefaultFilter),
		KeyStopLauncherWhenGame: stop,
		KeyLastGame:             s.LastGame,
		KeyIgnoredMessages:      strings.Join(ids, ","),
		KeyBranch:               s.Branch,
	}

	var b bytes.Buffer
	for _, key := range keys {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(values[key])
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Load reads the settings of the installation at baseDir
func Load(baseDir string, logger *zap.Logger) (*Settings, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, File))
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return Parse(data, logger)
}

// Save writes the settings of the installation at baseDir
func Save(baseDir string, s *Settings) error {
	if err := os.WriteFile(filepath.Join(baseDir, File), s.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// LoadOrCreate reads the settings, writing defaults first when the file is
// missing. English is preferred for the default language, otherwise the
// first installed language file.
func LoadOrCreate(baseDir string, logger *zap.Logger) (*Settings, error) {
	s, err := Load(baseDir, logger)
	if !errors.Is(err, os.ErrNotExist) {
		return s, err
	}

	if logger != nil {
		logger.Warn("settings file not found, recreating it", zap.String("file", File))
	}
	languages, err := install.LanguageFiles(baseDir)
	if err != nil {
		return nil, err
	}
	if len(languages) == 0 {
		return nil, ErrNoLanguage
	}
	language := strings.TrimSuffix(languages[0], filepath.Ext(languages[0]))
	for _, name := range languages {
		if strings.EqualFold(name, "english"+install.LanguageExt) {
			language = "english"
			break
		}
	}

	s = Defaults(language)
	if err := Save(baseDir, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadBranch returns only the branch setting, without requiring the rest of
// the file to be valid
func ReadBranch(baseDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, File))
	if err != nil {
		return "", fmt.Errorf("failed to read settings: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		value, ok := strings.CutPrefix(strings.TrimRight(scanner.Text(), "\r"), KeyBranch+"=")
		if !ok {
			continue
		}
		if !ValidBranch(value) {
			return "", fmt.Errorf("%w in %s: %q", ErrInvalidBranch, File, value)
		}
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrMissing, KeyBranch)
}

// Ignored reports whether message id was dismissed
func (s *Settings) Ignored(id int) bool {
	return slices.Contains(s.IgnoredMessages, id)
}

// Ignore dismisses message id
func (s *Settings) Ignore(id int) {
	if !s.Ignored(id) {
		s.IgnoredMessages = append(s.IgnoredMessages, id)
	}
}

// ForgetGames clears the last game when it is among names. It reports
// whether anything changed.
func (s *Settings) ForgetGames(names []string) bool {
	if s.LastGame == "" || !slices.Contains(names, s.LastGame) {
		return false
	}
	s.LastGame = ""
	return true
}

// RenameGame follows a rename of the last game
func (s *Settings) RenameGame(oldName, newName string) bool {
	if s.LastGame != oldName || oldName == "" {
		return false
	}
	s.LastGame = newName
	return true
}
