// Package prompt asks the user questions on the terminal using charmbracelet/huh.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/fastattackv/apy-launcher/internal/remote"
	"github.com/fastattackv/apy-launcher/internal/sound"
)

// ErrCanceled is returned when the user aborts a prompt
var ErrCanceled = errors.New("canceled by user")

// SoundPlayer plays a cue when a choice is made
type SoundPlayer interface {
	Play(c sound.Cue)
}

// Prompter asks questions. Commands take one so tests can answer for the user.
type Prompter interface {
	Print(message string)
	Confirm(title, description string) (bool, error)
	Choice(title string, options []string) (int, error)
	WaitForKey(message string)
}

// Config holds configuration for prompting
type Config struct {
	// NonInteractive answers yes to confirmations and the first option to choices
	NonInteractive bool
	Sound          SoundPlayer
	Out            io.Writer
	In             io.Reader
}

// HuhPrompter implements Prompter with huh forms
type HuhPrompter struct {
	cfg Config
}

// New creates a prompter
func New(cfg Config) *HuhPrompter {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	return &HuhPrompter{cfg: cfg}
}

func (p *HuhPrompter) Print(message string) {
	fmt.Fprintln(p.cfg.Out, message)
}

func (p *HuhPrompter) chime(c sound.Cue) {
	if p.cfg.Sound != nil {
		p.cfg.Sound.Play(c)
	}
}

// Confirm asks a yes/no question
func (p *HuhPrompter) Confirm(title, description string) (bool, error) {
	if p.cfg.NonInteractive {
		return true, nil
	}

	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, ErrCanceled
		}
		return false, fmt.Errorf("confirm prompt: %w", err)
	}

	if confirmed {
		p.chime(sound.Success)
	}
	return confirmed, nil
}

// Choice asks the user to pick an option and returns its index
func (p *HuhPrompter) Choice(title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options provided")
	}
	if p.cfg.NonInteractive {
		return 0, nil
	}

	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, i)
	}

	var selected int
	err := huh.NewSelect[int]().
		Title(title).
		Options(opts...).
		Value(&selected).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return 0, ErrCanceled
		}
		return 0, fmt.Errorf("choice prompt: %w", err)
	}

	p.chime(sound.Success)
	return selected, nil
}

// WaitForKey waits for Enter
func (p *HuhPrompter) WaitForKey(message string) {
	if p.cfg.NonInteractive {
		return
	}
	fmt.Fprint(p.cfg.Out, message)
	bufio.NewReader(p.cfg.In).ReadBytes('\n')
}

// Branches are the update branches the launcher can follow, in menu order
var Branches = []struct {
	Name        string
	Description string
}{
	{remote.BranchMain, "Stable releases, recommended for most users"},
	{remote.BranchDevelopment, "Early builds with the latest changes, may have bugs"},
}

// BranchMenu asks which update branch to follow
func BranchMenu(p Prompter, current string) (string, error) {
	options := make([]string, len(Branches))
	for i, b := range Branches {
		label := fmt.Sprintf("%s: %s", b.Name, b.Description)
		if b.Name == current {
			label += " (current)"
		}
		options[i] = label
	}

	i, err := p.Choice("Select the update branch", options)
	if err != nil {
		return "", err
	}
	return Branches[i].Name, nil
}

// Answers is a Prompter with fixed responses
type Answers struct {
	Confirmed bool
	Choice    int
	Err       error
	Out       io.Writer

	Asked []string
}

func (a *Answers) Print(message string) {
	if a.Out != nil {
		fmt.Fprintln(a.Out, message)
	}
}

func (a *Answers) Confirm(title, _ string) (bool, error) {
	a.Asked = append(a.Asked, title)
	return a.Confirmed, a.Err
}

func (a *Answers) Choice(title string, options []string) (int, error) {
	a.Asked = append(a.Asked, title)
	if a.Err != nil {
		return 0, a.Err
	}
	if a.Choice < 0 || a.Choice >= len(options) {
		return 0, fmt.Errorf("choice %d out of range", a.Choice)
	}
	return a.Choice, nil
}

func (a *Answers) WaitForKey(string) {}
