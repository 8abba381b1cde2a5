package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fastattackv/apy-launcher/internal/remote"
	"github.com/fastattackv/apy-launcher/internal/sound"
)

type recordingSound struct {
	cues []sound.Cue
}

func (r *recordingSound) Play(c sound.Cue) { r.cues = append(r.cues, c) }

func TestNonInteractive(t *testing.T) {
	var out bytes.Buffer
	snd := &recordingSound{}
	p := New(Config{NonInteractive: true, Sound: snd, Out: &out, In: strings.NewReader("")})

	ok, err := p.Confirm("Install?", "")
	if err != nil || !ok {
		t.Errorf("Confirm() = %v, %v, want true", ok, err)
	}

	i, err := p.Choice("Pick", []string{"a", "b"})
	if err != nil || i != 0 {
		t.Errorf("Choice() = %d, %v, want 0", i, err)
	}

	if _, err := p.Choice("Pick", nil); err == nil {
		t.Error("Choice() expected error without options")
	}

	p.WaitForKey("Press Enter")
	if out.Len() != 0 {
		t.Errorf("WaitForKey() printed %q in non-interactive mode", out.String())
	}
	if len(snd.cues) != 0 {
		t.Errorf("cues = %v, want none", snd.cues)
	}
}

func TestWaitForKey(t *testing.T) {
	var out bytes.Buffer
	p := New(Config{Out: &out, In: strings.NewReader("\n")})
	p.WaitForKey("Press Enter to exit...")
	if out.String() != "Press Enter to exit..." {
		t.Errorf("output = %q", out.String())
	}
}

func TestBranchMenu(t *testing.T) {
	tests := []struct {
		name    string
		answers *Answers
		want    string
		wantErr bool
	}{
		{"main", &Answers{Choice: 0}, remote.BranchMain, false},
		{"development", &Answers{Choice: 1}, remote.BranchDevelopment, false},
		{"canceled", &Answers{Err: ErrCanceled}, "", true},
		{"out of range", &Answers{Choice: 5}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BranchMenu(tt.answers, remote.BranchMain)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BranchMenu() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BranchMenu() = %q, want %q", got, tt.want)
			}
			if len(tt.answers.Asked) != 1 {
				t.Errorf("asked %v, want one question", tt.answers.Asked)
			}
		})
	}
}

func TestBranchMenu_Canceled(t *testing.T) {
	_, err := BranchMenu(&Answers{Err: ErrCanceled}, "")
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("BranchMenu() error = %v, want %v", err, ErrCanceled)
	}
}
