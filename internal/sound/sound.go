// Package sound plays short audio cues while an update runs.
package sound

import (
	"bytes"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
	"go.uber.org/zap"

	"github.com/fastattackv/apy-launcher/internal/aul"
	"github.com/fastattackv/apy-launcher/internal/update"
)

//go:embed sounds/*.wav
var sounds embed.FS

// Cue names an embedded sound
type Cue string

const (
	Downloading Cue = "downloading"
	Installing  Cue = "installing"
	Success     Cue = "success"
	Error       Cue = "error"
	UpToDate    Cue = "up_to_date"
)

// backgroundVolume is the level of the looping download cue, in dB
const backgroundVolume = -2.0

// Data returns the WAV bytes of a cue
func Data(c Cue) ([]byte, error) {
	return sounds.ReadFile("sounds/" + string(c) + ".wav")
}

// output is the device cues are streamed to
type output interface {
	init(format beep.Format) error
	play(s beep.Streamer)
	clear()
}

type speakerOutput struct{}

func (speakerOutput) init(format beep.Format) error {
	return speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
}

func (speakerOutput) play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) clear()               { speaker.Clear() }

// Player plays cues. A quiet player does nothing.
type Player struct {
	quiet  bool
	logger *zap.Logger
	out    output

	initOnce sync.Once
	initErr  error

	mu         sync.Mutex
	background *effects.Volume
}

// NewPlayer creates a player on the default speaker
func NewPlayer(quiet bool, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{quiet: quiet, logger: logger, out: speakerOutput{}}
}

func (p *Player) decode(c Cue) (beep.StreamSeekCloser, error) {
	data, err := Data(c)
	if err != nil {
		return nil, fmt.Errorf("unknown cue %q: %w", c, err)
	}
	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cue %q: %w", c, err)
	}

	p.initOnce.Do(func() {
		p.logger.Debug("Setting up audio")
		p.initErr = p.out.init(format)
	})
	if p.initErr != nil {
		streamer.Close()
		return nil, fmt.Errorf("audio unavailable: %w", p.initErr)
	}
	return streamer, nil
}

// Play plays a cue and blocks until it finishes
func (p *Player) Play(c Cue) {
	if p.quiet {
		return
	}
	streamer, err := p.decode(c)
	if err != nil {
		p.logger.Debug("Couldn't play sound", zap.Error(err))
		return
	}
	defer streamer.Close()

	done := make(chan struct{})
	p.out.play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done
}

// Loop starts a cue in the background, repeating until Stop
func (p *Player) Loop(c Cue) {
	if p.quiet {
		return
	}
	streamer, err := p.decode(c)
	if err != nil {
		p.logger.Debug("Couldn't play sound", zap.Error(err))
		return
	}

	vol := &effects.Volume{
		Streamer: beep.Loop(-1, streamer),
		Base:     2,
		Volume:   backgroundVolume,
	}
	p.mu.Lock()
	p.background = vol
	p.mu.Unlock()

	p.out.play(beep.Seq(vol, beep.Callback(func() {
		streamer.Close()
	})))
}

// Stop silences every playing cue
func (p *Player) Stop() {
	if p.quiet || p.initErr != nil {
		return
	}
	p.mu.Lock()
	p.background = nil
	p.mu.Unlock()
	p.out.clear()
}

// Looping reports whether a background cue is active
func (p *Player) Looping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.background != nil
}

// StateChanged loops the download cue and marks the switch to installing
func (p *Player) StateChanged(s update.State) {
	switch s {
	case update.Downloading:
		p.Loop(Downloading)
	case update.Staging:
		p.Stop()
		p.Play(Installing)
	}
}

func (p *Player) CommandApplied(aul.Op, error) {}

// Finished plays the cue for the outcome
func (p *Player) Finished(o update.Outcome, _ time.Duration) {
	p.Stop()
	switch {
	case o.State == update.Done:
		p.Play(Success)
	case o.State == update.UpToDate:
		p.Play(UpToDate)
	case o.State.Failed():
		p.Play(Error)
	}
}

var _ update.Observer = (*Player)(nil)
