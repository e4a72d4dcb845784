// Package audio plays the engine's control outputs through a built-in
// monophonic voice, pulling samples on demand.
package audio

import (
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
	"gitlab.com/gomidi/midi/v2"

	"github.com/jjbbllkk/acidgen/internal/engine"
	"github.com/jjbbllkk/acidgen/internal/pattern"
)

const (
	sampleRate   = 44100
	channelCount = 2 // stereo
	bitDepth     = 2 // 16-bit

	// baseNote maps the engine's 0-pitch to MIDI C2, a bass register.
	baseNote = 36
)

// StepView is one display entry: the resolved step plus its mute flag.
type StepView struct {
	pattern.Step
	Muted bool
}

// Player owns the engine and renders it in real time. The audio callback
// synthesizes a square clock from the configured BPM, feeds it to the
// engine's clock input once per sample and turns the resulting
// pitch/gate/accent CVs into sound. All entry points lock the same mutex
// the callback holds, so the engine only ever runs on one execution
// context at a time.
type Player struct {
	mu     sync.Mutex
	otoCtx *oto.Context
	player *oto.Player

	eng    *engine.Engine
	params engine.Params
	bpm    float64

	playing    bool
	clockPhase float64

	// Voice state.
	oscPhase float64
	env      float64
	filt     float64
	boost    float64

	lastOut  engine.Outputs
	lastGate bool

	// Optional live MIDI output, driven from gate edges.
	send        func(msg midi.Message) error
	soundingKey int // -1 when no note is held
}

// NewPlayer opens the audio device and starts the render loop with the
// clock stopped; the engine stays silent until Play.
func NewPlayer(eng *engine.Engine, params engine.Params, bpm float64) (*Player, error) {
	p := &Player{
		eng:         eng,
		params:      params,
		bpm:         bpm,
		soundingKey: -1,
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}
	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	p.otoCtx = otoCtx
	p.player = otoCtx.NewPlayer(&playerReader{p: p})
	p.player.Play()
	return p, nil
}

// playerReader implements io.Reader for continuous sample generation.
type playerReader struct {
	p *Player
}

func (r *playerReader) Read(buf []byte) (int, error) {
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()

	const dt = 1.0 / sampleRate
	numSamples := len(buf) / (channelCount * bitDepth)
	stepsPerSecond := p.bpm / 60.0 * 4.0 // sixteenth notes

	for i := 0; i < numSamples; i++ {
		// The engine only understands an external clock, so make one:
		// a square that is high for the first half of each step.
		var clock float64
		if p.playing {
			p.clockPhase += dt * stepsPerSecond
			if p.clockPhase >= 1.0 {
				p.clockPhase -= 1.0
			}
			if p.clockPhase < 0.5 {
				clock = 10.0
			}
		}

		out := p.eng.Process(dt, engine.Inputs{Clock: clock}, p.params)
		p.lastOut = out
		p.updateMIDI(out)

		sample := p.voiceSample(out)

		v := int16(sample * 32767)
		idx := i * channelCount * bitDepth
		buf[idx] = byte(v)
		buf[idx+1] = byte(v >> 8)
		buf[idx+2] = byte(v)
		buf[idx+3] = byte(v >> 8)
	}

	return len(buf), nil
}

// voiceSample renders one sample of the 303-flavored voice: a sawtooth
// tracking the pitch CV through a one-pole lowpass, with a gate-driven
// envelope and an accent boost.
func (p *Player) voiceSample(out engine.Outputs) float64 {
	note := out.Pitch*12 + baseNote
	freq := 440.0 * math.Pow(2.0, (note-69.0)/12.0)

	p.oscPhase += freq / sampleRate
	if p.oscPhase >= 1.0 {
		p.oscPhase -= 1.0
	}
	osc := 2*p.oscPhase - 1 // sawtooth

	if out.Gate {
		if p.env < 1.0 {
			p.env += 0.005
			if p.env > 1.0 {
				p.env = 1.0
			}
		}
		if out.Accent {
			p.boost = 1.0
		}
	} else {
		p.env *= 0.9990
	}
	p.boost *= 0.9995

	// Accent opens the filter as well as raising the level.
	cutoff := 0.10 + 0.25*p.boost
	p.filt += cutoff * (osc - p.filt)

	level := 0.35 * (1.0 + 0.6*p.boost)
	sample := p.filt * p.env * level
	if sample > 1.0 {
		sample = 1.0
	} else if sample < -1.0 {
		sample = -1.0
	}
	return sample
}

// updateMIDI mirrors gate edges onto the configured MIDI output.
func (p *Player) updateMIDI(out engine.Outputs) {
	if p.send == nil {
		p.lastGate = out.Gate
		return
	}
	if out.Gate && !p.lastGate {
		key := int(math.Round(out.Pitch*12)) + baseNote
		if key < 0 {
			key = 0
		} else if key > 127 {
			key = 127
		}
		velocity := uint8(100)
		if out.Accent {
			velocity = 127
		}
		if p.soundingKey >= 0 {
			_ = p.send(midi.NoteOff(0, uint8(p.soundingKey)))
		}
		_ = p.send(midi.NoteOn(0, uint8(key), velocity))
		p.soundingKey = key
	} else if !out.Gate && p.lastGate && p.soundingKey >= 0 {
		_ = p.send(midi.NoteOff(0, uint8(p.soundingKey)))
		p.soundingKey = -1
	}
	p.lastGate = out.Gate
}

// SetMIDISend routes gate edges to a MIDI output, or disables mirroring
// when nil.
func (p *Player) SetMIDISend(send func(msg midi.Message) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if send == nil && p.send != nil && p.soundingKey >= 0 {
		_ = p.send(midi.NoteOff(0, uint8(p.soundingKey)))
		p.soundingKey = -1
	}
	p.send = send
}

// Play starts the clock.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	p.clockPhase = 0
}

// Stop halts the clock. The engine holds its state; Play resumes from
// the current step.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	if p.send != nil && p.soundingKey >= 0 {
		_ = p.send(midi.NoteOff(0, uint8(p.soundingKey)))
		p.soundingKey = -1
	}
}

// Playing reports whether the clock is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// SetParams replaces the live controls read by the engine each sample.
func (p *Player) SetParams(params engine.Params) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params = params
}

// Params returns a copy of the live controls.
func (p *Player) Params() engine.Params {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

// SetBPM changes the internal clock rate, clamped to 20-300.
func (p *Player) SetBPM(bpm float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bpm < 20 {
		bpm = 20
	} else if bpm > 300 {
		bpm = 300
	}
	p.bpm = bpm
}

// BPM returns the internal clock rate.
func (p *Player) BPM() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bpm
}

// Generate replaces the pattern, like the panel button.
func (p *Player) Generate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eng.GenerateNow()
}

// Reset rewinds playback to before the first step.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eng.Reset()
}

// ToggleMute flips a user mute on the pattern.
func (p *Player) ToggleMute(step int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eng.ToggleMute(step)
}

// Step returns the current playback position.
func (p *Player) Step() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eng.Step()
}

// Seed returns the current pattern seed.
func (p *Player) Seed() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eng.Seed()
}

// Outputs returns the most recent engine outputs, for display.
func (p *Player) Outputs() engine.Outputs {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOut
}

// View resolves all pool steps under the live controls into dst.
func (p *Player) View(dst *[pattern.MaxSteps]StepView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.eng.Master()
	for i := range dst {
		dst[i] = StepView{
			Step: m.Resolve(i, p.params.Density, p.params.Spread,
				p.params.AccentDensity, p.params.SlideDensity, !p.params.RestOutsideSpread),
			Muted: m.Muted[i],
		}
	}
}

// SnapshotState serializes the engine state.
func (p *Player) SnapshotState() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eng.Snapshot()
}

// RestoreState loads a previously saved engine state.
func (p *Player) RestoreState(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eng.Restore(data)
}

// Close stops playback. The oto player is cleaned up on collection, per
// the oto v3.4 deprecation of Close.
func (p *Player) Close() {
	p.Stop()
}
