package engine

import (
	"time"

	"github.com/jjbbllkk/acidgen/internal/pattern"
)

const (
	// glideTime is the fixed portamento duration. Slides always take
	// 50ms regardless of tempo, like the hardware they imitate.
	glideTime = 0.05

	// gateTime is the pulse length of a normal (non-slid) note.
	gateTime = 0.02

	// retrigGapTime forces the gate low between back-to-back notes so
	// downstream envelopes see a distinct re-attack.
	retrigGapTime = 0.001

	// Clock intervals outside this window are glitches or the very
	// first edge and never update the tempo estimate.
	minClockPeriod = 0.01
	maxClockPeriod = 2.0

	// defaultClockPeriod is roughly 120 BPM sixteenths, used until a
	// real interval has been measured.
	defaultClockPeriod = 0.125

	// gateBridge scales the measured period for tied gates so a slid
	// note holds through the next clock edge.
	gateBridge = 1.1
)

// Params are the live controls, read fresh on every call. They are not
// part of the engine's persisted identity.
type Params struct {
	PatternLength int     // 1-64
	Density       float64 // 0-100
	Spread        float64 // 0-100
	AccentDensity float64 // 0-100
	SlideDensity  float64 // 0-100
	Scale         pattern.Scale
	RootNote      int // 0-11
	OctaveOffset  int // -2..2

	// RestOutsideSpread switches the resolver from quantize-to-root to
	// resting when a step falls outside the spread pool.
	RestOutsideSpread bool
}

func (p Params) clamp() Params {
	if p.PatternLength < 1 {
		p.PatternLength = 1
	}
	if p.PatternLength > pattern.MaxSteps {
		p.PatternLength = pattern.MaxSteps
	}
	p.Density = clamp01e2(p.Density)
	p.Spread = clamp01e2(p.Spread)
	p.AccentDensity = clamp01e2(p.AccentDensity)
	p.SlideDensity = clamp01e2(p.SlideDensity)
	if p.Scale < 0 || int(p.Scale) >= pattern.NumScales {
		p.Scale = pattern.Minor
	}
	p.RootNote = clampInt(p.RootNote, 0, 11)
	p.OctaveOffset = clampInt(p.OctaveOffset, -2, 2)
	return p
}

func clamp01e2(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Inputs are the continuous control signals for one sample. Edges are
// detected internally, so callers just feed the raw levels.
type Inputs struct {
	Clock    float64
	Reset    float64
	Generate float64
}

// Outputs are the control signals emitted for one sample. Pitch is
// linear at 1/12 per semitone with 0 at C0.
type Outputs struct {
	Pitch  float64
	Gate   bool
	Accent bool
	Slide  bool
	Step   int // current step, -1 before the first clock
}

// Engine owns the master pattern and all playback state. It is not safe
// for concurrent use; the host calls Process once per output sample from
// a single goroutine.
type Engine struct {
	master *pattern.Master
	seed   uint32

	step        int // -1 = not yet started
	slideActive bool
	pitch       float64
	slideTarget float64
	slideRate   float64 // per-sample increment, 0 = not sliding

	sinceClock float64
	period     float64

	retrigGap float64

	clockTrig schmittTrigger
	resetTrig schmittTrigger
	genTrig   schmittTrigger

	gatePulse   pulseGen
	accentPulse pulseGen

	// now supplies entropy for generate events; swapped out in tests.
	now func() int64
}

// New creates an engine with a pattern generated from seed.
func New(seed uint32) *Engine {
	e := &Engine{
		master: pattern.NewMaster(),
		seed:   seed,
		step:   -1,
		period: defaultClockPeriod,
		now:    func() int64 { return time.Now().Unix() },
	}
	e.master.Generate(seed)
	return e
}

// Master exposes the pattern for display and mute editing.
func (e *Engine) Master() *pattern.Master { return e.master }

// Seed returns the seed of the current pattern.
func (e *Engine) Seed() uint32 { return e.seed }

// Step returns the current playback position, -1 before the first clock.
func (e *Engine) Step() int { return e.step }

// ClockPeriod returns the measured clock period in seconds.
func (e *Engine) ClockPeriod() float64 { return e.period }

// ToggleMute flips the user mute on a step.
func (e *Engine) ToggleMute(step int) {
	if step >= 0 && step < pattern.MaxSteps {
		e.master.Muted[step] = !e.master.Muted[step]
	}
}

// Reset returns playback to the pre-first-step state without touching
// the pattern. Equivalent to a rising edge on the reset input.
func (e *Engine) Reset() {
	e.step = -1
	e.slideActive = false
	e.retrigGap = 0
}

// GenerateNow replaces the pattern with one from a freshly derived seed
// and clears all mutes. Playback position is kept.
func (e *Engine) GenerateNow() {
	e.seed = uint32(e.now()) ^ (e.seed*1664525 + 1013904223)
	e.master.Generate(e.seed)
}

// Process runs one sample of the state machine and returns the outputs.
func (e *Engine) Process(sampleTime float64, in Inputs, p Params) Outputs {
	p = p.clamp()
	quantize := !p.RestOutsideSpread

	if e.genTrig.Process(in.Generate) {
		e.GenerateNow()
	}
	if e.resetTrig.Process(in.Reset) {
		e.Reset()
	}

	e.sinceClock += sampleTime

	if e.clockTrig.Process(in.Clock) {
		if e.sinceClock > minClockPeriod && e.sinceClock < maxClockPeriod {
			e.period = e.sinceClock
		}
		e.sinceClock = 0

		e.step++
		if e.step >= p.PatternLength {
			e.step = 0
		}

		step := e.master.Resolve(e.step, p.Density, p.Spread, p.AccentDensity, p.SlideDensity, quantize)
		if !step.IsRest() {
			note := pattern.NoteForDegree(step.Note, p.Scale, p.RootNote, step.Octave+p.OctaveOffset)
			target := float64(note) / 12.0

			prev := (e.step - 1 + p.PatternLength) % p.PatternLength
			prevStep := e.master.Resolve(prev, p.Density, p.Spread, p.AccentDensity, p.SlideDensity, quantize)

			if !prevStep.IsRest() && prevStep.Slide {
				// Sliding into this note: no retrigger, glide to the
				// target over the fixed time.
				e.slideTarget = target
				e.slideRate = (target - e.pitch) * sampleTime / glideTime
				if step.Slide {
					// Tie onward: hold the gate across the next edge.
					e.gatePulse.Trigger(e.period * gateBridge)
				}
			} else {
				// Normal attack: snap and retrigger.
				e.pitch = target
				e.slideTarget = target
				e.slideRate = 0

				if e.gatePulse.Pending() {
					e.retrigGap = retrigGapTime
				}

				gate := gateTime
				if step.Slide {
					gate = e.period * gateBridge
				}
				e.gatePulse.Trigger(gate)
				if step.Accent {
					e.accentPulse.Trigger(gate)
				}
			}
			e.slideActive = step.Slide
		} else {
			e.slideActive = false
		}
	}

	// Advance any glide in progress, clamping on overshoot.
	if e.slideRate != 0 {
		e.pitch += e.slideRate
		if (e.slideRate > 0 && e.pitch >= e.slideTarget) ||
			(e.slideRate < 0 && e.pitch <= e.slideTarget) {
			e.pitch = e.slideTarget
			e.slideRate = 0
		}
	}

	out := Outputs{Pitch: e.pitch, Step: e.step}

	gateHigh := e.gatePulse.Process(sampleTime)
	if e.retrigGap > 0 {
		e.retrigGap -= sampleTime
		gateHigh = false
	}
	out.Gate = gateHigh
	out.Accent = e.accentPulse.Process(sampleTime)

	if e.step >= 0 && e.step < p.PatternLength {
		out.Slide = e.master.Resolve(e.step, p.Density, p.Spread, p.AccentDensity, p.SlideDensity, quantize).Slide
	}

	return out
}
