package engine

import (
	"math"
	"testing"

	"github.com/jjbbllkk/acidgen/internal/pattern"
)

const (
	testRate = 48000.0
	dt       = 1.0 / testRate
)

func baseParams() Params {
	return Params{
		PatternLength: 16,
		Density:       100,
		Spread:        100,
		Scale:         pattern.Minor,
	}
}

// flatMaster rewrites the engine's pattern to identity orderings and
// root notes with no accents or slides, so tests control every step.
func flatMaster(e *Engine) {
	m := e.Master()
	for i := range m.BarActivationOrder {
		m.BarActivationOrder[i] = i
	}
	for i := range m.ScalePriorityOrder {
		m.ScalePriorityOrder[i] = i
	}
	for i := range m.Steps {
		m.Steps[i] = pattern.MasterStep{PoolIndex: 0, Octave: 0, AccentProb: 0.99, SlideProb: 0.99}
	}
	m.ClearMutes()
}

// runLow advances n samples with all inputs at rest.
func runLow(e *Engine, p Params, n int) Outputs {
	var out Outputs
	for i := 0; i < n; i++ {
		out = e.Process(dt, Inputs{}, p)
	}
	return out
}

// clockEdge fires one rising clock edge and returns that sample's
// outputs. The following sample returns the line low again.
func clockEdge(e *Engine, p Params) Outputs {
	out := e.Process(dt, Inputs{Clock: 10}, p)
	e.Process(dt, Inputs{}, p)
	return out
}

func TestFirstClockLeavesIdle(t *testing.T) {
	e := New(1)
	flatMaster(e)
	p := baseParams()

	if e.Step() != -1 {
		t.Fatalf("fresh engine step = %d, want -1", e.Step())
	}
	out := clockEdge(e, p)
	if out.Step != 0 {
		t.Errorf("first clock advanced to step %d, want 0", out.Step)
	}
	if !out.Gate {
		t.Error("first note did not open the gate")
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	e := New(1)
	flatMaster(e)
	p := baseParams()

	clockEdge(e, p)
	clockEdge(e, p)
	if e.Step() != 1 {
		t.Fatalf("step = %d, want 1", e.Step())
	}

	e.Process(dt, Inputs{Reset: 10}, p)
	if e.Step() != -1 {
		t.Errorf("step after reset = %d, want -1", e.Step())
	}

	out := clockEdge(e, p)
	if out.Step != 0 {
		t.Errorf("step after reset+clock = %d, want 0", out.Step)
	}
}

func TestSlideGlidesOverFixedTime(t *testing.T) {
	e := New(1)
	flatMaster(e)
	m := e.Master()
	m.Steps[0].SlideProb = 0 // step 0 slides into step 1
	m.Steps[1].PoolIndex = 2 // minor third: 3 semitones, pitch 0.25

	p := baseParams()
	p.SlideDensity = 50

	// Step 0 attacks at pitch 0, then a quarter second of silence so
	// the measured period (0.25s) differs clearly from the glide time.
	clockEdge(e, p)
	runLow(e, p, 11998)

	out := e.Process(dt, Inputs{Clock: 10}, p)
	if out.Step != 1 {
		t.Fatalf("step = %d, want 1", out.Step)
	}
	if out.Pitch > 0.01 {
		t.Fatalf("pitch snapped to %v on a slid transition", out.Pitch)
	}

	// Halfway through the 50ms glide the pitch should be near half the
	// interval, regardless of the 0.25s clock period.
	half := runLow(e, p, int(glideTime/2/dt)-1)
	if half.Pitch < 0.10 || half.Pitch > 0.15 {
		t.Errorf("pitch at glide midpoint = %v, want ~0.125", half.Pitch)
	}

	done := runLow(e, p, int(glideTime/2/dt)+2)
	if done.Pitch != 0.25 {
		t.Errorf("pitch after glide = %v, want exactly 0.25", done.Pitch)
	}
}

func TestSlideWrapsFromLastStep(t *testing.T) {
	e := New(1)
	flatMaster(e)
	m := e.Master()
	m.Steps[0].PoolIndex = 2 // pitch 0.25
	m.Steps[1].SlideProb = 0 // last step slides back into step 0

	p := baseParams()
	p.PatternLength = 2
	p.SlideDensity = 50

	clockEdge(e, p) // step 0, attack at 0.25
	runLow(e, p, 2400)
	clockEdge(e, p) // step 1, attack at 0
	runLow(e, p, 2400)

	out := e.Process(dt, Inputs{Clock: 10}, p) // wraps to step 0
	if out.Step != 0 {
		t.Fatalf("step = %d, want 0", out.Step)
	}
	if out.Pitch > 0.1 {
		t.Errorf("pitch snapped to %v; previous-step slide lookup must wrap", out.Pitch)
	}
}

func TestRetriggerGapForcesGateLow(t *testing.T) {
	e := New(1)
	flatMaster(e)
	p := baseParams()

	clockEdge(e, p)
	// Second edge 15ms later, while the 20ms gate is still high.
	runLow(e, p, 718)
	out := e.Process(dt, Inputs{Clock: 10}, p)
	if out.Gate {
		t.Fatal("gate stayed high across a retriggered attack")
	}

	lowSamples := 1
	for i := 0; i < 200; i++ {
		out = e.Process(dt, Inputs{}, p)
		if out.Gate {
			break
		}
		lowSamples++
	}
	if !out.Gate {
		t.Fatal("gate never came back up after the retrigger gap")
	}
	// ~1ms gap at 48kHz.
	if lowSamples < 40 || lowSamples > 60 {
		t.Errorf("forced-low gap lasted %d samples, want ~48", lowSamples)
	}
}

func TestClockPeriodSanityBounds(t *testing.T) {
	e := New(2)
	flatMaster(e)
	p := baseParams()

	if e.ClockPeriod() != defaultClockPeriod {
		t.Fatalf("initial period = %v, want %v", e.ClockPeriod(), defaultClockPeriod)
	}

	// 5ms interval: below the floor, must not update the estimate.
	clockEdge(e, p)
	runLow(e, p, 238)
	clockEdge(e, p)
	if e.ClockPeriod() != defaultClockPeriod {
		t.Errorf("period updated from a 5ms interval: %v", e.ClockPeriod())
	}

	// 500ms interval: plausible, must update.
	runLow(e, p, 23998)
	clockEdge(e, p)
	if math.Abs(e.ClockPeriod()-0.5) > 0.001 {
		t.Errorf("period = %v, want ~0.5", e.ClockPeriod())
	}

	// 3s interval: above the ceiling, keeps the previous estimate.
	runLow(e, p, 3*48000)
	clockEdge(e, p)
	if math.Abs(e.ClockPeriod()-0.5) > 0.001 {
		t.Errorf("period updated from a 3s interval: %v", e.ClockPeriod())
	}
}

func TestRestHoldsPitchAndGate(t *testing.T) {
	e := New(1)
	flatMaster(e)
	m := e.Master()
	m.Steps[0].PoolIndex = 2
	m.Muted[1] = true

	p := baseParams()

	clockEdge(e, p)
	runLow(e, p, 2400) // past the 20ms gate
	out := clockEdge(e, p)
	if out.Gate {
		t.Error("gate opened on a muted step")
	}
	if out.Pitch != 0.25 {
		t.Errorf("pitch moved to %v on a rest, want held 0.25", out.Pitch)
	}
	if out.Slide {
		t.Error("slide output high on a rest")
	}
}

func TestAccentPulseOnAccentedAttack(t *testing.T) {
	e := New(1)
	flatMaster(e)
	m := e.Master()
	m.Steps[0].AccentProb = 0
	m.Steps[1].AccentProb = 0.99

	p := baseParams()
	p.AccentDensity = 50

	out := clockEdge(e, p)
	if !out.Accent {
		t.Error("no accent pulse on an accented attack")
	}

	runLow(e, p, 2400)
	out = clockEdge(e, p)
	if out.Accent {
		t.Error("accent pulse fired on an unaccented step")
	}
}

func TestPatternLengthChangeWraps(t *testing.T) {
	e := New(1)
	flatMaster(e)
	p := baseParams()

	for i := 0; i < 6; i++ {
		clockEdge(e, p)
	}
	if e.Step() != 5 {
		t.Fatalf("step = %d, want 5", e.Step())
	}

	p.PatternLength = 4
	out := clockEdge(e, p)
	if out.Step != 0 {
		t.Errorf("step after shortening = %d, want wrapped 0", out.Step)
	}
}

func TestGenerateEvent(t *testing.T) {
	e := New(1)
	e.now = func() int64 { return 99999 }
	e.ToggleMute(3)
	p := baseParams()

	clockEdge(e, p)
	prevSeed := e.Seed()
	stepBefore := e.Step()

	e.Process(dt, Inputs{Generate: 10}, p)

	wantSeed := uint32(99999) ^ (prevSeed*1664525 + 1013904223)
	if e.Seed() != wantSeed {
		t.Errorf("seed = %d, want %d", e.Seed(), wantSeed)
	}
	if e.Step() != stepBefore {
		t.Errorf("generate moved playback from %d to %d", stepBefore, e.Step())
	}
	if e.Master().Muted[3] {
		t.Error("generate did not clear mutes")
	}

	want := pattern.NewMaster()
	want.Generate(wantSeed)
	if *e.Master() != *want {
		t.Error("generated pattern does not match a fresh generation from the same seed")
	}
}

func TestParamsClamp(t *testing.T) {
	p := Params{PatternLength: 200, Density: -5, Spread: 120, RootNote: 14, OctaveOffset: 9, Scale: -1}
	c := p.clamp()
	if c.PatternLength != pattern.MaxSteps {
		t.Errorf("PatternLength = %d", c.PatternLength)
	}
	if c.Density != 0 || c.Spread != 100 {
		t.Errorf("densities = %v, %v", c.Density, c.Spread)
	}
	if c.RootNote != 11 || c.OctaveOffset != 2 {
		t.Errorf("root/octave = %d, %d", c.RootNote, c.OctaveOffset)
	}
	if c.Scale != pattern.Minor {
		t.Errorf("scale = %v", c.Scale)
	}
}
