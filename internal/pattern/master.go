package pattern

import (
	"math"
	"sort"
)

const (
	// MaxSteps is the size of the generated note pool.
	MaxSteps = 64
	// BarLen is the number of positions in one bar; density activates
	// bar positions, and all four bars of the pool share the mask.
	BarLen = 16
	// PoolSize is the number of scale degrees ranked for spread.
	PoolSize = 7
)

// Step is a resolved step: what actually sounds once the live controls
// have been applied. Recomputed on demand, never stored.
type Step struct {
	Note   int // scale degree, or -1 for a rest
	Octave int // -1, 0 or 1
	Accent bool
	Slide  bool
}

// IsRest reports whether the step is silent.
func (s Step) IsRest() bool { return s.Note < 0 }

// MasterStep is one entry of the unmasked pool. The probabilities are
// drawn once at generation time and compared against the live accent and
// slide densities on every resolve, so a step's accent/slide state only
// changes when the knobs move.
type MasterStep struct {
	PoolIndex  int // index into ScalePriorityOrder, not a scale degree
	Octave     int
	AccentProb float64
	SlideProb  float64
}

// Master holds the full 64-step pool plus the two priority orderings
// that density and spread carve the audible pattern out of.
type Master struct {
	// BarActivationOrder ranks the 16 bar positions; earlier entries
	// activate first as density rises. Always a permutation of 0..15.
	BarActivationOrder [BarLen]int

	// ScalePriorityOrder ranks the 7 scale degrees; earlier entries are
	// kept first as spread rises. Always a permutation of 0..6.
	ScalePriorityOrder [PoolSize]int

	Steps [MaxSteps]MasterStep

	// Muted marks user-forced rests. Independent of density and cleared
	// on every generate.
	Muted [MaxSteps]bool
}

// NewMaster returns a master pattern with identity orderings and
// silent-neutral step content.
func NewMaster() *Master {
	m := &Master{}
	for i := range m.BarActivationOrder {
		m.BarActivationOrder[i] = i
	}
	for i := range m.ScalePriorityOrder {
		m.ScalePriorityOrder[i] = i
	}
	for i := range m.Steps {
		m.Steps[i] = MasterStep{PoolIndex: 0, Octave: 0, AccentProb: 0.5, SlideProb: 0.5}
	}
	return m
}

// Generate fills the pattern from a seed. The RNG draw order is part of
// the pattern's identity: melodic weights, then rhythmic weights, then
// per-step content. Reordering the draws would break every stored seed.
func (m *Master) Generate(seed uint32) {
	rng := NewSFC32(seed)

	// Melodic priority: the root always wins, the fifth usually places
	// near the top.
	type weighted struct {
		index  int
		weight float64
	}
	notes := make([]weighted, PoolSize)
	for i := range notes {
		w := rng.Next()
		if i == 0 {
			w += 999.0
		}
		if i == 4 {
			w += 0.5
		}
		notes[i] = weighted{i, w}
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].weight > notes[j].weight })
	for i, n := range notes {
		m.ScalePriorityOrder[i] = n.index
	}

	// Rhythmic priority: beats get a boost, the downbeat a second one.
	bars := make([]weighted, BarLen)
	for i := range bars {
		w := rng.Next()
		if i%4 == 0 {
			w += 0.5
		}
		if i == 0 {
			w += 0.5
		}
		bars[i] = weighted{i, w}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].weight > bars[j].weight })
	for i, b := range bars {
		m.BarActivationOrder[i] = b.index
	}

	// Step content. Downbeats are pinned to the root 70% of the time.
	for i := range m.Steps {
		var poolIndex int
		if i%4 == 0 && rng.Next() > 0.3 {
			poolIndex = 0
		} else {
			poolIndex = rng.RandomInt(0, PoolSize-1)
		}
		m.Steps[i] = MasterStep{
			PoolIndex:  poolIndex,
			Octave:     rng.RandomInt(-1, 1),
			AccentProb: rng.Next(),
			SlideProb:  rng.Next(),
		}
	}

	m.ClearMutes()
}

// StepActive reports whether a step's bar position is within the active
// set for the given density (0-100).
func (m *Master) StepActive(step int, density float64) bool {
	barPos := step % BarLen
	activeCount := int(math.Round(BarLen * density / 100.0))
	for i := 0; i < activeCount && i < BarLen; i++ {
		if m.BarActivationOrder[i] == barPos {
			return true
		}
	}
	return false
}

// ScaleDegree returns the sounding degree for a step under the given
// spread (0-100). Steps whose pool index falls outside the spread window
// quantize down to the root, or rest if quantize is false.
func (m *Master) ScaleDegree(step int, spread float64, quantize bool) int {
	spreadCount := int(math.Round(PoolSize * spread / 100.0))
	if spreadCount < 1 {
		spreadCount = 1
	}
	if m.Steps[step].PoolIndex < spreadCount {
		return m.ScalePriorityOrder[m.Steps[step].PoolIndex]
	}
	if quantize {
		return m.ScalePriorityOrder[0]
	}
	return -1
}

// PoolIndexFor returns the position of a scale degree in the priority
// order, or 0 if the degree is not ranked.
func (m *Master) PoolIndexFor(degree int) int {
	for i, d := range m.ScalePriorityOrder {
		if d == degree {
			return i
		}
	}
	return 0
}

// ClearMutes removes all user-forced rests.
func (m *Master) ClearMutes() {
	for i := range m.Muted {
		m.Muted[i] = false
	}
}

// Resolve maps a step of the pool to a concrete Step under the live
// controls. Mute outranks density; density outranks spread. Called once
// per sample on the hot path, so it never allocates.
func (m *Master) Resolve(step int, density, spread, accentDensity, slideDensity float64, quantize bool) Step {
	if m.Muted[step] {
		return Step{Note: -1}
	}
	if !m.StepActive(step, density) {
		return Step{Note: -1}
	}
	degree := m.ScaleDegree(step, spread, quantize)
	if degree < 0 {
		return Step{Note: -1}
	}
	ms := &m.Steps[step]
	return Step{
		Note:   degree,
		Octave: ms.Octave,
		Accent: ms.AccentProb < accentDensity/100.0,
		Slide:  ms.SlideProb < slideDensity/100.0,
	}
}
