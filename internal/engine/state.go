package engine

import (
	"encoding/json"
	"fmt"

	"github.com/jjbbllkk/acidgen/internal/pattern"
)

// stateVersion is the persisted schema version. Version 2 added the
// pattern snapshot; anything older regenerates from the seed.
const stateVersion = 3

type stateStep struct {
	PoolIndex  int     `json:"p"`
	Octave     int     `json:"o"`
	AccentProb float64 `json:"a"`
	SlideProb  float64 `json:"s"`
	Muted      bool    `json:"m"`
}

type stateMaster struct {
	BarActivationOrder []int       `json:"barActivationOrder"`
	ScalePriorityOrder []int       `json:"scalePriorityOrder"`
	Steps              []stateStep `json:"steps"`
}

// persistedState mirrors the on-disk shape. Pointer fields distinguish
// "absent" from zero so partial documents keep existing values.
type persistedState struct {
	Version            int          `json:"version"`
	Seed               *uint32      `json:"seed,omitempty"`
	CurrentStep        *int         `json:"currentStep,omitempty"`
	MasterPattern      *stateMaster `json:"masterPattern,omitempty"`
	CurrentSlideActive *bool        `json:"currentSlideActive,omitempty"`
	CurrentPitch       *float64     `json:"currentPitch,omitempty"`
	SlideTargetPitch   *float64     `json:"slideTargetPitch,omitempty"`
	SlideRate          *float64     `json:"slideRate,omitempty"`
}

// Snapshot serializes the engine: seed, playback position, the full
// master pattern, and the in-flight portamento state so a reload resumes
// seamlessly mid-glide.
func (e *Engine) Snapshot() ([]byte, error) {
	master := &stateMaster{
		BarActivationOrder: append([]int(nil), e.master.BarActivationOrder[:]...),
		ScalePriorityOrder: append([]int(nil), e.master.ScalePriorityOrder[:]...),
		Steps:              make([]stateStep, pattern.MaxSteps),
	}
	for i, s := range e.master.Steps {
		master.Steps[i] = stateStep{
			PoolIndex:  s.PoolIndex,
			Octave:     s.Octave,
			AccentProb: s.AccentProb,
			SlideProb:  s.SlideProb,
			Muted:      e.master.Muted[i],
		}
	}

	st := persistedState{
		Version:            stateVersion,
		Seed:               &e.seed,
		CurrentStep:        &e.step,
		MasterPattern:      master,
		CurrentSlideActive: &e.slideActive,
		CurrentPitch:       &e.pitch,
		SlideTargetPitch:   &e.slideTarget,
		SlideRate:          &e.slideRate,
	}
	return json.Marshal(st)
}

// Restore loads a snapshot. Every field is optional: missing fields keep
// their current values, and a missing or pre-version-2 pattern snapshot
// is regenerated deterministically from the stored seed.
func (e *Engine) Restore(data []byte) error {
	var st persistedState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decoding state: %w", err)
	}

	if st.Seed != nil {
		e.seed = *st.Seed
	}
	if st.CurrentStep != nil {
		e.step = *st.CurrentStep
	}

	if st.MasterPattern != nil && st.Version >= 2 {
		mp := st.MasterPattern
		for i := 0; i < len(mp.BarActivationOrder) && i < pattern.BarLen; i++ {
			e.master.BarActivationOrder[i] = mp.BarActivationOrder[i]
		}
		for i := 0; i < len(mp.ScalePriorityOrder) && i < pattern.PoolSize; i++ {
			e.master.ScalePriorityOrder[i] = mp.ScalePriorityOrder[i]
		}
		for i := 0; i < len(mp.Steps) && i < pattern.MaxSteps; i++ {
			e.master.Steps[i] = pattern.MasterStep{
				PoolIndex:  mp.Steps[i].PoolIndex,
				Octave:     mp.Steps[i].Octave,
				AccentProb: mp.Steps[i].AccentProb,
				SlideProb:  mp.Steps[i].SlideProb,
			}
			e.master.Muted[i] = mp.Steps[i].Muted
		}
	} else {
		e.master.Generate(e.seed)
	}

	if st.CurrentSlideActive != nil {
		e.slideActive = *st.CurrentSlideActive
	}
	if st.CurrentPitch != nil {
		e.pitch = *st.CurrentPitch
	}
	if st.SlideTargetPitch != nil {
		e.slideTarget = *st.SlideTargetPitch
	}
	if st.SlideRate != nil {
		e.slideRate = *st.SlideRate
	}

	return nil
}
