package pattern

import "fmt"

// Scale selects one of the built-in scale interval tables.
type Scale int

const (
	Major Scale = iota
	Minor
	Dorian
	Mixolydian
	Lydian
	Phrygian
	Locrian
	HarmonicMinor
	HarmonicMajor
	DorianSharp4
	PhrygianDominant
	MelodicMinor
	LydianAugmented
	LydianDominant
	HungarianMinor
	SuperLocrian
	Spanish
	Bhairav
	PentatonicMinor
	PentatonicMajor
	BluesMinor
	WholeTone
	Chromatic
	JapaneseInSen

	NumScales int = iota
)

type scaleDef struct {
	name      string
	intervals []int
}

var scales = [NumScales]scaleDef{
	Major:            {"Major", []int{0, 2, 4, 5, 7, 9, 11}},
	Minor:            {"Minor", []int{0, 2, 3, 5, 7, 8, 10}},
	Dorian:           {"Dorian", []int{0, 2, 3, 5, 7, 9, 10}},
	Mixolydian:       {"Mixolydian", []int{0, 2, 4, 5, 7, 9, 10}},
	Lydian:           {"Lydian", []int{0, 2, 4, 6, 7, 9, 11}},
	Phrygian:         {"Phrygian", []int{0, 1, 3, 5, 7, 8, 10}},
	Locrian:          {"Locrian", []int{0, 1, 3, 5, 6, 8, 10}},
	HarmonicMinor:    {"Harmonic Minor", []int{0, 2, 3, 5, 7, 8, 11}},
	HarmonicMajor:    {"Harmonic Major", []int{0, 2, 4, 5, 7, 8, 11}},
	DorianSharp4:     {"Dorian #4", []int{0, 2, 3, 6, 7, 9, 10}},
	PhrygianDominant: {"Phrygian Dominant", []int{0, 1, 4, 5, 7, 8, 10}},
	MelodicMinor:     {"Melodic Minor", []int{0, 2, 3, 5, 7, 9, 11}},
	LydianAugmented:  {"Lydian Augmented", []int{0, 2, 4, 6, 8, 9, 11}},
	LydianDominant:   {"Lydian Dominant", []int{0, 2, 4, 6, 7, 9, 10}},
	HungarianMinor:   {"Hungarian Minor", []int{0, 2, 3, 6, 7, 8, 11}},
	SuperLocrian:     {"Super Locrian", []int{0, 1, 3, 4, 6, 8, 10}},
	Spanish:          {"Spanish", []int{0, 1, 4, 5, 7, 9, 10}},
	Bhairav:          {"Bhairav", []int{0, 1, 4, 5, 7, 8, 11}},
	PentatonicMinor:  {"Pentatonic Minor", []int{0, 3, 5, 7, 10}},
	PentatonicMajor:  {"Pentatonic Major", []int{0, 2, 4, 7, 9}},
	BluesMinor:       {"Blues Minor", []int{0, 3, 5, 6, 7, 10}},
	WholeTone:        {"Whole Tone", []int{0, 2, 4, 6, 8, 10}},
	Chromatic:        {"Chromatic", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
	JapaneseInSen:    {"Japanese In-Sen", []int{0, 1, 5, 7, 10}},
}

// Name returns the display name of the scale.
func (s Scale) Name() string {
	if s < 0 || int(s) >= NumScales {
		return "Unknown"
	}
	return scales[s].name
}

// Intervals returns the semitone offsets from the root. The slice is
// shared compile-time data and must not be modified.
func (s Scale) Intervals() []int {
	if s < 0 || int(s) >= NumScales {
		return scales[Minor].intervals
	}
	return scales[s].intervals
}

// Len returns the number of degrees in the scale (5, 6, 7 or 12).
func (s Scale) Len() int {
	return len(s.Intervals())
}

// NoteForDegree converts a scale degree to a MIDI note offset from C0.
// Degrees past the scale length wrap into the next octave, so degree 7
// of a 7-note scale is the root one octave up. A negative degree is a
// rest and returns -1.
func NoteForDegree(degree int, s Scale, root, octave int) int {
	if degree < 0 {
		return -1
	}
	intervals := s.Intervals()
	n := len(intervals)
	return intervals[degree%n] + root + 12*(octave+degree/n)
}

// NoteName formats a MIDI note number, e.g. 60 -> "C4".
func NoteName(note int) string {
	names := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	octave := note/12 - 1
	return fmt.Sprintf("%s%d", names[((note%12)+12)%12], octave)
}
