// Package pattern generates and resolves the master note pool that the
// playback engine carves patterns out of at runtime.
package pattern

import "math"

// SFC32 is the "small fast chaotic" 32-bit PRNG. Patterns are identified
// by their seed, so the mix function must stay bit-exact: the same seed
// has to reproduce the same pattern on every platform and on reload.
type SFC32 struct {
	a, b, c, d uint32
}

// NewSFC32 seeds all four state words with the same value.
func NewSFC32(seed uint32) *SFC32 {
	return &SFC32{a: seed, b: seed, c: seed, d: seed}
}

// Seed resets the generator. A reseed with the same value replays the
// exact output sequence.
func (r *SFC32) Seed(seed uint32) {
	r.a, r.b, r.c, r.d = seed, seed, seed, seed
}

// Next advances the state and returns a float64 in [0, 1).
func (r *SFC32) Next() float64 {
	t := r.a + r.b
	r.a = r.b ^ (r.b >> 9)
	r.b = r.c + (r.c << 3)
	r.c = (r.c << 21) | (r.c >> 11)
	r.d++
	t += r.d
	r.c += t
	return float64(t) / 4294967296.0
}

// RandomInt returns a uniform integer in [min, max] inclusive.
func (r *SFC32) RandomInt(min, max int) int {
	return int(math.Floor(r.Next()*float64(max-min+1))) + min
}
