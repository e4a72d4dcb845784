// Package engine is the clocked playback state machine. It consumes
// edge signals (clock, reset, generate), resolves steps against the live
// controls and emits pitch/gate/accent/slide outputs once per sample.
package engine

// schmittTrigger detects rising edges on a continuous signal with
// hysteresis, so a noisy input near threshold cannot double-fire.
type schmittTrigger struct {
	high bool
}

// Process consumes one sample of the input signal and reports whether it
// crossed the high threshold on this sample.
func (t *schmittTrigger) Process(v float64) bool {
	if t.high {
		if v <= 0.1 {
			t.high = false
		}
		return false
	}
	if v >= 1.0 {
		t.high = true
		return true
	}
	return false
}

// pulseGen emits a timed pulse: high from Trigger until the requested
// duration has elapsed.
type pulseGen struct {
	remaining float64
}

// Trigger starts (or extends) a pulse of the given duration in seconds.
func (p *pulseGen) Trigger(duration float64) {
	if duration > p.remaining {
		p.remaining = duration
	}
}

// Process advances time by one sample and reports whether the pulse is
// still high.
func (p *pulseGen) Process(sampleTime float64) bool {
	if p.remaining <= 0 {
		return false
	}
	p.remaining -= sampleTime
	return true
}

// Pending reports whether a pulse is currently active.
func (p *pulseGen) Pending() bool {
	return p.remaining > 0
}
