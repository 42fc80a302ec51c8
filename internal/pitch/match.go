package pitch

import "math"

// DefaultMatchWindowHz is the absolute distance under which a detected
// frequency is attributed to a target. At E2 (~82 Hz) this spans about
// four semitones, at E4 (~330 Hz) about one. Matcher.WindowCents replaces
// it with a window of constant musical width.
const DefaultMatchWindowHz = 20.0

// StringResult is the tuning state of one target
type StringResult struct {
	Target Target
	Active bool    // the detected pitch falls inside the target's window
	Cents  float64 // deviation from the target; zero when inactive
}

// InTune reports whether the target is active and within tolerance cents
func (r StringResult) InTune(tolerance float64) bool {
	return r.Active && math.Abs(r.Cents) < tolerance
}

// Matcher attributes a detected frequency to a list of expected targets
type Matcher struct {
	WindowHz    float64 // absolute window, used when WindowCents is zero
	WindowCents float64 // relative window in cents; takes precedence when positive
}

// DefaultMatcher returns a matcher with the 20 Hz absolute window
func DefaultMatcher() Matcher {
	return Matcher{WindowHz: DefaultMatchWindowHz}
}

// MatchAll returns one result per target, in target order. A frequency of
// zero or below means nothing was detected and every target is inactive.
// Targets are matched independently, so more than one may be active.
func (m Matcher) MatchAll(frequency float64, targets []Target, reference float64) []StringResult {
	results := make([]StringResult, len(targets))
	for i, t := range targets {
		results[i] = StringResult{Target: t}
		if !(frequency > 0) || !(reference > 0) || !t.Valid() {
			continue
		}

		targetFreq := t.Frequency(reference)
		cents := Cents(frequency, targetFreq)
		if !m.within(frequency, targetFreq, cents) {
			continue
		}
		results[i].Active = true
		results[i].Cents = cents
	}
	return results
}

func (m Matcher) within(frequency, targetFreq, cents float64) bool {
	if m.WindowCents > 0 {
		return math.Abs(cents) < m.WindowCents
	}
	window := m.WindowHz
	if window <= 0 {
		window = DefaultMatchWindowHz
	}
	return math.Abs(frequency-targetFreq) < window
}
