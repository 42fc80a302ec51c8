package ui

import (
	"fmt"
	"math"

	"github.com/0xlemi/tunemaster/internal/config"
	"github.com/0xlemi/tunemaster/internal/session"
)

// Mode selects how a result is drawn
type Mode int

const (
	ModeChromatic Mode = iota
	ModePolyphonic
	ModeStrobe
)

var modeNames = []string{"chromatic", "polyphonic", "strobe"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Next returns the following mode, wrapping around
func (m Mode) Next() Mode {
	return Mode((int(m) + 1) % len(modeNames))
}

// ParseMode parses a mode name as stored in settings
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return ModeChromatic, fmt.Errorf("unknown mode %q (want chromatic, polyphonic or strobe)", s)
}

// Tolerances under which a pitch is shown as in tune
const (
	needleInTuneCents = 3.0
	stringInTuneCents = 5.0
	needleMaxAngle    = 45.0
)

// Needle is the chromatic meter render model
type Needle struct {
	Angle  float64 // degrees, -45 (flat) to +45 (sharp)
	InTune bool
}

// ChromaticNeedle maps the tuning result onto the needle
func ChromaticNeedle(res session.Result) Needle {
	if res.Idle() {
		return Needle{}
	}
	cents := res.Note.Cents
	return Needle{
		Angle:  math.Max(-needleMaxAngle, math.Min(needleMaxAngle, cents)),
		InTune: math.Abs(cents) < needleInTuneCents,
	}
}

// StrobeBand is one rotating band of the strobe display
type StrobeBand struct {
	Speed float64 // revolutions per second; zero when in tune
	Sharp bool    // sharp bands turn right, flat bands turn left
}

var strobeMultipliers = [3]float64{1, 1.5, 0.75}

// Strobe returns the three bands for res. The bands stand still at zero
// cents and spin at one revolution per second at a half-semitone off.
func Strobe(res session.Result) [3]StrobeBand {
	var bands [3]StrobeBand
	if res.Idle() {
		return bands
	}
	speed := math.Abs(res.Note.Cents) / 50
	for i, mult := range strobeMultipliers {
		bands[i] = StrobeBand{Speed: speed * mult, Sharp: res.Note.Cents > 0}
	}
	return bands
}

// StringMeter is one column of the polyphonic display
type StringMeter struct {
	Label  string
	Active bool
	Cents  float64
	Tuned  bool
}

// Polyphonic returns one meter per string of inst, using the matching
// results in res when they line up with the instrument
func Polyphonic(res session.Result, inst config.Instrument) []StringMeter {
	meters := make([]StringMeter, len(inst.Strings))
	aligned := len(res.Strings) == len(inst.Strings)
	for i, s := range inst.Strings {
		meters[i].Label = s.String()
		if !aligned || res.Strings[i].Target != s {
			continue
		}
		r := res.Strings[i]
		meters[i].Active = r.Active
		meters[i].Cents = r.Cents
		meters[i].Tuned = r.InTune(stringInTuneCents)
	}
	return meters
}

// centsLabel formats cents the way the display shows them: floored, signed
func centsLabel(cents float64) string {
	c := int(math.Floor(cents))
	if cents > 0 {
		return fmt.Sprintf("+%d cents", c)
	}
	return fmt.Sprintf("%d cents", c)
}
