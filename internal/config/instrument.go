package config

import (
	"fmt"
	"strings"

	"github.com/0xlemi/tunemaster/internal/pitch"
)

// DefaultInstrumentID is the preset selected on first run
const DefaultInstrumentID = "guitar-standard"

// Instrument is a named tuning: the ordered strings the polyphonic display
// tracks
type Instrument struct {
	ID          string
	Name        string
	UserDefined bool
	Strings     []pitch.Target
}

// Validate checks that the instrument can be used for matching
func (i Instrument) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidInstrument)
	}
	if len(i.Strings) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyInstrument, i.ID)
	}
	for _, s := range i.Strings {
		if !s.Valid() {
			return fmt.Errorf("%w: %s has string %q", pitch.ErrInvalidNote, i.ID, s.Name)
		}
	}
	return nil
}

// StringNames returns the scientific pitch names of the strings, e.g. "E2"
func (i Instrument) StringNames() []string {
	names := make([]string, len(i.Strings))
	for n, s := range i.Strings {
		names[n] = s.String()
	}
	return names
}

// NewInstrument builds a user-defined instrument from note names
func NewInstrument(id, name string, notes []string) (Instrument, error) {
	inst := Instrument{ID: id, Name: name, UserDefined: true}
	if inst.Name == "" {
		inst.Name = id
	}
	for _, n := range notes {
		t, err := pitch.ParseTarget(n)
		if err != nil {
			return Instrument{}, err
		}
		inst.Strings = append(inst.Strings, t)
	}
	if err := inst.Validate(); err != nil {
		return Instrument{}, err
	}
	return inst, nil
}

func mustInstrument(id, name string, notes ...string) Instrument {
	inst, err := NewInstrument(id, name, notes)
	if err != nil {
		panic(err)
	}
	inst.UserDefined = false
	return inst
}

var builtins = []Instrument{
	mustInstrument(DefaultInstrumentID, "Guitar (Standard)", "E2", "A2", "D3", "G3", "B3", "E4"),
	mustInstrument("guitar-drop-d", "Guitar (Drop D)", "D2", "A2", "D3", "G3", "B3", "E4"),
	mustInstrument("guitar-open-g", "Guitar (Open G)", "D2", "G2", "D3", "G3", "B3", "D4"),
	mustInstrument("bass-standard", "Bass (Standard)", "E1", "A1", "D2", "G2"),
	mustInstrument("ukulele-standard", "Ukulele (GCEA)", "G4", "C4", "E4", "A4"),
	mustInstrument("violin", "Violin", "G3", "D4", "A4", "E5"),
	mustInstrument("cello", "Cello", "C2", "G2", "D3", "A3"),
}

// Builtins returns the read-only presets shipped with the tuner
func Builtins() []Instrument {
	out := make([]Instrument, len(builtins))
	copy(out, builtins)
	return out
}

// DefaultInstrument returns the standard six-string guitar tuning
func DefaultInstrument() Instrument {
	return builtins[0]
}

// FindInstrument looks an instrument up by id
func FindInstrument(instruments []Instrument, id string) (Instrument, error) {
	for _, inst := range instruments {
		if inst.ID == id {
			return inst, nil
		}
	}
	return Instrument{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, id)
}

func isBuiltin(id string) bool {
	for _, b := range builtins {
		if b.ID == id {
			return true
		}
	}
	return false
}
