package pitch

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// A4 is note number 69 and octaves start at C, so C4 is 60
const (
	a4NoteNumber     = 69
	semitonesPerOct  = 12
	DefaultReference = 440.0
)

// ErrInvalidNote is returned when a note name cannot be parsed
var ErrInvalidNote = errors.New("invalid note name")

// All note names in chromatic order
var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNames returns the twelve semitone classes, spelled with sharps
func NoteNames() [12]string {
	return noteNames
}

// Note represents a detected musical note. The zero value is the unknown
// note used while nothing is detected.
type Note struct {
	Name      string  // e.g., "A", "A#", "B"
	Octave    int     // e.g., 4 for middle C (C4)
	Frequency float64 // Frequency in Hz
	Cents     float64 // Cents deviation from perfect pitch (-50 to +50)
}

// Known reports whether n identifies a note
func (n Note) Known() bool {
	return n.Name != ""
}

// String returns the scientific pitch name, e.g. "A#4", or "-" when unknown
func (n Note) String() string {
	if !n.Known() {
		return "-"
	}
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// Target is a note identity without a measured frequency, such as one
// string of an instrument tuning
type Target struct {
	Name   string
	Octave int
}

// String returns the scientific pitch name of t
func (t Target) String() string {
	return fmt.Sprintf("%s%d", t.Name, t.Octave)
}

// Number returns the note number of t. ok is false if its name is not one
// of the twelve canonical names. Numbers below zero are valid notes.
func (t Target) Number() (n int, ok bool) {
	for i, name := range noteNames {
		if name == t.Name {
			return (t.Octave+1)*semitonesPerOct + i, true
		}
	}
	return 0, false
}

// Valid reports whether t names one of the twelve canonical notes
func (t Target) Valid() bool {
	_, ok := t.Number()
	return ok
}

// Frequency returns the equal-tempered frequency of t for the reference,
// or 0 if t has no valid name
func (t Target) Frequency(reference float64) float64 {
	n, ok := t.Number()
	if !ok {
		return 0
	}
	return NoteFrequency(n, reference)
}

// floorDiv divides rounding towards negative infinity
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// TargetFromNumber returns the note identity for an integer note number
func TargetFromNumber(k int) Target {
	return Target{
		Name:   noteNames[((k%semitonesPerOct)+semitonesPerOct)%semitonesPerOct],
		Octave: floorDiv(k, semitonesPerOct) - 1,
	}
}

// NoteNumber returns the continuous note number of frequency, where the
// reference pitch is A4 = 69
func NoteNumber(frequency, reference float64) float64 {
	return semitonesPerOct*math.Log2(frequency/reference) + a4NoteNumber
}

// NoteFrequency returns the exact frequency of integer note number k
func NoteFrequency(k int, reference float64) float64 {
	return reference * math.Pow(2, float64(k-a4NoteNumber)/semitonesPerOct)
}

// Cents returns the deviation of frequency from target in cents
func Cents(frequency, target float64) float64 {
	return 1200 * math.Log2(frequency/target)
}

// FrequencyToNote converts a frequency to a musical note, relative to the
// reference pitch assigned to A4. Non-positive inputs yield the unknown note.
func FrequencyToNote(frequency, reference float64) Note {
	if !(frequency > 0) || !(reference > 0) || math.IsInf(frequency, 0) || math.IsInf(reference, 0) {
		return Note{}
	}

	// Round to nearest semitone, halves away from zero
	k := int(math.Round(NoteNumber(frequency, reference)))
	t := TargetFromNumber(k)

	return Note{
		Name:      t.Name,
		Octave:    t.Octave,
		Frequency: frequency,
		Cents:     Cents(frequency, NoteFrequency(k, reference)),
	}
}

var letterOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParseTarget parses a scientific pitch name such as "E2", "A#3", "Bb1" or
// "C-1". Flats and enharmonics are normalized to the sharp spelling.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}

	offset, ok := letterOffsets[strings.ToUpper(s[:1])[0]]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}

	rest := s[1:]
	switch rest[0] {
	case '#':
		offset++
		rest = rest[1:]
	case 'b':
		offset--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}

	return TargetFromNumber((octave+1)*semitonesPerOct + offset), nil
}
