package pitch

import (
	"errors"
	"math"
	"testing"
)

func TestFrequencyToNoteReference(t *testing.T) {
	n := FrequencyToNote(440, 440)
	if n.Name != "A" || n.Octave != 4 {
		t.Fatalf("expected A4, got %s", n)
	}
	if math.Abs(n.Cents) >= 1.0 {
		t.Fatalf("expected cents near 0, got %.3f", n.Cents)
	}
	if n.Frequency != 440 {
		t.Fatalf("expected frequency to be carried through, got %v", n.Frequency)
	}
}

func TestFrequencyToNoteSemitoneSharp(t *testing.T) {
	n := FrequencyToNote(440*math.Pow(2, 1.0/12), 440)
	if n.Name != "A#" || n.Octave != 4 {
		t.Fatalf("expected A#4, got %s", n)
	}
	if math.Abs(n.Cents) > 1e-6 {
		t.Fatalf("expected cents near 0, got %v", n.Cents)
	}
}

func TestFrequencyToNoteTable(t *testing.T) {
	cases := []struct {
		freq, ref float64
		want      string
		cents     float64
	}{
		{82.41, 440, "E2", -0.0},
		{261.63, 440, "C4", 0.0},
		{446, 440, "A4", 23.4},
		{432, 432, "A4", 0},
		{440, 432, "A4", 31.8},
		{1046.5, 440, "C6", 0.0},
		{27.5, 440, "A0", 0},
	}
	for _, tc := range cases {
		n := FrequencyToNote(tc.freq, tc.ref)
		if n.String() != tc.want {
			t.Errorf("FrequencyToNote(%v, %v) = %s, want %s", tc.freq, tc.ref, n, tc.want)
			continue
		}
		if math.Abs(n.Cents-tc.cents) > 0.5 {
			t.Errorf("FrequencyToNote(%v, %v) cents = %.2f, want %.2f", tc.freq, tc.ref, n.Cents, tc.cents)
		}
	}
}

func TestFrequencyToNoteIsPure(t *testing.T) {
	a := FrequencyToNote(329.1, 441)
	b := FrequencyToNote(329.1, 441)
	if a != b {
		t.Fatalf("expected identical results, got %+v and %+v", a, b)
	}
}

func TestFrequencyToNoteNegativeNoteNumbers(t *testing.T) {
	// 1 Hz against A4 = 440 is note number -36.4, which rounds to -36 (C-4)
	n := FrequencyToNote(1, 440)
	if n.Name != "C" || n.Octave != -4 {
		t.Fatalf("expected C-4, got %s", n)
	}

	// A high reference pushes a low frequency further down, to -37 (B-5)
	n = FrequencyToNote(1, 466.16)
	if n.Name != "B" || n.Octave != -5 {
		t.Fatalf("expected B-5, got %s (%.2f cents)", n, n.Cents)
	}

	for _, freq := range []float64{0.05, 0.3, 2.2, 7.9} {
		n := FrequencyToNote(freq, 480)
		found := false
		for _, name := range NoteNames() {
			if name == n.Name {
				found = true
			}
		}
		if !found {
			t.Fatalf("frequency %v produced name %q outside the note table", freq, n.Name)
		}
		if math.Abs(n.Cents) > 50.0001 {
			t.Fatalf("frequency %v produced %.3f cents", freq, n.Cents)
		}
	}
}

func TestFrequencyToNoteRoundTrip(t *testing.T) {
	for _, ref := range []float64{415, 440, 442} {
		for k := -24; k <= 127; k++ {
			n := FrequencyToNote(NoteFrequency(k, ref), ref)
			want := TargetFromNumber(k)
			if n.Name != want.Name || n.Octave != want.Octave {
				t.Fatalf("k=%d ref=%v: expected %s, got %s", k, ref, want, n)
			}
			if math.Abs(n.Cents) > 1e-6 {
				t.Fatalf("k=%d ref=%v: expected cents ~0, got %v", k, ref, n.Cents)
			}
		}
	}
}

func TestFrequencyToNoteRejectsNonPositive(t *testing.T) {
	for _, tc := range [][2]float64{{0, 440}, {-5, 440}, {440, 0}, {math.NaN(), 440}} {
		if n := FrequencyToNote(tc[0], tc[1]); n.Known() {
			t.Errorf("FrequencyToNote(%v, %v) = %s, want unknown", tc[0], tc[1], n)
		}
	}
}

func TestTargetNumber(t *testing.T) {
	cases := map[Target]int{
		{"A", 4}:  69,
		{"C", 4}:  60,
		{"C", -1}: 0,
		{"E", 2}:  40,
		{"B", -2}: -1,
		{"C", -2}: -12,
	}
	for target, want := range cases {
		if got, ok := target.Number(); !ok || got != want {
			t.Errorf("%+v.Number() = %d, %v, want %d", target, got, ok, want)
		}
	}
	if _, ok := (Target{"H", 2}).Number(); ok {
		t.Error("expected H2 to be rejected")
	}
	if f := (Target{"H", 2}).Frequency(440); f != 0 {
		t.Errorf("expected 0 Hz for an invalid target, got %v", f)
	}
	if f := (Target{"A", 2}).Frequency(440); math.Abs(f-110) > 1e-9 {
		t.Errorf("expected A2 = 110 Hz, got %v", f)
	}
}

func TestParseTarget(t *testing.T) {
	cases := []struct {
		in   string
		want Target
	}{
		{"E2", Target{"E", 2}},
		{"A#3", Target{"A#", 3}},
		{"Bb1", Target{"A#", 1}},
		{"e4", Target{"E", 4}},
		{"C-1", Target{"C", -1}},
		{"Cb4", Target{"B", 3}},
		{"B#3", Target{"C", 4}},
		{" G3 ", Target{"G", 3}},
	}
	for _, tc := range cases {
		got, err := ParseTarget(tc.in)
		if err != nil {
			t.Errorf("ParseTarget(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTarget(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "A", "H2", "A#", "Ax4", "E two"} {
		if _, err := ParseTarget(bad); !errors.Is(err, ErrInvalidNote) {
			t.Errorf("ParseTarget(%q): expected ErrInvalidNote, got %v", bad, err)
		}
	}
}
