package pitch

import (
	"math"
	"testing"
)

var guitar = []Target{{"E", 2}, {"A", 2}, {"D", 3}, {"G", 3}, {"B", 3}, {"E", 4}}

func TestMatchAllWindowBoundary(t *testing.T) {
	m := DefaultMatcher()
	a2 := []Target{{"A", 2}}

	in := m.MatchAll(129.99, a2, 440)
	if !in[0].Active {
		t.Fatal("expected A2 active 19.99 Hz away")
	}
	if want := Cents(129.99, 110); math.Abs(in[0].Cents-want) > 1e-9 {
		t.Fatalf("expected %.3f cents, got %.3f", want, in[0].Cents)
	}

	out := m.MatchAll(130.01, a2, 440)
	if out[0].Active || out[0].Cents != 0 {
		t.Fatalf("expected A2 inactive 20.01 Hz away, got %+v", out[0])
	}
}

func TestMatchAllPreservesOrder(t *testing.T) {
	results := DefaultMatcher().MatchAll(147.5, guitar, 440)
	if len(results) != len(guitar) {
		t.Fatalf("expected %d results, got %d", len(guitar), len(results))
	}
	for i, r := range results {
		if r.Target != guitar[i] {
			t.Fatalf("result %d: expected %s, got %s", i, guitar[i], r.Target)
		}
	}
	// D3 is 146.83 Hz; nothing else is within 20 Hz
	for i, r := range results {
		wantActive := guitar[i] == Target{"D", 3}
		if r.Active != wantActive {
			t.Errorf("%s: active = %v, want %v", r.Target, r.Active, wantActive)
		}
	}
	if !results[2].InTune(10) || results[2].InTune(5) {
		t.Errorf("expected D3 at ~7.9 cents sharp, got %.2f", results[2].Cents)
	}
}

func TestMatchAllNoSignal(t *testing.T) {
	for _, freq := range []float64{0, -1} {
		for _, r := range DefaultMatcher().MatchAll(freq, guitar, 440) {
			if r.Active || r.Cents != 0 {
				t.Fatalf("freq %v: expected every target inactive, got %+v", freq, r)
			}
		}
	}
}

func TestMatchAllOverlappingTargets(t *testing.T) {
	// E2 and F2 are 5 Hz apart, so a pitch between them activates both
	targets := []Target{{"E", 2}, {"F", 2}}
	results := DefaultMatcher().MatchAll(84.5, targets, 440)
	if !results[0].Active || !results[1].Active {
		t.Fatalf("expected both targets active, got %+v", results)
	}
	if results[0].Cents <= 0 || results[1].Cents >= 0 {
		t.Fatalf("expected sharp of E2 and flat of F2, got %+v", results)
	}
}

func TestMatchAllFollowsReference(t *testing.T) {
	a4 := []Target{{"A", 4}}
	r := DefaultMatcher().MatchAll(432, a4, 432)
	if !r[0].Active || math.Abs(r[0].Cents) > 1e-9 {
		t.Fatalf("expected A4 in tune at 432 reference, got %+v", r[0])
	}
}

func TestMatchAllCentsWindow(t *testing.T) {
	m := Matcher{WindowCents: 50}

	// 95 Hz is within 20 Hz of E2 but ~250 cents away
	if r := m.MatchAll(95, guitar[:1], 440); r[0].Active {
		t.Fatalf("expected E2 inactive under a 50 cent window, got %+v", r[0])
	}
	if r := m.MatchAll(83.5, guitar[:1], 440); !r[0].Active {
		t.Fatalf("expected E2 active 22 cents sharp, got %+v", r[0])
	}
	// At E4 a 50 cent window is about 9.6 Hz wide
	if r := m.MatchAll(345, guitar[5:], 440); r[0].Active {
		t.Fatalf("expected E4 inactive 78 cents away, got %+v", r[0])
	}
}

func TestMatchAllZeroWindowFallsBackToDefault(t *testing.T) {
	r := Matcher{}.MatchAll(125, []Target{{"A", 2}}, 440)
	if !r[0].Active {
		t.Fatal("expected zero-value matcher to use the 20 Hz window")
	}
}

func TestMatchAllBelowNoteZero(t *testing.T) {
	// B-2 is note number -1, about 7.7 Hz at A4 = 440
	low := []Target{{"B", -2}, {"H", 2}}
	freq := NoteFrequency(-1, 440)

	results := DefaultMatcher().MatchAll(freq, low, 440)
	if !results[0].Active || math.Abs(results[0].Cents) > 1e-9 {
		t.Fatalf("expected B-2 active and in tune, got %+v", results[0])
	}
	if results[1].Active {
		t.Fatalf("expected an unknown name to stay inactive, got %+v", results[1])
	}
}
