package pitch

import (
	"math"
	"testing"
)

func TestRMS(t *testing.T) {
	constant := []float32{0.5, -0.5, 0.5, -0.5}
	if got := RMS(constant); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected RMS 0.5, got %v", got)
	}
	if got := RMS(nil); got != 0 {
		t.Fatalf("expected RMS 0 for empty block, got %v", got)
	}

	sine := sineBuffer(440, 1.0, 4410, testSampleRate)
	if got := RMS(sine.Samples); math.Abs(got-1/math.Sqrt2) > 1e-3 {
		t.Fatalf("expected sine RMS %.4f, got %.4f", 1/math.Sqrt2, got)
	}
}

func TestIsSilent(t *testing.T) {
	if !IsSilent(make([]float32, 2048)) {
		t.Error("all-zero block must be silent")
	}
	// Amplitude 0.014 gives an RMS just under 0.01
	if quiet := sineBuffer(440, 0.014, 4410, testSampleRate); !IsSilent(quiet.Samples) {
		t.Errorf("block with RMS %.4f must be silent", RMS(quiet.Samples))
	}
	if loud := sineBuffer(440, 0.02, 4410, testSampleRate); IsSilent(loud.Samples) {
		t.Errorf("block with RMS %.4f must not be silent", RMS(loud.Samples))
	}
}

func TestLevel(t *testing.T) {
	rms, db := Level([]float32{1, -1, 1, -1})
	if rms != 1 || math.Abs(db) > 1e-9 {
		t.Fatalf("expected full scale 0 dB, got rms=%v db=%v", rms, db)
	}
	if _, db := Level(make([]float32, 16)); db != -100 {
		t.Fatalf("expected -100 dB floor for silence, got %v", db)
	}
}
