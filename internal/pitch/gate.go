package pitch

import "math"

// SilenceThreshold is the RMS level below which a block counts as silence.
// Samples are normalized to [-1, 1].
const SilenceThreshold = 0.01

// RMS returns the root-mean-square amplitude of samples
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, s := range samples {
		v := float64(s)
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}

// IsSilent reports whether a block carries no usable signal
func IsSilent(samples []float32) bool {
	return RMS(samples) < SilenceThreshold
}

// Level calculates RMS and dB level
func Level(samples []float32) (rms, db float64) {
	rms = RMS(samples)

	// Calculate dB (with protection against log(0))
	if rms > 0.0000001 {
		db = 20 * math.Log10(rms)
	} else {
		db = -100
	}
	return rms, db
}
