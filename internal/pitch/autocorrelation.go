package pitch

import (
	"math"

	"github.com/0xlemi/tunemaster/internal/audio"
	"github.com/cwbudde/algo-vecmath"
)

// edgeThreshold is the amplitude under which a sample counts as a quiet
// point to trim partial cycles at the block edges
const edgeThreshold = 0.2

// AutocorrelationDetector estimates the fundamental frequency from the
// strongest self-similarity lag of the block, refined with parabolic
// interpolation. It keeps no state between calls.
type AutocorrelationDetector struct{}

// NewAutocorrelationDetector creates a new autocorrelation pitch detector
func NewAutocorrelationDetector() *AutocorrelationDetector {
	return &AutocorrelationDetector{}
}

// EstimateFrequency analyzes an audio buffer and returns its fundamental frequency
func (d *AutocorrelationDetector) EstimateFrequency(buffer *audio.AudioBuffer) (float64, error) {
	if err := validateBlock(buffer); err != nil {
		return 0, err
	}
	if IsSilent(buffer.Samples) {
		return 0, ErrSilence
	}

	buf := trimEdges(buffer.Samples)
	n := len(buf)
	if n < 3 {
		return 0, ErrDegenerate
	}

	c := autocorrelate(buf)

	// Walk down the zero-lag peak into the first trough
	lag := 0
	for lag+1 < n && c[lag] > c[lag+1] {
		lag++
	}
	if lag >= n-1 {
		return 0, ErrDegenerate
	}

	maxPos := lag
	for i := lag; i < n; i++ {
		if c[i] > c[maxPos] {
			maxPos = i
		}
	}
	if maxPos < 1 || maxPos > n-2 {
		return 0, ErrDegenerate
	}

	period := float64(maxPos)
	prev, cur, next := c[maxPos-1], c[maxPos], c[maxPos+1]
	if denom := 2 * (prev + next - 2*cur); denom != 0 {
		period -= (next - prev) / denom
	}

	freq := float64(buffer.SampleRate) / period
	if !(period > 0) || math.IsInf(freq, 0) || math.IsNaN(freq) {
		return 0, ErrDegenerate
	}
	return freq, nil
}

// trimEdges drops the leading and trailing partial cycles: each side is
// cut at the first sample quieter than edgeThreshold found within its
// half of the block
func trimEdges(samples []float32) []float64 {
	size := len(samples)
	start, end := 0, size
	for i := 0; i < size/2; i++ {
		if math.Abs(float64(samples[i])) < edgeThreshold {
			start = i
			break
		}
	}
	for i := 1; i < size/2; i++ {
		if math.Abs(float64(samples[size-i])) < edgeThreshold {
			end = size - i
			break
		}
	}

	buf := make([]float64, end-start)
	for i := range buf {
		buf[i] = float64(samples[start+i])
	}
	return buf
}

// autocorrelate returns the unnormalized autocorrelation of buf for every lag
func autocorrelate(buf []float64) []float64 {
	n := len(buf)
	c := make([]float64, n)
	for lag := 0; lag < n; lag++ {
		c[lag] = vecmath.DotProduct(buf[:n-lag], buf[lag:])
	}
	return c
}
