package pitch

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/0xlemi/tunemaster/internal/audio"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// FFTDetector implements pitch detection using the strongest spectral peak.
// It is coarser than the autocorrelation detector on short blocks but far
// cheaper on long ones.
type FFTDetector struct {
	minFrequency    float64 // Lowest frequency to detect (Hz)
	maxFrequency    float64 // Highest frequency to detect (Hz)
	noiseFloor      float64 // Minimum spectral magnitude of a usable peak
	peakThreshold   float64 // Minimum peak height as fraction of highest peak
	volumeThreshold float64 // Minimum RMS volume level for note detection
	windows         map[int][]float64
}

// NewFFTDetector creates a new FFT-based pitch detector
func NewFFTDetector() *FFTDetector {
	return &FFTDetector{
		minFrequency:    80.0,   // E2 on guitar is ~82 Hz
		maxFrequency:    1200.0, // Covers the first dozen frets of the top string
		noiseFloor:      0.01,
		peakThreshold:   0.2,
		volumeThreshold: SilenceThreshold,
		windows:         make(map[int][]float64),
	}
}

// EstimateFrequency analyzes an audio buffer and returns the strongest
// in-range spectral peak
func (d *FFTDetector) EstimateFrequency(buffer *audio.AudioBuffer) (float64, error) {
	if err := validateBlock(buffer); err != nil {
		return 0, err
	}

	rmsVolume, dbLevel := Level(buffer.Samples)

	// Skip everything if the level is too low (likely silence)
	if rmsVolume < d.volumeThreshold || dbLevel < -50.0 {
		return 0, ErrSilence
	}

	// Apply windowing function (Hann window)
	coeffs := d.window(len(buffer.Samples))
	windowed := make([]float64, len(buffer.Samples))
	for i, sample := range buffer.Samples {
		windowed[i] = float64(sample) * coeffs[i]
	}

	spectrum := fft.FFTReal(windowed)

	peakFreq, ok := d.findFundamentalFrequency(spectrum, buffer.SampleRate)
	if !ok {
		return 0, ErrDegenerate
	}

	// If the detected frequency is too low or too high, it's likely noise
	if peakFreq < d.minFrequency || peakFreq > d.maxFrequency {
		return 0, ErrDegenerate
	}

	return peakFreq, nil
}

// window returns a cached Hann window of length n.
// FFTDetector is not safe for concurrent use because of this cache.
func (d *FFTDetector) window(n int) []float64 {
	w, ok := d.windows[n]
	if !ok {
		w = window.Hann(n)
		d.windows[n] = w
	}
	return w
}

// Peak represents a peak in the frequency spectrum
type Peak struct {
	Bin       int
	Magnitude float64
	Frequency float64
}

// findFundamentalFrequency finds the strongest interpolated peak in range
func (d *FFTDetector) findFundamentalFrequency(spectrum []complex128, sampleRate int) (float64, bool) {
	// We only need to look at the first half of the spectrum (Nyquist theorem)
	spectrumHalf := spectrum[:len(spectrum)/2]

	// Calculate frequency resolution (Hz per bin)
	binSizeHz := float64(sampleRate) / float64(len(spectrum))

	// Calculate min/max bin numbers based on frequency range
	minBin := int(d.minFrequency / binSizeHz)
	if minBin < 1 {
		minBin = 1 // Avoid DC component
	}

	maxBin := int(d.maxFrequency / binSizeHz)
	if maxBin >= len(spectrumHalf) {
		maxBin = len(spectrumHalf) - 1
	}
	if maxBin-minBin < 2 {
		return 0, false
	}

	// Find the maximum magnitude for normalization
	maxMagnitude := 0.0
	for i := minBin; i <= maxBin; i++ {
		if magnitude := cmplx.Abs(spectrumHalf[i]); magnitude > maxMagnitude {
			maxMagnitude = magnitude
		}
	}

	// Don't process further if signal is too weak
	if maxMagnitude < d.noiseFloor {
		return 0, false
	}

	var peaks []Peak
	for i := minBin + 1; i < maxBin; i++ {
		prev := cmplx.Abs(spectrumHalf[i-1])
		current := cmplx.Abs(spectrumHalf[i])
		next := cmplx.Abs(spectrumHalf[i+1])

		if current <= prev || current <= next || current <= maxMagnitude*d.peakThreshold {
			continue
		}

		// Quadratic interpolation for more accurate peak location
		// x = 0.5 * (R[k-1] - R[k+1]) / (R[k-1] - 2*R[k] + R[k+1]) + k
		freq := float64(i) * binSizeHz
		if denom := prev - 2*current + next; denom != 0 {
			freq = (float64(i) + 0.5*(prev-next)/denom) * binSizeHz
		}

		peaks = append(peaks, Peak{
			Bin:       i,
			Magnitude: current,
			Frequency: freq,
		})
	}

	if len(peaks) == 0 {
		return 0, false
	}

	// Sort peaks by magnitude (descending)
	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})

	if math.IsNaN(peaks[0].Frequency) {
		return 0, false
	}
	return peaks[0].Frequency, true
}
