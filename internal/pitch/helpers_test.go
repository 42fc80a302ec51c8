package pitch

import (
	"math"

	"github.com/0xlemi/tunemaster/internal/audio"
)

const testSampleRate = 44100

// sineBuffer generates a block of a pure sine tone
func sineBuffer(freq, amplitude float64, size, sampleRate int) *audio.AudioBuffer {
	samples := make([]float32, size)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return &audio.AudioBuffer{Samples: samples, SampleRate: sampleRate}
}
