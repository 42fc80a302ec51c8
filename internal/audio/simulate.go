package audio

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

// SimulationConfig describes the synthetic signal produced by SimulatedCapturer
type SimulationConfig struct {
	Frequency float64 // Centre frequency of the tone (Hz)
	Amplitude float64 // Peak amplitude of the fundamental
	DriftStep float64 // Maximum random-walk step per block (cents); 0 holds the pitch
	HumLevel  float64 // Linear level of a 60 Hz mains hum; 0 disables it
	Seed      uint64
}

// DefaultSimulationConfig returns an A4 tone that wanders around like a
// string being tuned
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Frequency: 440.0,
		Amplitude: 0.5,
		DriftStep: 2.0,
		HumLevel:  0.02,
		Seed:      1,
	}
}

// driftTone is a sine oscillator whose pitch offset in cents can be moved
// between blocks
type driftTone struct {
	base      float64
	cents     float64
	amplitude float64
	phase     float64
	rate      beep.SampleRate
}

func (d *driftTone) frequency() float64 {
	return d.base * math.Pow(2, d.cents/1200)
}

func (d *driftTone) Stream(samples [][2]float64) (n int, ok bool) {
	step := d.frequency() / float64(d.rate)
	for i := range samples {
		val := d.amplitude * math.Sin(2*math.Pi*d.phase)
		samples[i][0] = val
		samples[i][1] = val
		d.phase += step
		d.phase -= math.Floor(d.phase)
	}
	return len(samples), true
}

func (d *driftTone) Err() error { return nil }

// SimulatedCapturer produces synthetic audio without any hardware, for demos
// and for exercising the tuner end to end
type SimulatedCapturer struct {
	mu          sync.Mutex
	cfg         SimulationConfig
	bufferSize  int
	sampleRate  int
	isCapturing bool
	tone        *driftTone
	streamer    beep.Streamer
	frames      [][2]float64
	rng         *rand.Rand
	logger      *slog.Logger
}

// NewSimulatedCapturer creates a capturer emitting the configured tone
func NewSimulatedCapturer(bufferSize, sampleRate int, cfg SimulationConfig, logger *slog.Logger) *SimulatedCapturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulatedCapturer{
		cfg:        cfg,
		bufferSize: bufferSize,
		sampleRate: sampleRate,
		logger:     logger.With("backend", "simulate"),
	}
}

// Start begins audio capture
func (c *SimulatedCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isCapturing {
		return ErrAlreadyCapturing
	}
	if c.cfg.Frequency <= 0 || c.cfg.Frequency >= float64(c.sampleRate)/2 {
		return fmt.Errorf("%w: simulated frequency %.2f Hz outside (0, %d)", ErrAcquisitionFailed, c.cfg.Frequency, c.sampleRate/2)
	}

	rate := beep.SampleRate(c.sampleRate)
	c.tone = &driftTone{
		base:      c.cfg.Frequency,
		amplitude: c.cfg.Amplitude,
		rate:      rate,
	}
	c.streamer = c.tone

	if c.cfg.HumLevel > 0 {
		hum, err := generators.SineTone(rate, 60)
		if err != nil {
			return fmt.Errorf("%w: hum generator: %v", ErrAcquisitionFailed, err)
		}
		quiet := &effects.Volume{Streamer: hum, Base: 2, Volume: math.Log2(c.cfg.HumLevel), Silent: false}
		c.streamer = beep.Mix(c.tone, quiet)
	}

	c.frames = make([][2]float64, c.bufferSize)
	c.rng = rand.New(rand.NewPCG(c.cfg.Seed, c.cfg.Seed^0x9e3779b97f4a7c15))
	c.isCapturing = true
	c.logger.Info("capture started", "frequency", c.cfg.Frequency, "drift_step", c.cfg.DriftStep)
	return nil
}

// Stop ends audio capture
func (c *SimulatedCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCapturing {
		return ErrNotCapturing
	}
	c.isCapturing = false
	c.streamer = nil
	c.logger.Info("capture stopped")
	return nil
}

// GetBuffer renders the next block of the simulated signal
func (c *SimulatedCapturer) GetBuffer() (*AudioBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCapturing {
		return nil, ErrNotCapturing
	}

	// Random walk within +-50 cents, wrapping at the edges
	if c.cfg.DriftStep > 0 {
		c.tone.cents += (c.rng.Float64()*2 - 1) * c.cfg.DriftStep
		if c.tone.cents > 50 {
			c.tone.cents = -50
		}
		if c.tone.cents < -50 {
			c.tone.cents = 50
		}
	}

	n, _ := c.streamer.Stream(c.frames)
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = clampSample(float32(c.frames[i][0]))
	}

	return &AudioBuffer{Samples: samples, SampleRate: c.sampleRate}, nil
}

// IsCapturing returns true if currently capturing audio
func (c *SimulatedCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCapturing
}

// CurrentFrequency reports the frequency of the tone in the last block
func (c *SimulatedCapturer) CurrentFrequency() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tone == nil {
		return 0
	}
	return c.tone.frequency()
}
