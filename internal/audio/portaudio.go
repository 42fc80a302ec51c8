package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioCapturer implements audio capture using PortAudio
type PortAudioCapturer struct {
	isCapturing   bool
	stream        *portaudio.Stream
	window        *blockWindow
	bufferSize    int
	sampleRate    int
	channels      int
	bufferMutex   sync.Mutex
	amplification float32 // Audio signal amplification factor
	logger        *slog.Logger
}

// NewPortAudioCapturer creates a new audio capturer using PortAudio.
// PortAudio itself is initialized on Start.
func NewPortAudioCapturer(bufferSize, sampleRate, channels int, logger *slog.Logger) *PortAudioCapturer {
	if logger == nil {
		logger = slog.Default()
	}
	if channels < 1 {
		channels = 1
	}
	return &PortAudioCapturer{
		window:        newBlockWindow(bufferSize),
		bufferSize:    bufferSize,
		sampleRate:    sampleRate,
		channels:      channels,
		amplification: 1.0,
		logger:        logger.With("backend", "portaudio"),
	}
}

// Start begins audio capture
func (c *PortAudioCapturer) Start() error {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	if c.isCapturing {
		return ErrAlreadyCapturing
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: initialize portaudio: %v", ErrAcquisitionFailed, err)
	}

	// Open default input stream
	stream, err := portaudio.OpenDefaultStream(
		c.channels, // input channels
		0,          // output channels (we don't need output)
		float64(c.sampleRate),
		c.bufferSize/c.channels, // frames per buffer
		c.processAudio,          // callback function
	)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: open input stream: %v", ErrAcquisitionFailed, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: start input stream: %v", ErrAcquisitionFailed, err)
	}

	c.stream = stream
	c.window = newBlockWindow(c.bufferSize)
	c.isCapturing = true
	c.logger.Info("capture started", "sample_rate", c.sampleRate, "buffer_size", c.bufferSize, "channels", c.channels)
	return nil
}

// Stop ends audio capture
func (c *PortAudioCapturer) Stop() error {
	c.bufferMutex.Lock()
	stream := c.stream
	capturing := c.isCapturing
	c.isCapturing = false
	c.stream = nil
	c.bufferMutex.Unlock()

	if !capturing {
		return ErrNotCapturing
	}

	// The callback takes bufferMutex, so the stream is stopped outside of it
	if err := stream.Stop(); err != nil {
		return err
	}
	if err := stream.Close(); err != nil {
		return err
	}
	if err := portaudio.Terminate(); err != nil {
		return err
	}

	c.logger.Info("capture stopped")
	return nil
}

// processAudio is the callback function for audio processing
func (c *PortAudioCapturer) processAudio(in, _ []float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	// Multi-channel input is averaged down to mono
	mono := make([]float32, len(in)/c.channels)
	for i := range mono {
		sum := float32(0)
		for ch := 0; ch < c.channels; ch++ {
			sum += in[i*c.channels+ch]
		}
		mono[i] = clampSample((sum / float32(c.channels)) * c.amplification)
	}

	c.window.push(mono)
}

// GetBuffer returns a copy of the most recent audio block
func (c *PortAudioCapturer) GetBuffer() (*AudioBuffer, error) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	if !c.isCapturing {
		return nil, ErrNotCapturing
	}

	return &AudioBuffer{
		Samples:    c.window.snapshot(),
		SampleRate: c.sampleRate,
	}, nil
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioCapturer) IsCapturing() bool {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()
	return c.isCapturing
}

// SetAmplification sets the audio amplification factor
func (c *PortAudioCapturer) SetAmplification(factor float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	// Ensure amplification is positive
	if factor < 0.1 {
		factor = 0.1
	}

	c.amplification = factor
}
