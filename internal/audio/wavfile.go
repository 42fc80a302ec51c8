package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mjibson/go-dsp/wav"
)

// WavCapturer plays back a WAV file as a sequence of consecutive blocks.
// It lets recordings go through the same path as live input.
type WavCapturer struct {
	mu         sync.Mutex
	path       string
	bufferSize int
	file       *os.File
	reader     *wav.Wav
	channels   int
	sampleRate int
	unsigned   bool // reader yields integer PCM scaled to [0, 1]
	offset     int  // frames already delivered
	logger     *slog.Logger
}

// NewWavCapturer creates a capturer reading bufferSize frames per block from path
func NewWavCapturer(path string, bufferSize int, logger *slog.Logger) *WavCapturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WavCapturer{
		path:       path,
		bufferSize: bufferSize,
		logger:     logger.With("backend", "wav", "path", path),
	}
}

// Start opens the file and parses its header
func (c *WavCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file != nil {
		return ErrAlreadyCapturing
	}

	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}
	r, err := wav.New(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("%w: parse wav header: %v", ErrAcquisitionFailed, err)
	}
	if r.NumChannels == 0 || r.SampleRate == 0 {
		f.Close()
		return fmt.Errorf("%w: wav header reports %d channels at %d Hz", ErrAcquisitionFailed, r.NumChannels, r.SampleRate)
	}

	c.file = f
	c.reader = r
	c.channels = int(r.NumChannels)
	c.sampleRate = int(r.SampleRate)
	c.unsigned = r.BitsPerSample == 8 || r.BitsPerSample == 16
	c.offset = 0
	c.logger.Info("file opened", "sample_rate", c.sampleRate, "channels", c.channels, "bits", r.BitsPerSample)
	return nil
}

// Stop closes the file
func (c *WavCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return ErrNotCapturing
	}
	err := c.file.Close()
	c.file = nil
	c.reader = nil
	return err
}

// GetBuffer returns the next block of the file, mixed down to mono.
// A trailing partial block is dropped and ErrEndOfStream is returned.
func (c *WavCapturer) GetBuffer() (*AudioBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reader == nil {
		return nil, ErrNotCapturing
	}

	raw, err := c.reader.ReadFloats(c.bufferSize * c.channels)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrEndOfStream
		}
		return nil, err
	}
	frames := len(raw) / c.channels
	if frames < c.bufferSize {
		return nil, ErrEndOfStream
	}

	samples := make([]float32, frames)
	for i := range samples {
		sum := float32(0)
		for ch := 0; ch < c.channels; ch++ {
			sum += raw[i*c.channels+ch]
		}
		v := sum / float32(c.channels)
		if c.unsigned {
			v = 2*v - 1
		}
		samples[i] = clampSample(v)
	}
	c.offset += frames

	return &AudioBuffer{Samples: samples, SampleRate: c.sampleRate}, nil
}

// IsCapturing returns true while the file is open
func (c *WavCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file != nil
}

// SampleRate returns the file's sample rate; zero before Start
func (c *WavCapturer) SampleRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleRate
}

// Position returns the playback position in seconds, at the start of the
// next block to be read
func (c *WavCapturer) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sampleRate == 0 {
		return 0
	}
	return float64(c.offset) / float64(c.sampleRate)
}
