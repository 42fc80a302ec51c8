package audio

import (
	"errors"
)

// Errors
var (
	ErrAcquisitionFailed = errors.New("audio acquisition failed")
	ErrAlreadyCapturing  = errors.New("audio capture already started")
	ErrNotCapturing      = errors.New("audio capture not started")
	ErrEndOfStream       = errors.New("end of audio stream")
)

// AudioBuffer represents a block of mono audio samples normalized to [-1, 1]
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the length of the block in seconds
func (b *AudioBuffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Capturer defines the interface for audio capture
type Capturer interface {
	// Start acquires the input device and begins audio capture
	Start() error

	// Stop ends audio capture and releases the device
	Stop() error

	// GetBuffer returns the most recent block of samples
	GetBuffer() (*AudioBuffer, error)

	// IsCapturing returns true if currently capturing audio
	IsCapturing() bool
}

// clampSample keeps an amplified sample inside the normalized range
func clampSample(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}

// blockWindow keeps the latest size samples written to it
type blockWindow struct {
	samples []float32
	filled  int
}

func newBlockWindow(size int) *blockWindow {
	return &blockWindow{samples: make([]float32, size)}
}

// push appends frames, discarding the oldest samples once the window is full
func (w *blockWindow) push(frames []float32) {
	size := len(w.samples)
	if len(frames) >= size {
		copy(w.samples, frames[len(frames)-size:])
		w.filled = size
		return
	}
	copy(w.samples, w.samples[len(frames):])
	copy(w.samples[size-len(frames):], frames)
	w.filled += len(frames)
	if w.filled > size {
		w.filled = size
	}
}

// snapshot copies the window contents, oldest sample first.
// Until the window has filled, only the samples received so far are returned.
func (w *blockWindow) snapshot() []float32 {
	out := make([]float32, w.filled)
	copy(out, w.samples[len(w.samples)-w.filled:])
	return out
}
