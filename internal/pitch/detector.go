package pitch

import (
	"errors"
	"fmt"
	"math"

	"github.com/0xlemi/tunemaster/internal/audio"
)

// MaxBlockSize bounds the block length accepted by the estimators. The
// autocorrelation is quadratic in the block length and must finish well
// inside one display frame.
const MaxBlockSize = 8192

// Errors. Every estimator failure wraps ErrNoSignal, so callers only need
// errors.Is(err, ErrNoSignal) to treat it as "nothing detected".
var (
	ErrNoSignal     = errors.New("no signal")
	ErrSilence      = fmt.Errorf("%w: volume below threshold", ErrNoSignal)
	ErrInvalidBlock = fmt.Errorf("%w: invalid audio block", ErrNoSignal)
	ErrDegenerate   = fmt.Errorf("%w: no periodicity found", ErrNoSignal)
)

// Estimator defines the interface for fundamental frequency estimation
type Estimator interface {
	// EstimateFrequency analyzes an audio block and returns its fundamental
	// frequency in Hz, or an error wrapping ErrNoSignal
	EstimateFrequency(buffer *audio.AudioBuffer) (float64, error)
}

// validateBlock rejects blocks that no estimator should look at
func validateBlock(buffer *audio.AudioBuffer) error {
	if buffer == nil || len(buffer.Samples) == 0 {
		return fmt.Errorf("%w: empty buffer", ErrInvalidBlock)
	}
	if buffer.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidBlock, buffer.SampleRate)
	}
	if len(buffer.Samples) > MaxBlockSize {
		return fmt.Errorf("%w: %d samples exceeds %d", ErrInvalidBlock, len(buffer.Samples), MaxBlockSize)
	}
	for i, s := range buffer.Samples {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite sample at %d", ErrInvalidBlock, i)
		}
	}
	return nil
}
