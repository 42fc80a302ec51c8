package main

import (
	"fmt"
	"log/slog"

	"github.com/0xlemi/tunemaster/internal/audio"
	"github.com/0xlemi/tunemaster/internal/config"
	"github.com/0xlemi/tunemaster/internal/pitch"
	"github.com/0xlemi/tunemaster/internal/session"
)

// Audio backends selectable with --backend
const (
	backendPortAudio = "portaudio"
	backendMalgo     = "malgo"
	backendSimulate  = "simulate"
)

type captureOptions struct {
	bufferSize    int
	sampleRate    int
	device        string
	amplification float64
}

// newCapturer creates the audio source for a backend name
func newCapturer(backend string, opts captureOptions, logger *slog.Logger) (audio.Capturer, error) {
	if opts.bufferSize < 3 || opts.bufferSize > pitch.MaxBlockSize {
		return nil, fmt.Errorf("buffer size %d outside [3, %d]", opts.bufferSize, pitch.MaxBlockSize)
	}
	if opts.sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", opts.sampleRate)
	}

	switch backend {
	case backendPortAudio:
		c := audio.NewPortAudioCapturer(opts.bufferSize, opts.sampleRate, 1, logger)
		c.SetAmplification(float32(opts.amplification))
		return c, nil
	case backendMalgo:
		c := audio.NewMalgoCapturer(opts.bufferSize, opts.sampleRate, opts.device, logger)
		c.SetAmplification(float32(opts.amplification))
		return c, nil
	case backendSimulate:
		return audio.NewSimulatedCapturer(opts.bufferSize, opts.sampleRate, audio.DefaultSimulationConfig(), logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want portaudio, malgo or simulate)", backend)
	}
}

// newEstimator returns the pitch estimator for an --estimator name
func newEstimator(name string) (pitch.Estimator, error) {
	switch name {
	case "autocorrelation", "":
		return pitch.NewAutocorrelationDetector(), nil
	case "fft":
		return pitch.NewFFTDetector(), nil
	default:
		return nil, fmt.Errorf("unknown estimator %q (want autocorrelation or fft)", name)
	}
}

// buildSession creates an idle session reading from capturer, with the
// reference pitch and instrument taken from settings
func (a *app) buildSession(capturer audio.Capturer, settings config.Settings, instruments []config.Instrument) (*session.Session, error) {
	est, err := newEstimator(a.estimator)
	if err != nil {
		return nil, err
	}
	inst, err := config.FindInstrument(instruments, settings.Instrument)
	if err != nil {
		return nil, err
	}

	sess := session.New(capturer,
		session.WithEstimator(est),
		session.WithMatcher(settings.Matcher()),
		session.WithLogger(a.logger),
	)
	if err := sess.SetReferencePitch(settings.ReferencePitch); err != nil {
		return nil, err
	}
	if err := sess.SetInstrument(inst); err != nil {
		return nil, err
	}
	return sess, nil
}
