package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xlemi/tunemaster/internal/audio"
	"github.com/0xlemi/tunemaster/internal/config"
	"github.com/0xlemi/tunemaster/internal/pitch"
)

// ErrNotListening is returned by Tick and Poll while the session is idle
var ErrNotListening = errors.New("session is not listening")

// State is the listening state of a session
type State int32

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// Result is what the renderer shows for one tick. The zero value is the
// idle state: unknown note, zero cents, zero frequency.
type Result struct {
	Note    pitch.Note
	Strings []pitch.StringResult
}

// Idle reports whether r carries no detection
func (r Result) Idle() bool {
	return !r.Note.Known()
}

func (r Result) clone() Result {
	out := r
	out.Strings = append([]pitch.StringResult(nil), r.Strings...)
	return out
}

// Session ties an audio source to the estimator and the note mapping.
// Reference pitch and instrument may be changed from any goroutine at any
// time; each tick reads their current value.
type Session struct {
	capturer  audio.Capturer
	estimator pitch.Estimator
	matcher   pitch.Matcher
	logger    *slog.Logger

	state      atomic.Int32
	generation atomic.Uint64
	reference  atomic.Uint64 // math.Float64bits of the A4 frequency
	instrument atomic.Pointer[config.Instrument]

	lifecycleMu sync.Mutex // serializes Start and Stop
	tickMu      sync.Mutex // one tick at a time
	resultMu    sync.Mutex
	result      Result
}

// Option configures a Session
type Option func(*Session)

// WithEstimator replaces the default autocorrelation estimator
func WithEstimator(e pitch.Estimator) Option {
	return func(s *Session) { s.estimator = e }
}

// WithMatcher replaces the default 20 Hz target matcher
func WithMatcher(m pitch.Matcher) Option {
	return func(s *Session) { s.matcher = m }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an idle session reading from capturer, with A4 = 440 Hz and
// the standard guitar tuning
func New(capturer audio.Capturer, opts ...Option) *Session {
	s := &Session{
		capturer:  capturer,
		estimator: pitch.NewAutocorrelationDetector(),
		matcher:   pitch.DefaultMatcher(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reference.Store(math.Float64bits(pitch.DefaultReference))
	inst := config.DefaultInstrument()
	s.instrument.Store(&inst)
	return s
}

// State returns the current listening state
func (s *Session) State() State {
	return State(s.state.Load())
}

// ReferencePitch returns the current A4 frequency in Hz
func (s *Session) ReferencePitch() float64 {
	return math.Float64frombits(s.reference.Load())
}

// SetReferencePitch changes the A4 frequency. Invalid values are rejected
// and the previous value is kept.
func (s *Session) SetReferencePitch(hz float64) error {
	if err := config.ValidateReference(hz); err != nil {
		s.logger.Warn("rejected reference pitch", "value", hz)
		return err
	}
	s.reference.Store(math.Float64bits(hz))
	s.logger.Debug("reference pitch changed", "hz", hz)
	return nil
}

// Instrument returns the active instrument
func (s *Session) Instrument() config.Instrument {
	return *s.instrument.Load()
}

// SetInstrument changes the active instrument. An instrument without
// strings is rejected and the previous one is kept. The per-string results
// are cleared so they always line up with the active strings.
func (s *Session) SetInstrument(inst config.Instrument) error {
	if err := inst.Validate(); err != nil {
		s.logger.Warn("rejected instrument", "id", inst.ID, "err", err)
		return err
	}
	inst.Strings = append([]pitch.Target(nil), inst.Strings...)
	s.instrument.Store(&inst)

	s.resultMu.Lock()
	if !s.result.Idle() {
		s.result.Strings = s.matcher.MatchAll(0, inst.Strings, s.ReferencePitch())
	}
	s.resultMu.Unlock()

	s.logger.Info("instrument changed", "id", inst.ID, "strings", inst.StringNames())
	return nil
}

// Start acquires the audio source and moves the session to Listening. On
// failure the session stays Idle and the error wraps
// audio.ErrAcquisitionFailed.
func (s *Session) Start() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.State() == Listening {
		return nil
	}
	if err := s.capturer.Start(); err != nil {
		s.logger.Error("audio acquisition failed", "err", err)
		if !errors.Is(err, audio.ErrAcquisitionFailed) {
			err = fmt.Errorf("%w: %v", audio.ErrAcquisitionFailed, err)
		}
		return err
	}
	s.generation.Add(1)
	s.state.Store(int32(Listening))
	s.logger.Info("session listening", "reference", s.ReferencePitch(), "instrument", s.Instrument().ID)
	return nil
}

// Stop moves the session to Idle and resets the result. It does not wait
// for an in-flight tick; such a tick finishes without publishing.
func (s *Session) Stop() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.State() == Idle {
		return nil
	}
	s.state.Store(int32(Idle))
	s.generation.Add(1)

	s.resultMu.Lock()
	s.result = Result{}
	s.resultMu.Unlock()

	err := s.capturer.Stop()
	if errors.Is(err, audio.ErrNotCapturing) {
		err = nil
	}
	s.logger.Info("session idle")
	return err
}

// Snapshot returns a copy of the latest result
func (s *Session) Snapshot() Result {
	s.resultMu.Lock()
	defer s.resultMu.Unlock()
	return s.result.clone()
}

// Tick runs one detection over block and returns the result to display.
// When nothing is detected the previous result is kept, so a momentary
// dropout does not blank the display.
func (s *Session) Tick(block *audio.AudioBuffer) (Result, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	gen := s.generation.Load()
	if s.State() != Listening {
		return Result{}, ErrNotListening
	}
	reference := s.ReferencePitch()
	inst := s.instrument.Load()

	freq, err := s.estimator.EstimateFrequency(block)
	if err != nil {
		if !errors.Is(err, pitch.ErrNoSignal) {
			return s.Snapshot(), err
		}
		s.logger.Debug("no signal", "reason", err)
		return s.Snapshot(), nil
	}

	next := Result{
		Note:    pitch.FrequencyToNote(freq, reference),
		Strings: s.matcher.MatchAll(freq, inst.Strings, reference),
	}

	s.resultMu.Lock()
	defer s.resultMu.Unlock()
	if s.generation.Load() != gen || s.State() != Listening {
		return s.result.clone(), ErrNotListening
	}
	// The strings must line up with the instrument active at publish time
	if cur := s.instrument.Load(); cur != inst {
		next.Strings = s.matcher.MatchAll(freq, cur.Strings, reference)
	}
	s.result = next
	s.logger.Debug("tick", "note", next.Note.String(), "cents", next.Note.Cents, "frequency", freq)
	return next.clone(), nil
}

// Poll reads the most recent block from the audio source and ticks on it
func (s *Session) Poll() (Result, error) {
	if s.State() != Listening {
		return Result{}, ErrNotListening
	}
	block, err := s.capturer.GetBuffer()
	if err != nil {
		if errors.Is(err, audio.ErrNotCapturing) {
			return Result{}, ErrNotListening
		}
		return s.Snapshot(), err
	}
	return s.Tick(block)
}

// Run polls every interval until ctx is done, the session stops, or the
// audio source fails. fn receives every result.
func (s *Session) Run(ctx context.Context, interval time.Duration, fn func(Result)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			res, err := s.Poll()
			if errors.Is(err, ErrNotListening) {
				return nil
			}
			if err != nil {
				return err
			}
			if fn != nil {
				fn(res)
			}
		}
	}
}
