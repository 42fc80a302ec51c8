package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/0xlemi/tunemaster/internal/pitch"
	"github.com/BurntSushi/toml"
)

// SettingsFile is the name of the settings file inside the config directory
const SettingsFile = "settings.toml"

// Errors
var (
	ErrInvalidReference  = errors.New("reference pitch must be a positive number of Hz")
	ErrEmptyInstrument   = errors.New("instrument has no strings")
	ErrInvalidInstrument = errors.New("invalid instrument")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrBuiltinInstrument = errors.New("built-in instruments are read-only")
	ErrInvalidSettings   = errors.New("invalid settings")
)

// Settings are the user preferences kept between runs
type Settings struct {
	ReferencePitch   float64 `toml:"reference_pitch"`
	Instrument       string  `toml:"instrument"`
	Mode             string  `toml:"mode"`
	KeepAwake        bool    `toml:"keep_awake"`
	MatchWindowHz    float64 `toml:"match_window_hz"`
	MatchWindowCents float64 `toml:"match_window_cents"`
}

// DefaultSettings returns A4 = 440 Hz, standard guitar, chromatic mode
func DefaultSettings() Settings {
	return Settings{
		ReferencePitch: pitch.DefaultReference,
		Instrument:     DefaultInstrumentID,
		Mode:           "chromatic",
		MatchWindowHz:  pitch.DefaultMatchWindowHz,
	}
}

// ValidateReference checks a reference pitch value
func ValidateReference(hz float64) error {
	if !(hz > 0) || math.IsInf(hz, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidReference, hz)
	}
	return nil
}

// Validate checks every field
func (s Settings) Validate() error {
	if err := ValidateReference(s.ReferencePitch); err != nil {
		return err
	}
	if s.Instrument == "" {
		return fmt.Errorf("%w: no instrument selected", ErrInvalidSettings)
	}
	if s.MatchWindowHz < 0 || s.MatchWindowCents < 0 {
		return fmt.Errorf("%w: negative match window", ErrInvalidSettings)
	}
	return nil
}

// Matcher builds the target matcher described by the settings
func (s Settings) Matcher() pitch.Matcher {
	return pitch.Matcher{WindowHz: s.MatchWindowHz, WindowCents: s.MatchWindowCents}
}

// SettingsStore reads and writes settings.toml
type SettingsStore struct {
	path   string
	logger *slog.Logger
}

// NewSettingsStore creates a store backed by settings.toml in dir
func NewSettingsStore(dir string, logger *slog.Logger) *SettingsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{path: joinPath(dir, SettingsFile), logger: logger}
}

// Path returns the backing file
func (s *SettingsStore) Path() string {
	return s.path
}

// Load returns the stored settings. A missing file yields the defaults;
// invalid fields are replaced by their defaults.
func (s *SettingsStore) Load() (Settings, error) {
	settings := DefaultSettings()
	if _, err := toml.DecodeFile(s.path, &settings); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return DefaultSettings(), fmt.Errorf("read settings %s: %w", s.path, err)
	}

	defaults := DefaultSettings()
	if err := ValidateReference(settings.ReferencePitch); err != nil {
		s.logger.Warn("ignoring stored reference pitch", "value", settings.ReferencePitch)
		settings.ReferencePitch = defaults.ReferencePitch
	}
	if settings.Instrument == "" {
		settings.Instrument = defaults.Instrument
	}
	if settings.Mode == "" {
		settings.Mode = defaults.Mode
	}
	if settings.MatchWindowHz < 0 || settings.MatchWindowCents < 0 {
		s.logger.Warn("ignoring stored match window", "hz", settings.MatchWindowHz, "cents", settings.MatchWindowCents)
		settings.MatchWindowHz = defaults.MatchWindowHz
		settings.MatchWindowCents = 0
	}
	return settings, nil
}

// Save writes settings after validating them; invalid settings leave the
// file untouched
func (s *SettingsStore) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := writeTOML(s.path, settings); err != nil {
		return err
	}
	s.logger.Debug("settings saved", "path", s.path)
	return nil
}

// DefaultDir returns the per-user configuration directory
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "tunemaster"), nil
}

func joinPath(dir, name string) string {
	return filepath.Join(dir, name)
}

// writeTOML encodes v to a temporary file and renames it over path
func writeTOML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
