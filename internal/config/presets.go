package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/BurntSushi/toml"
)

// PresetsFile is the name of the user preset file inside the config directory
const PresetsFile = "presets.toml"

type presetFile struct {
	Instruments []presetEntry `toml:"instrument"`
}

type presetEntry struct {
	ID      string   `toml:"id"`
	Name    string   `toml:"name"`
	Strings []string `toml:"strings"`
}

// PresetStore persists user-defined instruments, keyed by id. Built-in
// presets are always listed first and can't be overwritten.
type PresetStore struct {
	path   string
	logger *slog.Logger
}

// NewPresetStore creates a store backed by presets.toml in dir
func NewPresetStore(dir string, logger *slog.Logger) *PresetStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresetStore{path: joinPath(dir, PresetsFile), logger: logger}
}

// Path returns the backing file
func (s *PresetStore) Path() string {
	return s.path
}

// Load returns the built-in presets followed by the user-defined ones.
// Malformed user entries are skipped with a warning.
func (s *PresetStore) Load() ([]Instrument, error) {
	user, err := s.loadUser()
	if err != nil {
		return nil, err
	}
	return append(Builtins(), user...), nil
}

func (s *PresetStore) loadUser() ([]Instrument, error) {
	var file presetFile
	if _, err := toml.DecodeFile(s.path, &file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read presets %s: %w", s.path, err)
	}

	seen := make(map[string]bool)
	var out []Instrument
	for _, entry := range file.Instruments {
		inst, err := NewInstrument(entry.ID, entry.Name, entry.Strings)
		if err != nil {
			s.logger.Warn("skipping preset", "id", entry.ID, "err", err)
			continue
		}
		if isBuiltin(inst.ID) || seen[inst.ID] {
			s.logger.Warn("skipping duplicate preset", "id", inst.ID)
			continue
		}
		seen[inst.ID] = true
		out = append(out, inst)
	}
	return out, nil
}

// Save replaces the stored user presets. Built-in presets in the list are
// ignored; every user preset must be valid.
func (s *PresetStore) Save(instruments []Instrument) error {
	var file presetFile
	seen := make(map[string]bool)
	for _, inst := range instruments {
		if isBuiltin(inst.ID) && !inst.UserDefined {
			continue
		}
		if isBuiltin(inst.ID) {
			return fmt.Errorf("%w: %q", ErrBuiltinInstrument, inst.ID)
		}
		if err := inst.Validate(); err != nil {
			return err
		}
		if seen[inst.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidInstrument, inst.ID)
		}
		seen[inst.ID] = true
		file.Instruments = append(file.Instruments, presetEntry{
			ID:      inst.ID,
			Name:    inst.Name,
			Strings: inst.StringNames(),
		})
	}
	return writeTOML(s.path, file)
}

// Add stores inst, replacing any user preset with the same id
func (s *PresetStore) Add(inst Instrument) error {
	if isBuiltin(inst.ID) {
		return fmt.Errorf("%w: %q", ErrBuiltinInstrument, inst.ID)
	}
	inst.UserDefined = true
	if err := inst.Validate(); err != nil {
		return err
	}

	user, err := s.loadUser()
	if err != nil {
		return err
	}
	replaced := false
	for i := range user {
		if user[i].ID == inst.ID {
			user[i] = inst
			replaced = true
		}
	}
	if !replaced {
		user = append(user, inst)
	}
	if err := s.Save(user); err != nil {
		return err
	}
	s.logger.Info("preset saved", "id", inst.ID, "strings", inst.StringNames())
	return nil
}

// Remove deletes the user preset with the given id
func (s *PresetStore) Remove(id string) error {
	if isBuiltin(id) {
		return fmt.Errorf("%w: %q", ErrBuiltinInstrument, id)
	}
	user, err := s.loadUser()
	if err != nil {
		return err
	}
	kept := user[:0]
	for _, inst := range user {
		if inst.ID != id {
			kept = append(kept, inst)
		}
	}
	if len(kept) == len(user) {
		return fmt.Errorf("%w: %q", ErrUnknownInstrument, id)
	}
	if err := s.Save(kept); err != nil {
		return err
	}
	s.logger.Info("preset removed", "id", id)
	return nil
}
