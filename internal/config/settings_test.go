package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSettingsStoreDefaultsWhenMissing(t *testing.T) {
	store := NewSettingsStore(t.TempDir(), nil)
	s, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s != DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", s)
	}
	if s.ReferencePitch != 440 || s.Instrument != DefaultInstrumentID {
		t.Fatalf("unexpected defaults %+v", s)
	}
}

func TestSettingsStoreSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store := NewSettingsStore(dir, nil)

	want := Settings{
		ReferencePitch:   442,
		Instrument:       "violin",
		Mode:             "strobe",
		KeepAwake:        true,
		MatchWindowHz:    20,
		MatchWindowCents: 60,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestSettingsStoreRejectsInvalidReference(t *testing.T) {
	store := NewSettingsStore(t.TempDir(), nil)
	if err := store.Save(DefaultSettings()); err != nil {
		t.Fatalf("save: %v", err)
	}

	bad := DefaultSettings()
	bad.ReferencePitch = 0
	if err := store.Save(bad); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}

	got, _ := store.Load()
	if got.ReferencePitch != 440 {
		t.Fatalf("rejected write must keep the prior value, got %v", got.ReferencePitch)
	}
}

func TestSettingsStoreRepairsStoredValues(t *testing.T) {
	store := NewSettingsStore(t.TempDir(), nil)
	content := "reference_pitch = -3.0\nmode = \"polyphonic\"\nmatch_window_hz = -1.0\n"
	if err := os.WriteFile(store.Path(), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ReferencePitch != 440 || s.Mode != "polyphonic" || s.MatchWindowHz != 20 || s.Instrument != DefaultInstrumentID {
		t.Fatalf("unexpected repaired settings %+v", s)
	}
}

func TestSettingsStoreMalformedFile(t *testing.T) {
	store := NewSettingsStore(t.TempDir(), nil)
	if err := os.WriteFile(store.Path(), []byte("reference_pitch = = 1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := store.Load()
	if err == nil {
		t.Fatal("expected a decode error")
	}
	if s != DefaultSettings() {
		t.Fatalf("expected defaults alongside the error, got %+v", s)
	}
}

func TestSettingsMatcher(t *testing.T) {
	s := DefaultSettings()
	s.MatchWindowCents = 35
	m := s.Matcher()
	if m.WindowHz != 20 || m.WindowCents != 35 {
		t.Fatalf("unexpected matcher %+v", m)
	}
}
