package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/jsonc"
)

// Store loads and saves the per-flow preset files in a directory. Every Load
// reads the file again so edits made elsewhere are picked up by the next
// hotkey activation.
type Store struct {
	mu  sync.RWMutex
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file backing flow.
func (s *Store) Path(flow Flow) string {
	return filepath.Join(s.dir, string(flow)+"-presets.json")
}

// Load returns the settings of flow. A flow that was never saved is seeded
// with DefaultPreset and persisted. Hand-edited files may contain comments
// and trailing commas.
func (s *Store) Load(flow Flow) (Settings, error) {
	path := s.Path(flow)

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()

	if errors.Is(err, os.ErrNotExist) {
		seeded := Settings{Profiles: []Preset{DefaultPreset()}}
		if err := s.Save(flow, seeded); err != nil {
			slog.Warn("Failed to persist default presets", "flow", flow, "error", err)
		}
		return seeded, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read presets: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(jsonc.ToJSON(data), &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if settings.Profiles == nil {
		settings.Profiles = []Preset{}
	}
	settings.Profiles = Truncate(settings.Profiles)

	return settings, nil
}

// Save truncates the preset list to MaxPresets and atomically writes it.
func (s *Store) Save(flow Flow, settings Settings) error {
	settings = copySettings(settings)
	if len(settings.Profiles) > MaxPresets {
		slog.Warn("Preset list truncated", "flow", flow, "count", len(settings.Profiles), "max", MaxPresets)
	}
	settings.Profiles = Truncate(settings.Profiles)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAtomic(s.Path(flow), settings)
}

// writeAtomic writes to a temp file then renames it over path.
// Caller must hold s.mu.
func (s *Store) writeAtomic(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create preset directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace presets: %w", err)
	}
	return nil
}
