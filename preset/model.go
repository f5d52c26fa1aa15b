package preset

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPresets is the number of presets a flow can hold; preset k is selected
// with digit key k+1.
const MaxPresets = 9

// Flow identifies one of the two hotkey trigger paths.
type Flow string

const (
	// FlowInline replaces the selection in place.
	FlowInline Flow = "inline"
	// FlowPopup shows the result on a display surface.
	FlowPopup Flow = "popup"
)

// Flows lists every flow in a stable order.
var Flows = []Flow{FlowInline, FlowPopup}

// ParseFlow accepts the canonical names and the aliases used by older
// settings files.
func ParseFlow(s string) (Flow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inline", "replace", "input", "inputfield":
		return FlowInline, nil
	case "popup", "display", "selection":
		return FlowPopup, nil
	}
	return "", fmt.Errorf("unknown flow: %q", s)
}

// Preset is a named prompt applied to captured text.
type Preset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// General holds per-flow settings other than the preset list.
type General struct {
	Hotkey string `json:"hotkey"`
}

// Settings is the persisted state of one flow.
type Settings struct {
	Profiles []Preset `json:"profiles"`
	General  General  `json:"general"`
}

var ErrInvalid = errors.New("invalid presets")

// DefaultPreset is seeded into a flow that has never been saved.
func DefaultPreset() Preset {
	return Preset{
		ID:     "default-editgrammar",
		Name:   "EditGrammar",
		Prompt: "Please fix the grammar and spelling in the following text while keeping the original meaning:",
	}
}

// Truncate keeps the first MaxPresets entries.
func Truncate(presets []Preset) []Preset {
	if len(presets) > MaxPresets {
		return presets[:MaxPresets]
	}
	return presets
}

// Validate checks the invariants the settings UI enforces: non-empty unique
// names and unique non-empty ids. The pipeline does not depend on them.
func Validate(presets []Preset) error {
	ids := make(map[string]bool, len(presets))
	names := make(map[string]bool, len(presets))
	for i, p := range presets {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("%w: preset %d has no id", ErrInvalid, i+1)
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("%w: preset %d has no name", ErrInvalid, i+1)
		}
		if ids[p.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalid, p.ID)
		}
		if names[name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalid, name)
		}
		ids[p.ID] = true
		names[name] = true
	}
	return nil
}

func copySettings(s Settings) Settings {
	profiles := make([]Preset, len(s.Profiles))
	copy(profiles, s.Profiles)
	return Settings{Profiles: profiles, General: s.General}
}
