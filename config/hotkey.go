package config

import (
	"fmt"
	"strings"
)

// Binding is a parsed hotkey: an ordered modifier set plus one key.
// Ctrl and Meta are platform-neutral; Accelerator maps them to the
// platform's primary and secondary modifier.
type Binding struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
	Key   string
}

var keyAliases = map[string]string{
	"esc":        "Escape",
	"escape":     "Escape",
	"enter":      "Return",
	"return":     "Return",
	"space":      "Space",
	"tab":        "Tab",
	"backspace":  "Delete",
	"delete":     "Delete",
	"up":         "Up",
	"down":       "Down",
	"left":       "Left",
	"right":      "Right",
	"arrowup":    "Up",
	"arrowdown":  "Down",
	"arrowleft":  "Left",
	"arrowright": "Right",
}

// ParseBinding parses a hotkey combo string like "Ctrl+Shift+K" or
// "alt+meta+f5". Exactly one non-modifier key is required, and at least one
// modifier.
func ParseBinding(combo string) (Binding, error) {
	var b Binding
	combo = strings.TrimSpace(combo)
	if combo == "" {
		return b, fmt.Errorf("empty hotkey combo")
	}

	parts := strings.Split(combo, "+")
	for i, raw := range parts {
		part := strings.ToLower(strings.TrimSpace(raw))
		if part == "" {
			return b, fmt.Errorf("empty segment in hotkey %q", combo)
		}

		switch part {
		case "ctrl", "control", "cmd", "command", "commandorcontrol", "cmdorctrl":
			b.Ctrl = true
			continue
		case "alt", "option":
			b.Alt = true
			continue
		case "shift":
			b.Shift = true
			continue
		case "meta", "super", "win", "windows":
			b.Meta = true
			continue
		}

		// Non-modifier: must be the last part.
		if i != len(parts)-1 {
			return b, fmt.Errorf("unknown modifier: %s", raw)
		}
		key, err := normalizeKey(part)
		if err != nil {
			return b, err
		}
		b.Key = key
	}

	if b.Key == "" {
		return b, fmt.Errorf("no key specified in combo %q", combo)
	}
	if !b.Ctrl && !b.Alt && !b.Shift && !b.Meta {
		return b, fmt.Errorf("no modifiers specified in combo %q", combo)
	}

	return b, nil
}

func normalizeKey(k string) (string, error) {
	if alias, ok := keyAliases[k]; ok {
		return alias, nil
	}
	if len(k) == 1 && (k[0] >= 'a' && k[0] <= 'z' || k[0] >= '0' && k[0] <= '9') {
		return strings.ToUpper(k), nil
	}
	if len(k) >= 2 && k[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(k[1:], "%d", &n); err == nil && n >= 1 && n <= 20 && fmt.Sprintf("f%d", n) == k {
			return fmt.Sprintf("F%d", n), nil
		}
	}
	return "", fmt.Errorf("unknown key: %s", k)
}

// String renders the binding in its normalized, platform-neutral form.
func (b Binding) String() string {
	var parts []string
	if b.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if b.Alt {
		parts = append(parts, "Alt")
	}
	if b.Shift {
		parts = append(parts, "Shift")
	}
	if b.Meta {
		parts = append(parts, "Meta")
	}
	return strings.Join(append(parts, b.Key), "+")
}

// Accelerator translates the binding for goos: Ctrl becomes the platform's
// primary modifier (Cmd on darwin) and Meta its secondary modifier (Ctrl on
// darwin, Super elsewhere).
func (b Binding) Accelerator(goos string) string {
	primary, secondary := "Ctrl", "Super"
	if goos == "darwin" {
		primary, secondary = "Cmd", "Ctrl"
	}

	var parts []string
	if b.Ctrl {
		parts = append(parts, primary)
	}
	if b.Alt {
		parts = append(parts, "Alt")
	}
	if b.Shift {
		parts = append(parts, "Shift")
	}
	if b.Meta {
		parts = append(parts, secondary)
	}
	return strings.Join(append(parts, b.Key), "+")
}
