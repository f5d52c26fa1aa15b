// Package hotkeys registers system-wide accelerators through
// golang.design/x/hotkey. On Linux the library connects to the X11 display
// when the package is initialised, so only the binary imports it.
package hotkeys

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.design/x/hotkey"

	"markestedt/shortcutai/platform"
)

// ParseAccelerator converts a platform accelerator such as "Ctrl+Shift+K",
// "Cmd+Alt+F5" or a bare "Escape" into hotkey modifiers and key. The modMap
// and keyMap variables are defined in the keymap files.
func ParseAccelerator(accel string) ([]hotkey.Modifier, hotkey.Key, error) {
	if strings.TrimSpace(accel) == "" {
		return nil, 0, fmt.Errorf("empty accelerator")
	}
	parts := strings.Split(accel, "+")

	var mods []hotkey.Modifier
	for _, name := range parts[:len(parts)-1] {
		m, ok := modMap[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, 0, fmt.Errorf("unknown modifier %q in %q", name, accel)
		}
		mods = append(mods, m)
	}

	name := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	key, ok := keyMap[name]
	if !ok {
		return nil, 0, fmt.Errorf("unknown key %q in %q", name, accel)
	}
	return mods, key, nil
}

type registration struct {
	hk   *hotkey.Hotkey
	done chan struct{}
}

var _ platform.HotkeyRegistry = (*Registry)(nil)

// Registry is the system platform.HotkeyRegistry. Callbacks run on their own
// goroutine so a callback may unregister keys, including its own.
type Registry struct {
	mu   sync.Mutex
	keys map[string]*registration
}

func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]*registration)}
}

// Register grabs accel system-wide and calls fn on every key down.
func (g *Registry) Register(accel string, fn func()) error {
	mods, key, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.keys[accel]; ok {
		return fmt.Errorf("accelerator %s is already registered", accel)
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register %s: %w", accel, err)
	}

	reg := &registration{hk: hk, done: make(chan struct{})}
	g.keys[accel] = reg
	go reg.listen(fn)

	slog.Debug("Hotkey registered", "accelerator", accel)
	return nil
}

func (r *registration) listen(fn func()) {
	keydown := r.hk.Keydown()
	for {
		select {
		case <-r.done:
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			go fn()
		}
	}
}

func (g *Registry) Unregister(accel string) {
	g.mu.Lock()
	reg, ok := g.keys[accel]
	delete(g.keys, accel)
	g.mu.Unlock()

	if ok {
		g.release(accel, reg)
	}
}

func (g *Registry) UnregisterAll() {
	g.mu.Lock()
	keys := g.keys
	g.keys = make(map[string]*registration)
	g.mu.Unlock()

	for accel, reg := range keys {
		g.release(accel, reg)
	}
}

func (g *Registry) release(accel string, reg *registration) {
	close(reg.done)
	if err := reg.hk.Unregister(); err != nil {
		slog.Warn("Failed to unregister hotkey", "accelerator", accel, "error", err)
		return
	}
	slog.Debug("Hotkey unregistered", "accelerator", accel)
}
