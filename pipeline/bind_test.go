package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"markestedt/shortcutai/preset"
)

type fakeHotkeys struct {
	mu   sync.Mutex
	keys map[string]func()
	fail map[string]bool
}

func newFakeHotkeys() *fakeHotkeys {
	return &fakeHotkeys{keys: make(map[string]func()), fail: make(map[string]bool)}
}

func (f *fakeHotkeys) Register(accel string, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[accel] {
		return fmt.Errorf("%s is grabbed by another program", accel)
	}
	if _, ok := f.keys[accel]; ok {
		return fmt.Errorf("%s already registered", accel)
	}
	f.keys[accel] = fn
	return nil
}

func (f *fakeHotkeys) Unregister(accel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, accel)
}

func (f *fakeHotkeys) UnregisterAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = make(map[string]func())
}

func (f *fakeHotkeys) has(accel string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.keys[accel]
	return ok
}

func (f *fakeHotkeys) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

func (f *fakeHotkeys) press(accel string) {
	f.mu.Lock()
	fn := f.keys[accel]
	f.mu.Unlock()
	if fn != nil {
		go fn()
	}
}

func TestBindSwapsOnlyOwnFlow(t *testing.T) {
	h := newHarness()

	if err := h.o.Bind(preset.FlowInline, "Ctrl+Shift+K"); err != nil {
		t.Fatalf("Bind inline: %v", err)
	}
	if err := h.o.Bind(preset.FlowPopup, "Ctrl+Shift+L"); err != nil {
		t.Fatalf("Bind popup: %v", err)
	}
	if err := h.o.Bind(preset.FlowInline, "Alt+Meta+J"); err != nil {
		t.Fatalf("rebind inline: %v", err)
	}

	if h.hotkeys.has("Ctrl+Shift+K") {
		t.Fatal("previous inline accelerator still registered")
	}
	if !h.hotkeys.has("Alt+Super+J") || !h.hotkeys.has("Ctrl+Shift+L") {
		t.Fatal("expected new inline and untouched popup accelerators")
	}
	if accel, ok := h.o.Bound(preset.FlowInline); !ok || accel != "Alt+Super+J" {
		t.Fatalf("Bound(inline) = %q, %v", accel, ok)
	}
}

func TestBindSameAcceleratorAgain(t *testing.T) {
	h := newHarness()
	for i := 0; i < 2; i++ {
		if err := h.o.Bind(preset.FlowInline, "Ctrl+Shift+K"); err != nil {
			t.Fatalf("Bind #%d: %v", i+1, err)
		}
	}
	if h.hotkeys.count() != 1 {
		t.Fatalf("expected one registration, got %d", h.hotkeys.count())
	}
}

func TestBindRejectsConflict(t *testing.T) {
	h := newHarness()
	if err := h.o.Bind(preset.FlowInline, "Ctrl+Shift+K"); err != nil {
		t.Fatal(err)
	}

	err := h.o.Bind(preset.FlowPopup, "shift+ctrl+k")
	if !errors.Is(err, ErrHotkeyConflict) {
		t.Fatalf("expected ErrHotkeyConflict, got %v", err)
	}
	if _, ok := h.o.Bound(preset.FlowPopup); ok {
		t.Fatal("conflicting flow was bound")
	}
	if !h.hotkeys.has("Ctrl+Shift+K") {
		t.Fatal("inline binding lost")
	}
}

func TestBindInvalidAndFailingHotkeys(t *testing.T) {
	h := newHarness()
	if err := h.o.Bind(preset.FlowInline, "Ctrl+Nope"); err == nil {
		t.Fatal("expected parse error")
	}

	h.hotkeys.fail["Ctrl+Shift+K"] = true
	if err := h.o.Bind(preset.FlowInline, "Ctrl+Shift+K"); err == nil {
		t.Fatal("expected registration error")
	}
	if _, ok := h.o.Bound(preset.FlowInline); ok {
		t.Fatal("failed registration recorded as bound")
	}
}

func TestBindDarwinTranslation(t *testing.T) {
	h := newHarness()
	h.o.goos = "darwin"
	if err := h.o.Bind(preset.FlowInline, "Ctrl+Meta+K"); err != nil {
		t.Fatal(err)
	}
	if !h.hotkeys.has("Cmd+Ctrl+K") {
		t.Fatal("expected Cmd+Ctrl+K on darwin")
	}
}

func TestUnbind(t *testing.T) {
	h := newHarness()
	h.o.Bind(preset.FlowInline, "Ctrl+Shift+K")
	h.o.Bind(preset.FlowPopup, "Ctrl+Shift+L")

	h.o.Bind(preset.FlowPopup, "")
	if h.hotkeys.has("Ctrl+Shift+L") {
		t.Fatal("empty hotkey did not unbind")
	}

	h.o.UnbindAll()
	if h.hotkeys.count() != 0 {
		t.Fatal("UnbindAll left registrations")
	}
	h.o.Unbind(preset.FlowInline)
}

func TestStartBindsStoredHotkeysAndRunsOnPress(t *testing.T) {
	h := newHarness()
	h.presets.settings[preset.FlowInline] = preset.Settings{
		Profiles: []preset.Preset{editGrammar()},
		General:  preset.General{Hotkey: "Ctrl+Shift+K"},
	}

	ran := make(chan Run, 1)
	h.o.OnRun(RunFunc(func(r Run) { ran <- r }))

	if err := h.o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, ok := h.o.Bound(preset.FlowPopup); ok {
		t.Fatal("popup flow has no hotkey and must stay unbound")
	}

	h.hotkeys.press("Ctrl+Shift+K")
	select {
	case r := <-ran:
		if r.Flow != preset.FlowInline || r.Outcome != OutcomeDelivered {
			t.Fatalf("unexpected run %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hotkey did not trigger a run")
	}
}

func TestStartReportsErrors(t *testing.T) {
	h := newHarness()
	h.presets.settings[preset.FlowInline] = preset.Settings{General: preset.General{Hotkey: "Ctrl+Shift+K"}}
	h.presets.settings[preset.FlowPopup] = preset.Settings{General: preset.General{Hotkey: "Ctrl+Shift+K"}}

	err := h.o.Start(context.Background())
	if !errors.Is(err, ErrHotkeyConflict) {
		t.Fatalf("expected conflict from Start, got %v", err)
	}
	if _, ok := h.o.Bound(preset.FlowInline); !ok {
		t.Fatal("first flow should still be bound")
	}
}
