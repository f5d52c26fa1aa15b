package overlay

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"markestedt/shortcutai/platform"
	"markestedt/shortcutai/preset"
)

type fakeHotkeys struct {
	mu   sync.Mutex
	keys map[string]func()
}

func newFakeHotkeys() *fakeHotkeys {
	return &fakeHotkeys{keys: make(map[string]func())}
}

func (f *fakeHotkeys) Register(accel string, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
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

// press fires accel the way the system registry does, on a new goroutine.
func (f *fakeHotkeys) press(accel string) bool {
	f.mu.Lock()
	fn, ok := f.keys[accel]
	f.mu.Unlock()
	if ok {
		go fn()
	}
	return ok
}

func (f *fakeHotkeys) registered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fakeSurface struct {
	mu     sync.Mutex
	shown  []Session
	hidden map[string]int
	shownC chan Session
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{hidden: make(map[string]int), shownC: make(chan Session, 8)}
}

func (f *fakeSurface) ShowOverlay(s Session) error {
	f.mu.Lock()
	f.shown = append(f.shown, s)
	f.mu.Unlock()
	f.shownC <- s
	return nil
}

func (f *fakeSurface) HideOverlay(token string, index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden[token] = index
}

func (f *fakeSurface) waitShown(t *testing.T) Session {
	t.Helper()
	select {
	case s := <-f.shownC:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("overlay was not shown")
		return Session{}
	}
}

func presets(n int) []preset.Preset {
	var out []preset.Preset
	for i := 0; i < n; i++ {
		out = append(out, preset.Preset{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("P%d", i)})
	}
	return out
}

func newTestController() (*Controller, *fakeHotkeys, *fakeSurface) {
	hk := newFakeHotkeys()
	surface := newFakeSurface()
	screen := platform.StaticScreen{Area: platform.Rect{Width: 1920, Height: 1080}}
	c := NewController(hk, screen, surface, Layout{Width: 260, RowHeight: 38, Padding: 16})
	return c, hk, surface
}

// presentAsync runs Present in the background and returns its result channel.
func presentAsync(c *Controller, ctx context.Context, p []preset.Preset) <-chan Selection {
	ch := make(chan Selection, 1)
	go func() { ch <- c.Present(ctx, p) }()
	return ch
}

func wait(t *testing.T, ch <-chan Selection) Selection {
	t.Helper()
	select {
	case sel := <-ch:
		return sel
	case <-time.After(2 * time.Second):
		t.Fatal("Present did not return")
		return Selection{}
	}
}

func TestPresentEmptyList(t *testing.T) {
	c, hk, surface := newTestController()

	sel := c.Present(context.Background(), nil)
	if sel.Outcome != Dismissed || sel.Index != -1 {
		t.Fatalf("unexpected selection %+v", sel)
	}
	if len(hk.registered()) != 0 || len(surface.shown) != 0 {
		t.Fatal("empty list must not open or register anything")
	}
}

func TestDigitChoosesPreset(t *testing.T) {
	c, hk, surface := newTestController()

	ch := presentAsync(c, context.Background(), presets(3))
	surface.waitShown(t)

	if got := hk.registered(); fmt.Sprint(got) != "[1 2 3 Escape]" {
		t.Fatalf("registered keys = %v", got)
	}
	if hk.press("4") {
		t.Fatal("digit beyond the preset count must not be bound")
	}

	hk.press("2")
	sel := wait(t, ch)
	if sel.Outcome != Chosen || sel.Index != 1 {
		t.Fatalf("unexpected selection %+v", sel)
	}
	if got := hk.registered(); len(got) != 0 {
		t.Fatalf("keys still registered after close: %v", got)
	}
}

func TestEscapeCancelsOnceAndReleasesKeys(t *testing.T) {
	c, hk, surface := newTestController()

	ch := presentAsync(c, context.Background(), presets(2))
	s := surface.waitShown(t)

	hk.press("Escape")
	sel := wait(t, ch)
	if sel.Outcome != Cancelled || sel.Index != -1 {
		t.Fatalf("unexpected selection %+v", sel)
	}

	// Later resolvers are no-ops.
	if c.Choose(s.Token, 0) || c.Dismiss(s.Token) {
		t.Fatal("resolved session resolved again")
	}
	// The same accelerators can be registered again immediately.
	for _, accel := range []string{"Escape", "1", "2"} {
		if err := hk.Register(accel, func() {}); err != nil {
			t.Fatalf("re-register %s: %v", accel, err)
		}
	}
}

func TestSecondPresentDismissesFirst(t *testing.T) {
	c, hk, surface := newTestController()

	first := presentAsync(c, context.Background(), presets(2))
	s1 := surface.waitShown(t)

	second := presentAsync(c, context.Background(), presets(4))
	if sel := wait(t, first); sel.Outcome != Dismissed {
		t.Fatalf("first session resolved with %+v", sel)
	}
	s2 := surface.waitShown(t)
	if s1.Token == s2.Token {
		t.Fatal("sessions share a token")
	}
	if c.Active() != s2.Token {
		t.Fatalf("active token = %q, want %q", c.Active(), s2.Token)
	}

	if c.Choose(s1.Token, 0) {
		t.Fatal("stale token resolved the live session")
	}
	hk.press("4")
	if sel := wait(t, second); sel.Outcome != Chosen || sel.Index != 3 {
		t.Fatalf("second session resolved with %+v", sel)
	}
}

func TestSurfaceChooseAndDismiss(t *testing.T) {
	c, _, surface := newTestController()

	ch := presentAsync(c, context.Background(), presets(3))
	s := surface.waitShown(t)
	if c.Choose(s.Token, 7) {
		t.Fatal("out of range choice accepted")
	}
	if !c.Choose(s.Token, 2) {
		t.Fatal("valid choice rejected")
	}
	if sel := wait(t, ch); sel.Outcome != Chosen || sel.Index != 2 {
		t.Fatalf("unexpected selection %+v", sel)
	}
	surface.mu.Lock()
	hiddenIndex := surface.hidden[s.Token]
	surface.mu.Unlock()
	if hiddenIndex != 2 {
		t.Fatalf("surface hidden with index %d", hiddenIndex)
	}

	ch = presentAsync(c, context.Background(), presets(3))
	s = surface.waitShown(t)
	c.Dismiss(s.Token)
	if sel := wait(t, ch); sel.Outcome != Dismissed {
		t.Fatalf("unexpected selection %+v", sel)
	}
}

func TestContextCancelDismisses(t *testing.T) {
	c, hk, surface := newTestController()
	ctx, cancel := context.WithCancel(context.Background())

	ch := presentAsync(c, ctx, presets(1))
	surface.waitShown(t)
	cancel()

	if sel := wait(t, ch); sel.Outcome != Dismissed {
		t.Fatalf("unexpected selection %+v", sel)
	}
	if len(hk.registered()) != 0 {
		t.Fatal("keys leaked after cancellation")
	}
}

func TestCloseDismissesLiveSession(t *testing.T) {
	c, _, surface := newTestController()

	ch := presentAsync(c, context.Background(), presets(1))
	surface.waitShown(t)
	c.Close()

	if sel := wait(t, ch); sel.Outcome != Dismissed {
		t.Fatalf("unexpected selection %+v", sel)
	}
	c.Close()
}

func TestPresentCapsAtNine(t *testing.T) {
	c, hk, surface := newTestController()

	ch := presentAsync(c, context.Background(), presets(12))
	s := surface.waitShown(t)
	if len(s.Profiles) != preset.MaxPresets {
		t.Fatalf("surface got %d profiles", len(s.Profiles))
	}
	if s.Bounds.Height != 9*38+16 || s.Bounds.Width != 260 {
		t.Fatalf("unexpected bounds %+v", s.Bounds)
	}
	if len(hk.registered()) != 10 {
		t.Fatalf("expected Escape and 9 digits, got %v", hk.registered())
	}
	c.Close()
	wait(t, ch)
}
