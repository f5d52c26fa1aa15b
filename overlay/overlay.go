// Package overlay presents a short list of presets and waits for the user to
// pick one.
package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"markestedt/shortcutai/platform"
	"markestedt/shortcutai/preset"
)

// Outcome is how an overlay session ended.
type Outcome int

const (
	// Dismissed means the session was closed without a choice: replaced by a
	// newer session, destroyed by the surface or abandoned by the caller.
	Dismissed Outcome = iota
	Chosen
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Chosen:
		return "chosen"
	case Cancelled:
		return "cancelled"
	default:
		return "dismissed"
	}
}

// Selection is the result of Present. Index is the zero-based preset index
// when Outcome is Chosen and -1 otherwise.
type Selection struct {
	Index   int
	Outcome Outcome
}

var (
	dismissed = Selection{Index: -1, Outcome: Dismissed}
	cancelled = Selection{Index: -1, Outcome: Cancelled}
)

// Session is what a Surface renders.
type Session struct {
	Token    string          `json:"token"`
	Profiles []preset.Preset `json:"profiles"`
	Bounds   platform.Rect   `json:"bounds"`
}

// Surface renders overlay sessions. Pointer selection is reported back
// through Controller.Choose and external destruction through Dismiss.
type Surface interface {
	ShowOverlay(s Session) error
	HideOverlay(token string, index int)
}

const escapeKey = "Escape"

type session struct {
	token  string
	n      int
	result chan Selection
	once   sync.Once

	mu     sync.Mutex
	keys   []string
	closed bool
}

// Controller owns the single live overlay session.
type Controller struct {
	hotkeys platform.HotkeyRegistry
	screen  platform.Screen
	surface Surface
	layout  Layout

	mu      sync.Mutex
	current *session
}

func NewController(hotkeys platform.HotkeyRegistry, screen platform.Screen, surface Surface, layout Layout) *Controller {
	return &Controller{
		hotkeys: hotkeys,
		screen:  screen,
		surface: surface,
		layout:  layout,
	}
}

// Present shows presets and blocks until the session resolves. An empty
// list resolves Dismissed without showing anything. A live session is
// dismissed first, so at most one overlay exists. Escape cancels and digit k
// chooses preset k-1; the keys are released before Present returns.
func (c *Controller) Present(ctx context.Context, presets []preset.Preset) Selection {
	if len(presets) == 0 {
		return dismissed
	}
	presets = append([]preset.Preset(nil), preset.Truncate(presets)...)

	s := &session{
		token:  uuid.NewString(),
		n:      len(presets),
		result: make(chan Selection, 1),
	}

	c.mu.Lock()
	prev := c.current
	c.current = s
	c.mu.Unlock()
	if prev != nil {
		slog.Debug("Replacing live overlay", "token", prev.token)
		c.finish(prev, dismissed)
	}

	c.bindKeys(s)

	bounds := c.place(len(presets))
	if err := c.surface.ShowOverlay(Session{Token: s.token, Profiles: presets, Bounds: bounds}); err != nil {
		slog.Warn("Overlay surface unavailable, keyboard selection only", "error", err)
	}

	select {
	case sel := <-s.result:
		return sel
	case <-ctx.Done():
		c.resolve(s.token, dismissed)
		return <-s.result
	}
}

func (c *Controller) bindKeys(s *session) {
	c.bind(s, escapeKey, func() { c.resolve(s.token, cancelled) })
	for i := 0; i < s.n; i++ {
		index := i
		c.bind(s, fmt.Sprint(i+1), func() {
			c.resolve(s.token, Selection{Index: index, Outcome: Chosen})
		})
	}
}

func (c *Controller) bind(s *session, accel string, fn func()) {
	if err := c.hotkeys.Register(accel, fn); err != nil {
		slog.Warn("Failed to bind overlay key", "key", accel, "error", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.hotkeys.Unregister(accel)
		return
	}
	s.keys = append(s.keys, accel)
	s.mu.Unlock()
}

// Choose resolves the session identified by token from the surface. A
// negative index cancels; an index outside the list is ignored. It reports
// whether the session was resolved by this call.
func (c *Controller) Choose(token string, index int) bool {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil || s.token != token {
		return false
	}
	if index < 0 {
		return c.resolve(token, cancelled)
	}
	if index >= s.n {
		slog.Warn("Ignoring out of range overlay choice", "index", index, "count", s.n)
		return false
	}
	return c.resolve(token, Selection{Index: index, Outcome: Chosen})
}

// Dismiss resolves the session identified by token without a choice.
func (c *Controller) Dismiss(token string) bool {
	return c.resolve(token, dismissed)
}

// Close dismisses the live session, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s != nil {
		c.resolve(s.token, dismissed)
	}
}

// Active returns the token of the live session, or "".
func (c *Controller) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.token
}

// resolve ends the live session if it still matches token. The first
// resolver wins.
func (c *Controller) resolve(token string, sel Selection) bool {
	c.mu.Lock()
	s := c.current
	if s == nil || s.token != token {
		c.mu.Unlock()
		return false
	}
	c.current = nil
	c.mu.Unlock()

	c.finish(s, sel)
	return true
}

// finish releases the session's keys, hides it and delivers sel. Only the
// first call for a session has any effect.
func (c *Controller) finish(s *session, sel Selection) {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		keys := s.keys
		s.keys = nil
		s.mu.Unlock()

		for _, accel := range keys {
			c.hotkeys.Unregister(accel)
		}
		c.surface.HideOverlay(s.token, sel.Index)
		slog.Debug("Overlay closed", "token", s.token, "outcome", sel.Outcome, "index", sel.Index)
		s.result <- sel
	})
}

func (c *Controller) place(n int) platform.Rect {
	w, h := c.layout.Size(n)
	cursor, hasCursor := c.screen.CursorPosition()
	area, hasArea := c.screen.WorkAreaNear(cursor)
	return Place(w, h, cursor, hasCursor, area, hasArea)
}
