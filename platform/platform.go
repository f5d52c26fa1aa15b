package platform

import (
	"context"
)

// Clipboard provides clipboard access
type Clipboard interface {
	Get() (string, error)
	Set(text string) error
}

// Injector sends synthetic copy/paste keystrokes and tracks the foreground
// application. Implementations are best-effort: failures are logged, never
// returned, and SendCopy/SendPaste do not wait for the target application to
// act on the keystroke.
type Injector interface {
	Name() string
	SendCopy()
	SendPaste()
	// ForegroundApp returns an identifier of the focused application, or ""
	// when it cannot be determined on this platform.
	ForegroundApp(ctx context.Context) string
	// ActivateApp brings the application identified by id to the front.
	ActivateApp(ctx context.Context, id string)
}

// HotkeyRegistry registers system-wide accelerators such as "Ctrl+Shift+K".
// Unregister and UnregisterAll are safe to call with accelerators that are
// not registered.
type HotkeyRegistry interface {
	Register(accel string, fn func()) error
	Unregister(accel string)
	UnregisterAll()
}

// Point is a position in screen coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an area in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Screen reports pointer position and display geometry.
type Screen interface {
	// CursorPosition returns false when the pointer cannot be located.
	CursorPosition() (Point, bool)
	// WorkAreaNear returns the work area of the display nearest p.
	WorkAreaNear(p Point) (Rect, bool)
}
