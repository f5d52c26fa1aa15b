//go:build !windows

package platform

// NewScreen returns the display geometry source for this platform. Only the
// configured fallback area is known here.
func NewScreen(fallback Rect) Screen {
	return StaticScreen{Area: fallback}
}
