package platform

// StaticScreen reports a fixed work area and no pointer position. It is used
// where display geometry cannot be queried, which centres the overlay.
type StaticScreen struct {
	Area Rect
}

func (s StaticScreen) CursorPosition() (Point, bool) { return Point{}, false }

func (s StaticScreen) WorkAreaNear(p Point) (Rect, bool) {
	if s.Area.Width <= 0 || s.Area.Height <= 0 {
		return Rect{}, false
	}
	return s.Area, true
}
