package overlay

import (
	"markestedt/shortcutai/config"
	"markestedt/shortcutai/platform"
	"markestedt/shortcutai/preset"
)

// Layout sizes the overlay: a fixed width and one row per preset.
type Layout struct {
	Width     int
	RowHeight int
	Padding   int
}

func LayoutFromConfig(c config.OverlayConfig) Layout {
	return Layout{Width: c.Width, RowHeight: c.RowHeight, Padding: c.Padding}
}

// Size returns the overlay size for n presets.
func (l Layout) Size(n int) (width, height int) {
	rows := min(n, preset.MaxPresets)
	return l.Width, rows*l.RowHeight + l.Padding
}

// Place centres a w×h overlay on the cursor and clamps it into area. Without
// a cursor it is centred in area; without an area it is left unclamped.
func Place(w, h int, cursor platform.Point, hasCursor bool, area platform.Rect, hasArea bool) platform.Rect {
	cx, cy := cursor.X, cursor.Y
	if !hasCursor && hasArea {
		cx, cy = area.X+area.Width/2, area.Y+area.Height/2
	}

	r := platform.Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
	if !hasArea {
		return r
	}
	r.X = clamp(r.X, area.X, area.X+area.Width-w)
	r.Y = clamp(r.Y, area.Y, area.Y+area.Height-h)
	return r
}

// clamp keeps v in [lo, hi]; lo wins when the range is empty so an oversized
// overlay stays anchored to the area's top left corner.
func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
