package overlay

import (
	"testing"

	"markestedt/shortcutai/platform"
)

func TestPlace(t *testing.T) {
	area := platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	tests := []struct {
		name   string
		cursor platform.Point
		hasCur bool
		area   platform.Rect
		hasA   bool
		want   platform.Rect
	}{
		{"centred on cursor", platform.Point{X: 800, Y: 500}, true, area, true, platform.Rect{X: 670, Y: 455, Width: 260, Height: 90}},
		{"clamped top left", platform.Point{X: 10, Y: 5}, true, area, true, platform.Rect{X: 0, Y: 0, Width: 260, Height: 90}},
		{"clamped bottom right", platform.Point{X: 1915, Y: 1075}, true, area, true, platform.Rect{X: 1660, Y: 990, Width: 260, Height: 90}},
		{"second display", platform.Point{X: 1925, Y: 100}, true, platform.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024}, true, platform.Rect{X: 1920, Y: 55, Width: 260, Height: 90}},
		{"no cursor", platform.Point{}, false, area, true, platform.Rect{X: 830, Y: 495, Width: 260, Height: 90}},
		{"no area", platform.Point{X: 5, Y: 5}, true, platform.Rect{}, false, platform.Rect{X: -125, Y: -40, Width: 260, Height: 90}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Place(260, 90, tt.cursor, tt.hasCur, tt.area, tt.hasA)
			if got != tt.want {
				t.Fatalf("Place = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLayoutSize(t *testing.T) {
	l := Layout{Width: 260, RowHeight: 38, Padding: 16}
	if w, h := l.Size(2); w != 260 || h != 92 {
		t.Fatalf("Size(2) = %d, %d", w, h)
	}
	if _, h := l.Size(20); h != 9*38+16 {
		t.Fatalf("Size(20) height = %d", h)
	}
}
