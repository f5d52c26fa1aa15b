//go:build windows

package platform

import (
	"unsafe"
)

var (
	getCursorPos     = user32.NewProc("GetCursorPos")
	monitorFromPoint = user32.NewProc("MonitorFromPoint")
	getMonitorInfoW  = user32.NewProc("GetMonitorInfoW")
)

const monitorDefaultToNearest = 2

type point struct {
	x, y int32
}

type rect struct {
	left, top, right, bottom int32
}

type monitorInfo struct {
	cbSize    uint32
	rcMonitor rect
	rcWork    rect
	dwFlags   uint32
}

type windowsScreen struct {
	fallback StaticScreen
}

// NewScreen returns the display geometry source for this platform; fallback
// is used when the OS query fails.
func NewScreen(fallback Rect) Screen {
	return windowsScreen{fallback: StaticScreen{Area: fallback}}
}

func (s windowsScreen) CursorPosition() (Point, bool) {
	var pt point
	if ret, _, _ := getCursorPos.Call(uintptr(unsafe.Pointer(&pt))); ret == 0 {
		return Point{}, false
	}
	return Point{X: int(pt.x), Y: int(pt.y)}, true
}

func (s windowsScreen) WorkAreaNear(p Point) (Rect, bool) {
	// POINT is passed by value, packed into one register on amd64.
	packed := uintptr(uint32(int32(p.X))) | uintptr(uint32(int32(p.Y)))<<32
	hmon, _, _ := monitorFromPoint.Call(packed, monitorDefaultToNearest)
	if hmon == 0 {
		return s.fallback.WorkAreaNear(p)
	}

	mi := monitorInfo{cbSize: uint32(unsafe.Sizeof(monitorInfo{}))}
	if ret, _, _ := getMonitorInfoW.Call(hmon, uintptr(unsafe.Pointer(&mi))); ret == 0 {
		return s.fallback.WorkAreaNear(p)
	}
	w := mi.rcWork
	return Rect{
		X:      int(w.left),
		Y:      int(w.top),
		Width:  int(w.right - w.left),
		Height: int(w.bottom - w.top),
	}, true
}
