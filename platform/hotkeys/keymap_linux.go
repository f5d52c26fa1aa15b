//go:build linux

package hotkeys

import "golang.design/x/hotkey"

// Mod1 is Alt and Mod4 is Super on common X11 keyboard maps.
var modMap = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"alt":   hotkey.Mod1,
	"shift": hotkey.ModShift,
	"super": hotkey.Mod4,
}
