//go:build darwin

package hotkeys

import "golang.design/x/hotkey"

var modMap = map[string]hotkey.Modifier{
	"cmd":   hotkey.ModCmd,
	"ctrl":  hotkey.ModCtrl,
	"alt":   hotkey.ModOption,
	"shift": hotkey.ModShift,
}
