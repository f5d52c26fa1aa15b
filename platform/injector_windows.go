//go:build windows

package platform

import (
	"context"
	"log/slog"
	"strconv"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	sendInput           = user32.NewProc("SendInput")
	mapVirtualKeyW      = user32.NewProc("MapVirtualKeyW")
	setForegroundWindow = user32.NewProc("SetForegroundWindow")
)

const (
	inputKeyboard  = 1
	keyeventfKeyup = 0x0002
	mapvkVkToVsc   = 0
	vkControl      = 0x11
	vkC            = 0x43
	vkV            = 0x56
)

type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

type input struct {
	inputType uint32
	ki        keyboardInput
	padding   [8]byte // Padding to match C struct size
}

// SendInputInjector sends Ctrl+C/Ctrl+V with SendInput and tracks the
// foreground window by handle.
type SendInputInjector struct{}

func newSendInputInjector() Injector {
	return SendInputInjector{}
}

func (SendInputInjector) Name() string { return "sendinput" }

func (s SendInputInjector) SendCopy() { s.ctrlChord(vkC) }

func (s SendInputInjector) SendPaste() { s.ctrlChord(vkV) }

// ctrlChord presses Ctrl+vk with scan codes for better compatibility with
// elevated applications.
func (s SendInputInjector) ctrlChord(vk uintptr) {
	ctrlScan, _, _ := mapVirtualKeyW.Call(vkControl, mapvkVkToVsc)
	keyScan, _, _ := mapVirtualKeyW.Call(vk, mapvkVkToVsc)

	key := func(vk uintptr, scan uintptr, flags uint32) input {
		return input{
			inputType: inputKeyboard,
			ki: keyboardInput{
				wVk:     uint16(vk),
				wScan:   uint16(scan),
				dwFlags: flags,
			},
		}
	}
	inputs := []input{
		key(vkControl, ctrlScan, 0),
		key(vk, keyScan, 0),
		key(vk, keyScan, keyeventfKeyup),
		key(vkControl, ctrlScan, keyeventfKeyup),
	}

	// Send all inputs at once for better atomicity
	ret, _, err := sendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if ret == 0 {
		slog.Error("SendInput failed", "vk", vk, "error", err)
	}
}

func (SendInputInjector) ForegroundApp(ctx context.Context) string {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(hwnd), 10)
}

func (SendInputInjector) ActivateApp(ctx context.Context, id string) {
	if id == "" {
		return
	}
	hwnd, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		slog.Warn("Invalid window handle", "window", id, "error", err)
		return
	}
	if ret, _, err := setForegroundWindow.Call(uintptr(hwnd)); ret == 0 {
		slog.Warn("SetForegroundWindow failed", "window", id, "error", err)
	}
}
