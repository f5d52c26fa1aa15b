package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// AppleScriptInjector drives macOS through System Events via osascript.
type AppleScriptInjector struct {
	run Runner
}

// NewAppleScriptInjector creates an injector that runs scripts through run.
func NewAppleScriptInjector(run Runner) *AppleScriptInjector {
	return &AppleScriptInjector{run: run}
}

func (a *AppleScriptInjector) Name() string { return "applescript" }

// SendCopy presses Cmd+C in the frontmost application.
func (a *AppleScriptInjector) SendCopy() { a.commandKey(8, "c") }

// SendPaste presses Cmd+V in the frontmost application.
func (a *AppleScriptInjector) SendPaste() { a.commandKey(9, "v") }

// commandKey sends the key code with Command held, falling back to typing
// the character when the key code is rejected.
func (a *AppleScriptInjector) commandKey(code int, ch string) {
	script := fmt.Sprintf(`tell application "System Events"
try
  key code %d using {command down}
on error
  keystroke "%s" using {command down}
end try
end tell`, code, ch)
	if err := a.run.Start("osascript", "-e", script); err != nil {
		slog.Error("Failed to send keystroke", "injector", a.Name(), "key", ch, "error", err)
	}
}

func (a *AppleScriptInjector) ForegroundApp(ctx context.Context) string {
	const script = `tell application "System Events" to get name of first application process whose frontmost is true`
	name, err := a.run.Output(ctx, "osascript", "-e", script)
	if err != nil {
		slog.Warn("Failed to query frontmost app", "error", err)
		return ""
	}
	return name
}

func (a *AppleScriptInjector) ActivateApp(ctx context.Context, id string) {
	if id == "" {
		return
	}
	script := fmt.Sprintf(`tell application "%s" to activate`, escapeAppleScript(id))
	if _, err := a.run.Output(ctx, "osascript", "-e", script); err != nil {
		slog.Warn("Failed to activate app", "app", id, "error", err)
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
