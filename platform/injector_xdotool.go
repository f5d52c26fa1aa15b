package platform

import (
	"context"
	"log/slog"
)

// XdotoolInjector drives X11 sessions with xdotool. Window ids returned by
// ForegroundApp are xdotool's decimal window ids.
type XdotoolInjector struct {
	run Runner
}

func NewXdotoolInjector(run Runner) *XdotoolInjector {
	return &XdotoolInjector{run: run}
}

func (x *XdotoolInjector) Name() string { return "xdotool" }

func (x *XdotoolInjector) SendCopy() { x.key("ctrl+c") }

func (x *XdotoolInjector) SendPaste() { x.key("ctrl+v") }

func (x *XdotoolInjector) key(combo string) {
	if err := x.run.Start("xdotool", "key", "--clearmodifiers", combo); err != nil {
		slog.Error("Failed to send keystroke", "injector", x.Name(), "key", combo, "error", err)
	}
}

func (x *XdotoolInjector) ForegroundApp(ctx context.Context) string {
	id, err := x.run.Output(ctx, "xdotool", "getactivewindow")
	if err != nil {
		slog.Warn("Failed to query active window", "error", err)
		return ""
	}
	return id
}

func (x *XdotoolInjector) ActivateApp(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if _, err := x.run.Output(ctx, "xdotool", "windowactivate", "--sync", id); err != nil {
		slog.Warn("Failed to activate window", "window", id, "error", err)
	}
}
