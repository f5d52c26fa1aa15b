package platform

import (
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// NewInjector picks the injector for the running platform. It is called once
// at startup; the choice is logged so a missing capability is visible.
func NewInjector() Injector {
	var inj Injector
	switch {
	case runtime.GOOS == "windows":
		inj = newSendInputInjector()
	case runtime.GOOS == "darwin":
		inj = NewAppleScriptInjector(execRunner{})
	case runtime.GOOS == "linux" && commandAvailable("xdotool"):
		inj = NewXdotoolInjector(execRunner{})
	default:
		inj = NoopInjector{}
		slog.Warn("No keystroke injection available: copy, paste and focus restore are disabled", "os", runtime.GOOS)
	}
	slog.Info("Input injector selected", "injector", inj.Name())
	return inj
}

// Runner starts external commands for the script based injectors.
type Runner interface {
	// Start launches the command and returns without waiting for it.
	Start(name string, args ...string) error
	// Output runs the command to completion and returns trimmed stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

func (execRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(out)), err
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// NoopInjector is used where no injection mechanism exists. Captures come
// back empty and results are never pasted or focus restored.
type NoopInjector struct{}

func (NoopInjector) Name() string { return "noop" }
func (NoopInjector) SendCopy() {}
func (NoopInjector) SendPaste() {}
func (NoopInjector) ForegroundApp(ctx context.Context) string { return "" }
func (NoopInjector) ActivateApp(ctx context.Context, id string) {}
