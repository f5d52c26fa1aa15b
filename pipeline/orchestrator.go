// Package pipeline drives a hotkey activation from selection capture to
// result delivery.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"markestedt/shortcutai/config"
	"markestedt/shortcutai/overlay"
	"markestedt/shortcutai/platform"
	"markestedt/shortcutai/preset"
	"markestedt/shortcutai/transform"
)

// PresetSource loads a flow's presets. It is read on every activation.
type PresetSource interface {
	Load(flow preset.Flow) (preset.Settings, error)
}

// Capturer returns the selected text, or "" when nothing could be copied.
type Capturer interface {
	Capture(ctx context.Context) string
}

// Chooser asks the user to pick one of presets.
type Chooser interface {
	Present(ctx context.Context, presets []preset.Preset) overlay.Selection
}

// ErrNoDisplay is returned by a popup run when nothing can show its result.
var ErrNoDisplay = errors.New("no display attached for popup results")

// Display shows the result of the popup flow.
type Display interface {
	ShowResult(text string) error
}

// Delays are the settle waits around focus changes and re-capture.
type Delays struct {
	RecaptureDelay time.Duration
	FocusSettle    time.Duration
	PasteSettle    time.Duration
}

func DelaysFromConfig(t config.TimingConfig) Delays {
	return Delays{
		RecaptureDelay: config.Ms(t.RecaptureDelayMs),
		FocusSettle:    config.Ms(t.FocusSettleMs),
		PasteSettle:    config.Ms(t.PasteSettleMs),
	}
}

// Options wires an Orchestrator to its collaborators. Display may be nil, in
// which case popup runs log their result and fail with ErrNoDisplay.
type Options struct {
	Presets   PresetSource
	Capture   Capturer
	Overlay   Chooser
	Transform transform.Client
	Injector  platform.Injector
	Clipboard platform.Clipboard
	Hotkeys   platform.HotkeyRegistry
	Display   Display
	Delays    Delays
	// GOOS selects the accelerator translation; defaults to runtime.GOOS.
	GOOS string
}

// Orchestrator runs the capture, choose, transform and deliver pipeline for
// the flows bound to global hotkeys. One run is in flight at a time;
// activations arriving meanwhile are ignored.
type Orchestrator struct {
	presets   PresetSource
	capture   Capturer
	overlay   Chooser
	transform transform.Client
	injector  platform.Injector
	clipboard platform.Clipboard
	hotkeys   platform.HotkeyRegistry
	display   Display
	delays    Delays
	goos      string

	busy *semaphore.Weighted

	mu              sync.Mutex
	ctx             context.Context
	bound           map[preset.Flow]string
	status          Status
	statusListeners []StatusListener
	runListeners    []RunListener
}

func New(opts Options) *Orchestrator {
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	return &Orchestrator{
		presets:   opts.Presets,
		capture:   opts.Capture,
		overlay:   opts.Overlay,
		transform: opts.Transform,
		injector:  opts.Injector,
		clipboard: opts.Clipboard,
		hotkeys:   opts.Hotkeys,
		display:   opts.Display,
		delays:    opts.Delays,
		goos:      goos,
		busy:      semaphore.NewWeighted(1),
		ctx:       context.Background(),
		bound:     make(map[preset.Flow]string),
		status:    StatusIdle,
	}
}

// OnStatus adds a processing status listener.
func (o *Orchestrator) OnStatus(l StatusListener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statusListeners = append(o.statusListeners, l)
}

// OnRun adds a listener for finished runs.
func (o *Orchestrator) OnRun(l RunListener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runListeners = append(o.runListeners, l)
}

// Status returns the last emitted processing status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// BuildPrompt joins a preset prompt and the captured text.
func BuildPrompt(prompt, text string) string {
	return prompt + "\n\n" + text
}

// Run executes one activation of flow and returns its record. It never
// panics, and a processing status is always followed by idle before Run
// returns.
func (o *Orchestrator) Run(ctx context.Context, flow preset.Flow) (run Run) {
	if !o.busy.TryAcquire(1) {
		slog.Info("Activation ignored, a run is already in flight", "flow", flow)
		return Run{Flow: flow, Outcome: OutcomeBusy, StartedAt: time.Now()}
	}

	// An aborted run can leave its first capture polling the clipboard. The
	// slot stays taken until that capture returns.
	var capturing <-chan struct{}
	defer func() {
		if capturing == nil {
			o.busy.Release(1)
			return
		}
		select {
		case <-capturing:
			o.busy.Release(1)
		default:
			go func() {
				<-capturing
				o.busy.Release(1)
			}()
		}
	}()

	run = Run{ID: uuid.NewString(), Flow: flow, StartedAt: time.Now()}
	status := &statusGuard{o: o}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline panicked", "flow", flow, "run", run.ID, "panic", r)
			run.fail(OutcomeFailed, fmt.Errorf("panic: %v", r))
		}
		status.idle()
		run.Total = time.Since(run.StartedAt)
		slog.Info("Run finished", "flow", flow, "run", run.ID, "outcome", run.Outcome, "total", run.Total)
		o.publishRun(run)
	}()

	o.execute(ctx, flow, &run, status, &capturing)
	return run
}

type captureResult struct {
	text    string
	latency time.Duration
}

// execute runs one activation. capturing is set to a channel closed when the
// background capture has returned.
func (o *Orchestrator) execute(ctx context.Context, flow preset.Flow, run *Run, status *statusGuard, capturing *<-chan struct{}) {
	settings, err := o.presets.Load(flow)
	if err != nil {
		slog.Error("Failed to load presets", "flow", flow, "error", err)
		run.fail(OutcomeFailed, err)
		return
	}
	profiles := preset.Truncate(settings.Profiles)
	if len(profiles) == 0 {
		slog.Warn("No presets configured", "flow", flow)
		run.Outcome = OutcomeNoPresets
		return
	}

	run.PreviousApp = o.injector.ForegroundApp(ctx)

	captured := make(chan captureResult, 1)
	done := make(chan struct{})
	*capturing = done
	go func() {
		start := time.Now()
		var text string
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Capture panicked", "flow", flow, "panic", r)
			}
			close(done)
			captured <- captureResult{text: text, latency: time.Since(start)}
		}()
		text = o.capture.Capture(ctx)
	}()

	sel := o.overlay.Present(ctx, profiles)
	if sel.Outcome != overlay.Chosen || sel.Index < 0 || sel.Index >= len(profiles) {
		slog.Info("No preset chosen", "flow", flow, "outcome", sel.Outcome)
		run.Outcome = OutcomeCancelled
		return
	}
	chosen := profiles[sel.Index]
	run.PresetID, run.PresetName = chosen.ID, chosen.Name

	var res captureResult
	select {
	case res = <-captured:
	case <-ctx.Done():
		run.fail(OutcomeCancelled, ctx.Err())
		return
	}
	text := res.text
	run.CaptureLatency = res.latency

	if isBlank(text) {
		slog.Debug("Capture empty after selection, retrying", "delay", o.delays.RecaptureDelay)
		if !sleep(ctx, o.delays.RecaptureDelay) {
			run.fail(OutcomeCancelled, ctx.Err())
			return
		}
		start := time.Now()
		text = o.capture.Capture(ctx)
		run.CaptureLatency += time.Since(start)
	}
	if isBlank(text) {
		slog.Warn("No text selected", "flow", flow)
		run.Outcome = OutcomeEmptyCapture
		return
	}
	run.CapturedChars = utf8.RuneCountInString(text)

	status.processing(StatusFor(flow))
	start := time.Now()
	result, err := o.transform.Transform(ctx, BuildPrompt(chosen.Prompt, text))
	run.TransformLatency = time.Since(start)
	status.idle()

	if err != nil {
		slog.Error("Transform failed", "flow", flow, "provider", o.transform.Name(), "error", err)
		run.fail(OutcomeTransformFailed, err)
		return
	}
	if isBlank(result) {
		slog.Warn("Transform returned no text", "flow", flow)
		run.Outcome = OutcomeEmptyResult
		return
	}
	run.ResultChars = utf8.RuneCountInString(result)

	if err := o.deliver(ctx, flow, run.PreviousApp, result); err != nil {
		slog.Error("Failed to deliver result", "flow", flow, "error", err)
		run.fail(OutcomeFailed, err)
		return
	}
	run.Outcome = OutcomeDelivered
}

// deliver hands result to its destination after giving focus back to the
// application that was active when the hotkey fired.
func (o *Orchestrator) deliver(ctx context.Context, flow preset.Flow, previousApp, result string) error {
	if previousApp != "" {
		o.injector.ActivateApp(ctx, previousApp)
		sleep(ctx, o.delays.FocusSettle)
	}

	if flow == preset.FlowPopup {
		if o.display == nil {
			slog.Info("Result ready but no display is attached", "result", result)
			return ErrNoDisplay
		}
		return o.display.ShowResult(result)
	}

	if err := o.clipboard.Set(result); err != nil {
		return fmt.Errorf("failed to write result to clipboard: %w", err)
	}
	if !sleep(ctx, o.delays.PasteSettle) {
		return ctx.Err()
	}
	o.injector.SendPaste()
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
