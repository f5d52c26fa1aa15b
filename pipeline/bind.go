package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"markestedt/shortcutai/config"
	"markestedt/shortcutai/preset"
)

// ErrHotkeyConflict is returned when a hotkey is already bound to the other
// flow.
var ErrHotkeyConflict = errors.New("hotkey already bound to another flow")

// Start binds every flow to the hotkey stored with its presets. Activations
// run with ctx. A flow that cannot be bound does not stop the others; all
// failures are returned together.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	o.ctx = ctx
	o.mu.Unlock()

	var errs []error
	for _, flow := range preset.Flows {
		settings, err := o.presets.Load(flow)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s presets: %w", flow, err))
			continue
		}
		if settings.General.Hotkey == "" {
			slog.Info("No hotkey configured", "flow", flow)
			continue
		}
		if err := o.Bind(flow, settings.General.Hotkey); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Bind registers hotkey for flow. The flow's previous accelerator is
// released first; the other flow's binding is untouched. An empty hotkey
// only unbinds.
func (o *Orchestrator) Bind(flow preset.Flow, hotkey string) error {
	if hotkey == "" {
		o.Unbind(flow)
		return nil
	}

	b, err := config.ParseBinding(hotkey)
	if err != nil {
		return fmt.Errorf("invalid %s hotkey: %w", flow, err)
	}
	accel := b.Accelerator(o.goos)

	o.mu.Lock()
	defer o.mu.Unlock()

	for other, a := range o.bound {
		if other != flow && a == accel {
			return fmt.Errorf("%w: %s is used by the %s flow", ErrHotkeyConflict, accel, other)
		}
	}

	if prev, ok := o.bound[flow]; ok {
		o.hotkeys.Unregister(prev)
		delete(o.bound, flow)
	}

	if err := o.hotkeys.Register(accel, func() { o.activate(flow) }); err != nil {
		return fmt.Errorf("failed to bind %s hotkey: %w", flow, err)
	}
	o.bound[flow] = accel

	slog.Info("Hotkey bound", "flow", flow, "accelerator", accel)
	return nil
}

// Unbind releases flow's accelerator, if any.
func (o *Orchestrator) Unbind(flow preset.Flow) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if accel, ok := o.bound[flow]; ok {
		o.hotkeys.Unregister(accel)
		delete(o.bound, flow)
		slog.Info("Hotkey unbound", "flow", flow, "accelerator", accel)
	}
}

// Bound returns the accelerator currently registered for flow.
func (o *Orchestrator) Bound(flow preset.Flow) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	accel, ok := o.bound[flow]
	return accel, ok
}

// UnbindAll releases every flow's accelerator.
func (o *Orchestrator) UnbindAll() {
	for _, flow := range preset.Flows {
		o.Unbind(flow)
	}
}

func (o *Orchestrator) activate(flow preset.Flow) {
	o.mu.Lock()
	ctx := o.ctx
	o.mu.Unlock()

	slog.Debug("Hotkey activated", "flow", flow)
	o.Run(ctx, flow)
}
