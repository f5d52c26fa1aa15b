package pipeline

import (
	"log/slog"

	"markestedt/shortcutai/preset"
)

// Status is the processing signal pushed to presentation layers.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusInput     Status = "input"
	StatusSelection Status = "selection"
)

// StatusFor returns the processing status emitted while flow transforms.
func StatusFor(flow preset.Flow) Status {
	if flow == preset.FlowPopup {
		return StatusSelection
	}
	return StatusInput
}

// StatusListener receives processing status changes.
type StatusListener interface {
	SetStatus(Status)
}

// StatusFunc adapts a function to StatusListener.
type StatusFunc func(Status)

func (f StatusFunc) SetStatus(s Status) { f(s) }

// RunListener receives every finished run.
type RunListener interface {
	RecordRun(Run)
}

// RunFunc adapts a function to RunListener.
type RunFunc func(Run)

func (f RunFunc) RecordRun(r Run) { f(r) }

// statusGuard pairs every processing status with exactly one idle.
type statusGuard struct {
	o      *Orchestrator
	active bool
}

func (g *statusGuard) processing(s Status) {
	g.active = true
	g.o.emitStatus(s)
}

func (g *statusGuard) idle() {
	if !g.active {
		return
	}
	g.active = false
	g.o.emitStatus(StatusIdle)
}

func (o *Orchestrator) emitStatus(s Status) {
	o.mu.Lock()
	o.status = s
	listeners := append([]StatusListener(nil), o.statusListeners...)
	o.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Status listener panicked", "status", s, "panic", r)
				}
			}()
			l.SetStatus(s)
		}()
	}
}

func (o *Orchestrator) publishRun(run Run) {
	o.mu.Lock()
	listeners := append([]RunListener(nil), o.runListeners...)
	o.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Run listener panicked", "run", run.ID, "panic", r)
				}
			}()
			l.RecordRun(run)
		}()
	}
}
