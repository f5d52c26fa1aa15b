package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"markestedt/shortcutai/capture"
	"markestedt/shortcutai/config"
	"markestedt/shortcutai/cue"
	"markestedt/shortcutai/overlay"
	"markestedt/shortcutai/pipeline"
	"markestedt/shortcutai/platform"
	"markestedt/shortcutai/platform/hotkeys"
	"markestedt/shortcutai/preset"
	"markestedt/shortcutai/storage"
	"markestedt/shortcutai/transform"
	"markestedt/shortcutai/tray"
	"markestedt/shortcutai/web"
)

// errNoSurface is reported by headlessSurface so the overlay falls back to
// keyboard selection.
var errNoSurface = errors.New("dashboard is disabled")

// headlessSurface is the overlay surface used when the web dashboard is off.
type headlessSurface struct{}

func (headlessSurface) ShowOverlay(s overlay.Session) error {
	for i, p := range s.Profiles {
		slog.Info("Preset", "key", i+1, "name", p.Name)
	}
	return errNoSurface
}

func (headlessSurface) HideOverlay(string, int) {}

// Agent wires the hotkey pipeline to the platform, the dashboard and the
// run history.
type Agent struct {
	cfg    *config.Config
	hidden bool

	hotkeys      *hotkeys.Registry
	overlay      *overlay.Controller
	client       *transform.OpenAIClient
	orchestrator *pipeline.Orchestrator

	db     *storage.DB
	server *web.Server
	player *cue.Player
	tray   *tray.Manager
}

// NewAgent creates a new agent instance
func NewAgent(cfg *config.Config, hidden bool) (*Agent, error) {
	client, err := transform.NewClient(cfg.Transform)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform client: %w", err)
	}
	if cfg.Transform.APIKey == "" {
		slog.Warn("No API key configured; transforms will fail until one is set", "path", cfg.Path())
	}

	a := &Agent{
		cfg:     cfg,
		hidden:  hidden,
		hotkeys: hotkeys.NewRegistry(),
		client:  client,
	}

	if cfg.History.Enabled {
		db, err := storage.Open(cfg.Dir())
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		a.db = db
	}

	store := preset.NewStore(cfg.Dir())
	clipboard := platform.NewClipboard()
	injector := platform.NewInjector()
	screen := platform.NewScreen(platform.Rect{
		Width:  cfg.Overlay.FallbackWidth,
		Height: cfg.Overlay.FallbackHeight,
	})

	var surface overlay.Surface = headlessSurface{}
	var display pipeline.Display
	if cfg.Web.Enabled {
		a.server = web.NewServer(web.Options{
			Config:         cfg,
			DB:             a.db,
			Presets:        store,
			OnConfigChange: a.applyConfig,
		})
		surface = a.server
		display = a.server
	}

	a.overlay = overlay.NewController(a.hotkeys, screen, surface, overlay.LayoutFromConfig(cfg.Overlay))

	a.orchestrator = pipeline.New(pipeline.Options{
		Presets:   store,
		Capture:   capture.NewService(clipboard, injector, capture.TimingFromConfig(cfg.Timing)),
		Overlay:   a.overlay,
		Transform: client,
		Injector:  injector,
		Clipboard: clipboard,
		Hotkeys:   a.hotkeys,
		Display:   display,
		Delays:    pipeline.DelaysFromConfig(cfg.Timing),
	})

	if a.server != nil {
		a.server.SetOverlay(a.overlay)
		a.server.SetHotkeys(a.orchestrator)
		a.orchestrator.OnStatus(a.server)
		a.orchestrator.OnRun(a.server)
	}

	if a.db != nil {
		a.orchestrator.OnRun(pipeline.RunFunc(a.recordRun))
	}

	if cfg.Cue.Enabled {
		player, err := cue.NewPlayer(cfg.Cue.Volume)
		if err != nil {
			slog.Warn("Audible cues unavailable", "error", err)
		} else {
			a.player = player
			a.orchestrator.OnRun(player)
		}
	}

	return a, nil
}

// AttachTray shows processing status in the tray tooltip.
func (a *Agent) AttachTray(t *tray.Manager) {
	a.tray = t
	a.orchestrator.OnStatus(t)
}

// DashboardURL returns the dashboard address, or "" when it is disabled.
func (a *Agent) DashboardURL() string {
	if a.server == nil {
		return ""
	}
	return a.server.URL()
}

// Run binds the flow hotkeys and serves until ctx is cancelled
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.shutdown()

	if err := a.orchestrator.Start(ctx); err != nil {
		// A flow that failed to bind can be fixed from the dashboard
		slog.Error("Some hotkeys could not be bound", "error", err)
	}

	serverErr := make(chan error, 1)
	if a.server != nil {
		go func() { serverErr <- a.server.Start(ctx) }()
		if a.cfg.Web.OpenOnStart && !a.hidden {
			tray.OpenBrowser(a.server.URL())
		}
	}

	slog.Info("ShortcutAI started",
		"inline", boundLabel(a.orchestrator, preset.FlowInline),
		"popup", boundLabel(a.orchestrator, preset.FlowPopup),
		"provider", a.client.Name(),
	)

	var quit <-chan struct{}
	if a.tray != nil {
		quit = a.tray.WaitForQuit()
	}

	select {
	case <-ctx.Done():
		return nil
	case <-quit:
		return nil
	case err := <-serverErr:
		return err
	}
}

func (a *Agent) shutdown() {
	a.orchestrator.UnbindAll()
	a.overlay.Close()
	if a.server != nil {
		a.server.Close()
	}
	if a.player != nil {
		a.player.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Warn("Failed to close history database", "error", err)
		}
	}
}

// applyConfig pushes dashboard edits to the running components
func (a *Agent) applyConfig(cfg *config.Config) {
	a.client.Configure(cfg.Transform)
	if a.player != nil {
		a.player.SetVolume(cfg.Cue.Volume)
	}
	slog.Info("Configuration updated", "model", cfg.Transform.Model)
}

// recordRun stores a finished run in the history database
func (a *Agent) recordRun(r pipeline.Run) {
	cfg := a.cfg.Transform
	if a.server != nil {
		cfg = a.server.GetConfig().Transform
	}

	rec := &storage.RunRecord{
		RunID:              r.ID,
		Timestamp:          r.StartedAt,
		Flow:               string(r.Flow),
		PresetID:           r.PresetID,
		PresetName:         r.PresetName,
		PreviousApp:        r.PreviousApp,
		CaptureLatencyMs:   r.CaptureLatency.Milliseconds(),
		TransformLatencyMs: r.TransformLatency.Milliseconds(),
		TotalLatencyMs:     r.Total.Milliseconds(),
		Provider:           cfg.Provider,
		Model:              cfg.Model,
		CapturedChars:      r.CapturedChars,
		ResultChars:        r.ResultChars,
		Outcome:            string(r.Outcome),
		Success:            r.Delivered(),
		ErrorMessage:       r.Error,
	}
	if err := a.db.SaveRun(rec); err != nil {
		slog.Error("Failed to save run", "error", err, "run", r.ID)
	}
}

func boundLabel(o *pipeline.Orchestrator, flow preset.Flow) string {
	if accel, ok := o.Bound(flow); ok {
		return accel
	}
	return "unbound"
}
