package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.design/x/hotkey/mainthread"

	"markestedt/shortcutai/config"
	"markestedt/shortcutai/tray"
)

func main() {
	hidden := pflag.Bool("hidden", false, "start without opening the dashboard")
	configPath := pflag.String("config", "", "path to config.toml (default: user config directory)")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	// Setup logging
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Configuration loaded", "path", cfg.Path())

	// Create agent
	agent, err := NewAgent(cfg, *hidden)
	if err != nil {
		slog.Error("Failed to create agent", "error", err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exitCode := 0
	run := func() {
		if err := agent.Run(ctx); err != nil {
			slog.Error("Agent error", "error", err)
			exitCode = 1
		}
	}

	// The tray and the hotkey library both want the main thread; the tray's
	// event loop serves both when it is enabled.
	if cfg.Tray.Enabled {
		t := tray.NewManager(agent.DashboardURL(), nil)
		agent.AttachTray(t)
		t.Run(func() {
			run()
			t.Stop()
		})
	} else {
		mainthread.Init(run)
	}

	slog.Info("ShortcutAI stopped")
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
