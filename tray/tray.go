package tray

import (
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/getlantern/systray"

	"markestedt/shortcutai/config"
	"markestedt/shortcutai/pipeline"
)

const idleTooltip = "ShortcutAI"

// Manager manages the system tray icon and menu
type Manager struct {
	dashboardURL string
	iconData     []byte

	ready    atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
}

// NewManager creates a tray manager. dashboardURL may be empty when the
// web dashboard is disabled.
func NewManager(dashboardURL string, iconData []byte) *Manager {
	return &Manager{
		dashboardURL: dashboardURL,
		iconData:     iconData,
		quit:         make(chan struct{}),
	}
}

// Run starts the system tray and blocks until it exits. It must be called
// from the main goroutine; onStart runs in its own goroutine once the tray
// is up.
func (m *Manager) Run(onStart func()) {
	systray.Run(func() {
		m.onReady()
		if onStart != nil {
			go onStart()
		}
	}, m.onExit)
}

// Stop stops the system tray
func (m *Manager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *Manager) WaitForQuit() <-chan struct{} {
	return m.quit
}

// SetStatus shows whether a transform is in progress in the tooltip.
func (m *Manager) SetStatus(status pipeline.Status) {
	if !m.ready.Load() {
		return
	}
	systray.SetTooltip(Tooltip(status))
}

// Tooltip returns the tray tooltip for a processing status.
func Tooltip(status pipeline.Status) string {
	if status == pipeline.StatusIdle {
		return idleTooltip
	}
	return idleTooltip + " – processing…"
}

// onReady is called when the systray is ready
func (m *Manager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	}

	systray.SetTitle(idleTooltip)
	systray.SetTooltip(idleTooltip)

	// Stays nil without a dashboard, so its select case never fires
	var openClicked chan struct{}
	if m.dashboardURL != "" {
		mOpen := systray.AddMenuItem("Open dashboard", "Open the "+config.AppName+" dashboard")
		openClicked = mOpen.ClickedCh
		systray.AddSeparator()
	}
	mQuit := systray.AddMenuItem("Quit", "Exit "+config.AppName)

	m.ready.Store(true)

	go func() {
		for {
			select {
			case <-openClicked:
				OpenBrowser(m.dashboardURL)
			case <-mQuit.ClickedCh:
				slog.Info("User requested quit from system tray")
				m.quitOnce.Do(func() { close(m.quit) })
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the systray is exiting
func (m *Manager) onExit() {
	m.ready.Store(false)
	m.quitOnce.Do(func() { close(m.quit) })
	slog.Info("System tray exited")
}

// OpenBrowser opens url in the default browser
func OpenBrowser(url string) {
	slog.Info("Opening dashboard", "url", url)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		slog.Error("Unsupported platform for opening browser", "platform", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open dashboard", "error", err)
	}
}
