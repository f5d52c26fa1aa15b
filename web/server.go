package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"markestedt/shortcutai/config"
	"markestedt/shortcutai/overlay"
	"markestedt/shortcutai/pipeline"
	"markestedt/shortcutai/preset"
	"markestedt/shortcutai/storage"
)

//go:embed static/*
var staticFiles embed.FS

// ErrNoClients is returned when something must be shown but no dashboard is
// connected.
var ErrNoClients = errors.New("no dashboard client connected")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PresetStore loads and saves the per-flow preset files.
type PresetStore interface {
	Load(flow preset.Flow) (preset.Settings, error)
	Save(flow preset.Flow, settings preset.Settings) error
}

// HotkeyBinder rebinds a flow's activation hotkey.
type HotkeyBinder interface {
	Bind(flow preset.Flow, hotkey string) error
}

// OverlayChooser resolves overlay sessions from pointer input.
type OverlayChooser interface {
	Choose(token string, index int) bool
	Dismiss(token string) bool
}

type Options struct {
	Config  *config.Config
	DB      *storage.DB // nil when history is disabled
	Presets PresetStore
	Hotkeys HotkeyBinder
	// OnConfigChange is called with the new configuration after a
	// successful PUT /api/config.
	OnConfigChange func(*config.Config)
}

// Server is the local dashboard. It also acts as the overlay surface and
// the popup result display by pushing messages to connected clients.
type Server struct {
	db             *storage.DB
	presets        PresetStore
	onConfigChange func(*config.Config)
	hub            *Hub

	mu      sync.RWMutex
	config  *config.Config
	hotkeys HotkeyBinder
	chooser OverlayChooser
	status  pipeline.Status
	overlay *overlay.Session
}

// NewServer creates a new web server and starts its hub
func NewServer(opts Options) *Server {
	s := &Server{
		db:             opts.DB,
		presets:        opts.Presets,
		hotkeys:        opts.Hotkeys,
		onConfigChange: opts.OnConfigChange,
		config:         opts.Config,
		status:         pipeline.StatusIdle,
	}
	s.hub = NewHub(s.handleClientMessage)
	go s.hub.Run()
	return s
}

// SetOverlay attaches the controller that receives pointer choices.
func (s *Server) SetOverlay(c OverlayChooser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chooser = c
}

// SetHotkeys attaches the binder used when a flow's hotkey is edited.
func (s *Server) SetHotkeys(b HotkeyBinder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotkeys = b
}

// Handler returns the router serving the API, the websocket and the
// embedded dashboard.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/config", s.handleGetConfig)
	r.Put("/api/config", s.handlePutConfig)
	r.Get("/api/presets/{flow}", s.handleGetPresets)
	r.Put("/api/presets/{flow}", s.handlePutPresets)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/history", s.handleGetHistory)
	r.Delete("/api/history/{id}", s.handleDeleteHistory)
	r.Get("/api/stats", s.handleStats)
	r.Get("/ws", s.handleWebSocket)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		slog.Error("Failed to load static files", "error", err)
		return r
	}
	r.Handle("/*", http.FileServer(http.FS(staticFS)))

	return r
}

// Start serves on the configured port until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	port := s.GetConfig().Web.Port
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting web server", "port", port, "url", s.URL())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// Close stops the hub and disconnects all clients
func (s *Server) Close() {
	s.hub.Stop()
}

// URL returns the dashboard address
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.GetConfig().Web.Port)
}

// GetConfig returns the current configuration (thread-safe)
func (s *Server) GetConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig updates the configuration (thread-safe)
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// SetStatus records and broadcasts a processing status change.
func (s *Server) SetStatus(status pipeline.Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()

	s.hub.BroadcastMessage(Message{
		Type: MessageTypeStatus,
		Data: StatusMessage{Status: string(status)},
	})
}

// RecordRun broadcasts a finished run so open dashboards can refresh.
func (s *Server) RecordRun(r pipeline.Run) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeRun,
		Data: RunMessage{
			ID:        r.ID,
			Flow:      string(r.Flow),
			Preset:    r.PresetName,
			Outcome:   string(r.Outcome),
			Timestamp: r.StartedAt.UTC().Format(time.RFC3339),
		},
	})
}

// ShowOverlay pushes an overlay session to connected clients.
func (s *Server) ShowOverlay(session overlay.Session) error {
	s.mu.Lock()
	s.overlay = &session
	s.mu.Unlock()

	if s.hub.ClientCount() == 0 {
		return ErrNoClients
	}
	s.hub.BroadcastMessage(Message{Type: MessageTypeOverlay, Data: session})
	return nil
}

// HideOverlay tells clients the session is over.
func (s *Server) HideOverlay(token string, index int) {
	s.mu.Lock()
	if s.overlay != nil && s.overlay.Token == token {
		s.overlay = nil
	}
	s.mu.Unlock()

	s.hub.BroadcastMessage(Message{
		Type: MessageTypeOverlayClosed,
		Data: OverlayClosedMessage{Token: token, Index: index},
	})
}

// ShowResult pushes a popup result to connected clients.
func (s *Server) ShowResult(text string) error {
	if s.hub.ClientCount() == 0 {
		return ErrNoClients
	}
	s.hub.BroadcastMessage(Message{Type: MessageTypeResult, Data: ResultMessage{Text: text}})
	return nil
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	// Bring the new client up to date before it joins the broadcast set
	s.mu.RLock()
	status := s.status
	live := s.overlay
	s.mu.RUnlock()
	client.Send(Message{Type: MessageTypeStatus, Data: StatusMessage{Status: string(status)}})
	if live != nil {
		client.Send(Message{Type: MessageTypeOverlay, Data: *live})
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// handleClientMessage applies choose and dismiss frames to the overlay
func (s *Server) handleClientMessage(_ *Client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Warn("Ignoring malformed client message", "error", err)
		return
	}

	s.mu.RLock()
	chooser := s.chooser
	s.mu.RUnlock()
	if chooser == nil {
		return
	}

	switch msg.Type {
	case MessageTypeChoose:
		var m ChooseMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			slog.Warn("Ignoring malformed choose message", "error", err)
			return
		}
		chooser.Choose(m.Token, m.Index)
	case MessageTypeDismiss:
		var m DismissMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			slog.Warn("Ignoring malformed dismiss message", "error", err)
			return
		}
		chooser.Dismiss(m.Token)
	default:
		slog.Debug("Ignoring unknown client message", "type", msg.Type)
	}
}
