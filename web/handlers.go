package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"markestedt/shortcutai/pipeline"
	"markestedt/shortcutai/preset"
	"markestedt/shortcutai/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// configView is the dashboard's view of the configuration. The API key is
// never sent back.
type configView struct {
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	BaseURL        string  `json:"baseUrl"`
	TimeoutSeconds int     `json:"timeoutSeconds"`
	HasAPIKey      bool    `json:"hasApiKey"`
	WebPort        int     `json:"webPort"`
	OpenOnStart    bool    `json:"openOnStart"`
	TrayEnabled    bool    `json:"trayEnabled"`
	CueEnabled     bool    `json:"cueEnabled"`
	CueVolume      float64 `json:"cueVolume"`
	HistoryEnabled bool    `json:"historyEnabled"`
}

// handleGetConfig returns the current configuration
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.GetConfig()

	writeJSON(w, http.StatusOK, configView{
		Provider:       cfg.Transform.Provider,
		Model:          cfg.Transform.Model,
		BaseURL:        cfg.Transform.BaseURL,
		TimeoutSeconds: cfg.Transform.TimeoutSeconds,
		HasAPIKey:      cfg.Transform.APIKey != "",
		WebPort:        cfg.Web.Port,
		OpenOnStart:    cfg.Web.OpenOnStart,
		TrayEnabled:    cfg.Tray.Enabled,
		CueEnabled:     cfg.Cue.Enabled,
		CueVolume:      cfg.Cue.Volume,
		HistoryEnabled: cfg.History.Enabled,
	})
}

// handlePutConfig updates the configuration
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider       *string  `json:"provider"`
		Model          *string  `json:"model"`
		BaseURL        *string  `json:"baseUrl"`
		TimeoutSeconds *int     `json:"timeoutSeconds"`
		APIKey         *string  `json:"apiKey"`
		WebPort        *int     `json:"webPort"`
		OpenOnStart    *bool    `json:"openOnStart"`
		TrayEnabled    *bool    `json:"trayEnabled"`
		CueEnabled     *bool    `json:"cueEnabled"`
		CueVolume      *float64 `json:"cueVolume"`
		HistoryEnabled *bool    `json:"historyEnabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg := s.GetConfig().Clone()

	// Update fields if provided
	if req.Provider != nil {
		cfg.Transform.Provider = *req.Provider
	}
	if req.Model != nil {
		cfg.Transform.Model = *req.Model
	}
	if req.BaseURL != nil {
		cfg.Transform.BaseURL = *req.BaseURL
	}
	if req.TimeoutSeconds != nil {
		cfg.Transform.TimeoutSeconds = *req.TimeoutSeconds
	}
	if req.APIKey != nil && *req.APIKey != "" {
		cfg.Transform.APIKey = *req.APIKey
	}
	if req.WebPort != nil {
		cfg.Web.Port = *req.WebPort
	}
	if req.OpenOnStart != nil {
		cfg.Web.OpenOnStart = *req.OpenOnStart
	}
	if req.TrayEnabled != nil {
		cfg.Tray.Enabled = *req.TrayEnabled
	}
	if req.CueEnabled != nil {
		cfg.Cue.Enabled = *req.CueEnabled
	}
	if req.CueVolume != nil {
		cfg.Cue.Volume = *req.CueVolume
	}
	if req.HistoryEnabled != nil {
		cfg.History.Enabled = *req.HistoryEnabled
	}

	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := cfg.Save(); err != nil {
		slog.Error("Failed to save config", "error", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	s.UpdateConfig(cfg)
	if s.onConfigChange != nil {
		s.onConfigChange(cfg)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func flowParam(w http.ResponseWriter, r *http.Request) (preset.Flow, bool) {
	flow, err := preset.ParseFlow(chi.URLParam(r, "flow"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return "", false
	}
	return flow, true
}

// handleGetPresets returns the stored settings of one flow
func (s *Server) handleGetPresets(w http.ResponseWriter, r *http.Request) {
	flow, ok := flowParam(w, r)
	if !ok {
		return
	}

	settings, err := s.presets.Load(flow)
	if err != nil {
		slog.Error("Failed to load presets", "flow", flow, "error", err)
		http.Error(w, "Failed to load presets", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// handlePutPresets validates, rebinds and saves the settings of one flow
func (s *Server) handlePutPresets(w http.ResponseWriter, r *http.Request) {
	flow, ok := flowParam(w, r)
	if !ok {
		return
	}

	var settings preset.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := preset.Validate(settings.Profiles); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	hotkeys := s.hotkeys
	s.mu.RUnlock()

	// The new hotkey is bound before saving so a conflict never reaches the
	// file. A failed save rebinds the previous hotkey.
	previous, prevErr := s.presets.Load(flow)
	if hotkeys != nil {
		if err := hotkeys.Bind(flow, settings.General.Hotkey); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, pipeline.ErrHotkeyConflict) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
	}

	if err := s.presets.Save(flow, settings); err != nil {
		slog.Error("Failed to save presets", "flow", flow, "error", err)
		if hotkeys != nil && prevErr == nil {
			if err := hotkeys.Bind(flow, previous.General.Hotkey); err != nil {
				slog.Error("Failed to restore previous hotkey", "flow", flow, "error", err)
			}
		}
		http.Error(w, "Failed to save presets", http.StatusInternalServerError)
		return
	}

	saved, err := s.presets.Load(flow)
	if err != nil {
		slog.Error("Failed to reload presets", "flow", flow, "error", err)
		http.Error(w, "Failed to load presets", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

// handleStatus returns the current processing status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, StatusMessage{Status: string(status)})
}

func (s *Server) historyAvailable(w http.ResponseWriter) bool {
	if s.db == nil {
		http.Error(w, "History is disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func intQuery(r *http.Request, key string, def, lo int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= lo {
			return n
		}
	}
	return def
}

// handleGetHistory returns paginated run history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if !s.historyAvailable(w) {
		return
	}

	limit := intQuery(r, "limit", 50, 1)
	offset := intQuery(r, "offset", 0, 0)

	runs, err := s.db.GetRuns(limit, offset)
	if err != nil {
		slog.Error("Failed to get runs", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	total, err := s.db.GetRunCount()
	if err != nil {
		slog.Error("Failed to get run count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":   runs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// handleDeleteHistory deletes a run by ID
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if !s.historyAvailable(w) {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := s.db.DeleteRun(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete run", "error", err, "id", id)
		http.Error(w, "Failed to delete run", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleStats returns statistics for the specified time range
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.historyAvailable(w) {
		return
	}

	days := intQuery(r, "days", 7, 1)

	overall, err := s.db.GetOverallStats(days)
	if err != nil {
		slog.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	daily, err := s.db.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	flows, err := s.db.GetFlowStats(days)
	if err != nil {
		slog.Error("Failed to get flow stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	presets, err := s.db.GetPresetStats(days, 5)
	if err != nil {
		slog.Error("Failed to get preset stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"overall": overall,
		"daily":   daily,
		"flows":   flows,
		"presets": presets,
	})
}
