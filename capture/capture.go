// Package capture copies the current selection through the system clipboard.
package capture

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"markestedt/shortcutai/config"
	"markestedt/shortcutai/platform"
)

// Timing holds the settle delays and retry budget of a capture.
type Timing struct {
	ClearSettle   time.Duration
	CopySettle    time.Duration
	RetryInterval time.Duration
	MaxRetries    int
	// RecopyAttempt is the zero-based retry before which the copy keystroke
	// is sent again.
	RecopyAttempt int
}

// DefaultTiming returns the delays that work for most applications.
func DefaultTiming() Timing {
	return Timing{
		ClearSettle:   50 * time.Millisecond,
		CopySettle:    250 * time.Millisecond,
		RetryInterval: 120 * time.Millisecond,
		MaxRetries:    8,
		RecopyAttempt: 3,
	}
}

// TimingFromConfig converts the [timing] config section.
func TimingFromConfig(t config.TimingConfig) Timing {
	return Timing{
		ClearSettle:   config.Ms(t.ClearSettleMs),
		CopySettle:    config.Ms(t.CopySettleMs),
		RetryInterval: config.Ms(t.RetryIntervalMs),
		MaxRetries:    t.MaxRetries,
		RecopyAttempt: t.RecopyAttempt,
	}
}

// Service captures the selected text of the focused application.
type Service struct {
	clipboard platform.Clipboard
	injector  platform.Injector
	timing    Timing
}

func NewService(clipboard platform.Clipboard, injector platform.Injector, timing Timing) *Service {
	return &Service{
		clipboard: clipboard,
		injector:  injector,
		timing:    timing,
	}
}

// Capture clears the clipboard, sends a copy keystroke and polls the
// clipboard until it holds non-blank text. It returns "" when nothing was
// copied or ctx ended. The clipboard is overwritten as a side effect.
func (s *Service) Capture(ctx context.Context) (text string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Capture panicked", "panic", r)
			text = ""
		}
	}()

	if err := s.clipboard.Set(""); err != nil {
		slog.Warn("Failed to clear clipboard", "error", err)
	}
	if !sleep(ctx, s.timing.ClearSettle) {
		return ""
	}

	s.injector.SendCopy()
	if !sleep(ctx, s.timing.CopySettle) {
		return ""
	}

	text = s.read()
	for attempt := 0; isBlank(text) && attempt < s.timing.MaxRetries; attempt++ {
		if attempt == s.timing.RecopyAttempt {
			slog.Debug("Clipboard still empty, sending copy again", "attempt", attempt)
			s.injector.SendCopy()
		}
		if !sleep(ctx, s.timing.RetryInterval) {
			return ""
		}
		text = s.read()
	}

	if isBlank(text) {
		slog.Info("No text captured", "retries", s.timing.MaxRetries)
		return ""
	}
	return text
}

func (s *Service) read() string {
	text, err := s.clipboard.Get()
	if err != nil {
		slog.Debug("Clipboard read failed", "error", err)
		return ""
	}
	return text
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// sleep waits for d and reports false if ctx ended first.
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
