package tray

import (
	"strings"
	"testing"

	"markestedt/shortcutai/pipeline"
)

func TestTooltip(t *testing.T) {
	if got := Tooltip(pipeline.StatusIdle); got != "ShortcutAI" {
		t.Fatalf("idle tooltip = %q", got)
	}
	for _, s := range []pipeline.Status{pipeline.StatusInput, pipeline.StatusSelection} {
		if got := Tooltip(s); !strings.Contains(got, "processing") {
			t.Fatalf("tooltip for %s = %q", s, got)
		}
	}
}

func TestSetStatusBeforeReady(t *testing.T) {
	m := NewManager("", nil)
	m.SetStatus(pipeline.StatusInput)
	select {
	case <-m.WaitForQuit():
		t.Fatal("quit closed without a quit request")
	default:
	}
}
