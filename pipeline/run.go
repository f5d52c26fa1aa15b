package pipeline

import (
	"time"

	"markestedt/shortcutai/preset"
)

// Outcome records how a pipeline run ended.
type Outcome string

const (
	OutcomeDelivered       Outcome = "delivered"
	OutcomeNoPresets       Outcome = "no_presets"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeEmptyCapture    Outcome = "empty_capture"
	OutcomeTransformFailed Outcome = "transform_failed"
	OutcomeEmptyResult     Outcome = "empty_result"
	OutcomeFailed          Outcome = "failed"
	// OutcomeBusy marks an activation ignored because a run was in flight.
	// Busy runs are not published to run listeners.
	OutcomeBusy Outcome = "busy"
)

// Run describes one hotkey activation.
type Run struct {
	ID               string
	Flow             preset.Flow
	PresetID         string
	PresetName       string
	PreviousApp      string
	CapturedChars    int
	ResultChars      int
	Outcome          Outcome
	Error            string
	StartedAt        time.Time
	CaptureLatency   time.Duration
	TransformLatency time.Duration
	Total            time.Duration
}

// Delivered reports whether the result reached its destination.
func (r Run) Delivered() bool {
	return r.Outcome == OutcomeDelivered
}

func (r *Run) fail(outcome Outcome, err error) {
	r.Outcome = outcome
	if err != nil {
		r.Error = err.Error()
	}
}
