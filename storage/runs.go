package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// RunRecord is one stored pipeline run.
type RunRecord struct {
	ID                 int64     `json:"id"`
	RunID              string    `json:"runId"`
	Timestamp          time.Time `json:"timestamp"`
	Flow               string    `json:"flow"`
	PresetID           string    `json:"presetId"`
	PresetName         string    `json:"presetName"`
	PreviousApp        string    `json:"previousApp"`
	CaptureLatencyMs   int64     `json:"captureLatencyMs"`
	TransformLatencyMs int64     `json:"transformLatencyMs"`
	TotalLatencyMs     int64     `json:"totalLatencyMs"`
	Provider           string    `json:"provider"`
	Model              string    `json:"model"`
	CapturedChars      int       `json:"capturedChars"`
	ResultChars        int       `json:"resultChars"`
	Outcome            string    `json:"outcome"`
	Success            bool      `json:"success"`
	ErrorMessage       string    `json:"errorMessage,omitempty"`
}

// SaveRun saves a run to the database and sets its ID.
func (db *DB) SaveRun(r *RunRecord) error {
	query := `
		INSERT INTO runs (
			run_id, timestamp, flow, preset_id, preset_name, previous_app,
			capture_latency_ms, transform_latency_ms, total_latency_ms,
			provider, model, captured_chars, result_chars,
			outcome, success, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	result, err := db.conn.Exec(query,
		r.RunID, ts.UTC().Format(timestampLayout), r.Flow, r.PresetID, r.PresetName, r.PreviousApp,
		r.CaptureLatencyMs, r.TransformLatencyMs, r.TotalLatencyMs,
		r.Provider, r.Model, r.CapturedChars, r.ResultChars,
		r.Outcome, r.Success, r.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	r.ID = id
	return nil
}

// GetRuns retrieves runs, newest first, with pagination
func (db *DB) GetRuns(limit, offset int) ([]RunRecord, error) {
	query := `
		SELECT
			id, run_id, timestamp, flow, preset_id, preset_name, previous_app,
			capture_latency_ms, transform_latency_ms, total_latency_ms,
			provider, model, captured_chars, result_chars,
			outcome, success, error_message
		FROM runs
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var r RunRecord
		var errorMessage sql.NullString

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.Flow, &r.PresetID, &r.PresetName, &r.PreviousApp,
			&r.CaptureLatencyMs, &r.TransformLatencyMs, &r.TotalLatencyMs,
			&r.Provider, &r.Model, &r.CapturedChars, &r.ResultChars,
			&r.Outcome, &r.Success, &errorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if errorMessage.Valid {
			r.ErrorMessage = errorMessage.String
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// DeleteRun deletes a run by ID
func (db *DB) DeleteRun(id int64) error {
	result, err := db.conn.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("run %d: %w", id, ErrNotFound)
	}

	return nil
}

// GetRunCount returns the total number of runs
func (db *DB) GetRunCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}
