package storage

import (
	"fmt"
)

// Outcome groups used by the statistics queries.
const (
	failedOutcomes    = `('transform_failed', 'empty_result', 'failed')`
	cancelledOutcomes = `('cancelled', 'no_presets', 'empty_capture')`
)

// DailyStats represents statistics for a single day
type DailyStats struct {
	Date           string `json:"date"`
	TotalRuns      int    `json:"totalRuns"`
	DeliveredCount int    `json:"deliveredCount"`
	CancelledCount int    `json:"cancelledCount"`
	FailedCount    int    `json:"failedCount"`
}

// FlowStats represents statistics grouped by flow
type FlowStats struct {
	Flow           string  `json:"flow"`
	TotalRuns      int     `json:"totalRuns"`
	DeliveredCount int     `json:"deliveredCount"`
	FailedCount    int     `json:"failedCount"`
	AvgTransformMs float64 `json:"avgTransformMs"`
}

// PresetStats counts delivered runs per preset
type PresetStats struct {
	PresetName     string `json:"presetName"`
	DeliveredCount int    `json:"deliveredCount"`
}

// OverallStats represents overall statistics
type OverallStats struct {
	TotalRuns          int     `json:"totalRuns"`
	DeliveredCount     int     `json:"deliveredCount"`
	CancelledCount     int     `json:"cancelledCount"`
	FailedCount        int     `json:"failedCount"`
	TotalCapturedChars int64   `json:"totalCapturedChars"`
	TotalResultChars   int64   `json:"totalResultChars"`
	AvgCaptureMs       float64 `json:"avgCaptureMs"`
	AvgTransformMs     float64 `json:"avgTransformMs"`
	AvgTotalLatencyMs  float64 `json:"avgTotalLatencyMs"`
}

// GetDailyStats retrieves statistics grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp) as date,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END) as delivered_count,
			SUM(CASE WHEN outcome IN ` + cancelledOutcomes + ` THEN 1 ELSE 0 END) as cancelled_count,
			SUM(CASE WHEN outcome IN ` + failedOutcomes + ` THEN 1 ELSE 0 END) as failed_count
		FROM runs
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	stats := []DailyStats{}
	for rows.Next() {
		var s DailyStats
		err := rows.Scan(&s.Date, &s.TotalRuns, &s.DeliveredCount, &s.CancelledCount, &s.FailedCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetFlowStats retrieves statistics grouped by flow for the last N days
func (db *DB) GetFlowStats(days int) ([]FlowStats, error) {
	query := `
		SELECT
			flow,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END) as delivered_count,
			SUM(CASE WHEN outcome IN ` + failedOutcomes + ` THEN 1 ELSE 0 END) as failed_count,
			COALESCE(AVG(CASE WHEN transform_latency_ms > 0 THEN transform_latency_ms END), 0) as avg_transform_ms
		FROM runs
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY flow
		ORDER BY total_runs DESC
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow stats: %w", err)
	}
	defer rows.Close()

	stats := []FlowStats{}
	for rows.Next() {
		var s FlowStats
		err := rows.Scan(&s.Flow, &s.TotalRuns, &s.DeliveredCount, &s.FailedCount, &s.AvgTransformMs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetPresetStats returns the presets with the most delivered runs in the
// last N days.
func (db *DB) GetPresetStats(days, limit int) ([]PresetStats, error) {
	query := `
		SELECT preset_name, COUNT(*) as delivered_count
		FROM runs
		WHERE success = 1 AND timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY preset_name
		ORDER BY delivered_count DESC, preset_name
		LIMIT ?
	`

	rows, err := db.conn.Query(query, days, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query preset stats: %w", err)
	}
	defer rows.Close()

	stats := []PresetStats{}
	for rows.Next() {
		var s PresetStats
		if err := rows.Scan(&s.PresetName, &s.DeliveredCount); err != nil {
			return nil, fmt.Errorf("failed to scan preset stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics for the last N days
func (db *DB) GetOverallStats(days int) (*OverallStats, error) {
	query := `
		SELECT
			COUNT(*) as total_runs,
			COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0) as delivered_count,
			COALESCE(SUM(CASE WHEN outcome IN ` + cancelledOutcomes + ` THEN 1 ELSE 0 END), 0) as cancelled_count,
			COALESCE(SUM(CASE WHEN outcome IN ` + failedOutcomes + ` THEN 1 ELSE 0 END), 0) as failed_count,
			COALESCE(SUM(captured_chars), 0) as total_captured_chars,
			COALESCE(SUM(result_chars), 0) as total_result_chars,
			COALESCE(AVG(CASE WHEN capture_latency_ms > 0 THEN capture_latency_ms END), 0) as avg_capture_ms,
			COALESCE(AVG(CASE WHEN transform_latency_ms > 0 THEN transform_latency_ms END), 0) as avg_transform_ms,
			COALESCE(AVG(total_latency_ms), 0) as avg_total_latency_ms
		FROM runs
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
	`

	var stats OverallStats
	err := db.conn.QueryRow(query, days).Scan(
		&stats.TotalRuns,
		&stats.DeliveredCount,
		&stats.CancelledCount,
		&stats.FailedCount,
		&stats.TotalCapturedChars,
		&stats.TotalResultChars,
		&stats.AvgCaptureMs,
		&stats.AvgTransformMs,
		&stats.AvgTotalLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	return &stats, nil
}
