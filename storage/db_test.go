package storage

import (
	"errors"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndListRuns(t *testing.T) {
	db := openTestDB(t)

	now := time.Now()
	runs := []*RunRecord{
		{RunID: "a", Timestamp: now.Add(-2 * time.Minute), Flow: "inline", PresetName: "Fix grammar", Outcome: "delivered", Success: true, CapturedChars: 10, ResultChars: 12},
		{RunID: "b", Timestamp: now.Add(-time.Minute), Flow: "popup", PresetName: "Explain", Outcome: "transform_failed", ErrorMessage: "status 503"},
		{RunID: "c", Timestamp: now, Flow: "inline", PresetName: "Fix grammar", Outcome: "cancelled"},
	}
	for _, r := range runs {
		if err := db.SaveRun(r); err != nil {
			t.Fatalf("SaveRun(%s): %v", r.RunID, err)
		}
		if r.ID == 0 {
			t.Fatalf("SaveRun(%s) did not assign an ID", r.RunID)
		}
	}

	count, err := db.GetRunCount()
	if err != nil || count != 3 {
		t.Fatalf("GetRunCount = %d, %v", count, err)
	}

	got, err := db.GetRuns(2, 0)
	if err != nil {
		t.Fatalf("GetRuns: %v", err)
	}
	if len(got) != 2 || got[0].RunID != "c" || got[1].RunID != "b" {
		t.Fatalf("unexpected first page: %+v", got)
	}
	if got[1].ErrorMessage != "status 503" {
		t.Fatalf("error message = %q", got[1].ErrorMessage)
	}

	rest, err := db.GetRuns(2, 2)
	if err != nil {
		t.Fatalf("GetRuns offset: %v", err)
	}
	if len(rest) != 1 || rest[0].RunID != "a" || !rest[0].Success || rest[0].ResultChars != 12 {
		t.Fatalf("unexpected second page: %+v", rest)
	}
}

func TestDeleteRun(t *testing.T) {
	db := openTestDB(t)

	r := &RunRecord{RunID: "a", Flow: "inline", Outcome: "delivered", Success: true}
	if err := db.SaveRun(r); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteRun(r.ID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if err := db.DeleteRun(r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestStats(t *testing.T) {
	db := openTestDB(t)

	now := time.Now()
	records := []*RunRecord{
		{RunID: "1", Timestamp: now, Flow: "inline", PresetName: "Fix grammar", Outcome: "delivered", Success: true, CapturedChars: 10, ResultChars: 20, TransformLatencyMs: 100, TotalLatencyMs: 300},
		{RunID: "2", Timestamp: now, Flow: "inline", PresetName: "Fix grammar", Outcome: "delivered", Success: true, CapturedChars: 5, ResultChars: 5, TransformLatencyMs: 300, TotalLatencyMs: 500},
		{RunID: "3", Timestamp: now, Flow: "popup", PresetName: "Explain", Outcome: "delivered", Success: true, TransformLatencyMs: 200, TotalLatencyMs: 400},
		{RunID: "4", Timestamp: now, Flow: "popup", PresetName: "Explain", Outcome: "empty_result"},
		{RunID: "5", Timestamp: now, Flow: "inline", Outcome: "no_presets"},
		{RunID: "6", Timestamp: now.AddDate(0, 0, -30), Flow: "inline", PresetName: "Old", Outcome: "delivered", Success: true},
	}
	for _, r := range records {
		if err := db.SaveRun(r); err != nil {
			t.Fatal(err)
		}
	}

	overall, err := db.GetOverallStats(7)
	if err != nil {
		t.Fatalf("GetOverallStats: %v", err)
	}
	if overall.TotalRuns != 5 || overall.DeliveredCount != 3 || overall.FailedCount != 1 || overall.CancelledCount != 1 {
		t.Fatalf("unexpected overall stats: %+v", overall)
	}
	if overall.TotalCapturedChars != 15 || overall.TotalResultChars != 25 {
		t.Fatalf("unexpected char totals: %+v", overall)
	}
	if overall.AvgTransformMs != 200 {
		t.Fatalf("AvgTransformMs = %v, want 200", overall.AvgTransformMs)
	}

	flows, err := db.GetFlowStats(7)
	if err != nil {
		t.Fatalf("GetFlowStats: %v", err)
	}
	if len(flows) != 2 || flows[0].Flow != "inline" || flows[0].TotalRuns != 3 || flows[0].DeliveredCount != 2 {
		t.Fatalf("unexpected flow stats: %+v", flows)
	}
	if flows[1].FailedCount != 1 {
		t.Fatalf("popup failed count = %d", flows[1].FailedCount)
	}

	presets, err := db.GetPresetStats(7, 5)
	if err != nil {
		t.Fatalf("GetPresetStats: %v", err)
	}
	if len(presets) != 2 || presets[0].PresetName != "Fix grammar" || presets[0].DeliveredCount != 2 {
		t.Fatalf("unexpected preset stats: %+v", presets)
	}

	daily, err := db.GetDailyStats(60)
	if err != nil {
		t.Fatalf("GetDailyStats: %v", err)
	}
	total := 0
	for _, d := range daily {
		total += d.TotalRuns
	}
	if total != 6 || len(daily) < 2 {
		t.Fatalf("unexpected daily stats: %+v", daily)
	}
}

func TestOverallStatsEmpty(t *testing.T) {
	db := openTestDB(t)
	stats, err := db.GetOverallStats(7)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalRuns != 0 || stats.AvgTotalLatencyMs != 0 {
		t.Fatalf("unexpected stats on empty db: %+v", stats)
	}
}
