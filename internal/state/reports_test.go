package state

import (
	"errors"
	"testing"
	"time"

	"github.com/ShayCichocki/conduit/pkg/models"
)

func sampleReport(planID string) *models.ExecutionReport {
	return &models.ExecutionReport{
		PlanID:  planID,
		Success: false,
		Results: map[string]*models.TaskResult{
			"fetch": {
				TaskID:   "fetch",
				Source:   models.SourceTool,
				Success:  true,
				Output:   map[string]any{"rows": float64(42)},
				Duration: 120 * time.Millisecond,
				Attempts: 2,
				Retried:  true,
			},
			"publish": {
				TaskID: "publish",
				Source: models.SourceModule,
				Err: &models.StructuredError{
					Code:    models.ErrCodeDependencyFailed,
					Message: "unmet dependencies: transform",
				},
			},
		},
		Merged: &models.MergedResult{
			Strategy: models.MergeConcatSuccess,
			Value:    []any{map[string]any{"rows": float64(42)}},
		},
		Duration: 500 * time.Millisecond,
		Summary: models.ReportSummary{
			TasksBySource: map[models.Source]int{models.SourceTool: 1, models.SourceModule: 1},
			GroupCount:    2,
			FailedTasks:   []string{"publish"},
			RetriedTasks:  []string{"fetch"},
		},
	}
}

func TestSaveAndGetReport(t *testing.T) {
	db := setupTestDB(t)

	if err := db.SaveReport(sampleReport("plan-1")); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	got, err := db.GetReport("plan-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}

	if got.PlanID != "plan-1" || got.Success {
		t.Errorf("report head = %s/%v", got.PlanID, got.Success)
	}
	if got.Duration != 500*time.Millisecond {
		t.Errorf("duration = %s", got.Duration)
	}
	if len(got.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(got.Results))
	}

	fetch := got.Results["fetch"]
	if !fetch.Success || fetch.Attempts != 2 || !fetch.Retried {
		t.Errorf("fetch = %+v", fetch)
	}
	out, ok := fetch.Output.(map[string]any)
	if !ok || out["rows"] != float64(42) {
		t.Errorf("fetch output = %v", fetch.Output)
	}

	publish := got.Results["publish"]
	if publish.Err == nil || publish.Err.Code != models.ErrCodeDependencyFailed {
		t.Errorf("publish = %+v", publish)
	}

	if got.Merged == nil || got.Merged.Strategy != models.MergeConcatSuccess {
		t.Errorf("merged = %+v", got.Merged)
	}
	if got.Summary.GroupCount != 2 || len(got.Summary.FailedTasks) != 1 {
		t.Errorf("summary = %+v", got.Summary)
	}
}

func TestSaveReport_Replaces(t *testing.T) {
	db := setupTestDB(t)

	if err := db.SaveReport(sampleReport("plan-1")); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	// Second run under the same plan ID succeeds with one task.
	rerun := &models.ExecutionReport{
		PlanID:  "plan-1",
		Success: true,
		Results: map[string]*models.TaskResult{
			"fetch": {TaskID: "fetch", Source: models.SourceTool, Success: true, Output: "ok", Attempts: 1},
		},
		Summary: models.ReportSummary{
			TasksBySource: map[models.Source]int{models.SourceTool: 1},
			GroupCount:    1,
		},
	}
	if err := db.SaveReport(rerun); err != nil {
		t.Fatalf("SaveReport (rerun) failed: %v", err)
	}

	got, err := db.GetReport("plan-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if !got.Success {
		t.Error("rerun should be successful")
	}
	if len(got.Results) != 1 {
		t.Errorf("stale task results survived the replace: %d rows", len(got.Results))
	}
	if got.Merged != nil {
		t.Errorf("stale merged result survived: %+v", got.Merged)
	}
}

func TestGetReport_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetReport("ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListReports(t *testing.T) {
	db := setupTestDB(t)

	for _, id := range []string{"plan-a", "plan-b", "plan-c"} {
		if err := db.SaveReport(sampleReport(id)); err != nil {
			t.Fatalf("SaveReport %s failed: %v", id, err)
		}
	}

	heads, err := db.ListReports(2)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(heads) != 2 {
		t.Errorf("heads = %d, want 2 (limit)", len(heads))
	}
	for _, h := range heads {
		if h.PlanID == "" || h.CreatedAt.IsZero() {
			t.Errorf("incomplete head: %+v", h)
		}
	}
}

func TestDeleteReport(t *testing.T) {
	db := setupTestDB(t)

	if err := db.SaveReport(sampleReport("plan-1")); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if err := db.DeleteReport("plan-1"); err != nil {
		t.Fatalf("DeleteReport failed: %v", err)
	}

	if _, err := db.GetReport("plan-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("report still present after delete: %v", err)
	}

	// Cascade should clear task rows too.
	var count int
	row := db.QueryRow("SELECT COUNT(*) FROM task_results WHERE plan_id = ?", "plan-1")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count task_results: %v", err)
	}
	if count != 0 {
		t.Errorf("task_results rows = %d, want 0", count)
	}

	if err := db.DeleteReport("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete of missing report: err = %v, want ErrNotFound", err)
	}
}

func TestPurgeOldReports(t *testing.T) {
	db := setupTestDB(t)

	if err := db.SaveReport(sampleReport("recent")); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	// Backdate one report past the cutoff.
	old := formatTime(time.Now().Add(-48 * time.Hour))
	_, err := db.Exec("INSERT INTO reports (plan_id, success, summary, created_at) VALUES (?, ?, ?, ?)",
		"ancient", true, "{}", old)
	if err != nil {
		t.Fatalf("insert backdated report: %v", err)
	}

	count, err := db.PurgeOldReports(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldReports failed: %v", err)
	}
	if count != 1 {
		t.Errorf("purged = %d, want 1", count)
	}
	if _, err := db.GetReport("recent"); err != nil {
		t.Errorf("recent report should survive purge: %v", err)
	}
}
