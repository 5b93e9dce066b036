package orchestrator

import (
	"testing"

	"github.com/ShayCichocki/conduit/pkg/models"
)

func okResult(id string, output any) *models.TaskResult {
	return &models.TaskResult{TaskID: id, Success: true, Output: output}
}

func failedResult(id string) *models.TaskResult {
	return &models.TaskResult{
		TaskID: id,
		Err:    &models.StructuredError{Code: models.ErrCodeExecutionFailed, Message: "boom"},
	}
}

func TestMergeNone(t *testing.T) {
	merged, err := Merge([]*models.TaskResult{okResult("a", 1)}, models.MergeNone)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if merged != nil {
		t.Errorf("expected nil merged result, got %+v", merged)
	}
}

func TestMergeConcatSuccess(t *testing.T) {
	results := []*models.TaskResult{okResult("a", "one"), failedResult("b"), okResult("c", "three")}

	merged, err := Merge(results, models.MergeConcatSuccess)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	got, ok := merged.Value.([]any)
	if !ok || len(got) != 2 || got[0] != "one" || got[1] != "three" {
		t.Errorf("merged value = %v", merged.Value)
	}
}

func TestMergeFirstSuccess(t *testing.T) {
	results := []*models.TaskResult{failedResult("a"), okResult("b", "winner"), okResult("c", "later")}

	merged, err := Merge(results, models.MergeFirstSuccess)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if merged.Value != "winner" {
		t.Errorf("merged value = %v, want winner", merged.Value)
	}
}

func TestMergeFirstSuccessAllFailed(t *testing.T) {
	merged, err := Merge([]*models.TaskResult{failedResult("a")}, models.MergeFirstSuccess)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if merged == nil || merged.Value != nil {
		t.Errorf("expected empty merged result, got %+v", merged)
	}
}

func TestMergeAllOrNothing(t *testing.T) {
	all := []*models.TaskResult{okResult("a", 1), okResult("b", 2)}
	merged, err := Merge(all, models.MergeAllOrNothing)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	got, ok := merged.Value.([]any)
	if !ok || len(got) != 2 {
		t.Fatalf("merged value = %v", merged.Value)
	}

	withFailure := []*models.TaskResult{okResult("a", 1), failedResult("b")}
	merged, err = Merge(withFailure, models.MergeAllOrNothing)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if merged.Value != nil {
		t.Errorf("expected nil value with a failure present, got %v", merged.Value)
	}
}

func TestMergeUnknownStrategy(t *testing.T) {
	if _, err := Merge(nil, models.MergeStrategy("zip")); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestEventEmitterDropsWhenFull(t *testing.T) {
	e := NewEventEmitter(1)

	e.Emit(Event{Type: EventJobStarted})
	e.Emit(Event{Type: EventJobProgress}) // buffer full, dropped after the grace window

	if got := e.DroppedCount(); got != 1 {
		t.Errorf("dropped count = %d, want 1", got)
	}

	ev := <-e.Events()
	if ev.Type != EventJobStarted {
		t.Errorf("buffered event = %s, want %s", ev.Type, EventJobStarted)
	}
	e.Close()
	if _, open := <-e.Events(); open {
		t.Error("channel should be closed")
	}
}
