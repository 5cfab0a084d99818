package session

import (
	"context"
	"errors"
	"testing"

	"github.com/sowfeehealth/wellness/internal/models"
)

func TestRestorePendingWinsAndIsConsumed(t *testing.T) {
	ctx := context.Background()
	pending := newStubSnapshotStore()
	routine := newStubSnapshotStore()
	_ = pending.Save(ctx, "T1", models.AutosaveSnapshot{
		Answers:     models.AnswerMap{"q1": "5", "q2": "4"},
		StudentName: "Ann",
	})
	_ = routine.Save(ctx, "T1", models.AutosaveSnapshot{
		Answers: models.AnswerMap{"q1": "1"},
	})

	state, err := NewRestorer(pending, routine).Restore(ctx, "T1")
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if !state.FromPending {
		t.Fatalf("pending snapshot must win")
	}
	if state.Answers["q1"] != "5" || state.StudentName != "Ann" {
		t.Fatalf("unexpected restored state %+v", state)
	}
	if snap, _ := pending.Load(ctx, "T1"); snap != nil {
		t.Fatalf("pending snapshot must be consumed exactly once")
	}
	if snap, _ := routine.Load(ctx, "T1"); snap == nil {
		t.Fatalf("routine snapshot must be left untouched")
	}
}

func TestRestoreFallsBackToRoutineAutosave(t *testing.T) {
	ctx := context.Background()
	pending := newStubSnapshotStore()
	routine := newStubSnapshotStore()
	_ = routine.Save(ctx, "T1", models.AutosaveSnapshot{
		Answers:      models.AnswerMap{"1": "3"},
		StudentName:  "Ann",
		StudentEmail: "ann@uni.edu",
	})

	state, err := NewRestorer(pending, routine).Restore(ctx, "T1")
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if state.FromPending {
		t.Fatalf("no pending snapshot existed")
	}
	if state.Answers["1"] != "3" || state.StudentName != "Ann" || state.StudentEmail != "ann@uni.edu" {
		t.Fatalf("routine snapshot should seed answers and identity fields: %+v", state)
	}
	if snap, _ := routine.Load(ctx, "T1"); snap == nil {
		t.Fatalf("routine load is non-destructive")
	}
}

func TestRestoreDiscardsMismatchedPendingSnapshot(t *testing.T) {
	ctx := context.Background()
	pending := newStubSnapshotStore()
	routine := newStubSnapshotStore()
	// A pending snapshot stamped for another template: the institution
	// switched templates between the hand-off and the return.
	pending.snaps["T1"] = &models.AutosaveSnapshot{
		TemplateID: "OLD",
		Answers:    models.AnswerMap{"q1": "5"},
	}
	_ = routine.Save(ctx, "T1", models.AutosaveSnapshot{Answers: models.AnswerMap{"q1": "2"}})

	state, err := NewRestorer(pending, routine).Restore(ctx, "T1")
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if state.FromPending {
		t.Fatalf("mismatched pending snapshot must not be applied")
	}
	if state.Answers["q1"] != "2" {
		t.Fatalf("restore should fall through to the routine snapshot, got %+v", state)
	}
	if snap, _ := pending.Load(ctx, "T1"); snap != nil {
		t.Fatalf("mismatched pending snapshot must still be discarded")
	}
}

func TestRestoreDegradesWhenStoresError(t *testing.T) {
	ctx := context.Background()
	pending := newStubSnapshotStore()
	pending.loadErr = errors.New("storage unavailable")
	routine := newStubSnapshotStore()
	_ = routine.Save(ctx, "T1", models.AutosaveSnapshot{Answers: models.AnswerMap{"q1": "4"}})

	state, err := NewRestorer(pending, routine).Restore(ctx, "T1")
	if err != nil {
		t.Fatalf("a broken pending store must not abort restore: %v", err)
	}
	if state.Answers["q1"] != "4" {
		t.Fatalf("restore should still use the routine snapshot, got %+v", state)
	}

	routine.loadErr = errors.New("storage unavailable")
	state, err = NewRestorer(newStubSnapshotStore(), routine).Restore(ctx, "T1")
	if err != nil {
		t.Fatalf("a broken routine store must not abort restore: %v", err)
	}
	if len(state.Answers) != 0 {
		t.Fatalf("expected a fresh session, got %+v", state)
	}
}

func TestRestoreEmptyStart(t *testing.T) {
	state, err := NewRestorer(newStubSnapshotStore(), newStubSnapshotStore()).Restore(context.Background(), "T1")
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if state.FromPending || len(state.Answers) != 0 {
		t.Fatalf("expected empty start, got %+v", state)
	}
}
