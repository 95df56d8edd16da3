package register

import (
	"context"
	"testing"
	"time"

	"saker-rro/core/store"
	"saker-rro/core/utils"
)

func TestHistoryMergesEntityAndStepStreams(t *testing.T) {
	svc, _ := setupRegisterEnv(t)
	ctx := context.Background()
	risk, _ := DescriptorFor(KindRisk)
	view := mustCreateRisk(t, svc, 4, 4)

	time.Sleep(2 * time.Millisecond)
	step, err := svc.CreateStep(ctx, risk, view.ID, CreateStepInput{
		Action: "isolate segment", ExpLikelihood: 2, ExpConsequence: 4,
	})
	if err != nil {
		t.Fatalf("create step: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := svc.UpdateEntity(ctx, risk, view.ID, UpdateEntityInput{
		Likelihood: OptOf(2),
		Reasons:    map[string]string{ReasonLikelihood: "segment isolated"},
	}); err != nil {
		t.Fatalf("update entity: %v", err)
	}

	events, err := svc.History(ctx, risk, view.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Type != store.OwnerTypeEntity || events[0].Version != 1 {
		t.Errorf("first event: %+v", events[0])
	}
	if events[1].Type != store.OwnerTypeStep || events[1].StepID != step.ID {
		t.Errorf("second event: %+v", events[1])
	}
	if events[1].StepPosition != 1 {
		t.Errorf("step position: got %d, want 1", events[1].StepPosition)
	}
	if events[2].Type != store.OwnerTypeEntity || events[2].Version != 2 {
		t.Errorf("third event: %+v", events[2])
	}
	for i := 1; i < len(events); i++ {
		if events[i].CreatedAt.Before(events[i-1].CreatedAt) {
			t.Errorf("events out of order at %d", i)
		}
	}
	if events[2].Reasons[ReasonLikelihood] != "segment isolated" {
		t.Errorf("reasons not carried on event: %+v", events[2].Reasons)
	}
}

func TestHistoryIncludesDeletedStepVersions(t *testing.T) {
	svc, _ := setupRegisterEnv(t)
	ctx := context.Background()
	risk, _ := DescriptorFor(KindRisk)
	view := mustCreateRisk(t, svc, 3, 3)

	step, err := svc.CreateStep(ctx, risk, view.ID, CreateStepInput{Action: "short lived"})
	if err != nil {
		t.Fatalf("create step: %v", err)
	}
	if err := svc.DeleteStep(ctx, risk, view.ID, step.ID); err != nil {
		t.Fatalf("delete step: %v", err)
	}

	events, err := svc.History(ctx, risk, view.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	found := false
	for _, ev := range events {
		if ev.Type == store.OwnerTypeStep && ev.StepID == step.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("deleted step's versions missing from history")
	}
}

func TestHistoryAtReconstructsPastState(t *testing.T) {
	svc, _ := setupRegisterEnv(t)
	ctx := context.Background()
	risk, _ := DescriptorFor(KindRisk)
	view := mustCreateRisk(t, svc, 4, 4)

	time.Sleep(5 * time.Millisecond)
	between := utils.NowUTC()
	time.Sleep(5 * time.Millisecond)

	if _, err := svc.UpdateEntity(ctx, risk, view.ID, UpdateEntityInput{
		Likelihood: OptOf(1),
		Reasons:    map[string]string{ReasonLikelihood: "control implemented"},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Before the first version there is no state.
	if _, err := svc.HistoryAt(ctx, risk, view.ID, view.CreatedAt.Add(-time.Hour)); !NotFound(err) {
		t.Fatalf("pre-creation instant: expected not found, got %v", err)
	}

	mid, err := svc.HistoryAt(ctx, risk, view.ID, between)
	if err != nil {
		t.Fatalf("mid instant: %v", err)
	}
	if mid.Version != 1 {
		t.Errorf("mid instant version: got %d, want 1", mid.Version)
	}
	snap, err := decodeEntitySnapshot(mid.Snapshot)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Likelihood != 4 {
		t.Errorf("mid snapshot likelihood: got %d, want 4", snap.Likelihood)
	}

	now, err := svc.HistoryAt(ctx, risk, view.ID, utils.NowUTC())
	if err != nil {
		t.Fatalf("current instant: %v", err)
	}
	if now.Version != 2 {
		t.Errorf("current version: got %d, want 2", now.Version)
	}
}

func TestHistoryBackfillsLegacyRows(t *testing.T) {
	svc, db := setupRegisterEnv(t)
	ctx := context.Background()
	risk, _ := DescriptorFor(KindRisk)

	// A row written before versioning existed: no version stream.
	now := utils.NowUTC()
	legacy := &store.Entity{
		ID:          "legacy-row",
		Kind:        string(KindRisk),
		Title:       "pre-versioning risk",
		Status:      "open",
		Likelihood:  3,
		Consequence: 2,
		CreatedAt:   now.Add(-24 * time.Hour),
		UpdatedAt:   now.Add(-24 * time.Hour),
	}
	if err := store.NewRegistersStore().CreateEntity(ctx, db, legacy); err != nil {
		t.Fatalf("seed legacy row: %v", err)
	}

	events, err := svc.History(ctx, risk, legacy.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 1 || events[0].Version != 1 {
		t.Fatalf("backfill: got %+v", events)
	}
	if !events[0].CreatedAt.Equal(legacy.CreatedAt) {
		t.Errorf("backfill timestamp: got %s, want entity creation time", events[0].CreatedAt)
	}

	// The backfill is written once and re-served afterwards.
	vers, _ := store.NewVersionsStore().List(ctx, db, store.OwnerTypeEntity, legacy.ID)
	if len(vers) != 1 {
		t.Fatalf("backfill rows: got %d, want 1", len(vers))
	}
	again, err := svc.History(ctx, risk, legacy.ID)
	if err != nil || len(again) != 1 {
		t.Fatalf("second read: %v, %d events", err, len(again))
	}
	vers, _ = store.NewVersionsStore().List(ctx, db, store.OwnerTypeEntity, legacy.ID)
	if len(vers) != 1 {
		t.Fatalf("backfill duplicated: %d rows", len(vers))
	}
}
