package register

import (
	"context"
	"testing"
	"time"
)

func TestWaterfallSeries(t *testing.T) {
	svc, _ := setupRegisterEnv(t)
	ctx := context.Background()
	risk, _ := DescriptorFor(KindRisk)
	view := mustCreateRisk(t, svc, 5, 4)

	endOne := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	endTwo := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	stepOne, err := svc.CreateStep(ctx, risk, view.ID, CreateStepInput{
		Action: "deploy WAF", EstEndAt: &endOne, ExpLikelihood: 3, ExpConsequence: 4,
	})
	if err != nil {
		t.Fatalf("step one: %v", err)
	}
	if _, err := svc.CreateStep(ctx, risk, view.ID, CreateStepInput{
		Action: "rotate credentials", EstEndAt: &endTwo, ExpLikelihood: 2, ExpConsequence: 3,
	}); err != nil {
		t.Fatalf("step two: %v", err)
	}
	// Only a start date: the planned point falls back to it.
	startOnly := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.CreateStep(ctx, risk, view.ID, CreateStepInput{
		Action: "tabletop exercise", EstStartAt: &startOnly, ExpLikelihood: 4, ExpConsequence: 4,
	}); err != nil {
		t.Fatalf("step three: %v", err)
	}
	// No estimated dates at all: no planned point.
	if _, err := svc.CreateStep(ctx, risk, view.ID, CreateStepInput{
		Action: "backlog item", ExpLikelihood: 1, ExpConsequence: 1,
	}); err != nil {
		t.Fatalf("step four: %v", err)
	}

	if _, err := svc.UpdateEntity(ctx, risk, view.ID, UpdateEntityInput{
		Likelihood: OptOf(3),
		Reasons:    map[string]string{ReasonLikelihood: "WAF live"},
	}); err != nil {
		t.Fatalf("update entity: %v", err)
	}
	if _, err := svc.CompleteStep(ctx, risk, view.ID, stepOne.ID, CompleteStepInput{
		ActLikelihood: 3, ActConsequence: 4,
	}); err != nil {
		t.Fatalf("complete step one: %v", err)
	}

	wf, err := svc.Waterfall(ctx, risk, view.ID)
	if err != nil {
		t.Fatalf("waterfall: %v", err)
	}

	if len(wf.Planned) != 3 {
		t.Fatalf("planned points: got %d, want 3", len(wf.Planned))
	}
	if !wf.Planned[0].Date.Equal(startOnly) || !wf.Planned[1].Date.Equal(endOne) || !wf.Planned[2].Date.Equal(endTwo) {
		t.Errorf("planned dates out of order: %+v", wf.Planned)
	}
	if wf.Planned[1].Rank != RiskTable.Classify(3, 4).Rank {
		t.Errorf("planned rank: %+v", wf.Planned[1])
	}
	if !wf.Planned[1].FromStep || wf.Planned[1].StepID != stepOne.ID {
		t.Errorf("planned point provenance: %+v", wf.Planned[1])
	}

	// Actual: version 1 (original), version 2, plus the completed step.
	if len(wf.Actual) != 3 {
		t.Fatalf("actual points: got %d, want 3", len(wf.Actual))
	}
	if !wf.Actual[0].IsOriginal {
		t.Errorf("first actual point not flagged original: %+v", wf.Actual[0])
	}
	if wf.Actual[0].Rank != RiskTable.Classify(5, 4).Rank {
		t.Errorf("original rank: %+v", wf.Actual[0])
	}
	if wf.Actual[1].Rank != RiskTable.Classify(3, 4).Rank {
		t.Errorf("second actual rank: %+v", wf.Actual[1])
	}
	var fromStep int
	for _, p := range wf.Actual {
		if p.FromStep {
			fromStep++
			if p.StepID != stepOne.ID {
				t.Errorf("step-sourced point has wrong step id: %+v", p)
			}
		}
	}
	if fromStep != 1 {
		t.Errorf("step-sourced actual points: got %d, want 1", fromStep)
	}
	for i := 1; i < len(wf.Actual); i++ {
		if wf.Actual[i].Date.Before(wf.Actual[i-1].Date) {
			t.Errorf("actual series out of order at %d", i)
		}
	}
}

func TestWaterfallEmptySeriesAreNotNil(t *testing.T) {
	svc, _ := setupRegisterEnv(t)
	risk, _ := DescriptorFor(KindRisk)
	view := mustCreateRisk(t, svc, 2, 2)

	wf, err := svc.Waterfall(context.Background(), risk, view.ID)
	if err != nil {
		t.Fatalf("waterfall: %v", err)
	}
	if wf.Planned == nil || wf.Actual == nil {
		t.Fatalf("series must be empty slices, not nil")
	}
	if len(wf.Planned) != 0 || len(wf.Actual) != 1 {
		t.Errorf("fresh entity: planned=%d actual=%d", len(wf.Planned), len(wf.Actual))
	}
}
