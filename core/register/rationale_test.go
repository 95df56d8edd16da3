package register

import (
	"reflect"
	"testing"
)

func TestRequiredReasonsForScoreChanges(t *testing.T) {
	risk, _ := DescriptorFor(KindRisk)
	changes := ChangeSet{}
	changes.add(FieldLikelihood, 2, 4)
	got := RequiredReasons(risk, changes, "open", "open")
	if !reflect.DeepEqual(got, []string{ReasonLikelihood}) {
		t.Fatalf("got %v, want [%s]", got, ReasonLikelihood)
	}

	changes.add(FieldConsequence, 3, 1)
	got = RequiredReasons(risk, changes, "open", "open")
	if !reflect.DeepEqual(got, []string{ReasonLikelihood, ReasonConsequence}) {
		t.Fatalf("got %v, want both score reasons", got)
	}
}

func TestRequiredReasonsForGatedStatus(t *testing.T) {
	risk, _ := DescriptorFor(KindRisk)
	changes := ChangeSet{}
	changes.add(FieldStatus, "open", "closed")

	got := RequiredReasons(risk, changes, "open", "closed")
	if !reflect.DeepEqual(got, []string{ReasonStatus}) {
		t.Fatalf("entering gated status: got %v, want [%s]", got, ReasonStatus)
	}
	// Leaving a gated status is free.
	if got := RequiredReasons(risk, changes, "closed", "open"); len(got) != 0 {
		t.Fatalf("leaving gated status: got %v, want none", got)
	}
	// Re-asserting the current status is free even when it is gated.
	if got := RequiredReasons(risk, changes, "closed", "closed"); len(got) != 0 {
		t.Fatalf("same status: got %v, want none", got)
	}
}

func TestIssueStatusesNeverGate(t *testing.T) {
	issue, _ := DescriptorFor(KindIssue)
	changes := ChangeSet{}
	changes.add(FieldStatus, "open", "ignore")
	if got := RequiredReasons(issue, changes, "open", "ignore"); len(got) != 0 {
		t.Fatalf("issue status change: got %v, want none", got)
	}
}

func TestOpportunityGatedStatuses(t *testing.T) {
	opp, _ := DescriptorFor(KindOpportunity)
	for _, status := range []string{"defer", "reevaluate", "reject"} {
		changes := ChangeSet{}
		changes.add(FieldStatus, "pursue_now", status)
		got := RequiredReasons(opp, changes, "pursue_now", status)
		if !reflect.DeepEqual(got, []string{ReasonStatus}) {
			t.Errorf("pursue_now -> %s: got %v, want [%s]", status, got, ReasonStatus)
		}
	}
	changes := ChangeSet{}
	changes.add(FieldStatus, "defer", "pursue_now")
	if got := RequiredReasons(opp, changes, "defer", "pursue_now"); len(got) != 0 {
		t.Errorf("back to pursue_now: got %v, want none", got)
	}
}

func TestMissingReasonsIgnoresBlankValues(t *testing.T) {
	required := []string{ReasonLikelihood, ReasonStatus}
	supplied := map[string]string{
		ReasonLikelihood: "   ",
		ReasonStatus:     "accepted at board review",
	}
	got := MissingReasons(required, supplied)
	if !reflect.DeepEqual(got, []string{ReasonLikelihood}) {
		t.Fatalf("got %v, want [%s]", got, ReasonLikelihood)
	}
	if got := MissingReasons(nil, nil); len(got) != 0 {
		t.Fatalf("nothing required: got %v", got)
	}
}
