package register

import (
	"encoding/json"
	"time"

	"saker-rro/core/store"
)

// EntitySnapshot is the full-field copy stored in a version row. Version 1's
// snapshot doubles as the source of the immutable original score pair.
type EntitySnapshot struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	OwnerName   string `json:"ownerName,omitempty"`
	CategoryID  string `json:"categoryId,omitempty"`
	Status      string `json:"status"`
	Likelihood  int    `json:"likelihood,omitempty"`
	Consequence int    `json:"consequence,omitempty"`
	Impact      int    `json:"impact,omitempty"`
}

func SnapshotEntity(e *store.Entity) EntitySnapshot {
	return EntitySnapshot{
		Title:       e.Title,
		Description: e.Description,
		OwnerName:   e.OwnerName,
		CategoryID:  e.CategoryID,
		Status:      e.Status,
		Likelihood:  e.Likelihood,
		Consequence: e.Consequence,
		Impact:      e.Impact,
	}
}

// StepSnapshot captures the step at mutation time, including its sequence
// order so history can report the display position the step held back then.
type StepSnapshot struct {
	Action            string     `json:"action"`
	SequenceOrder     int        `json:"sequenceOrder"`
	EstStartAt        *time.Time `json:"estStartAt,omitempty"`
	EstEndAt          *time.Time `json:"estEndAt,omitempty"`
	ExpLikelihood     int        `json:"expectedLikelihood,omitempty"`
	ExpConsequence    int        `json:"expectedConsequence,omitempty"`
	ExpImpact         int        `json:"expectedImpact,omitempty"`
	ActLikelihood     *int       `json:"actualLikelihood,omitempty"`
	ActConsequence    *int       `json:"actualConsequence,omitempty"`
	ActImpact         *int       `json:"actualImpact,omitempty"`
	ActualCompletedAt *time.Time `json:"actualCompletedAt,omitempty"`
}

func SnapshotStep(s *store.Step) StepSnapshot {
	return StepSnapshot{
		Action:            s.Action,
		SequenceOrder:     s.SequenceOrder,
		EstStartAt:        s.EstStartAt,
		EstEndAt:          s.EstEndAt,
		ExpLikelihood:     s.ExpLikelihood,
		ExpConsequence:    s.ExpConsequence,
		ExpImpact:         s.ExpImpact,
		ActLikelihood:     s.ActLikelihood,
		ActConsequence:    s.ActConsequence,
		ActImpact:         s.ActImpact,
		ActualCompletedAt: s.ActualCompletedAt,
	}
}

func decodeEntitySnapshot(raw json.RawMessage) (EntitySnapshot, error) {
	var snap EntitySnapshot
	err := json.Unmarshal(raw, &snap)
	return snap, err
}

func decodeStepSnapshot(raw json.RawMessage) (StepSnapshot, error) {
	var snap StepSnapshot
	err := json.Unmarshal(raw, &snap)
	return snap, err
}
