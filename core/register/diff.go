package register

import (
	"sort"
	"time"

	"saker-rro/core/store"
)

// FieldChange records one field's before/after pair.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

type ChangeSet map[string]FieldChange

// Fields returns the changed field names in stable order.
func (c ChangeSet) Fields() []string {
	if len(c) == 0 {
		return nil
	}
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c ChangeSet) add(name string, from, to any) {
	c[name] = FieldChange{From: from, To: to}
}

// DiffEntities compares the tracked fields of two entity states. Only the
// score columns the descriptor names are considered.
func DiffEntities(d *Descriptor, before, after *store.Entity) ChangeSet {
	changes := ChangeSet{}
	if before.Title != after.Title {
		changes.add(FieldTitle, before.Title, after.Title)
	}
	if before.Description != after.Description {
		changes.add(FieldDescription, before.Description, after.Description)
	}
	if before.OwnerName != after.OwnerName {
		changes.add(FieldOwnerName, before.OwnerName, after.OwnerName)
	}
	if before.CategoryID != after.CategoryID {
		changes.add(FieldCategory, before.CategoryID, after.CategoryID)
	}
	if before.Status != after.Status {
		changes.add(FieldStatus, before.Status, after.Status)
	}
	for _, sf := range d.Scores {
		if from, to := sf.Get(before), sf.Get(after); from != to {
			changes.add(sf.Name, from, to)
		}
	}
	return changes
}

// DiffSteps compares tracked step fields. Dates are compared by instant, not
// by string form.
func DiffSteps(before, after *store.Step) ChangeSet {
	changes := ChangeSet{}
	if before.Action != after.Action {
		changes.add("action", before.Action, after.Action)
	}
	diffTime(changes, "estStartAt", before.EstStartAt, after.EstStartAt)
	diffTime(changes, "estEndAt", before.EstEndAt, after.EstEndAt)
	if before.ExpLikelihood != after.ExpLikelihood {
		changes.add("expectedLikelihood", before.ExpLikelihood, after.ExpLikelihood)
	}
	if before.ExpConsequence != after.ExpConsequence {
		changes.add("expectedConsequence", before.ExpConsequence, after.ExpConsequence)
	}
	if before.ExpImpact != after.ExpImpact {
		changes.add("expectedImpact", before.ExpImpact, after.ExpImpact)
	}
	diffInt(changes, "actualLikelihood", before.ActLikelihood, after.ActLikelihood)
	diffInt(changes, "actualConsequence", before.ActConsequence, after.ActConsequence)
	diffInt(changes, "actualImpact", before.ActImpact, after.ActImpact)
	diffTime(changes, "actualCompletedAt", before.ActualCompletedAt, after.ActualCompletedAt)
	return changes
}

func diffTime(changes ChangeSet, name string, from, to *time.Time) {
	switch {
	case from == nil && to == nil:
	case from != nil && to != nil && from.Equal(*to):
	default:
		changes.add(name, from, to)
	}
}

func diffInt(changes ChangeSet, name string, from, to *int) {
	switch {
	case from == nil && to == nil:
	case from != nil && to != nil && *from == *to:
	default:
		changes.add(name, from, to)
	}
}
