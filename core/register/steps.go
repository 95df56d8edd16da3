package register

import (
	"context"
	"strconv"
	"strings"
	"time"

	"saker-rro/core/store"
	"saker-rro/core/utils"
)

type CreateStepInput struct {
	Action         string
	EstStartAt     *time.Time
	EstEndAt       *time.Time
	ExpLikelihood  int
	ExpConsequence int
	ExpImpact      int
}

func (s *Service) CreateStep(ctx context.Context, d *Descriptor, ownerID string, input CreateStepInput) (*StepView, error) {
	action := strings.TrimSpace(input.Action)
	if action == "" {
		return nil, NewValidationError("action")
	}
	var view StepView
	err := s.db.RunInTx(ctx, func(tx *store.Tx) error {
		if _, err := s.entities.GetEntity(ctx, tx, string(d.Kind), ownerID); err != nil {
			return err
		}
		seq, err := s.steps.NextSequenceOrder(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		now := utils.NowUTC()
		step := &store.Step{
			ID:            newID(),
			OwnerID:       ownerID,
			Action:        action,
			SequenceOrder: seq,
			EstStartAt:    input.EstStartAt,
			EstEndAt:      input.EstEndAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		applyExpectedScores(d, step, input.ExpLikelihood, input.ExpConsequence, input.ExpImpact)
		if err := s.steps.CreateStep(ctx, tx, step); err != nil {
			return err
		}
		if err := s.appendStepVersion(ctx, tx, ownerID, step, nil); err != nil {
			return err
		}
		pos := seq + 1
		if err := s.appendAudit(ctx, tx, ownerID, store.OwnerTypeStep, step.ID,
			store.AuditActionCreated, CreatedDetails{StepPosition: &pos}); err != nil {
			return err
		}
		view = s.stepView(d, step)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

type UpdateStepInput struct {
	Action            Opt[string]
	EstStartAt        Opt[time.Time]
	EstEndAt          Opt[time.Time]
	ExpLikelihood     Opt[int]
	ExpConsequence    Opt[int]
	ExpImpact         Opt[int]
	ActLikelihood     Opt[int]
	ActConsequence    Opt[int]
	ActImpact         Opt[int]
	ActualCompletedAt Opt[time.Time]
}

func (s *Service) UpdateStep(ctx context.Context, d *Descriptor, ownerID, stepID string, input UpdateStepInput) (*StepView, error) {
	var view StepView
	err := s.db.RunInTx(ctx, func(tx *store.Tx) error {
		before, err := s.getOwnedStep(ctx, tx, d, ownerID, stepID)
		if err != nil {
			return err
		}
		after := *before
		if input.Action.Set {
			after.Action = strings.TrimSpace(valueOrZero(input.Action))
			if after.Action == "" {
				return NewValidationError("action")
			}
		}
		applyOptTime(&after.EstStartAt, input.EstStartAt)
		applyOptTime(&after.EstEndAt, input.EstEndAt)
		for _, name := range d.stepScoreNames() {
			if opt := expectedOpt(&input, name); opt.Set && !opt.Null {
				setExpected(&after, name, ClampScore(opt.Val))
			}
			applyOptScore(actualField(&after, name), actualOpt(&input, name))
		}
		applyOptTime(&after.ActualCompletedAt, input.ActualCompletedAt)

		changes := DiffSteps(before, &after)
		if len(changes) == 0 {
			view = s.stepView(d, before)
			return nil
		}
		after.UpdatedAt = utils.NowUTC()
		if err := s.steps.UpdateStep(ctx, tx, &after); err != nil {
			return err
		}
		if err := s.appendStepVersion(ctx, tx, ownerID, &after, nil); err != nil {
			return err
		}
		pos := after.SequenceOrder + 1
		details := UpdatedDetails{
			ChangedFields: changes.Fields(),
			Changes:       changes,
			StepPosition:  &pos,
		}
		if err := s.appendAudit(ctx, tx, ownerID, store.OwnerTypeStep, after.ID,
			store.AuditActionUpdated, details); err != nil {
			return err
		}
		view = s.stepView(d, &after)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

type CompleteStepInput struct {
	ActLikelihood  int
	ActConsequence int
	ActImpact      int
	CompletedAt    *time.Time
}

// CompleteStep records the post-treatment outcome exactly once; a second
// attempt collides instead of overwriting the recorded actuals.
func (s *Service) CompleteStep(ctx context.Context, d *Descriptor, ownerID, stepID string, input CompleteStepInput) (*StepView, error) {
	var view StepView
	err := s.db.RunInTx(ctx, func(tx *store.Tx) error {
		before, err := s.getOwnedStep(ctx, tx, d, ownerID, stepID)
		if err != nil {
			return err
		}
		if before.ActualCompletedAt != nil {
			return store.ErrConflict
		}
		after := *before
		raw := map[string]int{
			FieldLikelihood:  input.ActLikelihood,
			FieldConsequence: input.ActConsequence,
			FieldImpact:      input.ActImpact,
		}
		for _, name := range d.stepScoreNames() {
			v := ClampScore(raw[name])
			*actualField(&after, name) = &v
		}
		completed := utils.NowUTC()
		if input.CompletedAt != nil {
			completed = input.CompletedAt.UTC()
		}
		after.ActualCompletedAt = &completed
		after.UpdatedAt = utils.NowUTC()

		changes := DiffSteps(before, &after)
		if err := s.steps.UpdateStep(ctx, tx, &after); err != nil {
			return err
		}
		if err := s.appendStepVersion(ctx, tx, ownerID, &after, nil); err != nil {
			return err
		}
		pos := after.SequenceOrder + 1
		details := UpdatedDetails{
			ChangedFields: changes.Fields(),
			Changes:       changes,
			StepPosition:  &pos,
		}
		if err := s.appendAudit(ctx, tx, ownerID, store.OwnerTypeStep, after.ID,
			store.AuditActionUpdated, details); err != nil {
			return err
		}
		view = s.stepView(d, &after)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteStep removes the step and closes the position gap so the remaining
// steps stay densely numbered. Its version stream survives under the owner.
func (s *Service) DeleteStep(ctx context.Context, d *Descriptor, ownerID, stepID string) error {
	return s.db.RunInTx(ctx, func(tx *store.Tx) error {
		step, err := s.getOwnedStep(ctx, tx, d, ownerID, stepID)
		if err != nil {
			return err
		}
		if err := s.steps.DeleteStep(ctx, tx, ownerID, stepID); err != nil {
			return err
		}
		remaining, err := s.steps.ListSteps(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		for i := range remaining {
			if remaining[i].SequenceOrder == i {
				continue
			}
			if _, err := s.steps.SetSequenceOrder(ctx, tx, ownerID, remaining[i].ID, i); err != nil {
				return err
			}
		}
		pos := step.SequenceOrder + 1
		return s.appendAudit(ctx, tx, ownerID, store.OwnerTypeStep, stepID,
			store.AuditActionDeleted, DeletedDetails{StepPosition: &pos})
	})
}

func (s *Service) GetStep(ctx context.Context, d *Descriptor, ownerID, stepID string) (*StepView, error) {
	step, err := s.getOwnedStep(ctx, s.db, d, ownerID, stepID)
	if err != nil {
		return nil, err
	}
	view := s.stepView(d, step)
	return &view, nil
}

func (s *Service) ListSteps(ctx context.Context, d *Descriptor, ownerID string) ([]StepView, error) {
	if _, err := s.entities.GetEntity(ctx, s.db, string(d.Kind), ownerID); err != nil {
		return nil, err
	}
	steps, err := s.steps.ListSteps(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}
	views := make([]StepView, 0, len(steps))
	for i := range steps {
		views = append(views, s.stepView(d, &steps[i]))
	}
	return views, nil
}

// ReorderSteps rearranges the owner's steps to match ids. Unknown and
// duplicate ids are skipped, steps left out keep their relative order at the
// tail. A single audit entry records the before and after position strings.
func (s *Service) ReorderSteps(ctx context.Context, d *Descriptor, ownerID string, ids []string) ([]StepView, error) {
	var views []StepView
	err := s.db.RunInTx(ctx, func(tx *store.Tx) error {
		if _, err := s.entities.GetEntity(ctx, tx, string(d.Kind), ownerID); err != nil {
			return err
		}
		current, err := s.steps.ListSteps(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		byID := make(map[string]*store.Step, len(current))
		for i := range current {
			byID[current[i].ID] = &current[i]
		}
		seen := make(map[string]bool, len(ids))
		ordered := make([]*store.Step, 0, len(current))
		for _, id := range ids {
			step, ok := byID[id]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			ordered = append(ordered, step)
		}
		for i := range current {
			if !seen[current[i].ID] {
				ordered = append(ordered, &current[i])
			}
		}

		before := positionString(len(current), func(i int) int { return i })
		after := positionString(len(ordered), func(i int) int { return ordered[i].SequenceOrder })
		if after == before {
			views = stepViews(s, d, ordered)
			return nil
		}
		for i, step := range ordered {
			if step.SequenceOrder == i {
				continue
			}
			if _, err := s.steps.SetSequenceOrder(ctx, tx, ownerID, step.ID, i); err != nil {
				return err
			}
			step.SequenceOrder = i
		}
		details := UpdatedDetails{
			ChangedFields: []string{FieldStepOrder},
			Changes:       ChangeSet{FieldStepOrder: {From: before, To: after}},
		}
		if err := s.appendAudit(ctx, tx, ownerID, store.OwnerTypeEntity, ownerID,
			store.AuditActionUpdated, details); err != nil {
			return err
		}
		views = stepViews(s, d, ordered)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func stepViews(s *Service, d *Descriptor, steps []*store.Step) []StepView {
	views := make([]StepView, 0, len(steps))
	for _, step := range steps {
		views = append(views, s.stepView(d, step))
	}
	return views
}

// positionString renders 1-based positions, e.g. "3, 1, 2" for a rotation.
func positionString(n int, at func(i int) int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = strconv.Itoa(at(i) + 1)
	}
	return strings.Join(parts, ", ")
}

func (s *Service) getOwnedStep(ctx context.Context, q store.Querier, d *Descriptor, ownerID, stepID string) (*store.Step, error) {
	if _, err := s.entities.GetEntity(ctx, q, string(d.Kind), ownerID); err != nil {
		return nil, err
	}
	step, err := s.steps.GetStep(ctx, q, ownerID, stepID)
	if err != nil {
		return nil, err
	}
	return step, nil
}

func applyExpectedScores(d *Descriptor, step *store.Step, likelihood, consequence, impact int) {
	raw := map[string]int{
		FieldLikelihood:  likelihood,
		FieldConsequence: consequence,
		FieldImpact:      impact,
	}
	for _, name := range d.stepScoreNames() {
		setExpected(step, name, ClampScore(raw[name]))
	}
}

func setExpected(step *store.Step, name string, v int) {
	switch name {
	case FieldLikelihood:
		step.ExpLikelihood = v
	case FieldConsequence:
		step.ExpConsequence = v
	case FieldImpact:
		step.ExpImpact = v
	}
}

func actualField(step *store.Step, name string) **int {
	switch name {
	case FieldLikelihood:
		return &step.ActLikelihood
	case FieldConsequence:
		return &step.ActConsequence
	default:
		return &step.ActImpact
	}
}

func expectedOpt(in *UpdateStepInput, name string) Opt[int] {
	switch name {
	case FieldLikelihood:
		return in.ExpLikelihood
	case FieldConsequence:
		return in.ExpConsequence
	default:
		return in.ExpImpact
	}
}

func actualOpt(in *UpdateStepInput, name string) Opt[int] {
	switch name {
	case FieldLikelihood:
		return in.ActLikelihood
	case FieldConsequence:
		return in.ActConsequence
	default:
		return in.ActImpact
	}
}

func applyOptTime(dst **time.Time, o Opt[time.Time]) {
	if !o.Set {
		return
	}
	if o.Null {
		*dst = nil
		return
	}
	t := o.Val.UTC()
	*dst = &t
}

func applyOptScore(dst **int, o Opt[int]) {
	if !o.Set {
		return
	}
	if o.Null {
		*dst = nil
		return
	}
	v := ClampScore(o.Val)
	*dst = &v
}
