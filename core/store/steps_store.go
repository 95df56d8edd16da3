package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Step is a planned sub-action under one register entity (a mitigation,
// resolution or action-plan step depending on the owner's kind). Actual
// fields are populated once when the step is marked complete.
type Step struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"ownerId"`
	SequenceOrder     int        `json:"sequenceOrder"`
	Action            string     `json:"action"`
	EstStartAt        *time.Time `json:"estStartAt,omitempty"`
	EstEndAt          *time.Time `json:"estEndAt,omitempty"`
	ExpLikelihood     int        `json:"expLikelihood,omitempty"`
	ExpConsequence    int        `json:"expConsequence,omitempty"`
	ExpImpact         int        `json:"expImpact,omitempty"`
	ActLikelihood     *int       `json:"actLikelihood,omitempty"`
	ActConsequence    *int       `json:"actConsequence,omitempty"`
	ActImpact         *int       `json:"actImpact,omitempty"`
	ActualCompletedAt *time.Time `json:"actualCompletedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type StepsStore interface {
	CreateStep(ctx context.Context, q Querier, s *Step) error
	UpdateStep(ctx context.Context, q Querier, s *Step) error
	DeleteStep(ctx context.Context, q Querier, ownerID, id string) error
	GetStep(ctx context.Context, q Querier, ownerID, id string) (*Step, error)
	ListSteps(ctx context.Context, q Querier, ownerID string) ([]Step, error)
	NextSequenceOrder(ctx context.Context, q Querier, ownerID string) (int, error)
	SetSequenceOrder(ctx context.Context, q Querier, ownerID, id string, order int) (bool, error)
}

type stepsStore struct{}

func NewStepsStore() StepsStore {
	return &stepsStore{}
}

const stepColumns = `id, owner_id, sequence_order, action, est_start_at, est_end_at,
	exp_likelihood, exp_consequence, exp_impact,
	act_likelihood, act_consequence, act_impact, actual_completed_at,
	created_at, updated_at`

func (s *stepsStore) CreateStep(ctx context.Context, q Querier, step *Step) error {
	_, err := q.Exec(ctx, `
		INSERT INTO register_steps(`+stepColumns+`)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		step.ID, step.OwnerID, step.SequenceOrder, step.Action,
		nullableTime(step.EstStartAt), nullableTime(step.EstEndAt),
		step.ExpLikelihood, step.ExpConsequence, step.ExpImpact,
		nullableInt(step.ActLikelihood), nullableInt(step.ActConsequence), nullableInt(step.ActImpact),
		nullableTime(step.ActualCompletedAt),
		step.CreatedAt, step.UpdatedAt)
	return err
}

func (s *stepsStore) UpdateStep(ctx context.Context, q Querier, step *Step) error {
	res, err := q.Exec(ctx, `
		UPDATE register_steps
		SET action=?, est_start_at=?, est_end_at=?,
			exp_likelihood=?, exp_consequence=?, exp_impact=?,
			act_likelihood=?, act_consequence=?, act_impact=?, actual_completed_at=?,
			updated_at=?
		WHERE id=? AND owner_id=?`,
		step.Action, nullableTime(step.EstStartAt), nullableTime(step.EstEndAt),
		step.ExpLikelihood, step.ExpConsequence, step.ExpImpact,
		nullableInt(step.ActLikelihood), nullableInt(step.ActConsequence), nullableInt(step.ActImpact),
		nullableTime(step.ActualCompletedAt),
		step.UpdatedAt, step.ID, step.OwnerID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *stepsStore) DeleteStep(ctx context.Context, q Querier, ownerID, id string) error {
	res, err := q.Exec(ctx, `DELETE FROM register_steps WHERE id=? AND owner_id=?`, id, ownerID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *stepsStore) GetStep(ctx context.Context, q Querier, ownerID, id string) (*Step, error) {
	rows, err := q.Query(ctx, `SELECT `+stepColumns+` FROM register_steps WHERE id=? AND owner_id=?`, id, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	step, err := scanStep(rows)
	if err != nil {
		return nil, err
	}
	return &step, nil
}

func (s *stepsStore) ListSteps(ctx context.Context, q Querier, ownerID string) ([]Step, error) {
	rows, err := q.Query(ctx, `
		SELECT `+stepColumns+` FROM register_steps
		WHERE owner_id=? ORDER BY sequence_order ASC, created_at ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, step)
	}
	return items, rows.Err()
}

func (s *stepsStore) NextSequenceOrder(ctx context.Context, q Querier, ownerID string) (int, error) {
	var next int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(MAX(sequence_order)+1, 0) FROM register_steps WHERE owner_id=?`, ownerID).Scan(&next)
	return next, err
}

// SetSequenceOrder is scoped to the owner: a step id that does not belong to
// it updates zero rows and reports false instead of failing the batch.
func (s *stepsStore) SetSequenceOrder(ctx context.Context, q Querier, ownerID, id string, order int) (bool, error) {
	res, err := q.Exec(ctx, `
		UPDATE register_steps SET sequence_order=? WHERE id=? AND owner_id=?`, order, id, ownerID)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func scanStep(rows *sql.Rows) (Step, error) {
	var (
		step             Step
		estStart, estEnd sql.NullTime
		actDone          sql.NullTime
		actL, actC, actI sql.NullInt64
	)
	err := rows.Scan(&step.ID, &step.OwnerID, &step.SequenceOrder, &step.Action,
		&estStart, &estEnd,
		&step.ExpLikelihood, &step.ExpConsequence, &step.ExpImpact,
		&actL, &actC, &actI, &actDone,
		&step.CreatedAt, &step.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return step, ErrNotFound
		}
		return step, err
	}
	step.EstStartAt = timePtr(estStart)
	step.EstEndAt = timePtr(estEnd)
	step.ActualCompletedAt = timePtr(actDone)
	step.ActLikelihood = intPtr(actL)
	step.ActConsequence = intPtr(actC)
	step.ActImpact = intPtr(actI)
	return step, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
