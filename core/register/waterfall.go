package register

import (
	"context"
	"sort"
	"time"
)

// TrendPoint is one dated rating on a waterfall series.
type TrendPoint struct {
	Date       time.Time `json:"date"`
	Level      Level     `json:"level"`
	Rank       int       `json:"rank"`
	IsOriginal bool      `json:"isOriginal,omitempty"`
	StepID     string    `json:"stepId,omitempty"`
	FromStep   bool      `json:"fromStep,omitempty"`
}

// Waterfall pairs the planned trajectory (expected ratings of treatment
// steps by their estimated end dates) against the actual one (the entity's
// rating at each version, plus completed steps' recorded outcomes).
type Waterfall struct {
	Planned []TrendPoint `json:"planned"`
	Actual  []TrendPoint `json:"actual"`
}

func (s *Service) Waterfall(ctx context.Context, d *Descriptor, id string) (*Waterfall, error) {
	e, err := s.entities.GetEntity(ctx, s.db, string(d.Kind), id)
	if err != nil {
		return nil, err
	}
	steps, err := s.steps.ListSteps(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	vers, err := s.entityVersions(ctx, e)
	if err != nil {
		return nil, err
	}

	wf := &Waterfall{Planned: []TrendPoint{}, Actual: []TrendPoint{}}
	for i := range steps {
		step := &steps[i]
		// Planned points are dated at the estimated end, falling back to the
		// start; a step with no estimated date at all has no planned point.
		date := step.EstEndAt
		if date == nil {
			date = step.EstStartAt
		}
		if date == nil {
			continue
		}
		r := d.RatingOf(step.ExpLikelihood, step.ExpConsequence, step.ExpImpact)
		wf.Planned = append(wf.Planned, TrendPoint{
			Date:     *date,
			Level:    r.Level,
			Rank:     r.Rank,
			StepID:   step.ID,
			FromStep: true,
		})
	}
	for i := range vers {
		snap, err := decodeEntitySnapshot(vers[i].Snapshot)
		if err != nil {
			s.logger.Errorf("register: decode snapshot v%d for %s: %v", vers[i].Version, id, err)
			continue
		}
		r := d.RatingOf(snap.Likelihood, snap.Consequence, snap.Impact)
		wf.Actual = append(wf.Actual, TrendPoint{
			Date:       vers[i].CreatedAt,
			Level:      r.Level,
			Rank:       r.Rank,
			IsOriginal: vers[i].Version == 1,
		})
	}
	for i := range steps {
		step := &steps[i]
		if step.ActualCompletedAt == nil {
			continue
		}
		r := d.RatingOf(deref(step.ActLikelihood), deref(step.ActConsequence), deref(step.ActImpact))
		wf.Actual = append(wf.Actual, TrendPoint{
			Date:     *step.ActualCompletedAt,
			Level:    r.Level,
			Rank:     r.Rank,
			StepID:   step.ID,
			FromStep: true,
		})
	}
	sortPoints(wf.Planned)
	sortPoints(wf.Actual)
	return wf, nil
}

func sortPoints(points []TrendPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}
