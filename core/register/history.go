package register

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"saker-rro/core/store"
)

// TimelineEvent is one versioned state in an owner's merged history: its own
// snapshots interleaved with those of its treatment steps, including steps
// deleted since.
type TimelineEvent struct {
	Type string `json:"type"` // entity | step
	// StepID and StepPosition identify step events; the position is the
	// 1-based display slot the step held when the version was written.
	StepID       string            `json:"stepId,omitempty"`
	StepPosition int               `json:"stepPosition,omitempty"`
	Version      int               `json:"version"`
	Snapshot     json.RawMessage   `json:"snapshot"`
	Reasons      map[string]string `json:"reasons,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// History returns the owner's full timeline in chronological order. When an
// entity and a step version share a timestamp the entity comes first.
func (s *Service) History(ctx context.Context, d *Descriptor, id string) ([]TimelineEvent, error) {
	e, err := s.entities.GetEntity(ctx, s.db, string(d.Kind), id)
	if err != nil {
		return nil, err
	}
	entityVers, err := s.entityVersions(ctx, e)
	if err != nil {
		return nil, err
	}
	stepVers, err := s.versions.ListForParent(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	events := make([]TimelineEvent, 0, len(entityVers)+len(stepVers))
	for _, v := range entityVers {
		events = append(events, TimelineEvent{
			Type:      store.OwnerTypeEntity,
			Version:   v.Version,
			Snapshot:  v.Snapshot,
			Reasons:   v.Reasons,
			CreatedAt: v.CreatedAt,
		})
	}
	for _, v := range stepVers {
		position := 0
		if snap, err := decodeStepSnapshot(v.Snapshot); err == nil {
			position = snap.SequenceOrder + 1
		}
		events = append(events, TimelineEvent{
			Type:         store.OwnerTypeStep,
			StepID:       v.OwnerID,
			StepPosition: position,
			Version:      v.Version,
			Snapshot:     v.Snapshot,
			Reasons:      v.Reasons,
			CreatedAt:    v.CreatedAt,
		})
	}
	// Entity events precede step events in the slice; a stable sort keeps
	// that order on timestamp ties.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

// HistoryAt reconstructs the entity's state as of the given instant: the
// latest version whose timestamp is not after it. Instants before the first
// version have no state and report not found.
func (s *Service) HistoryAt(ctx context.Context, d *Descriptor, id string, at time.Time) (*TimelineEvent, error) {
	e, err := s.entities.GetEntity(ctx, s.db, string(d.Kind), id)
	if err != nil {
		return nil, err
	}
	vers, err := s.entityVersions(ctx, e)
	if err != nil {
		return nil, err
	}
	var match *store.VersionRecord
	for i := range vers {
		if vers[i].CreatedAt.After(at) {
			break
		}
		match = &vers[i]
	}
	if match == nil {
		return nil, store.ErrNotFound
	}
	return &TimelineEvent{
		Type:      store.OwnerTypeEntity,
		Version:   match.Version,
		Snapshot:  match.Snapshot,
		Reasons:   match.Reasons,
		CreatedAt: match.CreatedAt,
	}, nil
}

// entityVersions loads the owner's version stream, backfilling version 1
// from current state for rows created before versioning existed. The
// backfill is written once; a concurrent writer's unique-index hit means the
// stream now exists, so re-read. If the write itself fails the synthetic
// record is still served so reads never break on legacy rows.
func (s *Service) entityVersions(ctx context.Context, e *store.Entity) ([]store.VersionRecord, error) {
	vers, err := s.versions.List(ctx, s.db, store.OwnerTypeEntity, e.ID)
	if err != nil {
		return nil, err
	}
	if len(vers) > 0 {
		return vers, nil
	}

	raw, err := json.Marshal(SnapshotEntity(e))
	if err != nil {
		return nil, err
	}
	rec := store.VersionRecord{
		ID:        newID(),
		OwnerType: store.OwnerTypeEntity,
		OwnerID:   e.ID,
		Snapshot:  raw,
		CreatedAt: e.CreatedAt,
	}
	err = s.db.RunInTx(ctx, func(tx *store.Tx) error {
		return s.versions.Append(ctx, tx, &rec)
	})
	switch {
	case err == nil:
		return []store.VersionRecord{rec}, nil
	case Conflict(err):
		return s.versions.List(ctx, s.db, store.OwnerTypeEntity, e.ID)
	default:
		s.logger.Errorf("register: version backfill for %s: %v", e.ID, err)
		rec.Version = 1
		return []store.VersionRecord{rec}, nil
	}
}
