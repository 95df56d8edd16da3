package register

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"

	"saker-rro/core/store"
	"saker-rro/core/utils"
)

// Service runs every register mutation as one unit of work: rationale policy
// first, then entity write, version append and audit append inside a single
// transaction. A rejected mutation persists nothing.
type Service struct {
	db         *store.DB
	entities   store.RegistersStore
	steps      store.StepsStore
	versions   store.VersionsStore
	audits     store.AuditStore
	categories store.CategoriesStore
	logger     *utils.Logger
}

func NewService(db *store.DB, entities store.RegistersStore, steps store.StepsStore,
	versions store.VersionsStore, audits store.AuditStore, categories store.CategoriesStore,
	logger *utils.Logger) *Service {
	return &Service{
		db:         db,
		entities:   entities,
		steps:      steps,
		versions:   versions,
		audits:     audits,
		categories: categories,
		logger:     logger,
	}
}

func newID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// OriginalScores is the score pair fixed at creation time, derived from
// version 1's snapshot rather than stored as a live column.
type OriginalScores struct {
	Likelihood  int   `json:"likelihood,omitempty"`
	Consequence int   `json:"consequence,omitempty"`
	Impact      int   `json:"impact,omitempty"`
	Level       Level `json:"level"`
	Rank        int   `json:"rank"`
}

type EntityView struct {
	store.Entity
	Rating   Rating          `json:"rating"`
	Original *OriginalScores `json:"original,omitempty"`
}

type StepView struct {
	store.Step
	Expected Rating  `json:"expected"`
	Actual   *Rating `json:"actual,omitempty"`
}

func (s *Service) entityView(d *Descriptor, e *store.Entity) EntityView {
	return EntityView{Entity: *e, Rating: d.EntityRating(e)}
}

func (s *Service) stepView(d *Descriptor, step *store.Step) StepView {
	view := StepView{
		Step:     *step,
		Expected: d.RatingOf(step.ExpLikelihood, step.ExpConsequence, step.ExpImpact),
	}
	if step.ActualCompletedAt != nil {
		r := d.RatingOf(deref(step.ActLikelihood), deref(step.ActConsequence), deref(step.ActImpact))
		view.Actual = &r
	}
	return view
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

type CreateEntityInput struct {
	Title       string
	Description string
	OwnerName   string
	CategoryID  string
	Status      string
	Likelihood  int
	Consequence int
	Impact      int
}

func (s *Service) CreateEntity(ctx context.Context, d *Descriptor, input CreateEntityInput) (*EntityView, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, NewValidationError(FieldTitle)
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = d.DefaultStatus
	} else if !d.StatusValid(status) {
		return nil, NewValidationError(FieldStatus)
	}
	now := utils.NowUTC()
	e := &store.Entity{
		ID:          newID(),
		Kind:        string(d.Kind),
		Title:       title,
		Description: input.Description,
		OwnerName:   input.OwnerName,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyScores(d, e, input.Likelihood, input.Consequence, input.Impact)

	err := s.db.RunInTx(ctx, func(tx *store.Tx) error {
		e.CategoryID = s.resolveCategory(ctx, tx, input.CategoryID)
		if err := s.entities.CreateEntity(ctx, tx, e); err != nil {
			return err
		}
		if err := s.appendEntityVersion(ctx, tx, e, nil); err != nil {
			return err
		}
		return s.appendAudit(ctx, tx, e.ID, store.OwnerTypeEntity, e.ID, store.AuditActionCreated, CreatedDetails{})
	})
	if err != nil {
		return nil, err
	}
	view := s.entityView(d, e)
	view.Original = s.originalFromEntity(d, e)
	return &view, nil
}

type UpdateEntityInput struct {
	Title       Opt[string]
	Description Opt[string]
	OwnerName   Opt[string]
	CategoryID  Opt[string]
	Status      Opt[string]
	Likelihood  Opt[int]
	Consequence Opt[int]
	Impact      Opt[int]
	Reasons     map[string]string
}

func (in *UpdateEntityInput) scoreOpt(name string) Opt[int] {
	switch name {
	case FieldLikelihood:
		return in.Likelihood
	case FieldConsequence:
		return in.Consequence
	case FieldImpact:
		return in.Impact
	}
	return Opt[int]{}
}

func (s *Service) UpdateEntity(ctx context.Context, d *Descriptor, id string, input UpdateEntityInput) (*EntityView, error) {
	var view EntityView
	err := s.db.RunInTx(ctx, func(tx *store.Tx) error {
		before, err := s.entities.GetEntity(ctx, tx, string(d.Kind), id)
		if err != nil {
			return err
		}
		after := *before
		if input.Title.Set {
			after.Title = strings.TrimSpace(input.Title.Val)
			if input.Title.Null || after.Title == "" {
				return NewValidationError(FieldTitle)
			}
		}
		if input.Description.Set {
			after.Description = valueOrZero(input.Description)
		}
		if input.OwnerName.Set {
			after.OwnerName = valueOrZero(input.OwnerName)
		}
		if input.CategoryID.Set {
			after.CategoryID = s.resolveCategory(ctx, tx, valueOrZero(input.CategoryID))
		}
		if input.Status.Set {
			after.Status = strings.TrimSpace(valueOrZero(input.Status))
			if !d.StatusValid(after.Status) {
				return NewValidationError(FieldStatus)
			}
		}
		for _, sf := range d.Scores {
			if opt := input.scoreOpt(sf.Name); opt.Set && !opt.Null {
				sf.Set(&after, ClampScore(opt.Val))
			}
		}

		changes := DiffEntities(d, before, &after)
		if len(changes) == 0 {
			view = s.entityView(d, before)
			return nil
		}
		required := RequiredReasons(d, changes, before.Status, after.Status)
		if missing := MissingReasons(required, input.Reasons); len(missing) > 0 {
			return NewValidationError(missing...)
		}
		reasons := suppliedReasons(input.Reasons)

		after.UpdatedAt = utils.NowUTC()
		if err := s.entities.UpdateEntity(ctx, tx, &after); err != nil {
			return err
		}
		if err := s.appendEntityVersion(ctx, tx, &after, reasons); err != nil {
			return err
		}
		details := UpdatedDetails{
			ChangedFields: changes.Fields(),
			Changes:       changes,
			Reasons:       reasons,
		}
		if err := s.appendAudit(ctx, tx, after.ID, store.OwnerTypeEntity, after.ID, store.AuditActionUpdated, details); err != nil {
			return err
		}
		view = s.entityView(d, &after)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *Service) DeleteEntity(ctx context.Context, d *Descriptor, id string) error {
	return s.db.RunInTx(ctx, func(tx *store.Tx) error {
		if _, err := s.entities.GetEntity(ctx, tx, string(d.Kind), id); err != nil {
			return err
		}
		if err := s.entities.DeleteEntity(ctx, tx, string(d.Kind), id); err != nil {
			return err
		}
		// Version and audit streams outlive the row; housekeeping sweeps
		// them once the retention window has passed.
		return s.appendAudit(ctx, tx, id, store.OwnerTypeEntity, id, store.AuditActionDeleted, DeletedDetails{})
	})
}

func (s *Service) GetEntity(ctx context.Context, d *Descriptor, id string) (*EntityView, error) {
	e, err := s.entities.GetEntity(ctx, s.db, string(d.Kind), id)
	if err != nil {
		return nil, err
	}
	view := s.entityView(d, e)
	view.Original = s.originalScores(ctx, d, e)
	return &view, nil
}

func (s *Service) ListEntities(ctx context.Context, d *Descriptor, filter store.EntityFilter) ([]EntityView, error) {
	items, err := s.entities.ListEntities(ctx, s.db, string(d.Kind), filter)
	if err != nil {
		return nil, err
	}
	views := make([]EntityView, 0, len(items))
	for i := range items {
		views = append(views, s.entityView(d, &items[i]))
	}
	return views, nil
}

// AuditLog lists the owner's combined entity and step audit trail in
// chronological order.
func (s *Service) AuditLog(ctx context.Context, d *Descriptor, id string, limit int) ([]store.AuditRecord, error) {
	if _, err := s.entities.GetEntity(ctx, s.db, string(d.Kind), id); err != nil {
		return nil, err
	}
	items, err := s.audits.ListByOwner(ctx, s.db, id, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.AuditRecord{}
	}
	return items, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]store.Category, error) {
	items, err := s.categories.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.Category{}
	}
	return items, nil
}

func (s *Service) CreateCategory(ctx context.Context, name, description string) (*store.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name")
	}
	c := &store.Category{
		ID:          newID(),
		Name:        name,
		Description: description,
		CreatedAt:   utils.NowUTC(),
	}
	if err := s.categories.Create(ctx, s.db, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.categories.Delete(ctx, s.db, id)
}

// resolveCategory maps unknown or blank references to "no category" instead
// of erroring; the category list is managed elsewhere.
func (s *Service) resolveCategory(ctx context.Context, q store.Querier, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	ok, err := s.categories.Exists(ctx, q, id)
	if err != nil {
		s.logger.Errorf("register: category lookup %s: %v", id, err)
		return ""
	}
	if !ok {
		return ""
	}
	return id
}

func applyScores(d *Descriptor, e *store.Entity, likelihood, consequence, impact int) {
	raw := map[string]int{
		FieldLikelihood:  likelihood,
		FieldConsequence: consequence,
		FieldImpact:      impact,
	}
	for _, sf := range d.Scores {
		sf.Set(e, ClampScore(raw[sf.Name]))
	}
	if d.FixedLikelihood != 0 {
		e.Likelihood = d.FixedLikelihood
	}
}

func (s *Service) appendEntityVersion(ctx context.Context, tx *store.Tx, e *store.Entity, reasons map[string]string) error {
	raw, err := json.Marshal(SnapshotEntity(e))
	if err != nil {
		return err
	}
	return s.versions.Append(ctx, tx, &store.VersionRecord{
		ID:        newID(),
		OwnerType: store.OwnerTypeEntity,
		OwnerID:   e.ID,
		Snapshot:  raw,
		Reasons:   reasons,
		CreatedAt: utils.NowUTC(),
	})
}

func (s *Service) appendStepVersion(ctx context.Context, tx *store.Tx, ownerID string, step *store.Step, reasons map[string]string) error {
	raw, err := json.Marshal(SnapshotStep(step))
	if err != nil {
		return err
	}
	return s.versions.Append(ctx, tx, &store.VersionRecord{
		ID:        newID(),
		OwnerType: store.OwnerTypeStep,
		OwnerID:   step.ID,
		ParentID:  ownerID,
		Snapshot:  raw,
		Reasons:   reasons,
		CreatedAt: utils.NowUTC(),
	})
}

func (s *Service) appendAudit(ctx context.Context, tx *store.Tx, ownerID, entityType, entityID, action string, details any) error {
	raw, err := marshalDetails(details)
	if err != nil {
		return err
	}
	return s.audits.Append(ctx, tx, &store.AuditRecord{
		ID:         newID(),
		OwnerID:    ownerID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Details:    raw,
		CreatedAt:  utils.NowUTC(),
	})
}

// suppliedReasons keeps the known, non-blank reason keys from a request.
func suppliedReasons(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	known := map[string]bool{
		ReasonLikelihood:  true,
		ReasonConsequence: true,
		ReasonImpact:      true,
		ReasonStatus:      true,
	}
	out := map[string]string{}
	for key, val := range in {
		if known[key] && strings.TrimSpace(val) != "" {
			out[key] = strings.TrimSpace(val)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func valueOrZero[T any](o Opt[T]) T {
	if !o.Set || o.Null {
		var zero T
		return zero
	}
	return o.Val
}

// originalScores derives the creation-time score pair from version 1,
// falling back to current state when no version exists yet. Issues have no
// original pair.
func (s *Service) originalScores(ctx context.Context, d *Descriptor, e *store.Entity) *OriginalScores {
	if d.Kind == KindIssue {
		return nil
	}
	vers, err := s.versions.List(ctx, s.db, store.OwnerTypeEntity, e.ID)
	if err != nil || len(vers) == 0 {
		if err != nil {
			s.logger.Errorf("register: original scores for %s: %v", e.ID, err)
		}
		return s.originalFromEntity(d, e)
	}
	snap, err := decodeEntitySnapshot(vers[0].Snapshot)
	if err != nil {
		s.logger.Errorf("register: decode version 1 snapshot for %s: %v", e.ID, err)
		return s.originalFromEntity(d, e)
	}
	rating := d.RatingOf(snap.Likelihood, snap.Consequence, snap.Impact)
	return &OriginalScores{
		Likelihood:  snap.Likelihood,
		Consequence: snap.Consequence,
		Impact:      snap.Impact,
		Level:       rating.Level,
		Rank:        rating.Rank,
	}
}

func (s *Service) originalFromEntity(d *Descriptor, e *store.Entity) *OriginalScores {
	if d.Kind == KindIssue {
		return nil
	}
	rating := d.EntityRating(e)
	return &OriginalScores{
		Likelihood:  e.Likelihood,
		Consequence: e.Consequence,
		Impact:      e.Impact,
		Level:       rating.Level,
		Rank:        rating.Rank,
	}
}

// NotFound reports whether err means the owner or step does not exist.
func NotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// Conflict reports a concurrent-write or repeat-completion collision.
func Conflict(err error) bool {
	return errors.Is(err, store.ErrConflict)
}
