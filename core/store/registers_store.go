package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Entity is one tracked register record: a risk, an issue or an opportunity.
// The three score columns are a superset; each kind reads only the columns
// its descriptor names (issue keeps likelihood fixed at 1).
type Entity struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerName   string    `json:"ownerName,omitempty"`
	CategoryID  string    `json:"categoryId,omitempty"`
	Status      string    `json:"status"`
	Likelihood  int       `json:"likelihood,omitempty"`
	Consequence int       `json:"consequence,omitempty"`
	Impact      int       `json:"impact,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type EntityFilter struct {
	Status     string
	CategoryID string
	Search     string
	Limit      int
	Offset     int
}

type RegistersStore interface {
	CreateEntity(ctx context.Context, q Querier, e *Entity) error
	UpdateEntity(ctx context.Context, q Querier, e *Entity) error
	DeleteEntity(ctx context.Context, q Querier, kind, id string) error
	GetEntity(ctx context.Context, q Querier, kind, id string) (*Entity, error)
	ListEntities(ctx context.Context, q Querier, kind string, filter EntityFilter) ([]Entity, error)
}

type registersStore struct{}

func NewRegistersStore() RegistersStore {
	return &registersStore{}
}

func (s *registersStore) CreateEntity(ctx context.Context, q Querier, e *Entity) error {
	_, err := q.Exec(ctx, `
		INSERT INTO register_entities(id, kind, title, description, owner_name, category_id, status, likelihood, consequence, impact, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Kind, e.Title, e.Description, e.OwnerName, e.CategoryID, e.Status,
		e.Likelihood, e.Consequence, e.Impact, e.CreatedAt, e.UpdatedAt)
	return err
}

func (s *registersStore) UpdateEntity(ctx context.Context, q Querier, e *Entity) error {
	res, err := q.Exec(ctx, `
		UPDATE register_entities
		SET title=?, description=?, owner_name=?, category_id=?, status=?, likelihood=?, consequence=?, impact=?, updated_at=?
		WHERE id=? AND kind=?`,
		e.Title, e.Description, e.OwnerName, e.CategoryID, e.Status,
		e.Likelihood, e.Consequence, e.Impact, e.UpdatedAt, e.ID, e.Kind)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *registersStore) DeleteEntity(ctx context.Context, q Querier, kind, id string) error {
	// Steps go with the entity; its version and audit streams are retained
	// and swept later by housekeeping.
	if _, err := q.Exec(ctx, `DELETE FROM register_steps WHERE owner_id=?`, id); err != nil {
		return err
	}
	res, err := q.Exec(ctx, `DELETE FROM register_entities WHERE id=? AND kind=?`, id, kind)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *registersStore) GetEntity(ctx context.Context, q Querier, kind, id string) (*Entity, error) {
	row := q.QueryRow(ctx, `
		SELECT id, kind, title, description, owner_name, category_id, status, likelihood, consequence, impact, created_at, updated_at
		FROM register_entities WHERE id=? AND kind=?`, id, kind)
	return scanEntity(row)
}

func (s *registersStore) ListEntities(ctx context.Context, q Querier, kind string, filter EntityFilter) ([]Entity, error) {
	query := `
		SELECT id, kind, title, description, owner_name, category_id, status, likelihood, consequence, impact, created_at, updated_at
		FROM register_entities WHERE kind=?`
	args := []any{kind}
	if filter.Status != "" {
		query += ` AND status=?`
		args = append(args, filter.Status)
	}
	if filter.CategoryID != "" {
		query += ` AND category_id=?`
		args = append(args, filter.CategoryID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query += ` AND (title LIKE ? OR description LIKE ?)`
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Kind, &e.Title, &e.Description, &e.OwnerName, &e.CategoryID,
			&e.Status, &e.Likelihood, &e.Consequence, &e.Impact, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func scanEntity(row *sql.Row) (*Entity, error) {
	var e Entity
	err := row.Scan(&e.ID, &e.Kind, &e.Title, &e.Description, &e.OwnerName, &e.CategoryID,
		&e.Status, &e.Likelihood, &e.Consequence, &e.Impact, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
