package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Category is a separately managed label; register entities reference one by
// id and an unknown or blank reference resolves to "no category".
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CategoriesStore interface {
	Create(ctx context.Context, q Querier, c *Category) error
	Delete(ctx context.Context, q Querier, id string) error
	List(ctx context.Context, q Querier) ([]Category, error)
	Exists(ctx context.Context, q Querier, id string) (bool, error)
}

type categoriesStore struct{}

func NewCategoriesStore() CategoriesStore {
	return &categoriesStore{}
}

func (s *categoriesStore) Create(ctx context.Context, q Querier, c *Category) error {
	_, err := q.Exec(ctx, `
		INSERT INTO categories(id, name, description, created_at)
		VALUES(?,?,?,?)`, c.ID, c.Name, c.Description, c.CreatedAt)
	return err
}

func (s *categoriesStore) Delete(ctx context.Context, q Querier, id string) error {
	res, err := q.Exec(ctx, `DELETE FROM categories WHERE id=?`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *categoriesStore) List(ctx context.Context, q Querier) ([]Category, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, description, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (s *categoriesStore) Exists(ctx context.Context, q Querier, id string) (bool, error) {
	var one int
	err := q.QueryRow(ctx, `SELECT 1 FROM categories WHERE id=?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
