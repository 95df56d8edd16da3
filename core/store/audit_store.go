package store

import (
	"context"
	"encoding/json"
	"time"
)

const (
	AuditActionCreated = "created"
	AuditActionUpdated = "updated"
	AuditActionDeleted = "deleted"
)

// AuditRecord is one append-only "who/when did what" entry. OwnerID is
// always the top-level entity, even for step-scoped mutations; Details is
// the action-shaped payload built by the register package.
type AuditRecord struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"ownerId"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     string          `json:"action"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type AuditStore interface {
	Append(ctx context.Context, q Querier, rec *AuditRecord) error
	ListByOwner(ctx context.Context, q Querier, ownerID string, limit int) ([]AuditRecord, error)
	PurgeOrphaned(ctx context.Context, q Querier, before time.Time) (int64, error)
}

type auditStore struct{}

func NewAuditStore() AuditStore {
	return &auditStore{}
}

func (s *auditStore) Append(ctx context.Context, q Querier, rec *AuditRecord) error {
	details := "{}"
	if len(rec.Details) > 0 {
		details = string(rec.Details)
	}
	_, err := q.Exec(ctx, `
		INSERT INTO audit_log(id, owner_id, entity_type, entity_id, action, details, created_at)
		VALUES(?,?,?,?,?,?,?)`,
		rec.ID, rec.OwnerID, rec.EntityType, rec.EntityID, rec.Action, details, rec.CreatedAt)
	return err
}

func (s *auditStore) ListByOwner(ctx context.Context, q Querier, ownerID string, limit int) ([]AuditRecord, error) {
	query := `
		SELECT id, owner_id, entity_type, entity_id, action, details, created_at
		FROM audit_log WHERE owner_id=?
		ORDER BY created_at ASC, id ASC`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditRecord
	for rows.Next() {
		var (
			rec     AuditRecord
			details string
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.EntityType, &rec.EntityID,
			&rec.Action, &details, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if details != "" && details != "{}" {
			rec.Details = json.RawMessage(details)
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (s *auditStore) PurgeOrphaned(ctx context.Context, q Querier, before time.Time) (int64, error) {
	res, err := q.Exec(ctx, `
		DELETE FROM audit_log
		WHERE created_at < ?
		  AND owner_id NOT IN (SELECT id FROM register_entities)`, before)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
