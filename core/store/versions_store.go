package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	OwnerTypeEntity = "entity"
	OwnerTypeStep   = "step"
)

// VersionRecord is one immutable snapshot in an owner's version stream.
// ParentID is the top-level entity for step versions so a deleted step's
// history stays reachable from its owner; it is empty for entity versions.
type VersionRecord struct {
	ID        string            `json:"id"`
	OwnerType string            `json:"ownerType"`
	OwnerID   string            `json:"ownerId"`
	ParentID  string            `json:"parentId,omitempty"`
	Version   int               `json:"version"`
	Snapshot  json.RawMessage   `json:"snapshot"`
	Reasons   map[string]string `json:"reasons,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type VersionsStore interface {
	// Append assigns MAX(version)+1 within the caller's transaction and
	// inserts the snapshot. UNIQUE(owner_type, owner_id, version) turns a
	// concurrent double-assignment into ErrConflict instead of a gap or a
	// duplicate.
	Append(ctx context.Context, q Querier, v *VersionRecord) error
	List(ctx context.Context, q Querier, ownerType, ownerID string) ([]VersionRecord, error)
	ListForParent(ctx context.Context, q Querier, parentID string) ([]VersionRecord, error)
	PurgeOrphaned(ctx context.Context, q Querier, before time.Time) (int64, error)
}

type versionsStore struct{}

func NewVersionsStore() VersionsStore {
	return &versionsStore{}
}

func (s *versionsStore) Append(ctx context.Context, q Querier, v *VersionRecord) error {
	if err := q.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1 FROM entity_versions
		WHERE owner_type=? AND owner_id=?`, v.OwnerType, v.OwnerID).Scan(&v.Version); err != nil {
		return err
	}
	reasons := "{}"
	if len(v.Reasons) > 0 {
		raw, err := json.Marshal(v.Reasons)
		if err != nil {
			return err
		}
		reasons = string(raw)
	}
	_, err := q.Exec(ctx, `
		INSERT INTO entity_versions(id, owner_type, owner_id, parent_id, version, snapshot, reasons, created_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		v.ID, v.OwnerType, v.OwnerID, v.ParentID, v.Version, string(v.Snapshot), reasons, v.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *versionsStore) List(ctx context.Context, q Querier, ownerType, ownerID string) ([]VersionRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT id, owner_type, owner_id, parent_id, version, snapshot, reasons, created_at
		FROM entity_versions
		WHERE owner_type=? AND owner_id=?
		ORDER BY version ASC`, ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	return collectVersions(rows)
}

func (s *versionsStore) ListForParent(ctx context.Context, q Querier, parentID string) ([]VersionRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT id, owner_type, owner_id, parent_id, version, snapshot, reasons, created_at
		FROM entity_versions
		WHERE owner_type=? AND parent_id=?
		ORDER BY created_at ASC, version ASC`, OwnerTypeStep, parentID)
	if err != nil {
		return nil, err
	}
	return collectVersions(rows)
}

// PurgeOrphaned removes version streams whose top-level owner no longer
// exists and whose rows are older than the cutoff. Streams of live owners
// are append-only and never touched.
func (s *versionsStore) PurgeOrphaned(ctx context.Context, q Querier, before time.Time) (int64, error) {
	res, err := q.Exec(ctx, `
		DELETE FROM entity_versions
		WHERE created_at < ?
		  AND CASE WHEN owner_type=? THEN owner_id ELSE parent_id END
		      NOT IN (SELECT id FROM register_entities)`,
		before, OwnerTypeEntity)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func collectVersions(rows *sql.Rows) ([]VersionRecord, error) {
	defer rows.Close()
	var items []VersionRecord
	for rows.Next() {
		var (
			v        VersionRecord
			snapshot string
			reasons  string
		)
		if err := rows.Scan(&v.ID, &v.OwnerType, &v.OwnerID, &v.ParentID, &v.Version,
			&snapshot, &reasons, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Snapshot = json.RawMessage(snapshot)
		if reasons != "" && reasons != "{}" {
			if err := json.Unmarshal([]byte(reasons), &v.Reasons); err != nil {
				return nil, err
			}
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
