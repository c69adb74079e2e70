package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusops/school-api/internal/importer"
)

// Stats is the per-entity record count summary shown alongside listings.
type Stats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

// TrashRow is the reduced shape listed in the trash view for any entity.
type TrashRow struct {
	ID        int64     `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	Name      string    `json:"name"`
	Code      *string   `json:"code"`
	DeletedAt time.Time `json:"deleted_at"`
}

func (s *Store) IDByUUID(ctx context.Context, kind importer.Kind, uid uuid.UUID) (*int64, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id FROM %s WHERE uuid = $1 AND deleted_at IS NULL", meta.table)
	var id int64
	err = s.q(ctx).QueryRow(ctx, q, uid).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("id by uuid in %s: %w", meta.table, err)
	}
	return &id, nil
}

// SoftDeleteByUUID marks a live record deleted. It reports false when no
// live record carries the uuid.
func (s *Store) SoftDeleteByUUID(ctx context.Context, kind importer.Kind, uid uuid.UUID) (bool, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return false, err
	}
	q := fmt.Sprintf(
		"UPDATE %s SET deleted_at = now(), updated_at = now() WHERE uuid = $1 AND deleted_at IS NULL",
		meta.table,
	)
	tag, err := s.q(ctx).Exec(ctx, q, uid)
	if err != nil {
		return false, fmt.Errorf("soft delete %s: %w", meta.table, err)
	}
	return tag.RowsAffected() > 0, nil
}

// BulkSoftDelete marks every live record in uuids deleted and returns how
// many rows it touched. Unknown uuids are ignored.
func (s *Store) BulkSoftDelete(ctx context.Context, kind importer.Kind, uuids []uuid.UUID) (int64, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	meta, err := metaFor(kind)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf(
		"UPDATE %s SET deleted_at = now(), updated_at = now() WHERE uuid = ANY($1) AND deleted_at IS NULL",
		meta.table,
	)
	tag, err := s.q(ctx).Exec(ctx, q, uuids)
	if err != nil {
		return 0, fmt.Errorf("bulk soft delete %s: %w", meta.table, err)
	}
	return tag.RowsAffected(), nil
}

// RestoreByUUID clears deleted_at on a trashed record.
func (s *Store) RestoreByUUID(ctx context.Context, kind importer.Kind, uid uuid.UUID) (bool, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return false, err
	}
	q := fmt.Sprintf(
		"UPDATE %s SET deleted_at = NULL, updated_at = now() WHERE uuid = $1 AND deleted_at IS NOT NULL",
		meta.table,
	)
	tag, err := s.q(ctx).Exec(ctx, q, uid)
	if err != nil {
		return false, fmt.Errorf("restore %s: %w", meta.table, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ForceDeleteByUUID permanently removes a trashed record. Live records are
// left alone; they must be soft deleted first.
func (s *Store) ForceDeleteByUUID(ctx context.Context, kind importer.Kind, uid uuid.UUID) (bool, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return false, err
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE uuid = $1 AND deleted_at IS NOT NULL", meta.table)
	tag, err := s.q(ctx).Exec(ctx, q, uid)
	if err != nil {
		return false, fmt.Errorf("force delete %s: %w", meta.table, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ToggleStatusByUUID flips the status flag and returns the new value, or
// nil when no live record carries the uuid.
func (s *Store) ToggleStatusByUUID(ctx context.Context, kind importer.Kind, uid uuid.UUID) (*bool, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(
		"UPDATE %s SET status = NOT status, updated_at = now() WHERE uuid = $1 AND deleted_at IS NULL RETURNING status",
		meta.table,
	)
	var status bool
	err = s.q(ctx).QueryRow(ctx, q, uid).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("toggle status %s: %w", meta.table, err)
	}
	return &status, nil
}

func (s *Store) Stats(ctx context.Context, kind importer.Kind) (Stats, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return Stats{}, err
	}
	q := fmt.Sprintf(
		`SELECT count(*),
		        count(*) FILTER (WHERE status),
		        count(*) FILTER (WHERE NOT status)
		   FROM %s WHERE deleted_at IS NULL`,
		meta.table,
	)
	var st Stats
	if err := s.q(ctx).QueryRow(ctx, q).Scan(&st.Total, &st.Active, &st.Inactive); err != nil {
		return Stats{}, fmt.Errorf("stats %s: %w", meta.table, err)
	}
	return st, nil
}

// ListTrashed returns soft-deleted records newest first, plus the total
// trashed count for pagination.
func (s *Store) ListTrashed(ctx context.Context, kind importer.Kind, limit, offset int) ([]TrashRow, int64, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	countQ := fmt.Sprintf("SELECT count(*) FROM %s WHERE deleted_at IS NOT NULL", meta.table)
	if err := s.q(ctx).QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count trashed %s: %w", meta.table, err)
	}

	q := fmt.Sprintf(
		`SELECT id, uuid, name, %s, deleted_at
		   FROM %s
		  WHERE deleted_at IS NOT NULL
		  ORDER BY deleted_at DESC
		  LIMIT $1 OFFSET $2`,
		meta.codeCol, meta.table,
	)
	rows, err := s.q(ctx).Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list trashed %s: %w", meta.table, err)
	}
	defer rows.Close()

	var out []TrashRow
	for rows.Next() {
		var r TrashRow
		if err := rows.Scan(&r.ID, &r.UUID, &r.Name, &r.Code, &r.DeletedAt); err != nil {
			return nil, 0, fmt.Errorf("scan trashed %s: %w", meta.table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate trashed %s: %w", meta.table, err)
	}
	return out, total, nil
}
