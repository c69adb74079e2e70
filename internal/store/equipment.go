package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const equipmentCols = `e.id, e.uuid, e.name, e.slug, e.category, e.icon,
	e.description, e.status, e.created_at, e.updated_at`

func scanEquipment(row pgx.Row) (*Equipment, error) {
	var m Equipment
	err := row.Scan(
		&m.ID, &m.UUID, &m.Name, &m.Slug, &m.Category, &m.Icon,
		&m.Description, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListEquipment(ctx context.Context, p ListParams) ([]Equipment, int64, error) {
	var f filter
	if p.Search != "" {
		f.add("(e.name ILIKE '%' || $? || '%' OR e.slug ILIKE '%' || $? || '%')", p.Search)
	}
	if p.Status != nil {
		f.add("e.status = $?", *p.Status)
	}

	var total int64
	countQ := "SELECT count(*) FROM school_equipment e WHERE e.deleted_at IS NULL" + f.clause()
	if err := s.q(ctx).QueryRow(ctx, countQ, f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count equipment: %w", err)
	}

	q := "SELECT " + equipmentCols + " FROM school_equipment e WHERE e.deleted_at IS NULL" +
		f.clause() + " ORDER BY e.id" + f.page(p)
	rows, err := s.q(ctx).Query(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var out []Equipment
	for rows.Next() {
		m, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan equipment: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate equipment: %w", err)
	}
	return out, total, nil
}

func (s *Store) GetEquipmentByUUID(ctx context.Context, uid uuid.UUID) (*Equipment, error) {
	q := "SELECT " + equipmentCols + " FROM school_equipment e WHERE e.uuid = $1 AND e.deleted_at IS NULL"
	m, err := scanEquipment(s.q(ctx).QueryRow(ctx, q, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	return m, nil
}
