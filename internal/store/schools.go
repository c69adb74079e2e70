package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const schoolCols = `s.id, s.uuid, s.name, s.code, s.description, s.address,
	s.city, s.phone, s.email, s.website, s.established_year, s.status,
	s.created_at, s.updated_at`

func scanSchool(row pgx.Row) (*School, error) {
	var m School
	err := row.Scan(
		&m.ID, &m.UUID, &m.Name, &m.Code, &m.Description, &m.Address,
		&m.City, &m.Phone, &m.Email, &m.Website, &m.EstablishedYear,
		&m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListSchools(ctx context.Context, p ListParams) ([]School, int64, error) {
	var f filter
	if p.Search != "" {
		f.add("(s.name ILIKE '%' || $? || '%' OR s.code ILIKE '%' || $? || '%' OR s.city ILIKE '%' || $? || '%')", p.Search)
	}
	if p.Status != nil {
		f.add("s.status = $?", *p.Status)
	}

	var total int64
	countQ := "SELECT count(*) FROM schools s WHERE s.deleted_at IS NULL" + f.clause()
	if err := s.q(ctx).QueryRow(ctx, countQ, f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}

	q := "SELECT " + schoolCols + " FROM schools s WHERE s.deleted_at IS NULL" +
		f.clause() + " ORDER BY s.id" + f.page(p)
	rows, err := s.q(ctx).Query(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}
	defer rows.Close()

	var out []School
	for rows.Next() {
		m, err := scanSchool(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan school: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate schools: %w", err)
	}
	return out, total, nil
}

func (s *Store) GetSchoolByUUID(ctx context.Context, uid uuid.UUID) (*School, error) {
	q := "SELECT " + schoolCols + " FROM schools s WHERE s.uuid = $1 AND s.deleted_at IS NULL"
	m, err := scanSchool(s.q(ctx).QueryRow(ctx, q, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get school: %w", err)
	}
	return m, nil
}

// SchoolIDByCode resolves the configured default-school code for imports.
func (s *Store) SchoolIDByCode(ctx context.Context, code string) (*int64, error) {
	var id int64
	err := s.q(ctx).QueryRow(ctx,
		"SELECT id FROM schools WHERE code = $1 ORDER BY id LIMIT 1", code,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("school id by code: %w", err)
	}
	return &id, nil
}
