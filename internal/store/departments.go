package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const departmentCols = `d.id, d.uuid, d.school_id, s.name, d.name, d.code,
	d.description, d.head_of_department, d.email, d.phone,
	d.office_location, d.established_year, d.status, d.created_at,
	d.updated_at`

const departmentFrom = ` FROM school_departments d
	LEFT JOIN schools s ON s.id = d.school_id`

func scanDepartment(row pgx.Row) (*Department, error) {
	var m Department
	err := row.Scan(
		&m.ID, &m.UUID, &m.SchoolID, &m.SchoolName, &m.Name, &m.Code,
		&m.Description, &m.HeadOfDepartment, &m.Email, &m.Phone,
		&m.OfficeLocation, &m.EstablishedYear, &m.Status, &m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListDepartments(ctx context.Context, p ListParams) ([]Department, int64, error) {
	var f filter
	if p.Search != "" {
		f.add("(d.name ILIKE '%' || $? || '%' OR d.code ILIKE '%' || $? || '%')", p.Search)
	}
	if p.Status != nil {
		f.add("d.status = $?", *p.Status)
	}
	if p.SchoolID != nil {
		f.add("d.school_id = $?", *p.SchoolID)
	}

	var total int64
	countQ := "SELECT count(*)" + departmentFrom + " WHERE d.deleted_at IS NULL" + f.clause()
	if err := s.q(ctx).QueryRow(ctx, countQ, f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}

	q := "SELECT " + departmentCols + departmentFrom +
		" WHERE d.deleted_at IS NULL" + f.clause() + " ORDER BY d.id" + f.page(p)
	rows, err := s.q(ctx).Query(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		m, err := scanDepartment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan department: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate departments: %w", err)
	}
	return out, total, nil
}

func (s *Store) GetDepartmentByUUID(ctx context.Context, uid uuid.UUID) (*Department, error) {
	q := "SELECT " + departmentCols + departmentFrom +
		" WHERE d.uuid = $1 AND d.deleted_at IS NULL"
	m, err := scanDepartment(s.q(ctx).QueryRow(ctx, q, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get department: %w", err)
	}
	return m, nil
}
