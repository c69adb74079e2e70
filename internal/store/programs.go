package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const programCols = `p.id, p.uuid, p.school_id, p.department_id, d.name,
	p.name, p.code, p.description, p.degree_level, p.duration_years,
	p.credits_required, p.tuition_fee, p.max_students,
	p.admission_requirements, p.status, p.created_at, p.updated_at`

const programFrom = ` FROM school_programs p
	LEFT JOIN school_departments d ON d.id = p.department_id`

func scanProgram(row pgx.Row) (*Program, error) {
	var m Program
	err := row.Scan(
		&m.ID, &m.UUID, &m.SchoolID, &m.DepartmentID, &m.DepartmentName,
		&m.Name, &m.Code, &m.Description, &m.DegreeLevel,
		&m.DurationYears, &m.CreditsRequired, &m.TuitionFee,
		&m.MaxStudents, &m.AdmissionRequirements, &m.Status,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListPrograms(ctx context.Context, p ListParams) ([]Program, int64, error) {
	var f filter
	if p.Search != "" {
		f.add("(p.name ILIKE '%' || $? || '%' OR p.code ILIKE '%' || $? || '%')", p.Search)
	}
	if p.Status != nil {
		f.add("p.status = $?", *p.Status)
	}
	if p.SchoolID != nil {
		f.add("p.school_id = $?", *p.SchoolID)
	}
	if p.DepartmentID != nil {
		f.add("p.department_id = $?", *p.DepartmentID)
	}

	var total int64
	countQ := "SELECT count(*)" + programFrom + " WHERE p.deleted_at IS NULL" + f.clause()
	if err := s.q(ctx).QueryRow(ctx, countQ, f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}

	q := "SELECT " + programCols + programFrom +
		" WHERE p.deleted_at IS NULL" + f.clause() + " ORDER BY p.id" + f.page(p)
	rows, err := s.q(ctx).Query(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	var out []Program
	for rows.Next() {
		m, err := scanProgram(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan program: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate programs: %w", err)
	}
	return out, total, nil
}

func (s *Store) GetProgramByUUID(ctx context.Context, uid uuid.UUID) (*Program, error) {
	q := "SELECT " + programCols + programFrom +
		" WHERE p.uuid = $1 AND p.deleted_at IS NULL"
	m, err := scanProgram(s.q(ctx).QueryRow(ctx, q, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}
	return m, nil
}
