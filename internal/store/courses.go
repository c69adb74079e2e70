package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const courseCols = `c.id, c.uuid, c.department_id, d.name, c.program_id,
	p.name, c.name, c.code, c.description, c.credits, c.type, c.semester,
	c.year, c.max_students, c.schedule, c.room, c.status, c.created_at,
	c.updated_at`

const courseFrom = ` FROM school_courses c
	LEFT JOIN school_departments d ON d.id = c.department_id
	LEFT JOIN school_programs p ON p.id = c.program_id`

func scanCourse(row pgx.Row) (*Course, error) {
	var m Course
	err := row.Scan(
		&m.ID, &m.UUID, &m.DepartmentID, &m.DepartmentName, &m.ProgramID,
		&m.ProgramName, &m.Name, &m.Code, &m.Description, &m.Credits,
		&m.Type, &m.Semester, &m.Year, &m.MaxStudents, &m.Schedule,
		&m.Room, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListCourses(ctx context.Context, p ListParams) ([]Course, int64, error) {
	var f filter
	if p.Search != "" {
		f.add("(c.name ILIKE '%' || $? || '%' OR c.code ILIKE '%' || $? || '%')", p.Search)
	}
	if p.Status != nil {
		f.add("c.status = $?", *p.Status)
	}
	if p.DepartmentID != nil {
		f.add("c.department_id = $?", *p.DepartmentID)
	}
	if p.ProgramID != nil {
		f.add("c.program_id = $?", *p.ProgramID)
	}

	var total int64
	countQ := "SELECT count(*)" + courseFrom + " WHERE c.deleted_at IS NULL" + f.clause()
	if err := s.q(ctx).QueryRow(ctx, countQ, f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	q := "SELECT " + courseCols + courseFrom +
		" WHERE c.deleted_at IS NULL" + f.clause() + " ORDER BY c.id" + f.page(p)
	rows, err := s.q(ctx).Query(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		m, err := scanCourse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate courses: %w", err)
	}
	return out, total, nil
}

func (s *Store) GetCourseByUUID(ctx context.Context, uid uuid.UUID) (*Course, error) {
	q := "SELECT " + courseCols + courseFrom +
		" WHERE c.uuid = $1 AND c.deleted_at IS NULL"
	m, err := scanCourse(s.q(ctx).QueryRow(ctx, q, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return m, nil
}
