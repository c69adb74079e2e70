package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const classroomCols = `c.id, c.uuid, c.department_id, d.name, c.name, c.code,
	c.building, c.floor, c.capacity, c.type, c.description,
	c.has_projector, c.has_whiteboard, c.has_ac, c.is_available, c.status,
	c.created_at, c.updated_at`

const classroomFrom = ` FROM school_classrooms c
	LEFT JOIN school_departments d ON d.id = c.department_id`

func scanClassroom(row pgx.Row) (*Classroom, error) {
	var m Classroom
	err := row.Scan(
		&m.ID, &m.UUID, &m.DepartmentID, &m.DepartmentName, &m.Name,
		&m.Code, &m.Building, &m.Floor, &m.Capacity, &m.Type,
		&m.Description, &m.HasProjector, &m.HasWhiteboard, &m.HasAC,
		&m.IsAvailable, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListClassrooms(ctx context.Context, p ListParams) ([]Classroom, int64, error) {
	var f filter
	if p.Search != "" {
		f.add("(c.name ILIKE '%' || $? || '%' OR c.code ILIKE '%' || $? || '%' OR c.building ILIKE '%' || $? || '%')", p.Search)
	}
	if p.Status != nil {
		f.add("c.status = $?", *p.Status)
	}
	if p.DepartmentID != nil {
		f.add("c.department_id = $?", *p.DepartmentID)
	}

	var total int64
	countQ := "SELECT count(*)" + classroomFrom + " WHERE c.deleted_at IS NULL" + f.clause()
	if err := s.q(ctx).QueryRow(ctx, countQ, f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}

	q := "SELECT " + classroomCols + classroomFrom +
		" WHERE c.deleted_at IS NULL" + f.clause() + " ORDER BY c.id" + f.page(p)
	rows, err := s.q(ctx).Query(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}
	defer rows.Close()

	var out []Classroom
	for rows.Next() {
		m, err := scanClassroom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan classroom: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate classrooms: %w", err)
	}
	return out, total, nil
}

func (s *Store) GetClassroomByUUID(ctx context.Context, uid uuid.UUID) (*Classroom, error) {
	q := "SELECT " + classroomCols + classroomFrom +
		" WHERE c.uuid = $1 AND c.deleted_at IS NULL"
	m, err := scanClassroom(s.q(ctx).QueryRow(ctx, q, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get classroom: %w", err)
	}
	return m, nil
}
