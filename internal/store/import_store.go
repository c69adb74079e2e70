package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/campusops/school-api/internal/importer"
)

// The methods below implement importer.Datastore. Lookups deliberately
// ignore deleted_at: a soft-deleted record still owns its natural key, so
// an import must treat it as a duplicate rather than recreate it.

func (s *Store) FindByNaturalKey(ctx context.Context, kind importer.Kind, key string) (*importer.ExistingRecord, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(
		"SELECT id, name FROM %s WHERE %s = $1 ORDER BY id LIMIT 1",
		meta.table, meta.naturalKey,
	)
	var rec importer.ExistingRecord
	err = s.q(ctx).QueryRow(ctx, q, key).Scan(&rec.ID, &rec.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", meta.table, meta.naturalKey, err)
	}
	return &rec, nil
}

func (s *Store) FindByID(ctx context.Context, kind importer.Kind, id int64) (*importer.ExistingRecord, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id, name FROM %s WHERE id = $1", meta.table)
	var rec importer.ExistingRecord
	err = s.q(ctx).QueryRow(ctx, q, id).Scan(&rec.ID, &rec.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", meta.table, err)
	}
	return &rec, nil
}

func (s *Store) ResolveByName(ctx context.Context, kind importer.Kind, name string, match importer.Match) (*int64, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return nil, err
	}
	var q string
	switch match {
	case importer.MatchContains:
		q = fmt.Sprintf(
			"SELECT id FROM %s WHERE name ILIKE '%%' || $1 || '%%' ORDER BY id LIMIT 1",
			meta.table,
		)
	default:
		q = fmt.Sprintf(
			"SELECT id FROM %s WHERE name = $1 ORDER BY id LIMIT 1",
			meta.table,
		)
	}
	var id int64
	err = s.q(ctx).QueryRow(ctx, q, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s by name: %w", meta.table, err)
	}
	return &id, nil
}

func (s *Store) FirstID(ctx context.Context, kind importer.Kind) (*int64, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id FROM %s ORDER BY id LIMIT 1", meta.table)
	var id int64
	err = s.q(ctx).QueryRow(ctx, q).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("first %s id: %w", meta.table, err)
	}
	return &id, nil
}

func (s *Store) Create(ctx context.Context, kind importer.Kind, fields map[string]any) error {
	_, err := s.CreateReturningID(ctx, kind, fields)
	return err
}

// CreateReturningID inserts a field map and returns the new row id. Columns
// outside the table's whitelist are dropped.
func (s *Store) CreateReturningID(ctx context.Context, kind importer.Kind, fields map[string]any) (int64, error) {
	meta, err := metaFor(kind)
	if err != nil {
		return 0, err
	}
	names, args := filterFields(meta, fields)
	if len(names) == 0 {
		return 0, fmt.Errorf("create %s: no valid columns", meta.table)
	}
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		meta.table, strings.Join(names, ", "), strings.Join(placeholders, ", "),
	)
	var id int64
	if err := s.q(ctx).QueryRow(ctx, q, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert %s: %w", meta.table, err)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, kind importer.Kind, id int64, fields map[string]any) error {
	meta, err := metaFor(kind)
	if err != nil {
		return err
	}
	names, args := filterFields(meta, fields)
	if len(names) == 0 {
		return nil
	}
	sets := make([]string, 0, len(names)+1)
	for i, n := range names {
		sets = append(sets, fmt.Sprintf("%s = $%d", n, i+1))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	q := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d",
		meta.table, strings.Join(sets, ", "), len(args),
	)
	if _, err := s.q(ctx).Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("update %s: %w", meta.table, err)
	}
	return nil
}

// filterFields keeps whitelisted columns and returns them in a stable order
// so generated SQL is deterministic.
func filterFields(meta tableMeta, fields map[string]any) ([]string, []any) {
	names := make([]string, 0, len(fields))
	for n := range fields {
		if meta.columns[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = fields[n]
	}
	return names, args
}
