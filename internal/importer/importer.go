// Package importer implements the bulk spreadsheet import pipeline: tabular
// rows are normalized, validated, cross-referenced against existing entities
// and then created, updated or skipped under a configurable duplicate policy.
// A single Engine drives the pipeline for every entity type; the per-entity
// differences live in Adapter values.
package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	KindSchool     Kind = "school"
	KindDepartment Kind = "department"
	KindClassroom  Kind = "classroom"
	KindCourse     Kind = "course"
	KindProgram    Kind = "program"
	KindEquipment  Kind = "equipment"
)

// Label returns the human-facing form used in row error messages.
func (k Kind) Label() string {
	if k == "" {
		return ""
	}
	s := string(k)
	return strings.ToUpper(s[:1]) + s[1:]
}

// Policy governs what happens when a row's natural key matches an existing
// record.
type Policy string

const (
	PolicySkip   Policy = "skip"
	PolicyUpdate Policy = "update"
	PolicyFail   Policy = "fail"
)

func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case PolicySkip, "":
		return PolicySkip, nil
	case PolicyUpdate:
		return PolicyUpdate, nil
	case PolicyFail:
		return PolicyFail, nil
	}
	return "", fmt.Errorf("invalid duplicate handling %q (want skip, update or fail)", raw)
}

// Match selects how a reference name is compared against stored names.
type Match int

const (
	MatchExact Match = iota
	MatchContains
)

// RawRow is one data row as read from the sheet: header label -> cell value,
// with its 1-based sheet position (the heading row is row 1).
type RawRow struct {
	Number int
	Cells  map[string]any
}

// Row is a normalized row: canonical snake_case keys, trimmed string values.
type Row map[string]any

// String returns the trimmed string form of a cell, or "" when the key is
// absent or the cell is empty.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Has reports whether a cell carries a value. Blank cells count as absent so
// that partial updates preserve existing fields.
func (r Row) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Int parses a cell as an integer, tolerating the float-typed numbers
// spreadsheet readers produce. Returns nil for blank or unparseable cells.
func (r Row) Int(key string) *int64 {
	if !r.Has(key) {
		return nil
	}
	switch t := r[key].(type) {
	case int:
		v := int64(t)
		return &v
	case int64:
		return &t
	case float64:
		v := int64(t)
		return &v
	}
	s := r.String(key)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		v := int64(f)
		return &v
	}
	return nil
}

// Float parses a cell as a decimal (e.g. tuition fees). Nil when blank or
// unparseable.
func (r Row) Float(key string) *float64 {
	if !r.Has(key) {
		return nil
	}
	switch t := r[key].(type) {
	case float64:
		return &t
	case int:
		v := float64(t)
		return &v
	case int64:
		v := float64(t)
		return &v
	}
	if f, err := strconv.ParseFloat(r.String(key), 64); err == nil {
		return &f
	}
	return nil
}

// Context carries the acting scope resolved by the caller before the run
// starts. The engine itself never reaches into ambient tenant state.
type Context struct {
	// DefaultSchoolID is the school assigned to imported departments and
	// programs when the row names none. Resolved once per run.
	DefaultSchoolID *int64
	// Scoped is true when the caller operates under an explicit school scope.
	// When false and no default is configured, the first school on record is
	// used as a fallback parent.
	Scoped bool
}

// ExistingRecord identifies a persisted record matched during duplicate
// detection or reference display.
type ExistingRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Datastore is the persistence surface the engine needs. Lookups bypass any
// visibility scoping: import files are cross-context and must see every
// record. Create and Update take field maps; Update must leave columns
// absent from the map untouched.
type Datastore interface {
	FindByNaturalKey(ctx context.Context, kind Kind, key string) (*ExistingRecord, error)
	FindByID(ctx context.Context, kind Kind, id int64) (*ExistingRecord, error)
	ResolveByName(ctx context.Context, kind Kind, name string, match Match) (*int64, error)
	FirstID(ctx context.Context, kind Kind) (*int64, error)
	Create(ctx context.Context, kind Kind, fields map[string]any) error
	Update(ctx context.Context, kind Kind, id int64, fields map[string]any) error

	// InTransaction wraps one commit-mode batch; a returned error rolls the
	// whole batch back.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// InRowScope isolates one row's writes (a savepoint inside the batch
	// transaction) so a failed create or update aborts only that row.
	InRowScope(ctx context.Context, fn func(ctx context.Context) error) error
}
