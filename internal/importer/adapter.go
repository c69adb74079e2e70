package importer

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// RefField declares a spreadsheet column holding a human-entered reference to
// another entity, resolved to an internal id before persisting.
type RefField struct {
	// Column is the normalized row key carrying the referenced name.
	Column string
	// Target is the entity looked up.
	Target Kind
	// Match selects exact or substring name comparison.
	Match Match
	// Required makes a named-but-unresolvable reference fail the row. When
	// false a miss simply leaves the foreign key unset.
	Required bool
	// DefaultLabel makes preview display the run's default parent when the
	// column is blank.
	DefaultLabel bool
}

// Resolved maps reference columns to the ids they resolved to. Columns that
// were blank or missed (non-required refs) are absent.
type Resolved map[string]*int64

// ID returns the resolved id for a column, or nil.
func (r Resolved) ID(column string) *int64 {
	return r[column]
}

// Adapter parametrizes the Engine for one entity type. It is a strategy
// value, not an interface: all five entity variants share the engine's
// control flow and differ only in the data captured here.
type Adapter struct {
	Kind Kind

	// NeedsDefaultSchool marks entities whose parent school falls back to the
	// import context's default (departments, programs).
	NeedsDefaultSchool bool

	Refs []RefField

	// NaturalKey derives the duplicate-detection key from a normalized row.
	// Empty means the row has no usable key and duplicate detection is
	// skipped.
	NaturalKey func(Row) string

	// Validate applies the entity's structural rules, returning human
	// readable messages. Empty result means the row is structurally valid.
	Validate func(Row) []string

	// DuplicateError and PreviewDuplicateError phrase a natural-key
	// collision for commit and preview output respectively.
	DuplicateError        func(Row) string
	PreviewDuplicateError func(Row) string

	// CreateFields builds the full column map for a new record. UpdateFields
	// builds the partial map for policy "update": keys absent from the map
	// keep their persisted values.
	CreateFields func(row Row, refs Resolved, ictx Context) map[string]any
	UpdateFields func(row Row) map[string]any

	// PreviewFields selects the display subset for a preview RowOutcome.
	// refDisplay carries per-reference display strings (resolved name,
	// "<name> (not found)" or "<name> (default)").
	PreviewFields func(row Row, refDisplay map[string]string) map[string]any
}

// validateRow runs an ordered ozzo rule set and flattens the failures into
// sorted "field: message" strings.
func validateRow(row Row, rules map[string][]validation.Rule) []string {
	fields := make([]string, 0, len(rules))
	for field := range rules {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var msgs []string
	for _, field := range fields {
		if err := validation.Validate(row.String(field), rules[field]...); err != nil {
			msgs = append(msgs, fmt.Sprintf("%s: %s", field, err.Error()))
		}
	}
	return msgs
}
