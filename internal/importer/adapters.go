package importer

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// AdapterFor returns the import adapter for an importable entity kind.
// Schools are reference targets only and cannot be imported.
func AdapterFor(kind Kind) (Adapter, error) {
	switch kind {
	case KindDepartment:
		return DepartmentAdapter(), nil
	case KindClassroom:
		return ClassroomAdapter(), nil
	case KindCourse:
		return CourseAdapter(), nil
	case KindProgram:
		return ProgramAdapter(), nil
	case KindEquipment:
		return EquipmentAdapter(), nil
	}
	return Adapter{}, fmt.Errorf("no import adapter for entity %q", kind)
}

func codeKey(row Row) string     { return row.String("code") }
func codeDup(row Row) string     { return fmt.Sprintf("Code '%s' already exists", row.String("code")) }
func codePreview(row Row) string { return "Duplicate code: " + row.String("code") }

func statusField(row Row) bool {
	if row.Has("status") {
		return ParseStatus(row["status"])
	}
	return ParseStatus("active")
}

func DepartmentAdapter() Adapter {
	return Adapter{
		Kind:               KindDepartment,
		NeedsDefaultSchool: true,
		Refs: []RefField{
			{Column: "school", Target: KindSchool, Match: MatchExact, Required: true, DefaultLabel: true},
		},
		NaturalKey: codeKey,
		Validate: func(row Row) []string {
			return validateRow(row, map[string][]validation.Rule{
				"name":  {validation.Required, validation.Length(0, 255)},
				"code":  {validation.Required, validation.Length(0, 50)},
				"email": {is.Email, validation.Length(0, 255)},
			})
		},
		DuplicateError:        codeDup,
		PreviewDuplicateError: codePreview,
		CreateFields: func(row Row, refs Resolved, ictx Context) map[string]any {
			schoolID := refs.ID("school")
			if schoolID == nil {
				schoolID = ictx.DefaultSchoolID
			}
			return map[string]any{
				"uuid":               uuid.NewString(),
				"school_id":          schoolID,
				"name":               row.String("name"),
				"code":               row.String("code"),
				"description":        strOrNil(row, "description"),
				"head_of_department": strOrNil(row, "head_of_department"),
				"email":              strOrNil(row, "email"),
				"phone":              strOrNil(row, "phone"),
				"office_location":    strOrNil(row, "office_location"),
				"established_year":   row.Int("established_year"),
				"status":             statusField(row),
			}
		},
		UpdateFields: func(row Row) map[string]any {
			fields := map[string]any{
				"name":   row.String("name"),
				"status": statusField(row),
			}
			putStr(fields, row, "description")
			putStr(fields, row, "head_of_department")
			putStr(fields, row, "email")
			putStr(fields, row, "phone")
			putStr(fields, row, "office_location")
			putInt(fields, row, "established_year")
			return fields
		},
		PreviewFields: func(row Row, refDisplay map[string]string) map[string]any {
			return map[string]any{
				"name":   row.String("name"),
				"code":   row.String("code"),
				"school": refDisplay["school"],
				"email":  row.String("email"),
				"phone":  row.String("phone"),
			}
		},
	}
}

func ClassroomAdapter() Adapter {
	return Adapter{
		Kind: KindClassroom,
		Refs: []RefField{
			{Column: "department", Target: KindDepartment, Match: MatchExact, Required: true},
		},
		NaturalKey: codeKey,
		Validate: func(row Row) []string {
			return validateRow(row, map[string][]validation.Rule{
				"name": {validation.Required, validation.Length(0, 255)},
				"code": {validation.Required, validation.Length(0, 50)},
			})
		},
		DuplicateError:        codeDup,
		PreviewDuplicateError: codePreview,
		CreateFields: func(row Row, refs Resolved, _ Context) map[string]any {
			capacity := int64(30)
			if v := row.Int("capacity"); v != nil {
				capacity = *v
			}
			hasWhiteboard := true
			if row.Has("has_whiteboard") {
				hasWhiteboard = ParseBool(row["has_whiteboard"])
			}
			return map[string]any{
				"uuid":           uuid.NewString(),
				"department_id":  refs.ID("department"),
				"name":           row.String("name"),
				"code":           row.String("code"),
				"building":       strOrNil(row, "building"),
				"floor":          row.Int("floor"),
				"capacity":       capacity,
				"type":           NormalizeClassroomType(row.String("type")),
				"description":    strOrNil(row, "description"),
				"has_projector":  row.Has("has_projector") && ParseBool(row["has_projector"]),
				"has_whiteboard": hasWhiteboard,
				"has_ac":         row.Has("has_ac") && ParseBool(row["has_ac"]),
				"is_available":   true,
				"status":         statusField(row),
			}
		},
		UpdateFields: func(row Row) map[string]any {
			fields := map[string]any{
				"name":   row.String("name"),
				"status": statusField(row),
			}
			putStr(fields, row, "building")
			putInt(fields, row, "floor")
			putInt(fields, row, "capacity")
			putStr(fields, row, "description")
			if row.Has("type") {
				fields["type"] = NormalizeClassroomType(row.String("type"))
			}
			for _, flag := range []string{"has_projector", "has_whiteboard", "has_ac"} {
				if row.Has(flag) {
					fields[flag] = ParseBool(row[flag])
				}
			}
			return fields
		},
		PreviewFields: func(row Row, refDisplay map[string]string) map[string]any {
			return map[string]any{
				"name":       row.String("name"),
				"code":       row.String("code"),
				"department": refDisplay["department"],
				"building":   row.String("building"),
				"capacity":   row.String("capacity"),
			}
		},
	}
}

func CourseAdapter() Adapter {
	return Adapter{
		Kind: KindCourse,
		Refs: []RefField{
			{Column: "department", Target: KindDepartment, Match: MatchContains},
			{Column: "program", Target: KindProgram, Match: MatchContains},
		},
		NaturalKey: codeKey,
		Validate: func(row Row) []string {
			return validateRow(row, map[string][]validation.Rule{
				"name": {validation.Required, validation.Length(0, 255)},
				"code": {validation.Required, validation.Length(0, 50)},
			})
		},
		DuplicateError:        codeDup,
		PreviewDuplicateError: codePreview,
		CreateFields: func(row Row, refs Resolved, _ Context) map[string]any {
			return map[string]any{
				"uuid":          uuid.NewString(),
				"department_id": refs.ID("department"),
				"program_id":    refs.ID("program"),
				"name":          row.String("name"),
				"code":          row.String("code"),
				"description":   strOrNil(row, "description"),
				"credits":       row.Int("credits"),
				"type":          NormalizeCourseType(row.String("type")),
				"semester":      strOrNil(row, "semester"),
				"year":          row.Int("year"),
				"max_students":  row.Int("max_students"),
				"schedule":      strOrNil(row, "schedule"),
				"room":          strOrNil(row, "room"),
				"status":        statusField(row),
			}
		},
		UpdateFields: func(row Row) map[string]any {
			fields := map[string]any{
				"name":   row.String("name"),
				"status": statusField(row),
			}
			putStr(fields, row, "description")
			putInt(fields, row, "credits")
			if row.Has("type") {
				fields["type"] = NormalizeCourseType(row.String("type"))
			}
			putStr(fields, row, "semester")
			putInt(fields, row, "year")
			putInt(fields, row, "max_students")
			putStr(fields, row, "schedule")
			putStr(fields, row, "room")
			return fields
		},
		PreviewFields: func(row Row, _ map[string]string) map[string]any {
			return map[string]any{
				"name":       row.String("name"),
				"code":       row.String("code"),
				"department": row.String("department"),
				"program":    row.String("program"),
				"credits":    row.String("credits"),
			}
		},
	}
}

func ProgramAdapter() Adapter {
	return Adapter{
		Kind:               KindProgram,
		NeedsDefaultSchool: true,
		Refs: []RefField{
			{Column: "department", Target: KindDepartment, Match: MatchContains},
		},
		NaturalKey: codeKey,
		Validate: func(row Row) []string {
			return validateRow(row, map[string][]validation.Rule{
				"name": {validation.Required, validation.Length(0, 255)},
				"code": {validation.Required, validation.Length(0, 50)},
			})
		},
		DuplicateError:        codeDup,
		PreviewDuplicateError: codePreview,
		CreateFields: func(row Row, refs Resolved, ictx Context) map[string]any {
			return map[string]any{
				"uuid":                   uuid.NewString(),
				"school_id":              ictx.DefaultSchoolID,
				"department_id":          refs.ID("department"),
				"name":                   row.String("name"),
				"code":                   row.String("code"),
				"description":            strOrNil(row, "description"),
				"degree_level":           NormalizeDegreeLevel(row.String("degree_level")),
				"duration_years":         row.Int("duration_years"),
				"credits_required":       row.Int("credits_required"),
				"tuition_fee":            row.Float("tuition_fee"),
				"max_students":           row.Int("max_students"),
				"admission_requirements": strOrNil(row, "admission_requirements"),
				"status":                 statusField(row),
			}
		},
		UpdateFields: func(row Row) map[string]any {
			fields := map[string]any{
				"name":   row.String("name"),
				"status": statusField(row),
			}
			putStr(fields, row, "description")
			if row.Has("degree_level") {
				fields["degree_level"] = NormalizeDegreeLevel(row.String("degree_level"))
			}
			putInt(fields, row, "duration_years")
			putInt(fields, row, "credits_required")
			if v := row.Float("tuition_fee"); v != nil {
				fields["tuition_fee"] = v
			}
			putInt(fields, row, "max_students")
			putStr(fields, row, "admission_requirements")
			return fields
		},
		PreviewFields: func(row Row, _ map[string]string) map[string]any {
			return map[string]any{
				"name":           row.String("name"),
				"code":           row.String("code"),
				"department":     row.String("department"),
				"degree_level":   row.String("degree_level"),
				"duration_years": row.String("duration_years"),
			}
		},
	}
}

func EquipmentAdapter() Adapter {
	return Adapter{
		Kind: KindEquipment,
		NaturalKey: func(row Row) string {
			return slug.Make(row.String("name"))
		},
		Validate: func(row Row) []string {
			return validateRow(row, map[string][]validation.Rule{
				"name": {validation.Required, validation.Length(0, 255)},
			})
		},
		DuplicateError: func(row Row) string {
			return fmt.Sprintf("'%s' already exists", row.String("name"))
		},
		PreviewDuplicateError: func(row Row) string {
			return "Duplicate: " + row.String("name")
		},
		CreateFields: func(row Row, _ Resolved, _ Context) map[string]any {
			return map[string]any{
				"uuid":        uuid.NewString(),
				"name":        row.String("name"),
				"slug":        slug.Make(row.String("name")),
				"category":    NormalizeEquipmentCategory(row.String("category")),
				"icon":        strOrNil(row, "icon"),
				"description": strOrNil(row, "description"),
				"status":      statusField(row),
			}
		},
		UpdateFields: func(row Row) map[string]any {
			fields := map[string]any{
				"name":   row.String("name"),
				"status": statusField(row),
			}
			if row.Has("category") {
				fields["category"] = NormalizeEquipmentCategory(row.String("category"))
			}
			putStr(fields, row, "icon")
			putStr(fields, row, "description")
			return fields
		},
		PreviewFields: func(row Row, _ map[string]string) map[string]any {
			return map[string]any{
				"name":        row.String("name"),
				"category":    row.String("category"),
				"icon":        row.String("icon"),
				"description": row.String("description"),
			}
		},
	}
}

func strOrNil(row Row, key string) any {
	if row.Has(key) {
		return row.String(key)
	}
	return nil
}

func putStr(fields map[string]any, row Row, key string) {
	if row.Has(key) {
		fields[key] = row.String(key)
	}
}

func putInt(fields map[string]any, row Row, key string) {
	if v := row.Int(key); v != nil {
		fields[key] = v
	}
}
