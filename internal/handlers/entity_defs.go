package handlers

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/campusops/school-api/internal/importer"
	"github.com/campusops/school-api/internal/store"
)

// entityDef wires one URL entity segment to its kind, its payload builder
// and its typed read queries.
type entityDef struct {
	kind  importer.Kind
	label string
	// build validates a decoded request body and returns the column map
	// to persist. With partial set, absent fields stay untouched.
	build func(row importer.Row, partial bool) (map[string]any, []string)
	get   func(ctx context.Context, s *store.Store, uid uuid.UUID) (any, error)
	list  func(ctx context.Context, s *store.Store, p store.ListParams) (any, int64, error)
}

var entityDefs = map[string]entityDef{
	"schools": {
		kind:  importer.KindSchool,
		label: "School",
		build: buildSchool,
		get: func(ctx context.Context, s *store.Store, uid uuid.UUID) (any, error) {
			m, err := s.GetSchoolByUUID(ctx, uid)
			if m == nil {
				return nil, err
			}
			return m, err
		},
		list: func(ctx context.Context, s *store.Store, p store.ListParams) (any, int64, error) {
			return s.ListSchools(ctx, p)
		},
	},
	"departments": {
		kind:  importer.KindDepartment,
		label: "Department",
		build: buildDepartment,
		get: func(ctx context.Context, s *store.Store, uid uuid.UUID) (any, error) {
			m, err := s.GetDepartmentByUUID(ctx, uid)
			if m == nil {
				return nil, err
			}
			return m, err
		},
		list: func(ctx context.Context, s *store.Store, p store.ListParams) (any, int64, error) {
			return s.ListDepartments(ctx, p)
		},
	},
	"programs": {
		kind:  importer.KindProgram,
		label: "Program",
		build: buildProgram,
		get: func(ctx context.Context, s *store.Store, uid uuid.UUID) (any, error) {
			m, err := s.GetProgramByUUID(ctx, uid)
			if m == nil {
				return nil, err
			}
			return m, err
		},
		list: func(ctx context.Context, s *store.Store, p store.ListParams) (any, int64, error) {
			return s.ListPrograms(ctx, p)
		},
	},
	"courses": {
		kind:  importer.KindCourse,
		label: "Course",
		build: buildCourse,
		get: func(ctx context.Context, s *store.Store, uid uuid.UUID) (any, error) {
			m, err := s.GetCourseByUUID(ctx, uid)
			if m == nil {
				return nil, err
			}
			return m, err
		},
		list: func(ctx context.Context, s *store.Store, p store.ListParams) (any, int64, error) {
			return s.ListCourses(ctx, p)
		},
	},
	"classrooms": {
		kind:  importer.KindClassroom,
		label: "Classroom",
		build: buildClassroom,
		get: func(ctx context.Context, s *store.Store, uid uuid.UUID) (any, error) {
			m, err := s.GetClassroomByUUID(ctx, uid)
			if m == nil {
				return nil, err
			}
			return m, err
		},
		list: func(ctx context.Context, s *store.Store, p store.ListParams) (any, int64, error) {
			return s.ListClassrooms(ctx, p)
		},
	},
	"equipment": {
		kind:  importer.KindEquipment,
		label: "Equipment",
		build: buildEquipment,
		get: func(ctx context.Context, s *store.Store, uid uuid.UUID) (any, error) {
			m, err := s.GetEquipmentByUUID(ctx, uid)
			if m == nil {
				return nil, err
			}
			return m, err
		},
		list: func(ctx context.Context, s *store.Store, p store.ListParams) (any, int64, error) {
			return s.ListEquipment(ctx, p)
		},
	},
}

func buildSchool(row importer.Row, partial bool) (map[string]any, []string) {
	errs := requireFields(row, partial, "name", "code")
	errs = append(errs, checkEmail(row)...)

	fields := map[string]any{}
	setStrings(fields, row,
		"name", "code", "description", "address", "city", "phone", "email",
		"website",
	)
	setInts(fields, row, "established_year")
	setStatus(fields, row, partial)
	return fields, errs
}

func buildDepartment(row importer.Row, partial bool) (map[string]any, []string) {
	errs := requireFields(row, partial, "name", "code", "school_id")
	errs = append(errs, checkEmail(row)...)

	fields := map[string]any{}
	setStrings(fields, row,
		"name", "code", "description", "head_of_department", "email",
		"phone", "office_location",
	)
	setInts(fields, row, "school_id", "established_year")
	setStatus(fields, row, partial)
	return fields, errs
}

func buildProgram(row importer.Row, partial bool) (map[string]any, []string) {
	errs := requireFields(row, partial, "name", "code", "school_id")

	fields := map[string]any{}
	setStrings(fields, row, "name", "code", "description", "admission_requirements")
	setInts(fields, row, "school_id", "department_id", "duration_years",
		"credits_required", "max_students")
	if row.Has("tuition_fee") {
		fields["tuition_fee"] = row.Float("tuition_fee")
	}
	if row.Has("degree_level") {
		fields["degree_level"] = importer.NormalizeDegreeLevel(row.String("degree_level"))
	} else if !partial {
		fields["degree_level"] = importer.NormalizeDegreeLevel("")
	}
	setStatus(fields, row, partial)
	return fields, errs
}

func buildCourse(row importer.Row, partial bool) (map[string]any, []string) {
	errs := requireFields(row, partial, "name", "code")

	fields := map[string]any{}
	setStrings(fields, row, "name", "code", "description", "semester",
		"schedule", "room")
	setInts(fields, row, "department_id", "program_id", "credits", "year",
		"max_students")
	if row.Has("type") {
		fields["type"] = importer.NormalizeCourseType(row.String("type"))
	} else if !partial {
		fields["type"] = importer.NormalizeCourseType("")
	}
	setStatus(fields, row, partial)
	return fields, errs
}

func buildClassroom(row importer.Row, partial bool) (map[string]any, []string) {
	errs := requireFields(row, partial, "name", "code", "department_id")

	fields := map[string]any{}
	setStrings(fields, row, "name", "code", "building", "description")
	setInts(fields, row, "department_id", "floor")
	if row.Has("capacity") {
		fields["capacity"] = row.Int("capacity")
	} else if !partial {
		fields["capacity"] = int64(30)
	}
	if row.Has("type") {
		fields["type"] = importer.NormalizeClassroomType(row.String("type"))
	} else if !partial {
		fields["type"] = importer.NormalizeClassroomType("")
	}
	setBool(fields, row, partial, "has_projector", false)
	setBool(fields, row, partial, "has_whiteboard", true)
	setBool(fields, row, partial, "has_ac", false)
	setBool(fields, row, partial, "is_available", true)
	setStatus(fields, row, partial)
	return fields, errs
}

func buildEquipment(row importer.Row, partial bool) (map[string]any, []string) {
	errs := requireFields(row, partial, "name")

	fields := map[string]any{}
	setStrings(fields, row, "name", "icon", "description")
	if name := row.String("name"); name != "" {
		fields["slug"] = slug.Make(name)
	}
	if row.Has("category") {
		fields["category"] = importer.NormalizeEquipmentCategory(row.String("category"))
	} else if !partial {
		fields["category"] = importer.NormalizeEquipmentCategory("")
	}
	setStatus(fields, row, partial)
	return fields, errs
}

func requireFields(row importer.Row, partial bool, keys ...string) []string {
	if partial {
		return nil
	}
	var errs []string
	for _, k := range keys {
		if !row.Has(k) {
			errs = append(errs, fmt.Sprintf("%s: cannot be blank", k))
		}
	}
	return errs
}

func checkEmail(row importer.Row) []string {
	v := row.String("email")
	if v == "" {
		return nil
	}
	if err := validation.Validate(v, is.Email, validation.Length(0, 255)); err != nil {
		return []string{"email: " + err.Error()}
	}
	return nil
}

func setStrings(fields map[string]any, row importer.Row, keys ...string) {
	for _, k := range keys {
		if row.Has(k) {
			fields[k] = row.String(k)
		}
	}
}

func setInts(fields map[string]any, row importer.Row, keys ...string) {
	for _, k := range keys {
		if row.Has(k) {
			fields[k] = row.Int(k)
		}
	}
}

func setBool(fields map[string]any, row importer.Row, partial bool, key string, fallback bool) {
	if row.Has(key) {
		fields[key] = importer.ParseBool(row[key])
		return
	}
	if !partial {
		fields[key] = fallback
	}
}

// setStatus defaults new records to active.
func setStatus(fields map[string]any, row importer.Row, partial bool) {
	if row.Has("status") {
		fields["status"] = importer.ParseStatus(row["status"])
		return
	}
	if !partial {
		fields["status"] = true
	}
}
