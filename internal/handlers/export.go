package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusops/school-api/internal/audit"
	"github.com/campusops/school-api/internal/httpx"
	"github.com/campusops/school-api/internal/middleware"
	"github.com/campusops/school-api/internal/store"
)

func (s *Server) GetExportCSV(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}
	filename := chi.URLParam(r, "entity") + ".csv"
	s.writeExportCSV(w, r, string(def.kind), filename, func(writer *csv.Writer) error {
		return s.exportRows(r, def, writer)
	})
}

func (s *Server) exportRows(r *http.Request, def entityDef, writer *csv.Writer) error {
	all := store.ListParams{}
	data, _, err := def.list(r.Context(), s.Store, all)
	if err != nil {
		return err
	}

	switch rows := data.(type) {
	case []store.School:
		_ = writer.Write([]string{"id", "name", "code", "city", "email", "phone", "status", "created_at"})
		for _, m := range rows {
			_ = writer.Write([]string{
				strconv.FormatInt(m.ID, 10), m.Name, m.Code,
				derefString(m.City), derefString(m.Email), derefString(m.Phone),
				statusLabel(m.Status), m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	case []store.Department:
		_ = writer.Write([]string{"id", "name", "code", "school", "head_of_department", "email", "phone", "status", "created_at"})
		for _, m := range rows {
			_ = writer.Write([]string{
				strconv.FormatInt(m.ID, 10), m.Name, m.Code,
				derefString(m.SchoolName), derefString(m.HeadOfDepartment),
				derefString(m.Email), derefString(m.Phone),
				statusLabel(m.Status), m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	case []store.Program:
		_ = writer.Write([]string{"id", "name", "code", "department", "degree_level", "duration_years", "tuition_fee", "status", "created_at"})
		for _, m := range rows {
			_ = writer.Write([]string{
				strconv.FormatInt(m.ID, 10), m.Name, m.Code,
				derefString(m.DepartmentName), m.DegreeLevel,
				derefInt(m.DurationYears), derefFloat(m.TuitionFee),
				statusLabel(m.Status), m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	case []store.Course:
		_ = writer.Write([]string{"id", "name", "code", "department", "program", "credits", "type", "semester", "year", "status", "created_at"})
		for _, m := range rows {
			_ = writer.Write([]string{
				strconv.FormatInt(m.ID, 10), m.Name, m.Code,
				derefString(m.DepartmentName), derefString(m.ProgramName),
				derefInt(m.Credits), m.Type, derefString(m.Semester),
				derefInt(m.Year), statusLabel(m.Status),
				m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	case []store.Classroom:
		_ = writer.Write([]string{"id", "name", "code", "department", "building", "floor", "capacity", "type", "is_available", "status", "created_at"})
		for _, m := range rows {
			_ = writer.Write([]string{
				strconv.FormatInt(m.ID, 10), m.Name, m.Code,
				derefString(m.DepartmentName), derefString(m.Building),
				derefInt(m.Floor), strconv.FormatInt(m.Capacity, 10), m.Type,
				boolLabel(m.IsAvailable), statusLabel(m.Status),
				m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	case []store.Equipment:
		_ = writer.Write([]string{"id", "name", "slug", "category", "icon", "status", "created_at"})
		for _, m := range rows {
			_ = writer.Write([]string{
				strconv.FormatInt(m.ID, 10), m.Name, m.Slug, m.Category,
				derefString(m.Icon), statusLabel(m.Status),
				m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	}
	return nil
}

func (s *Server) writeExportCSV(w http.ResponseWriter, r *http.Request, entityType, filename string, writerFunc func(writer *csv.Writer) error) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writer := csv.NewWriter(w)
	if err := writerFunc(writer); err != nil {
		s.Logger.Error("export csv", "entity", entityType, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to generate export CSV", nil)
		return
	}
	writer.Flush()
	if writer.Error() != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to stream export CSV", nil)
		return
	}

	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     "export.download",
		EntityType: entityType,
		RequestID:  middleware.RequestIDFromContext(r.Context()),
		Metadata: map[string]any{
			"filename": filename,
			"entity":   entityType,
		},
	})
}

func (s *Server) GetImportTemplateCSV(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}
	content, ok := importTemplates[string(def.kind)]
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "template_not_found", "Import template not found", nil)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(def.kind)+"-template.csv"))
	_, _ = w.Write([]byte(content))
}

// Template headings mirror what the import adapters read; the sample row
// shows the expected value shapes.
var importTemplates = map[string]string{
	"department": strings.Join([]string{
		"name,code,school,description,head_of_department,email,phone,office_location,established_year,status",
		"Mathematics,MATH,Central High School,Core mathematics department,Dr. Alma Reyes,math@example.edu,5125550100,Building A Room 101,1998,active",
	}, "\n"),
	"classroom": strings.Join([]string{
		"name,code,department,building,floor,capacity,type,description,has_projector,has_whiteboard,has_ac,is_available,status",
		"Room 204,RM-204,Mathematics,Building A,2,32,lecture_hall,Standard lecture room,yes,yes,no,yes,active",
	}, "\n"),
	"course": strings.Join([]string{
		"name,code,department,program,description,credits,type,semester,year,max_students,schedule,room,status",
		"Calculus I,MATH-101,Mathematics,Bachelor of Science,Differential calculus,4,required,Fall,2026,40,MWF 09:00-10:00,RM-204,active",
	}, "\n"),
	"program": strings.Join([]string{
		"name,code,school,department,description,degree_level,duration_years,credits_required,tuition_fee,max_students,admission_requirements,status",
		"Bachelor of Science,BSC,Central High School,Mathematics,Four year science program,bachelor,4,120,9500.50,200,High school diploma,active",
	}, "\n"),
	"equipment": strings.Join([]string{
		"name,category,icon,description,status",
		"Projector,technology,projector-icon,Ceiling mounted projector,active",
	}, "\n"),
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func derefFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func statusLabel(status bool) string {
	if status {
		return "active"
	}
	return "inactive"
}

func boolLabel(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
