package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/campusops/school-api/internal/audit"
	"github.com/campusops/school-api/internal/httpx"
	"github.com/campusops/school-api/internal/importer"
	"github.com/campusops/school-api/internal/middleware"
)

var supportedCSVContentTypes = map[string]struct{}{
	"text/csv":                 {},
	"application/csv":          {},
	"application/vnd.ms-excel": {},
}

type parsedImportUpload struct {
	filename string
	policy   importer.Policy
	rows     []importer.RawRow
}

type appError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (s *Server) PostImportPreview(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, true)
}

func (s *Server) PostImportCommit(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, false)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, preview bool) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}
	adapter, err := importer.AdapterFor(def.kind)
	if err != nil {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, "not_importable",
			fmt.Sprintf("%s records cannot be imported", def.label), nil)
		return
	}

	parsed, appErr := s.parseImportUpload(r)
	if appErr != nil {
		httpx.WriteError(w, r, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
		return
	}

	ictx, err := s.importContext(r)
	if err != nil {
		s.Logger.Error("resolve import context", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to resolve default school", nil)
		return
	}

	engine := importer.NewEngine(adapter, s.Store, ictx, parsed.policy, preview)
	result, err := engine.Run(r.Context(), parsed.rows)
	if err != nil {
		s.Logger.Error("import run", "entity", def.kind, "preview", preview, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "import_failed",
			"Import failed and no rows were saved", nil)
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	action := "import.commit"
	if preview {
		action = "import.preview"
	}
	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     action,
		EntityType: string(def.kind),
		RequestID:  requestID,
		Metadata: map[string]any{
			"filename":           parsed.filename,
			"duplicate_handling": string(parsed.policy),
			"rows":               len(parsed.rows),
			"imported":           result.Imported,
			"updated":            result.Updated,
			"skipped":            result.Skipped,
			"failed":             result.Failed,
		},
	})

	if preview {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"data":      engine.PreviewData(),
			"stats":     result.PreviewStats,
			"requestId": requestID,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"imported":    result.Imported,
		"updated":     result.Updated,
		"skipped":     result.Skipped,
		"failed":      result.Failed,
		"failed_rows": result.FailedRows,
		"message": fmt.Sprintf("Imported %d, updated %d, skipped %d, failed %d",
			result.Imported, result.Updated, result.Skipped, result.Failed),
		"requestId": requestID,
	})
}

// importContext resolves the default school the run falls back to when a
// row names none. A configured school code pins the run to that school.
func (s *Server) importContext(r *http.Request) (importer.Context, error) {
	if s.Config.DefaultSchoolCode == "" {
		return importer.Context{}, nil
	}
	id, err := s.Store.SchoolIDByCode(r.Context(), s.Config.DefaultSchoolCode)
	if err != nil {
		return importer.Context{}, err
	}
	if id == nil {
		return importer.Context{}, nil
	}
	return importer.Context{DefaultSchoolID: id, Scoped: true}, nil
}

func (s *Server) parseImportUpload(r *http.Request) (parsedImportUpload, *appError) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return parsedImportUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_content_type",
			Message: "Content-Type must be multipart/form-data",
		}
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return parsedImportUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_multipart",
			Message: "Failed to parse multipart form",
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return parsedImportUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "missing_file",
			Message: "file is required",
		}
	}
	defer file.Close()

	if s.Config.ImportMaxFileBytes > 0 && header.Size > s.Config.ImportMaxFileBytes {
		return parsedImportUpload{}, &appError{
			Status:  http.StatusRequestEntityTooLarge,
			Code:    "file_too_large",
			Message: fmt.Sprintf("File exceeds the %d byte upload limit", s.Config.ImportMaxFileBytes),
		}
	}

	policy, err := importer.ParsePolicy(r.FormValue("duplicate_handling"))
	if err != nil {
		return parsedImportUpload{}, &appError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "validation_error",
			Message: err.Error(),
		}
	}

	filename := header.Filename
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if ext == ".csv" && contentType != "" {
		if _, ok := supportedCSVContentTypes[contentType]; !ok {
			return parsedImportUpload{}, &appError{
				Status:  http.StatusBadRequest,
				Code:    "invalid_content_type",
				Message: "Unsupported CSV content type",
				Details: map[string]any{"contentType": contentType},
			}
		}
	}

	rows, err := importer.ReadTable(file, filename)
	if err != nil {
		if errors.Is(err, importer.ErrNoHeader) {
			return parsedImportUpload{}, &appError{
				Status:  http.StatusUnprocessableEntity,
				Code:    "empty_file",
				Message: "The uploaded file has no heading row",
			}
		}
		return parsedImportUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_file",
			Message: "Could not read the uploaded file",
			Details: map[string]any{"error": err.Error()},
		}
	}
	if s.Config.ImportMaxRows > 0 && len(rows) > s.Config.ImportMaxRows {
		return parsedImportUpload{}, &appError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "too_many_rows",
			Message: fmt.Sprintf("File has %d data rows; the limit is %d", len(rows), s.Config.ImportMaxRows),
		}
	}

	return parsedImportUpload{filename: filename, policy: policy, rows: rows}, nil
}
