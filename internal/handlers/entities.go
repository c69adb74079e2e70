package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusops/school-api/internal/audit"
	"github.com/campusops/school-api/internal/httpx"
	"github.com/campusops/school-api/internal/importer"
	"github.com/campusops/school-api/internal/middleware"
	"github.com/campusops/school-api/internal/store"
)

// defFor resolves the {entity} path segment, writing a 404 for unknown
// collections.
func defFor(w http.ResponseWriter, r *http.Request) (entityDef, bool) {
	name := chi.URLParam(r, "entity")
	def, ok := entityDefs[name]
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "unknown_entity", "Unknown entity collection", nil)
		return entityDef{}, false
	}
	return def, true
}

func (s *Server) ListEntities(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}

	p := parseListParams(r)
	data, total, err := def.list(r.Context(), s.Store, p)
	if err != nil {
		s.Logger.Error("list entities", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load records", nil)
		return
	}
	stats, err := s.Store.Stats(r.Context(), def.kind)
	if err != nil {
		s.Logger.Error("entity stats", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load record stats", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, listEnvelope{
		Data:    data,
		Total:   total,
		Stats:   stats,
		Page:    pageFromParams(p),
		PerPage: p.Limit,
	})
}

func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}
	uid, ok := uuidParam(w, r)
	if !ok {
		return
	}

	record, err := def.get(r.Context(), s.Store, uid)
	if err != nil {
		s.Logger.Error("get entity", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load record", nil)
		return
	}
	if record == nil {
		httpx.WriteError(w, r, http.StatusNotFound, "record_not_found", def.label+" was not found", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, record)
}

func (s *Server) CreateEntity(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}

	row, ok := decodeRow(w, r)
	if !ok {
		return
	}
	fields, errs := def.build(row, false)
	if len(errs) > 0 {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, "validation_error", "The given data was invalid", errs)
		return
	}

	uid := uuid.New()
	fields["uuid"] = uid
	if _, err := s.Store.CreateReturningID(r.Context(), def.kind, fields); err != nil {
		if store.IsUniqueViolation(err) {
			httpx.WriteError(w, r, http.StatusConflict, "duplicate_record",
				fmt.Sprintf("A %s with this code already exists", def.kind), nil)
			return
		}
		s.Logger.Error("create entity", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to create record", nil)
		return
	}

	s.auditEntity(r, def, "create", &uid, nil)

	record, err := def.get(r.Context(), s.Store, uid)
	if err != nil || record == nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load created record", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, record)
}

func (s *Server) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}
	uid, ok := uuidParam(w, r)
	if !ok {
		return
	}

	id, err := s.Store.IDByUUID(r.Context(), def.kind, uid)
	if err != nil {
		s.Logger.Error("resolve entity", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load record", nil)
		return
	}
	if id == nil {
		httpx.WriteError(w, r, http.StatusNotFound, "record_not_found", def.label+" was not found", nil)
		return
	}

	row, ok := decodeRow(w, r)
	if !ok {
		return
	}
	fields, errs := def.build(row, true)
	if len(errs) > 0 {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, "validation_error", "The given data was invalid", errs)
		return
	}

	if err := s.Store.Update(r.Context(), def.kind, *id, fields); err != nil {
		if store.IsUniqueViolation(err) {
			httpx.WriteError(w, r, http.StatusConflict, "duplicate_record",
				fmt.Sprintf("A %s with this code already exists", def.kind), nil)
			return
		}
		s.Logger.Error("update entity", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to update record", nil)
		return
	}

	s.auditEntity(r, def, "update", &uid, nil)

	record, err := def.get(r.Context(), s.Store, uid)
	if err != nil || record == nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load updated record", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, record)
}

func (s *Server) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}
	uid, ok := uuidParam(w, r)
	if !ok {
		return
	}

	deleted, err := s.Store.SoftDeleteByUUID(r.Context(), def.kind, uid)
	if err != nil {
		s.Logger.Error("delete entity", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to delete record", nil)
		return
	}
	if !deleted {
		httpx.WriteError(w, r, http.StatusNotFound, "record_not_found", def.label+" was not found", nil)
		return
	}

	s.auditEntity(r, def, "delete", &uid, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ToggleEntityStatus(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}
	uid, ok := uuidParam(w, r)
	if !ok {
		return
	}

	status, err := s.Store.ToggleStatusByUUID(r.Context(), def.kind, uid)
	if err != nil {
		s.Logger.Error("toggle entity status", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to update status", nil)
		return
	}
	if status == nil {
		httpx.WriteError(w, r, http.StatusNotFound, "record_not_found", def.label+" was not found", nil)
		return
	}

	s.auditEntity(r, def, "toggle_status", &uid, map[string]any{"status": *status})
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"status": *status})
}

func (s *Server) BulkDeleteEntities(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}

	var req struct {
		UUIDs []string `json:"uuids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return
	}
	if len(req.UUIDs) == 0 {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, "validation_error", "uuids is required", nil)
		return
	}

	uids := make([]uuid.UUID, 0, len(req.UUIDs))
	for _, raw := range req.UUIDs {
		uid, err := uuid.Parse(raw)
		if err != nil {
			httpx.WriteError(w, r, http.StatusUnprocessableEntity, "validation_error",
				fmt.Sprintf("invalid uuid %q", raw), nil)
			return
		}
		uids = append(uids, uid)
	}

	deleted, err := s.Store.BulkSoftDelete(r.Context(), def.kind, uids)
	if err != nil {
		s.Logger.Error("bulk delete entities", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to delete records", nil)
		return
	}

	s.auditEntity(r, def, "bulk_delete", nil, map[string]any{"requested": len(uids), "deleted": deleted})
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) ListEntityTrash(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}

	p := parseListParams(r)
	rows, total, err := s.Store.ListTrashed(r.Context(), def.kind, p.Limit, p.Offset)
	if err != nil {
		s.Logger.Error("list entity trash", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load trash", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"data":     rows,
		"total":    total,
		"page":     pageFromParams(p),
		"per_page": p.Limit,
	})
}

func (s *Server) RestoreEntity(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}
	uid, ok := uuidParam(w, r)
	if !ok {
		return
	}

	restored, err := s.Store.RestoreByUUID(r.Context(), def.kind, uid)
	if err != nil {
		s.Logger.Error("restore entity", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to restore record", nil)
		return
	}
	if !restored {
		httpx.WriteError(w, r, http.StatusNotFound, "record_not_found", def.label+" was not found in trash", nil)
		return
	}

	s.auditEntity(r, def, "restore", &uid, nil)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": def.label + " restored"})
}

func (s *Server) ForceDeleteEntity(w http.ResponseWriter, r *http.Request) {
	def, ok := defFor(w, r)
	if !ok {
		return
	}
	uid, ok := uuidParam(w, r)
	if !ok {
		return
	}

	deleted, err := s.Store.ForceDeleteByUUID(r.Context(), def.kind, uid)
	if err != nil {
		s.Logger.Error("force delete entity", "entity", def.kind, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to delete record", nil)
		return
	}
	if !deleted {
		httpx.WriteError(w, r, http.StatusNotFound, "record_not_found", def.label+" was not found in trash", nil)
		return
	}

	s.auditEntity(r, def, "force_delete", &uid, nil)
	w.WriteHeader(http.StatusNoContent)
}

// decodeRow reads a JSON object body and normalizes its keys and values
// the same way spreadsheet rows are normalized.
func decodeRow(w http.ResponseWriter, r *http.Request) (importer.Row, bool) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return nil, false
	}
	return importer.NormalizeRow(raw), true
}

func (s *Server) auditEntity(r *http.Request, def entityDef, action string, uid *uuid.UUID, metadata map[string]any) {
	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     string(def.kind) + "." + action,
		EntityType: string(def.kind),
		EntityUUID: uid,
		RequestID:  middleware.RequestIDFromContext(r.Context()),
		Metadata:   metadata,
	})
}
