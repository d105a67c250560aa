package admin

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/artpar/carehub/core/registry"
	"github.com/go-chi/chi/v5"
)

// ExportModule returns a module backup as JSON.
func (h *Handler) ExportModule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b, err := h.registry.ExportData(id)
	if err != nil {
		h.writeRegistryError(w, id, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`-backup.json"`)
	h.writeJSON(w, http.StatusOK, b)
}

// SaveBackup exports a module and writes the backup to the backup store.
func (h *Handler) SaveBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backups_disabled", "Backup storage is not configured")
		return
	}
	id := chi.URLParam(r, "id")

	b, err := h.registry.ExportData(id)
	if err != nil {
		h.writeRegistryError(w, id, err)
		return
	}

	name, err := h.backups.Save(r.Context(), b)
	if err != nil {
		h.logger.Error().Err(err).Str("module", id).Msg("failed to save backup")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to save backup")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"module":    id,
		"name":      name,
		"timestamp": b.Timestamp,
	})
}

// ListBackups returns the names of stored backups, newest first.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backups_disabled", "Backup storage is not configured")
		return
	}

	names, err := h.backups.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list backups")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list backups")
		return
	}
	if names == nil {
		names = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"backups": names,
		"total":   len(names),
	})
}

// RestoreModule restores a module from a backup.
// With ?name= the backup is read from the backup store, otherwise the request
// body is the backup itself.
func (h *Handler) RestoreModule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var b registry.Backup
	if name := r.URL.Query().Get("name"); name != "" {
		if h.backups == nil {
			writeError(w, http.StatusServiceUnavailable, "backups_disabled", "Backup storage is not configured")
			return
		}
		loaded, err := h.backups.Load(r.Context(), name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				writeError(w, http.StatusNotFound, "not_found", "Backup not found")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid_backup", err.Error())
			return
		}
		b = loaded
	} else if !decodeBody(w, r, &b) {
		return
	}

	if err := h.registry.RestoreData(id, b); err != nil {
		h.writeRegistryError(w, id, err)
		return
	}

	d, _ := h.registry.Get(id)
	h.writeJSON(w, http.StatusOK, h.moduleResponse(d))
}

// writeRegistryError maps registry errors to HTTP responses.
func (h *Handler) writeRegistryError(w http.ResponseWriter, id string, err error) {
	var conflict *registry.ConflictError
	switch {
	case errors.As(err, &conflict):
		h.writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": map[string]string{
				"code":    "conflict",
				"message": conflict.Error(),
			},
			"conflicts": conflict.Conflicts,
		})
	case errors.Is(err, registry.ErrNotRegistered):
		writeError(w, http.StatusNotFound, "not_found", "Module not found")
	case errors.Is(err, registry.ErrInvalidModule):
		writeError(w, http.StatusBadRequest, "invalid_module", err.Error())
	case errors.Is(err, registry.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "already_registered", err.Error())
	default:
		h.logger.Error().Err(err).Str("module", id).Msg("registry operation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
