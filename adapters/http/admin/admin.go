// Package admin provides the HTTP API behind the module administration screens.
package admin

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/artpar/carehub/core/module"
	"github.com/artpar/carehub/core/registry"
	"github.com/artpar/carehub/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies, including uploaded backups.
const maxBodyBytes = 8 << 20

// Handler provides admin API endpoints.
type Handler struct {
	registry ports.ModuleRegistry
	backups  ports.BackupStore
	logger   zerolog.Logger
}

// Deps contains dependencies for the admin handler.
type Deps struct {
	Registry ports.ModuleRegistry
	// Backups is optional. Without it the stored-backup endpoints return 503.
	Backups ports.BackupStore
	Logger  zerolog.Logger
}

// NewHandler creates a new admin API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		registry: deps.Registry,
		backups:  deps.Backups,
		logger:   deps.Logger,
	}
}

// Router returns the admin API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	// Modules
	r.Get("/modules", h.ListModules)
	r.Route("/modules/{id}", func(r chi.Router) {
		r.Get("/", h.GetModule)
		r.Delete("/", h.DeleteModule)
		r.Patch("/settings", h.UpdateSettings)
		r.Get("/validate", h.ValidateModule)
		r.Get("/permissions", h.CheckPermission)

		// Backups
		r.Get("/backup", h.ExportModule)
		r.Post("/backup", h.SaveBackup)
		r.Post("/restore", h.RestoreModule)
	})

	r.Get("/backups", h.ListBackups)

	// Registry views
	r.Get("/stats", h.Stats)
	r.Get("/routes", h.ListRoutes)
	r.Get("/components", h.ListComponents)

	// Hooks
	r.Post("/hooks/{name}", h.CallHook)

	return r
}

// -----------------------------------------------------------------------------
// Modules
// -----------------------------------------------------------------------------

// ModuleResponse is a descriptor together with its lifecycle state.
type ModuleResponse struct {
	module.Descriptor
	State registry.LifecycleState `json:"state"`
}

func (h *Handler) moduleResponse(d module.Descriptor) ModuleResponse {
	return ModuleResponse{Descriptor: d, State: h.registry.State(d.ID)}
}

// ListModules returns registered modules.
// The optional filter query parameter accepts "enabled" or "isolated".
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	var descriptors []module.Descriptor
	switch filter := r.URL.Query().Get("filter"); filter {
	case "":
		descriptors = h.registry.GetAll()
	case "enabled":
		descriptors = h.registry.GetEnabled()
	case "isolated":
		descriptors = h.registry.GetIsolated()
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "filter must be 'enabled' or 'isolated'")
		return
	}

	response := make([]ModuleResponse, len(descriptors))
	for i, d := range descriptors {
		response[i] = h.moduleResponse(d)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"modules": response,
		"total":   len(response),
	})
}

// GetModule returns a single module.
func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	d, ok := h.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Module not found")
		return
	}
	h.writeJSON(w, http.StatusOK, h.moduleResponse(d))
}

// DeleteModule unregisters a module together with its instance and hooks.
func (h *Handler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "not_found", "Module not found")
		return
	}

	h.registry.Unregister(id)
	h.logger.Info().Str("module", id).Msg("module unregistered via admin api")
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSettings merges a partial settings update into a module.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch module.SettingsPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	if !h.registry.UpdateSettings(id, patch) {
		writeError(w, http.StatusNotFound, "not_found", "Module not found")
		return
	}

	d, _ := h.registry.Get(id)
	h.writeJSON(w, http.StatusOK, d.Settings)
}

// ValidationResponse reports the dependency health of a module.
type ValidationResponse struct {
	Module  string   `json:"module"`
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
	Cycle   bool     `json:"cycle"`
	Errors  []string `json:"errors"`
}

// ValidateModule checks a module's dependencies.
func (h *Handler) ValidateModule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "not_found", "Module not found")
		return
	}

	resp := ValidationResponse{
		Module:  id,
		Missing: h.registry.MissingDependencies(id),
		Cycle:   h.registry.HasCycle(id),
		Errors:  []string{},
	}

	if err := h.registry.ValidateDependencies(id); err != nil {
		var missing *registry.MissingDependencyError
		if errors.As(err, &missing) {
			resp.Errors = append(resp.Errors, missing.Error())
		}
		var cycle *registry.CircularDependencyError
		if errors.As(err, &cycle) {
			resp.Errors = append(resp.Errors, cycle.Error())
		}
	}
	resp.Valid = len(resp.Errors) == 0

	h.writeJSON(w, http.StatusOK, resp)
}

// CheckPermission reports whether a role may perform an action on a module.
func (h *Handler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "not_found", "Module not found")
		return
	}

	action := module.Action(r.URL.Query().Get("action"))
	role := r.URL.Query().Get("role")
	if action == "" || role == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "action and role are required")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"module":  id,
		"action":  action,
		"role":    role,
		"allowed": h.registry.CheckPermission(id, action, role),
	})
}

// -----------------------------------------------------------------------------
// Registry views
// -----------------------------------------------------------------------------

// Stats returns registry counts.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.registry.GetStats())
}

// ListRoutes returns every route declared by registered modules.
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes := h.registry.Routes()
	if routes == nil {
		routes = []registry.RouteEntry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"routes": routes,
		"total":  len(routes),
	})
}

// ListComponents returns every component declared by registered modules.
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	components := h.registry.Components()
	if components == nil {
		components = []registry.ComponentEntry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"components": components,
		"total":      len(components),
	})
}

// -----------------------------------------------------------------------------
// Hooks
// -----------------------------------------------------------------------------

// CallHookRequest carries the arguments passed to every callback.
type CallHookRequest struct {
	Args []any `json:"args"`
}

// CallHook fires a named hook and returns one result per callback.
// Failed callbacks contribute null.
func (h *Handler) CallHook(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req CallHookRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	results := h.registry.CallHook(r.Context(), name, req.Args...)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"hook":    name,
		"results": results,
	})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}

// writeJSON encodes data fully before writing the status. Unencodable values
// are logged and answered with a 500.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		h.logger.Error().Err(err).Int("status", status).Msg("failed to encode response")
		writeError(w, http.StatusInternalServerError, "encode_failed", "Response could not be encoded")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
