package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"oncohub.org/internal/access"
	"oncohub.org/internal/audit"
	"oncohub.org/internal/obs"
)

type overrideRequest struct {
	TargetUserID string `json:"target_user_id"`
	Space        string `json:"space"`
	AccessLevel  string `json:"access_level,omitempty"`
	ScopeType    string `json:"scope_type,omitempty"`
	ScopeID      string `json:"scope_id,omitempty"`
}

type roleDefaultRequest struct {
	Role        string `json:"role"`
	Space       string `json:"space"`
	AccessLevel string `json:"access_level,omitempty"`
}

type matrixResponse struct {
	Roles        []access.RoleInfo            `json:"roles"`
	Spaces       []access.Space               `json:"spaces"`
	Static       []access.MatrixRow           `json:"static"`
	RoleDefaults []access.RoleDefaultOverride `json:"role_defaults"`
}

func (a *API) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAdmin(w, r) {
		return
	}
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeResult(w, r, &access.ValidationError{Msg: err.Error()}, nil)
		return
	}
	space, err := access.ParseSpace(strings.TrimSpace(req.Space))
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	level, err := access.ParseAccessLevel(req.AccessLevel)
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	scope := access.Scope{Type: access.ScopeType(strings.TrimSpace(req.ScopeType)), ID: req.ScopeID}
	entry, err := a.deps.Admin.SetPermissionOverride(r.Context(), req.TargetUserID, space, level, scope)
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	obs.ObservePermissionChange(access.ChangeKindOverrideSet)
	_ = audit.LogEvent(r.Context(), access.ChangeKindOverrideSet, map[string]any{
		"target_user_id": entry.TargetUserID,
		"space":          entry.Space,
		"scope":          entry.Scope.String(),
		"previous_value": entry.PreviousValue,
		"new_value":      entry.NewValue,
	})
	writeResult(w, r, nil, map[string]any{"audit": entry})
}

func (a *API) handleRemoveOverride(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAdmin(w, r) {
		return
	}
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeResult(w, r, &access.ValidationError{Msg: err.Error()}, nil)
		return
	}
	space, err := access.ParseSpace(strings.TrimSpace(req.Space))
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	scope := access.Scope{Type: access.ScopeType(strings.TrimSpace(req.ScopeType)), ID: req.ScopeID}
	entry, err := a.deps.Admin.RemovePermissionOverride(r.Context(), req.TargetUserID, space, scope)
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	obs.ObservePermissionChange(access.ChangeKindOverrideRemoved)
	_ = audit.LogEvent(r.Context(), access.ChangeKindOverrideRemoved, map[string]any{
		"target_user_id": entry.TargetUserID,
		"space":          entry.Space,
		"scope":          entry.Scope.String(),
		"previous_value": entry.PreviousValue,
	})
	writeResult(w, r, nil, map[string]any{"audit": entry})
}

func (a *API) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	items, err := a.deps.Admin.ListOverrides(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return
	}
	if items == nil {
		items = []access.PermissionOverride{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), access.DefaultAuditLimit, 1, 1000)
	if err != nil {
		handleError(w, r, &access.ValidationError{Msg: "limit " + err.Error()})
		return
	}
	items, err := a.deps.Admin.AuditLog(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if items == nil {
		items = []access.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleListRoleDefaults(w http.ResponseWriter, r *http.Request) {
	items, err := a.deps.Admin.ListRoleDefaults(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if items == nil {
		items = []access.RoleDefaultOverride{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleSetRoleDefault(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAdmin(w, r) {
		return
	}
	var req roleDefaultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeResult(w, r, &access.ValidationError{Msg: err.Error()}, nil)
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	space, err := access.ParseSpace(strings.TrimSpace(req.Space))
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	level, err := access.ParseAccessLevel(req.AccessLevel)
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	saved, err := a.deps.Admin.SetRoleDefaultOverride(r.Context(), role, space, level)
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	obs.ObservePermissionChange(access.ChangeKindRoleDefaultSet)
	_ = audit.LogEvent(r.Context(), access.ChangeKindRoleDefaultSet, map[string]any{
		"role":         saved.Role,
		"space":        saved.Space,
		"access_level": saved.Level,
	})
	writeResult(w, r, nil, map[string]any{"role_default": saved})
}

func (a *API) handleRemoveRoleDefault(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAdmin(w, r) {
		return
	}
	var req roleDefaultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeResult(w, r, &access.ValidationError{Msg: err.Error()}, nil)
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	space, err := access.ParseSpace(strings.TrimSpace(req.Space))
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	removed, err := a.deps.Admin.RemoveRoleDefaultOverride(r.Context(), role, space)
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	if removed {
		obs.ObservePermissionChange(access.ChangeKindRoleDefaultRemove)
		_ = audit.LogEvent(r.Context(), access.ChangeKindRoleDefaultRemove, map[string]any{
			"role":  role,
			"space": space,
		})
	}
	writeResult(w, r, nil, map[string]any{"removed": removed})
}

func (a *API) handleMatrix(w http.ResponseWriter, r *http.Request) {
	defaults, err := a.deps.Admin.ListRoleDefaults(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if defaults == nil {
		defaults = []access.RoleDefaultOverride{}
	}
	writeJSON(w, http.StatusOK, matrixResponse{
		Roles:        access.RoleCatalog(),
		Spaces:       access.Spaces(),
		Static:       access.Matrix(),
		RoleDefaults: defaults,
	})
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, strconv.ErrRange
	}
	return v, nil
}
