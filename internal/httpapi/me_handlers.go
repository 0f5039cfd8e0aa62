package httpapi

import (
	"net/http"
	"time"

	"oncohub.org/internal/access"
	"oncohub.org/internal/audit"
	"oncohub.org/internal/auth"
)

type accessResponse struct {
	UserID string              `json:"user_id"`
	Role   access.PlatformRole `json:"role"`
	Scope  access.Scope        `json:"scope"`
	Access []access.Decision   `json:"access"`
}

type navigationResponse struct {
	Role   access.PlatformRole `json:"role"`
	ViewAs bool                `json:"view_as"`
	Items  []access.NavItem    `json:"items"`
}

type viewAsRequest struct {
	Role string `json:"role"`
}

func (a *API) handleMyAccess(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	q := r.URL.Query()
	scope, err := access.NewScope(access.ScopeType(q.Get("scope_type")), q.Get("scope_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	decisions, err := a.deps.Resolver.ResolveAll(r.Context(), userID, scope)
	if err != nil {
		handleError(w, r, err)
		return
	}
	resp := accessResponse{UserID: userID, Scope: scope, Access: ordered(decisions)}
	if len(resp.Access) > 0 {
		resp.Role = resp.Access[0].Role
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMyNavigation honours an admin's view-as preview. The preview only
// changes what is shown; every admin action still checks the stored role.
func (a *API) handleMyNavigation(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	role, err := a.deps.Resolver.RoleOf(r.Context(), p.UserID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if preview, ok := a.previewFor(r, p, role); ok {
		decisions, err := a.deps.Resolver.RoleView(r.Context(), preview)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, navigationResponse{Role: preview, ViewAs: true, Items: access.Navigation(decisions)})
		return
	}
	decisions, err := a.deps.Resolver.ResolveAll(r.Context(), p.UserID, access.Global)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, navigationResponse{Role: role, Items: access.Navigation(decisions)})
}

// previewFor returns the previewed role when the caller is an admin with a
// live preview. Preview store failures fall back to the real view.
func (a *API) previewFor(r *http.Request, p auth.Principal, role access.PlatformRole) (access.PlatformRole, bool) {
	if a.deps.Previews == nil || role != access.RolePlatformAdmin || p.SessionID == "" {
		return "", false
	}
	preview, ok, err := a.deps.Previews.Preview(r.Context(), p.SessionID)
	if err != nil {
		return "", false
	}
	return preview, ok
}

func (a *API) handleSetViewAs(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAdmin(w, r) {
		return
	}
	if a.deps.Previews == nil {
		writeResult(w, r, access.ErrMigrationRequired, nil)
		return
	}
	var req viewAsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeResult(w, r, &access.ValidationError{Msg: err.Error()}, nil)
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		writeResult(w, r, err, nil)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := a.deps.Previews.SetPreview(r.Context(), p.SessionID, role, a.opts.ViewAsTTL); err != nil {
		writeResult(w, r, err, nil)
		return
	}
	expires := a.now().Add(a.opts.ViewAsTTL)
	_ = audit.LogEvent(r.Context(), "access.view_as.set", map[string]any{
		"role":       role,
		"expires_at": expires.Format(time.RFC3339),
	})
	writeResult(w, r, nil, map[string]any{"role": role, "expires_at": expires})
}

func (a *API) handleClearViewAs(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAdmin(w, r) {
		return
	}
	if a.deps.Previews == nil {
		writeResult(w, r, nil, nil)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := a.deps.Previews.ClearPreview(r.Context(), p.SessionID); err != nil {
		writeResult(w, r, err, nil)
		return
	}
	_ = audit.LogEvent(r.Context(), "access.view_as.cleared", nil)
	writeResult(w, r, nil, nil)
}

// ensureAdmin checks the stored role and writes the error envelope when the
// caller is not a platform admin.
func (a *API) ensureAdmin(w http.ResponseWriter, r *http.Request) bool {
	ok, err := a.deps.Admin.IsPlatformAdmin(r.Context())
	if err != nil {
		writeResult(w, r, err, nil)
		return false
	}
	if !ok {
		writeResult(w, r, access.ErrForbidden, nil)
		return false
	}
	return true
}

func ordered(decisions map[access.Space]access.Decision) []access.Decision {
	out := make([]access.Decision, 0, len(decisions))
	for _, s := range access.Spaces() {
		if d, ok := decisions[s]; ok {
			out = append(out, d)
		}
	}
	return out
}
