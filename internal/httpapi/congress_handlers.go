package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"oncohub.org/internal/access"
	"oncohub.org/internal/audit"
	"oncohub.org/internal/auth"
	"oncohub.org/internal/congress"
)

type stageRequest struct {
	Stage string `json:"stage"`
}

type assignmentRequest struct {
	UserID         string   `json:"user_id"`
	ProjectRole    string   `json:"project_role"`
	AllWorkstreams bool     `json:"all_workstreams"`
	WorkstreamIDs  []string `json:"workstream_ids"`
	EffectiveFrom  string   `json:"effective_from"`
	EffectiveTo    string   `json:"effective_to,omitempty"`
}

func congressScope(r *http.Request) (access.Scope, error) {
	return access.NewScope(access.ScopeCongress, mux.Vars(r)["id"])
}

// dayParam reads ?on=YYYY-MM-DD; absent means "no day given".
func dayParam(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("on"))
	if raw == "" {
		return time.Time{}, nil
	}
	return congress.ParseDay(raw)
}

func (a *API) handleSections(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	ws, err := a.deps.Congress.Workspace(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (a *API) handleAssignments(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	day, err := dayParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	items, err := a.deps.Congress.Assignments(r.Context(), userID, mux.Vars(r)["id"], day)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if items == nil {
		items = []congress.Assignment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var req assignmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := congress.ParseProjectRole(req.ProjectRole)
	if err != nil {
		handleError(w, r, err)
		return
	}
	from, err := congress.ParseDay(req.EffectiveFrom)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var to *time.Time
	if strings.TrimSpace(req.EffectiveTo) != "" {
		t, err := congress.ParseDay(req.EffectiveTo)
		if err != nil {
			handleError(w, r, err)
			return
		}
		to = &t
	}
	created, err := a.deps.Congress.Assign(r.Context(), userID, congress.Assignment{
		UserID:        strings.TrimSpace(req.UserID),
		CongressID:    mux.Vars(r)["id"],
		ProjectRole:   role,
		Scope:         congress.WorkstreamScope{All: req.AllWorkstreams, WorkstreamIDs: req.WorkstreamIDs},
		EffectiveFrom: from,
		EffectiveTo:   to,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "congress.assignment.create", map[string]any{
		"congress_id":  created.CongressID,
		"assignee":     created.UserID,
		"project_role": created.ProjectRole,
	})
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleResponsibility(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	day, err := dayParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	summary, err := a.deps.Congress.Responsibility(r.Context(), userID, mux.Vars(r)["id"], day)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleAdvanceStage(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var req stageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	to, err := congress.ParseStage(req.Stage)
	if err != nil {
		handleError(w, r, err)
		return
	}
	ev, err := a.deps.Congress.AdvanceStage(r.Context(), userID, mux.Vars(r)["id"], to)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "congress.stage.advance", map[string]any{
		"congress_id": ev.ID,
		"stage":       ev.Status,
	})
	writeJSON(w, http.StatusOK, ev)
}
