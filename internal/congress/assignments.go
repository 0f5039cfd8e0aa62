package congress

import (
	"fmt"
	"strings"
	"time"

	"oncohub.org/internal/access"
)

// ProjectRole describes a responsibility within one congress. It carries no
// permission weight.
type ProjectRole string

const (
	ProjectCongressLead       ProjectRole = "Congress Lead"
	ProjectScientificLead     ProjectRole = "Scientific Lead"
	ProjectOpsLead            ProjectRole = "Ops Lead"
	ProjectSponsorLead        ProjectRole = "Sponsor Lead"
	ProjectCommsLead          ProjectRole = "Comms Lead"
	ProjectFinance            ProjectRole = "Finance"
	ProjectComplianceReviewer ProjectRole = "Compliance Reviewer"
	ProjectContributor        ProjectRole = "Contributor"
	ProjectObserver           ProjectRole = "Observer"
)

var projectRoles = []ProjectRole{
	ProjectCongressLead,
	ProjectScientificLead,
	ProjectOpsLead,
	ProjectSponsorLead,
	ProjectCommsLead,
	ProjectFinance,
	ProjectComplianceReviewer,
	ProjectContributor,
	ProjectObserver,
}

func ProjectRoles() []ProjectRole {
	out := make([]ProjectRole, len(projectRoles))
	copy(out, projectRoles)
	return out
}

func (r ProjectRole) Valid() bool {
	for _, known := range projectRoles {
		if known == r {
			return true
		}
	}
	return false
}

// ParseProjectRole matches case-insensitively and accepts snake_case.
func ParseProjectRole(raw string) (ProjectRole, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", " "))
	for _, r := range projectRoles {
		if strings.ToLower(string(r)) == norm {
			return r, nil
		}
	}
	return "", &access.ValidationError{Msg: fmt.Sprintf("invalid project role %q", raw)}
}

// WorkstreamScope is either every workstream or an explicit list.
type WorkstreamScope struct {
	All           bool     `json:"all_workstreams"`
	WorkstreamIDs []string `json:"workstream_ids,omitempty"`
}

// Covers reports whether the scope includes workstreamID.
func (s WorkstreamScope) Covers(workstreamID string) bool {
	if s.All {
		return true
	}
	for _, id := range s.WorkstreamIDs {
		if id == workstreamID {
			return true
		}
	}
	return false
}

// Assignment records who is responsible for what in a congress.
type Assignment struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	CongressID    string          `json:"congress_id"`
	ProjectRole   ProjectRole     `json:"project_role"`
	Scope         WorkstreamScope `json:"scope"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
}

// EffectiveOn compares calendar days, inclusive at both ends. An open
// EffectiveTo never expires.
func (a Assignment) EffectiveOn(day time.Time) bool {
	d := civil(day)
	if d < civil(a.EffectiveFrom) {
		return false
	}
	if a.EffectiveTo != nil && d > civil(*a.EffectiveTo) {
		return false
	}
	return true
}

// EffectiveOn filters assignments to those effective on day.
func EffectiveOn(assignments []Assignment, day time.Time) []Assignment {
	var out []Assignment
	for _, a := range assignments {
		if a.EffectiveOn(day) {
			out = append(out, a)
		}
	}
	return out
}

// RolesOf returns the distinct project roles held, in catalog order.
func RolesOf(assignments []Assignment) []ProjectRole {
	held := make(map[ProjectRole]bool, len(assignments))
	for _, a := range assignments {
		held[a.ProjectRole] = true
	}
	var out []ProjectRole
	for _, r := range projectRoles {
		if held[r] {
			out = append(out, r)
		}
	}
	return out
}

// Validate checks an assignment before it is stored.
func (a Assignment) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return &access.ValidationError{Msg: "userId is required"}
	}
	if strings.TrimSpace(a.CongressID) == "" {
		return &access.ValidationError{Msg: "congressId is required"}
	}
	if !a.ProjectRole.Valid() {
		return &access.ValidationError{Msg: fmt.Sprintf("invalid project role %q", a.ProjectRole)}
	}
	if !a.Scope.All && len(a.Scope.WorkstreamIDs) == 0 {
		return &access.ValidationError{Msg: "workstream scope needs all workstreams or at least one workstream id"}
	}
	if a.EffectiveFrom.IsZero() {
		return &access.ValidationError{Msg: "effectiveFrom is required"}
	}
	if a.EffectiveTo != nil && civil(*a.EffectiveTo) < civil(a.EffectiveFrom) {
		return &access.ValidationError{Msg: "effectiveTo must not precede effectiveFrom"}
	}
	return nil
}

// civil maps a time to a sortable yyyymmdd in its own location.
func civil(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// ParseDay parses a yyyy-mm-dd calendar date.
func ParseDay(raw string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &access.ValidationError{Msg: fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", raw)}
	}
	return t, nil
}
