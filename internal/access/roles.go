package access

import (
	"fmt"
	"strings"
)

// PlatformRole is the coarse identity classification stored on a profile.
type PlatformRole string

const (
	RolePatientAdvocate PlatformRole = "patient_advocate"
	RoleClinician       PlatformRole = "clinician"
	RoleResearcher      PlatformRole = "researcher"
	RoleModerator       PlatformRole = "moderator"
	RoleHubCoordinator  PlatformRole = "hub_coordinator"
	RoleIndustryPartner PlatformRole = "industry_partner"
	RoleBoardMember     PlatformRole = "board_member"
	RolePlatformAdmin   PlatformRole = "platform_admin"
)

// DefaultRole applies when a profile has no role or an unrecognised one.
const DefaultRole = RolePatientAdvocate

// RoleInfo describes a role for the admin and onboarding screens.
type RoleInfo struct {
	Role        PlatformRole `json:"role"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
}

var roleCatalog = []RoleInfo{
	{RolePatientAdvocate, "Patient Advocate", "Shares lived experience, contributes stories and joins initiatives."},
	{RoleClinician, "Clinician", "Contributes clinical expertise to initiatives and resources."},
	{RoleResearcher, "Researcher", "Contributes research input and reads community reports."},
	{RoleModerator, "Moderator", "Reviews stories and keeps the member directory healthy."},
	{RoleHubCoordinator, "Hub Coordinator", "Runs initiatives, tasks and congress workspaces."},
	{RoleIndustryPartner, "Industry Partner", "Follows initiatives and congress events as an external partner."},
	{RoleBoardMember, "Board Member", "Read access across the organisation for oversight."},
	{RolePlatformAdmin, "Platform Admin", "Administers users, roles and permission overrides."},
}

// Roles returns every platform role in catalog order.
func Roles() []PlatformRole {
	out := make([]PlatformRole, 0, len(roleCatalog))
	for _, info := range roleCatalog {
		out = append(out, info.Role)
	}
	return out
}

// RoleCatalog returns a copy of the role descriptions.
func RoleCatalog() []RoleInfo {
	out := make([]RoleInfo, len(roleCatalog))
	copy(out, roleCatalog)
	return out
}

func (r PlatformRole) Valid() bool {
	for _, info := range roleCatalog {
		if info.Role == r {
			return true
		}
	}
	return false
}

// Label returns the display name of the role.
func (r PlatformRole) Label() string {
	for _, info := range roleCatalog {
		if info.Role == r {
			return info.Label
		}
	}
	return string(r)
}

// ParseRole accepts the stored snake_case value or the display label
// ("Hub Coordinator", "HubCoordinator").
func ParseRole(raw string) (PlatformRole, error) {
	norm := normalizeRole(raw)
	for _, info := range roleCatalog {
		if normalizeRole(string(info.Role)) == norm {
			return info.Role, nil
		}
	}
	return "", invalid(fmt.Sprintf("invalid role %q", raw))
}

// RoleOrDefault never fails: unknown input resolves to DefaultRole.
func RoleOrDefault(raw string) PlatformRole {
	r, err := ParseRole(raw)
	if err != nil {
		return DefaultRole
	}
	return r
}

func normalizeRole(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.NewReplacer("_", "", " ", "", "-", "").Replace(raw)
	return raw
}
