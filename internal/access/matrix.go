package access

// roleMatrix is the compiled-in role to space default. Every role carries an
// entry for every space; DefaultAccess still fails closed on a gap.
var roleMatrix = map[PlatformRole]map[Space]AccessLevel{
	RolePatientAdvocate: {
		SpaceDashboard:   AccessView,
		SpaceInitiatives: AccessView,
		SpaceTasks:       AccessEdit,
		SpaceCongress:    AccessView,
		SpaceStories:     AccessEdit,
		SpacePartners:    AccessInvisible,
		SpaceMembers:     AccessView,
		SpaceResources:   AccessView,
		SpaceReports:     AccessInvisible,
		SpaceAdmin:       AccessInvisible,
	},
	RoleClinician: {
		SpaceDashboard:   AccessView,
		SpaceInitiatives: AccessView,
		SpaceTasks:       AccessEdit,
		SpaceCongress:    AccessView,
		SpaceStories:     AccessView,
		SpacePartners:    AccessInvisible,
		SpaceMembers:     AccessView,
		SpaceResources:   AccessEdit,
		SpaceReports:     AccessInvisible,
		SpaceAdmin:       AccessInvisible,
	},
	RoleResearcher: {
		SpaceDashboard:   AccessView,
		SpaceInitiatives: AccessView,
		SpaceTasks:       AccessEdit,
		SpaceCongress:    AccessView,
		SpaceStories:     AccessView,
		SpacePartners:    AccessInvisible,
		SpaceMembers:     AccessView,
		SpaceResources:   AccessEdit,
		SpaceReports:     AccessView,
		SpaceAdmin:       AccessInvisible,
	},
	RoleModerator: {
		SpaceDashboard:   AccessView,
		SpaceInitiatives: AccessView,
		SpaceTasks:       AccessEdit,
		SpaceCongress:    AccessView,
		SpaceStories:     AccessManage,
		SpacePartners:    AccessInvisible,
		SpaceMembers:     AccessEdit,
		SpaceResources:   AccessEdit,
		SpaceReports:     AccessView,
		SpaceAdmin:       AccessInvisible,
	},
	RoleHubCoordinator: {
		SpaceDashboard:   AccessView,
		SpaceInitiatives: AccessManage,
		SpaceTasks:       AccessManage,
		SpaceCongress:    AccessManage,
		SpaceStories:     AccessEdit,
		SpacePartners:    AccessEdit,
		SpaceMembers:     AccessEdit,
		SpaceResources:   AccessManage,
		SpaceReports:     AccessView,
		SpaceAdmin:       AccessInvisible,
	},
	RoleIndustryPartner: {
		SpaceDashboard:   AccessView,
		SpaceInitiatives: AccessView,
		SpaceTasks:       AccessInvisible,
		SpaceCongress:    AccessView,
		SpaceStories:     AccessInvisible,
		SpacePartners:    AccessView,
		SpaceMembers:     AccessInvisible,
		SpaceResources:   AccessView,
		SpaceReports:     AccessInvisible,
		SpaceAdmin:       AccessInvisible,
	},
	RoleBoardMember: {
		SpaceDashboard:   AccessView,
		SpaceInitiatives: AccessView,
		SpaceTasks:       AccessView,
		SpaceCongress:    AccessView,
		SpaceStories:     AccessView,
		SpacePartners:    AccessView,
		SpaceMembers:     AccessView,
		SpaceResources:   AccessView,
		SpaceReports:     AccessView,
		SpaceAdmin:       AccessInvisible,
	},
	RolePlatformAdmin: {
		SpaceDashboard:   AccessManage,
		SpaceInitiatives: AccessManage,
		SpaceTasks:       AccessManage,
		SpaceCongress:    AccessManage,
		SpaceStories:     AccessManage,
		SpacePartners:    AccessManage,
		SpaceMembers:     AccessManage,
		SpaceResources:   AccessManage,
		SpaceReports:     AccessManage,
		SpaceAdmin:       AccessManage,
	},
}

// DefaultAccess returns the static level for (role, space). Unknown roles are
// treated as DefaultRole; unknown spaces resolve to AccessInvisible.
func DefaultAccess(role PlatformRole, space Space) AccessLevel {
	row, ok := roleMatrix[role]
	if !ok {
		row = roleMatrix[DefaultRole]
	}
	level, ok := row[space]
	if !ok {
		return AccessInvisible
	}
	return level
}

// MatrixRow is one role's defaults, in space order.
type MatrixRow struct {
	Role   PlatformRole          `json:"role"`
	Levels map[Space]AccessLevel `json:"levels"`
}

// Matrix returns a copy of the static defaults for every role and space.
func Matrix() []MatrixRow {
	out := make([]MatrixRow, 0, len(roleCatalog))
	for _, role := range Roles() {
		levels := make(map[Space]AccessLevel, len(spaces))
		for _, s := range spaces {
			levels[s] = DefaultAccess(role, s)
		}
		out = append(out, MatrixRow{Role: role, Levels: levels})
	}
	return out
}
