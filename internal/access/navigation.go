package access

// NavItem is one entry of the primary navigation.
type NavItem struct {
	Space  Space       `json:"space"`
	Label  string      `json:"label"`
	Path   string      `json:"path"`
	Level  AccessLevel `json:"access_level"`
	Source Source      `json:"source"`
}

var spaceNav = map[Space]struct{ label, path string }{
	SpaceDashboard:   {"Dashboard", "/dashboard"},
	SpaceInitiatives: {"Initiatives", "/initiatives"},
	SpaceTasks:       {"Tasks", "/tasks"},
	SpaceCongress:    {"Congress", "/congress"},
	SpaceStories:     {"Stories", "/stories"},
	SpacePartners:    {"Partners", "/partners"},
	SpaceMembers:     {"Members", "/members"},
	SpaceResources:   {"Resources", "/resources"},
	SpaceReports:     {"Reports", "/reports"},
	SpaceAdmin:       {"Admin", "/admin"},
}

// Navigation lists the visible spaces in navigation order.
func Navigation(decisions map[Space]Decision) []NavItem {
	items := make([]NavItem, 0, len(spaces))
	for _, s := range spaces {
		d, ok := decisions[s]
		if !ok || !d.Level.Visible() {
			continue
		}
		nav := spaceNav[s]
		items = append(items, NavItem{
			Space:  s,
			Label:  nav.label,
			Path:   nav.path,
			Level:  d.Level,
			Source: d.Source,
		})
	}
	return items
}

// DefaultNavigation is the navigation a role gets from the static matrix.
func DefaultNavigation(role PlatformRole) []NavItem {
	role = RoleOrDefault(string(role))
	decisions := make(map[Space]Decision, len(spaces))
	for _, s := range spaces {
		decisions[s] = Decision{Space: s, Role: role, Level: DefaultAccess(role, s), Source: SourceStatic}
	}
	return Navigation(decisions)
}
