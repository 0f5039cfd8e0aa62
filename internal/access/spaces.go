package access

import "fmt"

// Space is a functional area of the product subject to access control.
type Space string

const (
	SpaceDashboard   Space = "dashboard"
	SpaceInitiatives Space = "initiatives"
	SpaceTasks       Space = "tasks"
	SpaceCongress    Space = "congress"
	SpaceStories     Space = "stories"
	SpacePartners    Space = "partners"
	SpaceMembers     Space = "members"
	SpaceResources   Space = "resources"
	SpaceReports     Space = "reports"
	SpaceAdmin       Space = "admin"
)

var spaces = []Space{
	SpaceDashboard,
	SpaceInitiatives,
	SpaceTasks,
	SpaceCongress,
	SpaceStories,
	SpacePartners,
	SpaceMembers,
	SpaceResources,
	SpaceReports,
	SpaceAdmin,
}

// Spaces returns the closed set of spaces in navigation order.
func Spaces() []Space {
	out := make([]Space, len(spaces))
	copy(out, spaces)
	return out
}

func (s Space) Valid() bool {
	for _, known := range spaces {
		if known == s {
			return true
		}
	}
	return false
}

func ParseSpace(raw string) (Space, error) {
	s := Space(raw)
	if !s.Valid() {
		return "", invalid(fmt.Sprintf("invalid space %q", raw))
	}
	return s, nil
}
