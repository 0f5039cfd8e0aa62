package access

import (
	"fmt"
	"strings"
)

// AccessLevel is an ordered permission grade for a space.
type AccessLevel int

const (
	AccessInvisible AccessLevel = iota
	AccessView
	AccessEdit
	AccessManage
)

var levelNames = [...]string{
	AccessInvisible: "invisible",
	AccessView:      "view",
	AccessEdit:      "edit",
	AccessManage:    "manage",
}

// AccessLevels lists every level from lowest to highest.
func AccessLevels() []AccessLevel {
	return []AccessLevel{AccessInvisible, AccessView, AccessEdit, AccessManage}
}

func (l AccessLevel) String() string {
	if l < AccessInvisible || l > AccessManage {
		return fmt.Sprintf("AccessLevel(%d)", int(l))
	}
	return levelNames[l]
}

// Valid reports whether l is one of the four defined levels.
func (l AccessLevel) Valid() bool {
	return l >= AccessInvisible && l <= AccessManage
}

// Compare returns -1, 0 or 1 following invisible < view < edit < manage.
func (l AccessLevel) Compare(other AccessLevel) int {
	switch {
	case l < other:
		return -1
	case l > other:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l grants everything min grants.
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return l.Valid() && l >= min
}

// Visible is shorthand for AtLeast(AccessView).
func (l AccessLevel) Visible() bool { return l.AtLeast(AccessView) }

// Max returns the higher of two levels.
func Max(a, b AccessLevel) AccessLevel {
	if a > b {
		return a
	}
	return b
}

// ParseAccessLevel converts the stored text form into an AccessLevel.
func ParseAccessLevel(raw string) (AccessLevel, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "invisible":
		return AccessInvisible, nil
	case "view":
		return AccessView, nil
	case "edit":
		return AccessEdit, nil
	case "manage":
		return AccessManage, nil
	}
	return AccessInvisible, invalid(fmt.Sprintf("invalid access level %q: expected one of view, edit, manage, invisible", raw))
}

// LevelOrInvisible parses raw and fails closed on unknown input.
func LevelOrInvisible(raw string) AccessLevel {
	l, err := ParseAccessLevel(raw)
	if err != nil {
		return AccessInvisible
	}
	return l
}

func (l AccessLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("access: cannot marshal %s", l)
	}
	return []byte(l.String()), nil
}

func (l *AccessLevel) UnmarshalText(text []byte) error {
	v, err := ParseAccessLevel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
