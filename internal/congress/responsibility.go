package congress

import (
	"strings"

	"oncohub.org/internal/access"
)

type Tone string

const (
	ToneInfo    Tone = "info"
	ToneWarning Tone = "warning"
)

// Summary explains, in words, how a platform role and project roles combine.
// It never changes what the resolver decides.
type Summary struct {
	Tone      Tone          `json:"tone"`
	Message   string        `json:"message"`
	CanEdit   bool          `json:"can_edit"`
	Roles     []ProjectRole `json:"project_roles"`
	RoleLabel string        `json:"platform_role"`
}

// Summarize uses the static congress default for role.
func Summarize(role access.PlatformRole, roles []ProjectRole) Summary {
	role = access.RoleOrDefault(string(role))
	s := SummarizeAccess(access.DefaultAccess(role, access.SpaceCongress), roles)
	s.RoleLabel = role.Label()
	return s
}

// SummarizeAccess is Summarize over an already resolved congress level that
// came from the static role defaults.
func SummarizeAccess(level access.AccessLevel, roles []ProjectRole) Summary {
	return summarize(level, roles, "your platform role")
}

// SummarizeDecision words the summary after the layer that produced d, so an
// override is never credited to the platform role.
func SummarizeDecision(d access.Decision, roles []ProjectRole) Summary {
	if d.Source == access.SourceStatic {
		return SummarizeAccess(d.Level, roles)
	}
	return summarize(d.Level, roles, "your access")
}

func summarize(level access.AccessLevel, roles []ProjectRole, subject string) Summary {
	editor := level.AtLeast(access.AccessEdit)
	held := make([]string, 0, len(roles))
	for _, r := range roles {
		held = append(held, string(r))
	}
	lead := strings.ToUpper(subject[:1]) + subject[1:]
	s := Summary{Tone: ToneInfo, CanEdit: editor, Roles: roles}
	switch {
	case len(held) > 0 && !editor:
		s.Tone = ToneWarning
		s.Message = "You are assigned as " + strings.Join(held, ", ") +
			" for this congress, but " + subject + " is read-only for congress data. Ask a hub coordinator to make changes on your behalf."
	case len(held) == 0 && editor:
		s.Message = lead + " allows editing congress data. You have no project role assigned for this congress."
	case len(held) > 0 && editor:
		s.Message = lead + " allows editing congress data. Your responsibilities: " + strings.Join(held, ", ") + "."
	default:
		s.Message = "No congress project role assignment recorded for you."
	}
	return s
}
