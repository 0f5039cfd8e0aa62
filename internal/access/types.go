package access

import "time"

// Profile is the slice of a user profile the access layer reads.
type Profile struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	DisplayName string       `json:"display_name,omitempty"`
	Role        PlatformRole `json:"role"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PermissionOverride is a per-user exception to the role defaults. The key is
// (UserID, Space, Scope); the global row and each scoped row are independent.
type PermissionOverride struct {
	UserID    string      `json:"user_id"`
	Space     Space       `json:"space"`
	Scope     Scope       `json:"scope"`
	Level     AccessLevel `json:"access_level"`
	GrantedBy string      `json:"granted_by"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RoleDefaultOverride replaces the static default for (Role, Space)
// platform-wide.
type RoleDefaultOverride struct {
	Role      PlatformRole `json:"role"`
	Space     Space        `json:"space"`
	Level     AccessLevel  `json:"access_level"`
	UpdatedBy string       `json:"updated_by"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type ChangeType string

const (
	ChangeSet    ChangeType = "set"
	ChangeRemove ChangeType = "remove"
)

// AuditEntry records one write to a user's overrides. NewValue is nil for
// removals; PreviousValue is nil when no row existed.
type AuditEntry struct {
	ID            string       `json:"id"`
	TargetUserID  string       `json:"target_user_id"`
	ChangedBy     string       `json:"changed_by"`
	ChangeType    ChangeType   `json:"change_type"`
	Space         Space        `json:"space"`
	Scope         Scope        `json:"scope"`
	PreviousValue *AccessLevel `json:"previous_value"`
	NewValue      *AccessLevel `json:"new_value"`
	Note          string       `json:"note,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

// Source names the layer that produced a resolved level.
type Source string

const (
	SourceStatic      Source = "static"
	SourceRoleDefault Source = "role_default"
	SourceUserGlobal  Source = "user_global"
	SourceUserScoped  Source = "user_scoped"
)

// Decision is the outcome of resolving one (user, space, scope).
type Decision struct {
	Space  Space        `json:"space"`
	Role   PlatformRole `json:"role"`
	Level  AccessLevel  `json:"access_level"`
	Source Source       `json:"source"`
}

// Allows reports whether the decision grants at least min.
func (d Decision) Allows(min AccessLevel) bool { return d.Level.AtLeast(min) }

// Change describes a committed permission mutation for subscribers that
// cache resolved access.
type Change struct {
	Kind         string       `json:"kind"`
	TargetUserID string       `json:"target_user_id,omitempty"`
	Role         PlatformRole `json:"role,omitempty"`
	Space        Space        `json:"space"`
	Scope        *Scope       `json:"scope,omitempty"`
	Level        *AccessLevel `json:"access_level"`
	ChangedBy    string       `json:"changed_by"`
	OccurredAt   time.Time    `json:"occurred_at"`
}

const (
	ChangeKindOverrideSet       = "permission_override.set"
	ChangeKindOverrideRemoved   = "permission_override.removed"
	ChangeKindRoleDefaultSet    = "role_default.set"
	ChangeKindRoleDefaultRemove = "role_default.removed"
)

func levelPtr(l AccessLevel) *AccessLevel { return &l }
