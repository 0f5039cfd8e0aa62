package access

import (
	"context"
	"time"
)

// Reader is the read side the resolver needs.
type Reader interface {
	// Profile returns ErrNotFound when no profile row exists.
	Profile(ctx context.Context, userID string) (Profile, error)
	// RoleDefaults returns the persisted overrides for one role, keyed by space.
	RoleDefaults(ctx context.Context, role PlatformRole) (map[Space]AccessLevel, error)
	// UserOverrides returns every override row for the user across scopes.
	UserOverrides(ctx context.Context, userID string) ([]PermissionOverride, error)
}

// Store is the full persistence contract behind the admin service.
// Mutations take the acting user so the store can attribute rows and scope
// row-level-security checks to them.
type Store interface {
	Reader

	// SetOverride reads the prior value, upserts the row and appends an audit
	// entry in one transaction.
	SetOverride(ctx context.Context, actorID string, o PermissionOverride) (AuditEntry, error)
	// RemoveOverride deletes the row when present and always appends an audit
	// entry, in one transaction.
	RemoveOverride(ctx context.Context, actorID, userID string, space Space, scope Scope) (AuditEntry, error)
	ListOverrides(ctx context.Context, userID string) ([]PermissionOverride, error)
	AuditLog(ctx context.Context, actorID, targetUserID string, limit int) ([]AuditEntry, error)

	SetRoleDefault(ctx context.Context, actorID string, d RoleDefaultOverride) (RoleDefaultOverride, error)
	// RemoveRoleDefault reports whether a row was deleted.
	RemoveRoleDefault(ctx context.Context, actorID string, role PlatformRole, space Space) (bool, error)
	ListRoleDefaults(ctx context.Context) ([]RoleDefaultOverride, error)
}

// PreviewStore holds the admin "view as role" choice per session. Entries
// expire; an expired or missing entry means no preview.
type PreviewStore interface {
	SetPreview(ctx context.Context, sessionID string, role PlatformRole, ttl time.Duration) error
	Preview(ctx context.Context, sessionID string) (PlatformRole, bool, error)
	ClearPreview(ctx context.Context, sessionID string) error
}

// Notifier is told about committed changes so cached views can refresh.
type Notifier interface {
	PermissionsChanged(ctx context.Context, c Change)
}
