package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Resolver computes effective access. It is the single place routes consult;
// callers never re-derive access from the role directly.
type Resolver struct {
	reader Reader
}

func NewResolver(reader Reader) (*Resolver, error) {
	if reader == nil {
		return nil, errors.New("access reader is required")
	}
	return &Resolver{reader: reader}, nil
}

// RoleOf loads the stored role for userID. Missing profiles and unknown role
// values resolve to DefaultRole. The email on the profile is never consulted.
func (r *Resolver) RoleOf(ctx context.Context, userID string) (PlatformRole, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrNotAuthenticated
	}
	p, err := r.reader.Profile(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		return DefaultRole, nil
	case err != nil:
		return "", fmt.Errorf("load profile: %w", err)
	}
	return RoleOrDefault(string(p.Role)), nil
}

// Resolve returns the effective level for (userID, space, scope):
// static default, replaced by a role-default override, replaced by the
// user's override for the scope. A scoped request with no scoped row falls
// back to the user's global override.
func (r *Resolver) Resolve(ctx context.Context, userID string, space Space, scope Scope) (Decision, error) {
	if err := ValidateScope(scope.Type, scope.ID); err != nil {
		return Decision{}, err
	}
	role, err := r.RoleOf(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	defaults, err := r.roleDefaults(ctx, role)
	if err != nil {
		return Decision{}, err
	}
	overrides, err := r.reader.UserOverrides(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("load overrides: %w", err)
	}
	return decide(role, space, normalizeScope(scope), defaults, overrides), nil
}

// ResolveAll resolves every space for one scope, in space order.
func (r *Resolver) ResolveAll(ctx context.Context, userID string, scope Scope) (map[Space]Decision, error) {
	if err := ValidateScope(scope.Type, scope.ID); err != nil {
		return nil, err
	}
	role, err := r.RoleOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	defaults, err := r.roleDefaults(ctx, role)
	if err != nil {
		return nil, err
	}
	overrides, err := r.reader.UserOverrides(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	scope = normalizeScope(scope)
	out := make(map[Space]Decision, len(spaces))
	for _, s := range spaces {
		out[s] = decide(role, s, scope, defaults, overrides)
	}
	return out, nil
}

// RoleView resolves the role layers only. It backs the admin preview, where
// no user-specific override should leak into what the role would see.
func (r *Resolver) RoleView(ctx context.Context, role PlatformRole) (map[Space]Decision, error) {
	role = RoleOrDefault(string(role))
	defaults, err := r.roleDefaults(ctx, role)
	if err != nil {
		return nil, err
	}
	out := make(map[Space]Decision, len(spaces))
	for _, s := range spaces {
		out[s] = decide(role, s, Global, defaults, nil)
	}
	return out, nil
}

// Require returns ErrForbidden when the effective level is below min.
func (r *Resolver) Require(ctx context.Context, userID string, space Space, scope Scope, min AccessLevel) (Decision, error) {
	d, err := r.Resolve(ctx, userID, space, scope)
	if err != nil {
		return Decision{}, err
	}
	if !d.Allows(min) {
		return d, ErrForbidden
	}
	return d, nil
}

// roleDefaults treats a missing role_default_overrides table as "no
// overrides" so reads keep working before the migration is applied.
func (r *Resolver) roleDefaults(ctx context.Context, role PlatformRole) (map[Space]AccessLevel, error) {
	defaults, err := r.reader.RoleDefaults(ctx, role)
	if errors.Is(err, ErrMigrationRequired) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load role defaults: %w", err)
	}
	return defaults, nil
}

func decide(role PlatformRole, space Space, scope Scope, defaults map[Space]AccessLevel, overrides []PermissionOverride) Decision {
	d := Decision{Space: space, Role: role, Level: DefaultAccess(role, space), Source: SourceStatic}
	if !space.Valid() {
		d.Level = AccessInvisible
		return d
	}
	if lvl, ok := defaults[space]; ok {
		d.Level, d.Source = lvl, SourceRoleDefault
	}
	var global, scoped *PermissionOverride
	for i := range overrides {
		o := &overrides[i]
		if o.Space != space {
			continue
		}
		switch {
		case o.Scope.IsGlobal():
			global = o
		case !scope.IsGlobal() && o.Scope == scope:
			scoped = o
		}
	}
	switch {
	case scoped != nil:
		d.Level, d.Source = scoped.Level, SourceUserScoped
	case global != nil:
		d.Level, d.Source = global.Level, SourceUserGlobal
	}
	if !d.Level.Valid() {
		d.Level = AccessInvisible
	}
	return d
}

func normalizeScope(s Scope) Scope {
	if s.Type == "" {
		s.Type = ScopeGlobal
	}
	s.ID = strings.TrimSpace(s.ID)
	return s
}
