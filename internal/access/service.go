package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"oncohub.org/internal/auth"
)

// DefaultAuditLimit bounds AuditLog when the caller passes no limit.
const DefaultAuditLimit = 100

// Service is the admin mutation surface over overrides. Every call re-loads
// the caller's stored role; a cached or previewed role is never trusted.
type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

type ServiceOption func(*Service)

// WithNotifier registers a subscriber for committed changes.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("access store is required")
	}
	s := &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// authorizeAdmin returns the caller id when the caller's stored role is
// platform_admin.
func (s *Service) authorizeAdmin(ctx context.Context) (string, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", ErrNotAuthenticated
	}
	p, err := s.store.Profile(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", ErrForbidden
	case err != nil:
		return "", fmt.Errorf("load caller profile: %w", err)
	}
	if RoleOrDefault(string(p.Role)) != RolePlatformAdmin {
		return "", ErrForbidden
	}
	return userID, nil
}

func (s *Service) SetPermissionOverride(ctx context.Context, targetUserID string, space Space, level AccessLevel, scope Scope) (AuditEntry, error) {
	actor, err := s.authorizeAdmin(ctx)
	if err != nil {
		return AuditEntry{}, err
	}
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return AuditEntry{}, invalid("targetUserId is required")
	}
	if !space.Valid() {
		return AuditEntry{}, invalid(fmt.Sprintf("invalid space %q", space))
	}
	if !level.Valid() {
		return AuditEntry{}, invalid(fmt.Sprintf("invalid access level %q: expected one of view, edit, manage, invisible", level))
	}
	scope, err = NewScope(scope.Type, scope.ID)
	if err != nil {
		return AuditEntry{}, err
	}
	entry, err := s.store.SetOverride(ctx, actor, PermissionOverride{
		UserID:    targetUserID,
		Space:     space,
		Scope:     scope,
		Level:     level,
		GrantedBy: actor,
	})
	if err != nil {
		return AuditEntry{}, err
	}
	s.notify(ctx, Change{
		Kind:         ChangeKindOverrideSet,
		TargetUserID: targetUserID,
		Space:        space,
		Scope:        &scope,
		Level:        levelPtr(level),
		ChangedBy:    actor,
	})
	return entry, nil
}

// RemovePermissionOverride restores the role default for the key. Removing
// an absent row is not an error and is still audited.
func (s *Service) RemovePermissionOverride(ctx context.Context, targetUserID string, space Space, scope Scope) (AuditEntry, error) {
	actor, err := s.authorizeAdmin(ctx)
	if err != nil {
		return AuditEntry{}, err
	}
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return AuditEntry{}, invalid("targetUserId is required")
	}
	if !space.Valid() {
		return AuditEntry{}, invalid(fmt.Sprintf("invalid space %q", space))
	}
	scope, err = NewScope(scope.Type, scope.ID)
	if err != nil {
		return AuditEntry{}, err
	}
	entry, err := s.store.RemoveOverride(ctx, actor, targetUserID, space, scope)
	if err != nil {
		return AuditEntry{}, err
	}
	s.notify(ctx, Change{
		Kind:         ChangeKindOverrideRemoved,
		TargetUserID: targetUserID,
		Space:        space,
		Scope:        &scope,
		ChangedBy:    actor,
	})
	return entry, nil
}

func (s *Service) SetRoleDefaultOverride(ctx context.Context, role PlatformRole, space Space, level AccessLevel) (RoleDefaultOverride, error) {
	actor, err := s.authorizeAdmin(ctx)
	if err != nil {
		return RoleDefaultOverride{}, err
	}
	role, err = ParseRole(string(role))
	if err != nil {
		return RoleDefaultOverride{}, err
	}
	if !space.Valid() {
		return RoleDefaultOverride{}, invalid(fmt.Sprintf("invalid space %q", space))
	}
	if !level.Valid() {
		return RoleDefaultOverride{}, invalid(fmt.Sprintf("invalid access level %q: expected one of view, edit, manage, invisible", level))
	}
	saved, err := s.store.SetRoleDefault(ctx, actor, RoleDefaultOverride{
		Role:      role,
		Space:     space,
		Level:     level,
		UpdatedBy: actor,
	})
	if err != nil {
		return RoleDefaultOverride{}, err
	}
	s.notify(ctx, Change{
		Kind:      ChangeKindRoleDefaultSet,
		Role:      role,
		Space:     space,
		Level:     levelPtr(level),
		ChangedBy: actor,
	})
	return saved, nil
}

// RemoveRoleDefaultOverride drops the row so the static default applies
// again. It reports whether a row existed.
func (s *Service) RemoveRoleDefaultOverride(ctx context.Context, role PlatformRole, space Space) (bool, error) {
	actor, err := s.authorizeAdmin(ctx)
	if err != nil {
		return false, err
	}
	role, err = ParseRole(string(role))
	if err != nil {
		return false, err
	}
	if !space.Valid() {
		return false, invalid(fmt.Sprintf("invalid space %q", space))
	}
	removed, err := s.store.RemoveRoleDefault(ctx, actor, role, space)
	if err != nil {
		return false, err
	}
	if removed {
		s.notify(ctx, Change{
			Kind:      ChangeKindRoleDefaultRemove,
			Role:      role,
			Space:     space,
			ChangedBy: actor,
		})
	}
	return removed, nil
}

func (s *Service) ListOverrides(ctx context.Context, targetUserID string) ([]PermissionOverride, error) {
	if _, err := s.authorizeAdmin(ctx); err != nil {
		return nil, err
	}
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return nil, invalid("targetUserId is required")
	}
	return s.store.ListOverrides(ctx, targetUserID)
}

func (s *Service) ListRoleDefaults(ctx context.Context) ([]RoleDefaultOverride, error) {
	if _, err := s.authorizeAdmin(ctx); err != nil {
		return nil, err
	}
	return s.store.ListRoleDefaults(ctx)
}

// AuditLog returns the newest entries first.
func (s *Service) AuditLog(ctx context.Context, targetUserID string, limit int) ([]AuditEntry, error) {
	actorID, err := s.authorizeAdmin(ctx)
	if err != nil {
		return nil, err
	}
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return nil, invalid("targetUserId is required")
	}
	if limit <= 0 || limit > 1000 {
		limit = DefaultAuditLimit
	}
	return s.store.AuditLog(ctx, actorID, targetUserID, limit)
}

// IsPlatformAdmin reports whether the context's caller holds the admin role
// in the store.
func (s *Service) IsPlatformAdmin(ctx context.Context) (bool, error) {
	_, err := s.authorizeAdmin(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrForbidden):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) notify(ctx context.Context, c Change) {
	if s.notifier == nil {
		return
	}
	c.OccurredAt = s.now()
	s.notifier.PermissionsChanged(ctx, c)
}
