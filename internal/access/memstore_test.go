package access

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

type overrideKey struct {
	userID string
	space  Space
	scope  Scope
}

type roleKey struct {
	role  PlatformRole
	space Space
}

// memStore is an in-memory Store used by the package tests.
type memStore struct {
	mu           sync.Mutex
	profiles     map[string]Profile
	roleDefaults map[roleKey]RoleDefaultOverride
	overrides    map[overrideKey]PermissionOverride
	audit        []AuditEntry

	roleDefaultErr error
	profileLoads   int
	auditReader    string
}

func newMemStore() *memStore {
	return &memStore{
		profiles:     map[string]Profile{},
		roleDefaults: map[roleKey]RoleDefaultOverride{},
		overrides:    map[overrideKey]PermissionOverride{},
	}
}

func (m *memStore) addProfile(id, email string, role PlatformRole) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id] = Profile{ID: id, Email: email, Role: role}
}

func (m *memStore) Profile(_ context.Context, userID string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileLoads++
	p, ok := m.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *memStore) RoleDefaults(_ context.Context, role PlatformRole) (map[Space]AccessLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roleDefaultErr != nil {
		return nil, m.roleDefaultErr
	}
	out := map[Space]AccessLevel{}
	for k, v := range m.roleDefaults {
		if k.role == role {
			out[k.space] = v.Level
		}
	}
	return out, nil
}

func (m *memStore) UserOverrides(_ context.Context, userID string) ([]PermissionOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userOverridesLocked(userID), nil
}

func (m *memStore) userOverridesLocked(userID string) []PermissionOverride {
	var out []PermissionOverride
	for k, v := range m.overrides {
		if k.userID == userID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Space != out[j].Space {
			return out[i].Space < out[j].Space
		}
		return out[i].Scope.String() < out[j].Scope.String()
	})
	return out
}

func (m *memStore) SetOverride(_ context.Context, actorID string, o PermissionOverride) (AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := overrideKey{o.UserID, o.Space, o.Scope}
	var prev *AccessLevel
	if existing, ok := m.overrides[key]; ok {
		prev = levelPtr(existing.Level)
	}
	m.overrides[key] = o
	return m.appendAuditLocked(actorID, o.UserID, ChangeSet, o.Space, o.Scope, prev, levelPtr(o.Level), ""), nil
}

func (m *memStore) RemoveOverride(_ context.Context, actorID, userID string, space Space, scope Scope) (AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := overrideKey{userID, space, scope}
	var prev *AccessLevel
	if existing, ok := m.overrides[key]; ok {
		prev = levelPtr(existing.Level)
		delete(m.overrides, key)
	}
	return m.appendAuditLocked(actorID, userID, ChangeRemove, space, scope, prev, nil, "restored to default"), nil
}

func (m *memStore) appendAuditLocked(actor, target string, ct ChangeType, space Space, scope Scope, prev, next *AccessLevel, note string) AuditEntry {
	e := AuditEntry{
		ID:            strconv.Itoa(len(m.audit) + 1),
		TargetUserID:  target,
		ChangedBy:     actor,
		ChangeType:    ct,
		Space:         space,
		Scope:         scope,
		PreviousValue: prev,
		NewValue:      next,
		Note:          note,
		OccurredAt:    time.Now().UTC(),
	}
	m.audit = append(m.audit, e)
	return e
}

func (m *memStore) ListOverrides(_ context.Context, userID string) ([]PermissionOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userOverridesLocked(userID), nil
}

func (m *memStore) AuditLog(_ context.Context, actorID, targetUserID string, limit int) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditReader = actorID
	var out []AuditEntry
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if m.audit[i].TargetUserID == targetUserID {
			out = append(out, m.audit[i])
		}
	}
	return out, nil
}

func (m *memStore) SetRoleDefault(_ context.Context, actorID string, d RoleDefaultOverride) (RoleDefaultOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roleDefaultErr != nil {
		return RoleDefaultOverride{}, m.roleDefaultErr
	}
	d.UpdatedBy = actorID
	m.roleDefaults[roleKey{d.Role, d.Space}] = d
	return d, nil
}

func (m *memStore) RemoveRoleDefault(_ context.Context, _ string, role PlatformRole, space Space) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roleDefaultErr != nil {
		return false, m.roleDefaultErr
	}
	key := roleKey{role, space}
	_, ok := m.roleDefaults[key]
	delete(m.roleDefaults, key)
	return ok, nil
}

func (m *memStore) ListRoleDefaults(_ context.Context) ([]RoleDefaultOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RoleDefaultOverride, 0, len(m.roleDefaults))
	for _, v := range m.roleDefaults {
		out = append(out, v)
	}
	return out, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingNotifier) PermissionsChanged(_ context.Context, c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}
