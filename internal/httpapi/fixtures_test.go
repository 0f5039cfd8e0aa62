package httpapi

import (
	"context"
	"strconv"
	"sync"
	"time"

	"oncohub.org/internal/access"
	"oncohub.org/internal/congress"
)

type overrideKey struct {
	userID string
	space  access.Space
	scope  access.Scope
}

type roleKey struct {
	role  access.PlatformRole
	space access.Space
}

// memStore backs the real access services in the API tests.
type memStore struct {
	mu           sync.Mutex
	profiles     map[string]access.Profile
	overrides    map[overrideKey]access.PermissionOverride
	roleDefaults map[roleKey]access.RoleDefaultOverride
	audit        []access.AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		profiles:     map[string]access.Profile{},
		overrides:    map[overrideKey]access.PermissionOverride{},
		roleDefaults: map[roleKey]access.RoleDefaultOverride{},
	}
}

func (m *memStore) addProfile(id string, role access.PlatformRole) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id] = access.Profile{ID: id, Email: id + "@oncohub.test", Role: role}
}

func (m *memStore) Profile(_ context.Context, userID string) (access.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return access.Profile{}, access.ErrNotFound
	}
	return p, nil
}

func (m *memStore) RoleDefaults(_ context.Context, role access.PlatformRole) (map[access.Space]access.AccessLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[access.Space]access.AccessLevel{}
	for k, v := range m.roleDefaults {
		if k.role == role {
			out[k.space] = v.Level
		}
	}
	return out, nil
}

func (m *memStore) UserOverrides(ctx context.Context, userID string) ([]access.PermissionOverride, error) {
	return m.ListOverrides(ctx, userID)
}

func (m *memStore) SetOverride(_ context.Context, actorID string, o access.PermissionOverride) (access.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := overrideKey{o.UserID, o.Space, o.Scope}
	var prev *access.AccessLevel
	if existing, ok := m.overrides[key]; ok {
		l := existing.Level
		prev = &l
	}
	m.overrides[key] = o
	next := o.Level
	return m.appendLocked(actorID, o.UserID, access.ChangeSet, o.Space, o.Scope, prev, &next, ""), nil
}

func (m *memStore) RemoveOverride(_ context.Context, actorID, userID string, space access.Space, scope access.Scope) (access.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := overrideKey{userID, space, scope}
	var prev *access.AccessLevel
	if existing, ok := m.overrides[key]; ok {
		l := existing.Level
		prev = &l
		delete(m.overrides, key)
	}
	return m.appendLocked(actorID, userID, access.ChangeRemove, space, scope, prev, nil, "restored to default"), nil
}

func (m *memStore) appendLocked(actor, target string, ct access.ChangeType, space access.Space, scope access.Scope, prev, next *access.AccessLevel, note string) access.AuditEntry {
	e := access.AuditEntry{
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

func (m *memStore) ListOverrides(_ context.Context, userID string) ([]access.PermissionOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []access.PermissionOverride
	for k, v := range m.overrides {
		if k.userID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) AuditLog(_ context.Context, _, targetUserID string, limit int) ([]access.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []access.AuditEntry
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if m.audit[i].TargetUserID == targetUserID {
			out = append(out, m.audit[i])
		}
	}
	return out, nil
}

func (m *memStore) SetRoleDefault(_ context.Context, actorID string, d access.RoleDefaultOverride) (access.RoleDefaultOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.UpdatedBy = actorID
	m.roleDefaults[roleKey{d.Role, d.Space}] = d
	return d, nil
}

func (m *memStore) RemoveRoleDefault(_ context.Context, _ string, role access.PlatformRole, space access.Space) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := roleKey{role, space}
	_, ok := m.roleDefaults[key]
	delete(m.roleDefaults, key)
	return ok, nil
}

func (m *memStore) ListRoleDefaults(_ context.Context) ([]access.RoleDefaultOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]access.RoleDefaultOverride, 0, len(m.roleDefaults))
	for _, v := range m.roleDefaults {
		out = append(out, v)
	}
	return out, nil
}

// congressStore is an in-memory congress.Store.
type congressStore struct {
	mu          sync.Mutex
	events      map[string]congress.Event
	assignments []congress.Assignment
}

func (c *congressStore) Event(_ context.Context, id string) (congress.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[id]
	if !ok {
		return congress.Event{}, access.ErrNotFound
	}
	return ev, nil
}

func (c *congressStore) Assignments(_ context.Context, congressID, userID string) ([]congress.Assignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []congress.Assignment
	for _, a := range c.assignments {
		if a.CongressID == congressID && (userID == "" || a.UserID == userID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *congressStore) CreateAssignment(_ context.Context, _ string, a congress.Assignment) (congress.Assignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a.ID = "asg-" + strconv.Itoa(len(c.assignments)+1)
	c.assignments = append(c.assignments, a)
	return a, nil
}

func (c *congressStore) SetStage(_ context.Context, _ string, id string, from, to congress.Stage) (congress.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[id]
	if !ok {
		return congress.Event{}, access.ErrNotFound
	}
	if ev.Status != from {
		return congress.Event{}, access.ErrConflict
	}
	ev.Status = to
	c.events[id] = ev
	return ev, nil
}
