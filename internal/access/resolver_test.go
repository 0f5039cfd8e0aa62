package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, store *memStore) *Resolver {
	t.Helper()
	r, err := NewResolver(store)
	require.NoError(t, err)
	return r
}

func TestResolvePrecedence(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addProfile("u1", "u1@example.org", RolePatientAdvocate)
	r := newTestResolver(t, store)

	// patient advocates view initiatives by default
	d, err := r.Resolve(ctx, "u1", SpaceInitiatives, Global)
	require.NoError(t, err)
	assert.Equal(t, AccessView, d.Level)
	assert.Equal(t, SourceStatic, d.Source)

	store.roleDefaults[roleKey{RolePatientAdvocate, SpaceInitiatives}] = RoleDefaultOverride{Role: RolePatientAdvocate, Space: SpaceInitiatives, Level: AccessEdit}
	d, err = r.Resolve(ctx, "u1", SpaceInitiatives, Global)
	require.NoError(t, err)
	assert.Equal(t, AccessEdit, d.Level)
	assert.Equal(t, SourceRoleDefault, d.Source)

	key := overrideKey{"u1", SpaceInitiatives, Global}
	store.overrides[key] = PermissionOverride{UserID: "u1", Space: SpaceInitiatives, Scope: Global, Level: AccessManage}
	d, err = r.Resolve(ctx, "u1", SpaceInitiatives, Global)
	require.NoError(t, err)
	assert.Equal(t, AccessManage, d.Level)
	assert.Equal(t, SourceUserGlobal, d.Source)

	delete(store.overrides, key)
	d, err = r.Resolve(ctx, "u1", SpaceInitiatives, Global)
	require.NoError(t, err)
	assert.Equal(t, AccessEdit, d.Level, "removing the user override falls back to the role default override")
}

func TestResolveOverrideCanLowerAccess(t *testing.T) {
	store := newMemStore()
	store.addProfile("u1", "", RoleHubCoordinator)
	store.overrides[overrideKey{"u1", SpaceTasks, Global}] = PermissionOverride{UserID: "u1", Space: SpaceTasks, Scope: Global, Level: AccessInvisible}
	d, err := newTestResolver(t, store).Resolve(context.Background(), "u1", SpaceTasks, Global)
	require.NoError(t, err)
	assert.Equal(t, AccessInvisible, d.Level)
}

func TestResolveScopedOverrides(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addProfile("u1", "", RoleClinician)
	c1 := CongressScope("c1")
	store.overrides[overrideKey{"u1", SpaceCongress, c1}] = PermissionOverride{UserID: "u1", Space: SpaceCongress, Scope: c1, Level: AccessEdit}
	r := newTestResolver(t, store)

	d, err := r.Resolve(ctx, "u1", SpaceCongress, c1)
	require.NoError(t, err)
	assert.Equal(t, AccessEdit, d.Level)
	assert.Equal(t, SourceUserScoped, d.Source)

	d, err = r.Resolve(ctx, "u1", SpaceCongress, CongressScope("c2"))
	require.NoError(t, err)
	assert.Equal(t, AccessView, d.Level, "a scoped row never leaks to another instance")

	d, err = r.Resolve(ctx, "u1", SpaceCongress, Global)
	require.NoError(t, err)
	assert.Equal(t, AccessView, d.Level, "a scoped row never applies to a global check")

	store.overrides[overrideKey{"u1", SpaceCongress, Global}] = PermissionOverride{UserID: "u1", Space: SpaceCongress, Scope: Global, Level: AccessInvisible}
	d, err = r.Resolve(ctx, "u1", SpaceCongress, CongressScope("c2"))
	require.NoError(t, err)
	assert.Equal(t, AccessInvisible, d.Level)
	assert.Equal(t, SourceUserGlobal, d.Source)

	d, err = r.Resolve(ctx, "u1", SpaceCongress, c1)
	require.NoError(t, err)
	assert.Equal(t, AccessEdit, d.Level, "the scoped row is more specific than the global row")
}

func TestResolveRejectsMismatchedScope(t *testing.T) {
	store := newMemStore()
	store.addProfile("u1", "", RoleClinician)
	r := newTestResolver(t, store)
	_, err := r.Resolve(context.Background(), "u1", SpaceCongress, Scope{Type: ScopeGlobal, ID: "c1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = r.Resolve(context.Background(), "u1", SpaceCongress, Scope{Type: ScopeCongress})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResolveUnknownRoleAndSpace(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addProfile("u1", "", PlatformRole("overlord"))
	r := newTestResolver(t, store)

	d, err := r.Resolve(ctx, "u1", SpaceStories, Global)
	require.NoError(t, err)
	assert.Equal(t, RolePatientAdvocate, d.Role)
	assert.Equal(t, AccessEdit, d.Level)

	d, err = r.Resolve(ctx, "u1", Space("billing"), Global)
	require.NoError(t, err)
	assert.Equal(t, AccessInvisible, d.Level)

	d, err = r.Resolve(ctx, "ghost", SpaceDashboard, Global)
	require.NoError(t, err)
	assert.Equal(t, RolePatientAdvocate, d.Role, "missing profile resolves to the default role")

	_, err = r.Resolve(ctx, "", SpaceDashboard, Global)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRoleResolutionIgnoresEmail(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addProfile("u1", "admin@oncohub.org", RolePatientAdvocate)
	store.addProfile("u2", "founder@oncohub.org", RolePatientAdvocate)
	r := newTestResolver(t, store)
	for _, id := range []string{"u1", "u2"} {
		role, err := r.RoleOf(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, RolePatientAdvocate, role)
		d, err := r.Resolve(ctx, id, SpaceAdmin, Global)
		require.NoError(t, err)
		assert.Equal(t, AccessInvisible, d.Level)
	}
}

func TestResolveToleratesMissingRoleDefaultsTable(t *testing.T) {
	store := newMemStore()
	store.addProfile("u1", "", RoleModerator)
	store.roleDefaultErr = &MigrationError{Table: "role_default_overrides", Migration: "0003"}
	d, err := newTestResolver(t, store).Resolve(context.Background(), "u1", SpaceStories, Global)
	require.NoError(t, err)
	assert.Equal(t, AccessManage, d.Level)
	assert.Equal(t, SourceStatic, d.Source)
}

func TestResolveAllAndRoleView(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addProfile("u1", "", RoleIndustryPartner)
	store.roleDefaults[roleKey{RoleIndustryPartner, SpaceReports}] = RoleDefaultOverride{Role: RoleIndustryPartner, Space: SpaceReports, Level: AccessView}
	store.overrides[overrideKey{"u1", SpaceTasks, Global}] = PermissionOverride{UserID: "u1", Space: SpaceTasks, Scope: Global, Level: AccessEdit}
	r := newTestResolver(t, store)

	all, err := r.ResolveAll(ctx, "u1", Global)
	require.NoError(t, err)
	assert.Len(t, all, len(Spaces()))
	assert.Equal(t, AccessView, all[SpaceReports].Level)
	assert.Equal(t, AccessEdit, all[SpaceTasks].Level)

	view, err := r.RoleView(ctx, RoleIndustryPartner)
	require.NoError(t, err)
	assert.Equal(t, AccessView, view[SpaceReports].Level)
	assert.Equal(t, AccessInvisible, view[SpaceTasks].Level, "role view excludes user overrides")

	var spaces []Space
	for _, item := range Navigation(all) {
		spaces = append(spaces, item.Space)
	}
	assert.Contains(t, spaces, SpaceTasks)
	assert.NotContains(t, spaces, SpaceAdmin)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addProfile("u1", "", RoleBoardMember)
	r := newTestResolver(t, store)

	_, err := r.Require(ctx, "u1", SpaceReports, Global, AccessView)
	assert.NoError(t, err)
	d, err := r.Require(ctx, "u1", SpaceReports, Global, AccessEdit)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, AccessView, d.Level)
}
