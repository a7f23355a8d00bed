package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"github.com/ssiitsupport/SSI360V2/internal/testutil"
	"github.com/ssiitsupport/SSI360V2/pkg/config"
	"github.com/ssiitsupport/SSI360V2/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(testutil.NewDB(t))
}

func mustTenant(t *testing.T, s *Store, name, domain string) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{Name: name, Domain: domain, IsActive: true}
	require.NoError(t, s.Tenants.Create(context.Background(), tenant))
	return tenant
}

func mustUser(t *testing.T, s *Store, tenantID uuid.UUID, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, FirstName: "Test", LastName: "User", PasswordHash: "x", IsActive: true, TenantID: tenantID}
	require.NoError(t, s.Users.Create(context.Background(), user))
	return user
}

func mustRole(t *testing.T, s *Store, tenantID uuid.UUID, name string) *model.Role {
	t.Helper()
	role := &model.Role{Name: name, IsActive: true, TenantID: tenantID}
	require.NoError(t, s.Roles.Create(context.Background(), role))
	return role
}

func mustPermission(t *testing.T, s *Store, resource, action string) *model.Permission {
	t.Helper()
	perm := &model.Permission{Name: resource + " " + action, Resource: resource, Action: action, IsActive: true}
	require.NoError(t, s.Permissions.Create(context.Background(), perm))
	return perm
}

func TestCreateAssignsIdentityAndAttribution(t *testing.T) {
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")

	assert.NotEqual(t, uuid.Nil, tenant.ID)
	assert.Equal(t, model.SystemActor, tenant.CreatedBy)
	assert.False(t, tenant.CreatedAt.IsZero())
	assert.Nil(t, tenant.UpdatedAt)

	got, err := s.Tenants.GetByID(context.Background(), tenant.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "acme.com", got.Domain)
}

func TestGetByIDMissReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Users.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err := s.Users.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDuplicateDomainIsConflict(t *testing.T) {
	s := newTestStore(t)
	mustTenant(t, s, "Acme", "acme.com")

	err := s.Tenants.Create(context.Background(), &model.Tenant{Name: "Other", Domain: "acme.com", IsActive: true})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	count, err := s.Tenants.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEmailUniquePerTenant(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := mustTenant(t, s, "A", "a.com")
	b := mustTenant(t, s, "B", "b.com")

	mustUser(t, s, a.ID, "bob@x.com")
	mustUser(t, s, b.ID, "bob@x.com")

	err := s.Users.Create(ctx, &model.User{Email: "bob@x.com", PasswordHash: "x", TenantID: a.ID})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	found, err := s.Users.FindByEmail(ctx, "bob@x.com")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, a.ID, found[0].TenantID)

	inB, err := s.Users.GetByEmailInTenant(ctx, "bob@x.com", b.ID)
	require.NoError(t, err)
	require.NotNil(t, inB)
	assert.Equal(t, b.ID, inB.TenantID)
}

func TestUpdateKeepsCreationAttribution(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	createdAt := tenant.CreatedAt

	tenant.Name = "Acme Corp"
	tenant.IsActive = false
	tenant.CreatedBy = "someone-else"
	tenant.Touch("admin@acme.com", time.Now())
	require.NoError(t, s.Tenants.Update(ctx, tenant))

	got, err := s.Tenants.GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.False(t, got.IsActive)
	assert.Equal(t, model.SystemActor, got.CreatedBy)
	assert.WithinDuration(t, createdAt, got.CreatedAt, time.Second)
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, "admin@acme.com", *got.UpdatedBy)
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)
	ghost := &model.Role{Base: model.Base{ID: uuid.New()}, Name: "ghost", TenantID: uuid.New()}

	err := s.Roles.Update(context.Background(), ghost)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListPaginates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	for i := 0; i < 25; i++ {
		mustRole(t, s, tenant.ID, fmt.Sprintf("role-%02d", i))
	}

	page, err := s.Roles.List(ctx, ListQuery{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, int64(25), page.TotalCount)
	assert.Equal(t, 3, page.TotalPages())

	page, err = s.Roles.List(ctx, ListQuery{Page: 4, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, int64(25), page.TotalCount)
}

func TestListNormalizesQuery(t *testing.T) {
	q := ListQuery{Page: 0, PageSize: 0}.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageSize, q.PageSize)

	q = ListQuery{Page: -2, PageSize: 1000}.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, MaxPageSize, q.PageSize)
	assert.Equal(t, 0, q.Offset())

	assert.Equal(t, 20, ListQuery{Page: 3, PageSize: 10}.Offset())
}

func TestListSearchIsCaseInsensitiveSubstring(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustTenant(t, s, "Acme Corporation", "acme.com")
	mustTenant(t, s, "Globex", "globex.io")
	mustTenant(t, s, "Initech", "100%_real.net")

	page, err := s.Tenants.List(ctx, ListQuery{Search: "ACME"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "acme.com", page.Items[0].Domain)

	page, err = s.Tenants.List(ctx, ListQuery{Search: ".io"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Globex", page.Items[0].Name)

	page, err = s.Tenants.List(ctx, ListQuery{Search: "%_"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Initech", page.Items[0].Name)
}

func TestUserListTenantFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := mustTenant(t, s, "A", "a.com")
	b := mustTenant(t, s, "B", "b.com")
	mustUser(t, s, a.ID, "one@a.com")
	mustUser(t, s, a.ID, "two@a.com")
	mustUser(t, s, b.ID, "one@b.com")

	page, err := s.Users.List(ctx, ListQuery{TenantID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount)

	page, err = s.Users.List(ctx, ListQuery{Search: "one"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount)
}

func TestEdgeAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	user := mustUser(t, s, tenant.ID, "u@acme.com")
	role := mustRole(t, s, tenant.ID, "Admin")

	require.NoError(t, s.UserRoles.Add(ctx, user.ID, role.ID, "admin"))
	require.NoError(t, s.UserRoles.Add(ctx, user.ID, role.ID, "admin"))

	ids, err := s.UserRoles.RoleIDsOf(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{role.ID}, ids)

	removed, err := s.UserRoles.Remove(ctx, user.ID, role.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.UserRoles.Remove(ctx, user.ID, role.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeleteRoleCascadesEdges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	user := mustUser(t, s, tenant.ID, "u@acme.com")
	role := mustRole(t, s, tenant.ID, "Editor")
	perm := mustPermission(t, s, "Users", "Read")
	require.NoError(t, s.UserRoles.Add(ctx, user.ID, role.ID, ""))
	require.NoError(t, s.RolePermissions.Add(ctx, role.ID, perm.ID, ""))

	require.NoError(t, s.Roles.Delete(ctx, role.ID))

	roleIDs, err := s.UserRoles.RoleIDsOf(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, roleIDs)
	var grants int64
	require.NoError(t, s.DB().Model(&model.RolePermission{}).Where("permission_id = ?", perm.ID).Count(&grants).Error)
	assert.Zero(t, grants)

	stillThere, err := s.Users.Exists(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stillThere)
}

func TestDeleteUserAndPermissionCascadeEdges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	user := mustUser(t, s, tenant.ID, "u@acme.com")
	role := mustRole(t, s, tenant.ID, "Editor")
	perm := mustPermission(t, s, "Users", "Read")
	require.NoError(t, s.UserRoles.Add(ctx, user.ID, role.ID, ""))
	require.NoError(t, s.RolePermissions.Add(ctx, role.ID, perm.ID, ""))

	require.NoError(t, s.Users.Delete(ctx, user.ID))
	holders, err := s.Users.ListByRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, holders)

	require.NoError(t, s.Permissions.Delete(ctx, perm.ID))
	permIDs, err := s.RolePermissions.PermissionIDsOf(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, permIDs)
}

func TestListByRole(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	ann := mustUser(t, s, tenant.ID, "ann@acme.com")
	bob := mustUser(t, s, tenant.ID, "bob@acme.com")
	mustUser(t, s, tenant.ID, "cy@acme.com")
	role := mustRole(t, s, tenant.ID, "Editor")
	require.NoError(t, s.UserRoles.Add(ctx, ann.ID, role.ID, ""))
	require.NoError(t, s.UserRoles.Add(ctx, bob.ID, role.ID, ""))

	users, err := s.Users.ListByRole(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, ann.ID, users[0].ID)
	assert.Equal(t, bob.ID, users[1].ID)
}

func TestForeignKeysRejectDanglingReferences(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	orphan := &model.User{Email: "u@nowhere.com", PasswordHash: "x", IsActive: true, TenantID: uuid.New()}
	err := s.Users.Create(ctx, orphan)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid), "got %v", err)

	err = s.Roles.Create(ctx, &model.Role{Name: "Ghost", IsActive: true, TenantID: uuid.New()})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid), "got %v", err)

	err = s.UserRoles.Add(ctx, uuid.New(), uuid.New(), "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid), "got %v", err)

	err = s.RolePermissions.Add(ctx, uuid.New(), uuid.New(), "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid), "got %v", err)

	var edges int64
	require.NoError(t, s.DB().Model(&model.UserRole{}).Count(&edges).Error)
	assert.Zero(t, edges)
}

func TestForeignKeysGuardRawDeletes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	user := mustUser(t, s, tenant.ID, "u@acme.com")
	role := mustRole(t, s, tenant.ID, "Editor")
	require.NoError(t, s.UserRoles.Add(ctx, user.ID, role.ID, ""))

	// a tenant with members cannot be removed even bypassing the repository
	err := s.DB().Where("id = ?", tenant.ID).Delete(&model.Tenant{}).Error
	require.Error(t, err)
	stillThere, err := s.Tenants.Exists(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, stillThere)

	// removing a role drops its assignments with it
	require.NoError(t, s.DB().Where("id = ?", role.ID).Delete(&model.Role{}).Error)
	ids, err := s.UserRoles.RoleIDsOf(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDeleteTenantRestricted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	user := mustUser(t, s, tenant.ID, "u@acme.com")

	err := s.Tenants.Delete(ctx, tenant.ID)
	assert.ErrorIs(t, err, apperr.ErrTenantInUse)

	require.NoError(t, s.Users.Delete(ctx, user.ID))
	role := mustRole(t, s, tenant.ID, "Viewer")
	assert.ErrorIs(t, s.Tenants.Delete(ctx, tenant.ID), apperr.ErrTenantInUse)

	require.NoError(t, s.Roles.Delete(ctx, role.ID))
	require.NoError(t, s.Tenants.Delete(ctx, tenant.ID))

	got, err := s.Tenants.GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListForUserOnlyActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	user := mustUser(t, s, tenant.ID, "u@acme.com")
	r1 := mustRole(t, s, tenant.ID, "R1")
	r2 := mustRole(t, s, tenant.ID, "R2")
	p1 := mustPermission(t, s, "Users", "Read")
	p2 := mustPermission(t, s, "Users", "Create")
	p3 := mustPermission(t, s, "Roles", "Read")

	require.NoError(t, s.UserRoles.Add(ctx, user.ID, r1.ID, ""))
	require.NoError(t, s.UserRoles.Add(ctx, user.ID, r2.ID, ""))
	require.NoError(t, s.RolePermissions.Add(ctx, r1.ID, p1.ID, ""))
	require.NoError(t, s.RolePermissions.Add(ctx, r1.ID, p2.ID, ""))
	require.NoError(t, s.RolePermissions.Add(ctx, r2.ID, p2.ID, ""))
	require.NoError(t, s.RolePermissions.Add(ctx, r2.ID, p3.ID, ""))

	perms, err := s.Permissions.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, perms, 3)

	r2.IsActive = false
	require.NoError(t, s.Roles.Update(ctx, r2))
	p1.IsActive = false
	require.NoError(t, s.Permissions.Update(ctx, p1))

	perms, err = s.Permissions.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "Users:Create", perms[0].Key())
}

func TestExpandUsersAndRoles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	alice := mustUser(t, s, tenant.ID, "alice@acme.com")
	bob := mustUser(t, s, tenant.ID, "bob@acme.com")
	admin := mustRole(t, s, tenant.ID, "Admin")
	perm := mustPermission(t, s, "Users", "Read")
	require.NoError(t, s.UserRoles.Add(ctx, alice.ID, admin.ID, ""))
	require.NoError(t, s.RolePermissions.Add(ctx, admin.ID, perm.ID, ""))

	users, err := s.Users.Expand(ctx, *alice, *bob)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.NotNil(t, users[0].Tenant)
	assert.Equal(t, "acme.com", users[0].Tenant.Domain)
	require.Len(t, users[0].Roles, 1)
	assert.Equal(t, "Admin", users[0].Roles[0].Name)
	assert.NotNil(t, users[1].Roles)
	assert.Empty(t, users[1].Roles)

	roles, err := s.Roles.Expand(ctx, *admin)
	require.NoError(t, err)
	require.Len(t, roles[0].Permissions, 1)
	assert.Equal(t, perm.ID, roles[0].Permissions[0].ID)

	byUser, err := s.Roles.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	byRole, err := s.Users.ListByRole(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, byRole, 1)
	assert.Equal(t, alice.ID, byRole[0].ID)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Store) error {
		require.NoError(t, tx.Tenants.Create(ctx, &model.Tenant{Name: "Acme", Domain: "acme.com", IsActive: true}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Tenants.GetByDomain(ctx, "acme.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetLastLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tenant := mustTenant(t, s, "Acme", "acme.com")
	user := mustUser(t, s, tenant.ID, "u@acme.com")
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Users.SetLastLogin(ctx, user.ID, at))

	got, err := s.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := database.Open(postgres.New(postgres.Config{Conn: sqlDB}), &config.DBConfig{LogLevel: "silent"})
	require.NoError(t, err)
	return New(db), mock
}

func TestPostgresUniqueViolationIsConflict(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE "tenants"`).WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	tenant := &model.Tenant{Base: model.Base{ID: uuid.New()}, Name: "Acme", Domain: "taken.com"}
	err := s.Tenants.Update(context.Background(), tenant)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorageFailureIsInternal(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .* FROM "users"`).WillReturnError(errors.New("connection reset"))

	_, err := s.Users.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
