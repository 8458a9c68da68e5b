package tenant

import (
	"context"
	"testing"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/apiserver/database/databasetest"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (*Service, *database.Store) {
	store := databasetest.New(t)
	return NewService(store, zap.NewNop()), store
}

func TestService_CreateAndList(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	root := identity.System()

	created, err := svc.Create(ctx, root, "Acme Cleaning", "acme")
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	_, err = svc.Create(ctx, root, "Acme Again", "acme")
	assert.ErrorIs(t, err, errorx.ErrSlugExists)

	for _, slug := range []string{"", "Acme", "a b", "-acme", "acme-"} {
		_, err = svc.Create(ctx, root, "x", slug)
		assert.ErrorIs(t, err, errorx.ErrValidation, slug)
	}

	got, err := svc.Get(ctx, root, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Slug)

	list, total, err := svc.List(ctx, root, database.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestService_Update(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	root := identity.System()

	created, err := svc.Create(ctx, root, "Acme", "acme")
	require.NoError(t, err)

	off := false
	name := "Acme GmbH"
	updated, err := svc.Update(ctx, root, created.ID, UpdateParams{Name: &name, IsActive: &off})
	require.NoError(t, err)
	assert.Equal(t, "Acme GmbH", updated.Name)
	assert.False(t, updated.IsActive)

	system, err := store.InitSystemTenant(ctx)
	require.NoError(t, err)
	_, err = svc.Update(ctx, root, system.ID, UpdateParams{IsActive: &off})
	assert.ErrorIs(t, err, errorx.ErrSystemTenantProtected)

	_, err = svc.Update(ctx, root, "missing", UpdateParams{Name: &name})
	assert.ErrorIs(t, err, errorx.ErrTenantNotFound)
}

func TestService_RequiresSystemSuperadmin(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	admin := databasetest.Tenant(t, store, "acme")

	_, err := svc.Create(ctx, admin, "Other", "other")
	assert.ErrorIs(t, err, errorx.ErrForbidden)
	_, _, err = svc.List(ctx, admin, database.Page{})
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	tenantSuper := identity.New(admin.TenantID, "acme", "u", identity.RoleSuperAdmin)
	_, err = svc.Get(ctx, tenantSuper, admin.TenantID)
	assert.ErrorIs(t, err, errorx.ErrForbidden)
}
