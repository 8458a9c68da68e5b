package identity

import (
	"testing"

	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/stretchr/testify/assert"
)

func TestNew_BypassOnlyForSystemSuperadmin(t *testing.T) {
	assert.True(t, New("t0", SystemTenantSlug, "u", RoleSuperAdmin).BypassTenant)
	assert.False(t, New("t1", "acme", "u", RoleSuperAdmin).BypassTenant)
	assert.False(t, New("t0", SystemTenantSlug, "u", RoleAdmin).BypassTenant)
}

func TestRequireWrite(t *testing.T) {
	assert.NoError(t, Caller{Role: RoleAdmin}.RequireWrite())
	assert.NoError(t, Caller{Role: RoleSuperAdmin}.RequireWrite())
	assert.ErrorIs(t, Caller{Role: RoleUser}.RequireWrite(), errorx.ErrForbidden)
}

func TestRequireSuperAdmin(t *testing.T) {
	assert.NoError(t, System().RequireSuperAdmin())
	assert.ErrorIs(t, New("t1", "acme", "u", RoleSuperAdmin).RequireSuperAdmin(), errorx.ErrForbidden)
}

func TestForTenant(t *testing.T) {
	c := System().ForTenant("t9")
	assert.Equal(t, "t9", c.TenantID)
	assert.False(t, c.BypassTenant)
	assert.True(t, c.CanWrite())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("owner").Valid())
}
