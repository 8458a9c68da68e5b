// Package identity carries the authenticated caller into every service call.
package identity

import (
	"github.com/amoylab/cleanbill/internal/common/errorx"
)

// Role is the caller's permission level
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// SystemTenantSlug is the slug of the tenant hosting superadmins
const SystemTenantSlug = "system"

// Caller is an already-authenticated identity. BypassTenant lifts tenant
// scoping and is only ever set for superadmins.
type Caller struct {
	TenantID     string
	UserID       string
	Role         Role
	BypassTenant bool
}

// New builds a caller, granting the tenant bypass to superadmins of the system tenant
func New(tenantID, tenantSlug, userID string, role Role) Caller {
	return Caller{
		TenantID:     tenantID,
		UserID:       userID,
		Role:         role,
		BypassTenant: role == RoleSuperAdmin && tenantSlug == SystemTenantSlug,
	}
}

// System is the identity used by background jobs
func System() Caller {
	return Caller{UserID: "system", Role: RoleSuperAdmin, BypassTenant: true}
}

// ForTenant narrows a caller to a single tenant without bypass
func (c Caller) ForTenant(tenantID string) Caller {
	c.TenantID = tenantID
	c.BypassTenant = false
	return c
}

// CanWrite reports whether the caller may run mutations
func (c Caller) CanWrite() bool {
	return c.Role == RoleAdmin || c.Role == RoleSuperAdmin
}

// RequireWrite returns errorx.ErrForbidden for read-only callers
func (c Caller) RequireWrite() error {
	if !c.CanWrite() {
		return errorx.ErrForbidden
	}
	return nil
}

// RequireSuperAdmin guards cross-tenant administration
func (c Caller) RequireSuperAdmin() error {
	if c.Role != RoleSuperAdmin || !c.BypassTenant {
		return errorx.ErrForbidden
	}
	return nil
}

// Valid reports whether role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
