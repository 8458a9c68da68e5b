package dto

import "github.com/amoylab/cleanbill/internal/identity"

// CallerInfo describes the authenticated caller
type CallerInfo struct {
	UserID       string `json:"userId"`
	TenantID     string `json:"tenantId"`
	Role         string `json:"role"`
	BypassTenant bool   `json:"bypassTenant"`
}

func FromCaller(c identity.Caller) CallerInfo {
	return CallerInfo{
		UserID:       c.UserID,
		TenantID:     c.TenantID,
		Role:         string(c.Role),
		BypassTenant: c.BypassTenant,
	}
}

// TokenResponse carries an issued bearer token
type TokenResponse struct {
	Token string `json:"token"`
}
