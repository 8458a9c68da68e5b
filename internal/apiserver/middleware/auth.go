package middleware

import (
	"strings"

	"github.com/amoylab/cleanbill/internal/auth/jwt"
	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/identity"

	"github.com/gin-gonic/gin"
)

// ErrorRenderer writes an error response and aborts the chain
type ErrorRenderer interface {
	HandleError(c *gin.Context, err error)
}

// JWTAuthMiddleware validates the bearer token and stores the resulting
// identity.Caller under cnst.CtxKeyCaller
func JWTAuthMiddleware(jwtService *jwt.Service, errs ErrorRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			errs.HandleError(c, errorx.ErrUnauthorized)
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			errs.HandleError(c, errorx.ErrUnauthorized.WithDetail("reason", err.Error()))
			return
		}
		role := identity.Role(claims.Role)
		if !role.Valid() {
			errs.HandleError(c, errorx.ErrUnauthorized.WithDetail("reason", "unknown role"))
			return
		}

		c.Set(cnst.CtxKeyClaims, claims)
		c.Set(cnst.CtxKeyCaller, identity.New(claims.TenantID, claims.TenantSlug, claims.UserID, role))
		c.Next()
	}
}

// Caller returns the identity stored by JWTAuthMiddleware
func Caller(c *gin.Context) (identity.Caller, bool) {
	v, ok := c.Get(cnst.CtxKeyCaller)
	if !ok {
		return identity.Caller{}, false
	}
	caller, ok := v.(identity.Caller)
	return caller, ok
}
