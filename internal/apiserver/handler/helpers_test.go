package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/apiserver/database/databasetest"
	"github.com/amoylab/cleanbill/internal/assignment"
	jsvc "github.com/amoylab/cleanbill/internal/auth/jwt"
	"github.com/amoylab/cleanbill/internal/catalog"
	"github.com/amoylab/cleanbill/internal/client"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/i18n"
	"github.com/amoylab/cleanbill/internal/identity"
	"github.com/amoylab/cleanbill/internal/invoice"
	"github.com/amoylab/cleanbill/internal/payment"
	"github.com/amoylab/cleanbill/internal/property"
	"github.com/amoylab/cleanbill/internal/tenant"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mustNewJWTService(t *testing.T) *jsvc.Service {
	s, err := jsvc.NewService(jsvc.Config{SecretKey: "this-is-a-very-long-secret-key-for-testing", Duration: time.Hour})
	require.NoError(t, err)
	return s
}

type testEnv struct {
	t      *testing.T
	store  *database.Store
	jwt    *jsvc.Service
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	store := databasetest.New(t)
	logger := zap.NewNop()
	clock := func() time.Time { return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC) }

	assignments := assignment.NewService(store, logger)
	svc := Services{
		Tenants:     tenant.NewService(store, logger),
		Clients:     client.NewService(store, logger),
		Properties:  property.NewService(store, logger),
		Catalog:     catalog.NewService(store, logger),
		Assignments: assignments,
		Invoices:    invoice.NewService(store, assignments, invoice.Config{NumberRetries: 3}, logger, invoice.WithClock(clock)),
		Payments:    payment.NewService(store, logger, payment.WithClock(clock)),
	}

	translator, err := i18n.New("en", "")
	require.NoError(t, err)
	errs := errorx.NewErrorHandler(logger, translator)
	jwtService := mustNewJWTService(t)

	return &testEnv{
		t:      t,
		store:  store,
		jwt:    jwtService,
		router: NewRouter(New(svc, errs, logger), RouterOptions{JWT: jwtService, DB: store}),
	}
}

// tenant creates a tenant and returns an admin token for it
func (e *testEnv) tenant(slug string) string {
	e.t.Helper()
	t := &database.Tenant{Name: slug, Slug: slug, IsActive: true}
	require.NoError(e.t, e.store.CreateTenant(context.Background(), t))
	return e.token(t, identity.RoleAdmin)
}

func (e *testEnv) token(t *database.Tenant, role identity.Role) string {
	e.t.Helper()
	token, err := e.jwt.GenerateToken("user-"+t.Slug, t.ID, t.Slug, string(role))
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals the response body, failing the test on a status mismatch
func decode[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type errorBody struct {
	Code    string         `json:"code"`
	Detail  string         `json:"detail"`
	Details map[string]any `json:"details"`
}

